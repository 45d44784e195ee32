package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"salesetl/internal/storage"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	sqlStateForeignKey = "23503"
	classIntegrity     = "23"
	classConnection    = "08"
	classShutdown      = "57P"
)

// classify tags err with a storage error class when it can be recognized.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlStateForeignKey:
			return storage.Classified(storage.ErrForeignKey, err)
		case strings.HasPrefix(pgErr.Code, classIntegrity):
			return storage.Classified(storage.ErrConstraint, err)
		case strings.HasPrefix(pgErr.Code, classConnection), strings.HasPrefix(pgErr.Code, classShutdown):
			return storage.Classified(storage.ErrConnection, err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || storage.IsConnectionLoss(err) {
		return storage.Classified(storage.ErrConnection, err)
	}
	return err
}
