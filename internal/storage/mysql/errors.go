package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"salesetl/internal/storage"
)

// MySQL server error numbers.
const (
	errNoReferencedRow  = 1452
	errNoReferencedRow1 = 1216
	errDupEntry         = 1062
	errBadNull          = 1048
)

// classify tags err with a storage error class.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errNoReferencedRow, errNoReferencedRow1:
			return storage.Classified(storage.ErrForeignKey, err)
		case errDupEntry, errBadNull:
			return storage.Classified(storage.ErrConstraint, err)
		}
		return err
	}
	if errors.Is(err, mysql.ErrInvalidConn) || storage.IsConnectionLoss(err) {
		return storage.Classified(storage.ErrConnection, err)
	}
	return err
}
