package sqlite

import (
	"errors"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"salesetl/internal/storage"
)

// classify tags err with a storage error class based on the SQLite extended
// result code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return storage.Classified(storage.ErrForeignKey, err)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT:
			return storage.Classified(storage.ErrConstraint, err)
		case code&0xff == sqlite3.SQLITE_CANTOPEN, code&0xff == sqlite3.SQLITE_IOERR:
			return storage.Classified(storage.ErrConnection, err)
		}
		return err
	}
	// Some driver paths only surface the message.
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return storage.Classified(storage.ErrForeignKey, err)
	}
	if storage.IsConnectionLoss(err) {
		return storage.Classified(storage.ErrConnection, err)
	}
	return err
}
