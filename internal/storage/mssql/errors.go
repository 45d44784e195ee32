package mssql

import (
	"errors"

	mssql "github.com/microsoft/go-mssqldb"

	"salesetl/internal/storage"
)

// SQL Server error numbers.
const (
	errConstraintConflict = 547 // FOREIGN KEY / CHECK conflict
	errUniqueIndex        = 2601
	errPrimaryKey         = 2627
	errNullInsert         = 515
)

// classify tags err with a storage error class based on the server error
// number.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me mssql.Error
	if errors.As(err, &me) {
		switch me.Number {
		case errConstraintConflict:
			return storage.Classified(storage.ErrForeignKey, err)
		case errUniqueIndex, errPrimaryKey, errNullInsert:
			return storage.Classified(storage.ErrConstraint, err)
		}
		return err
	}
	if storage.IsConnectionLoss(err) {
		return storage.Classified(storage.ErrConnection, err)
	}
	return err
}
