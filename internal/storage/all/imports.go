// Package all wires every built-in storage backend into the storage factory.
//
// Importing it (blank import) runs the init functions of each backend, which
// register their factories and dialects:
//
//   - "postgres" (salesetl/internal/storage/postgres)
//   - "sqlite"   (salesetl/internal/storage/sqlite)
//   - "mssql"    (salesetl/internal/storage/mssql)
//   - "mysql"    (salesetl/internal/storage/mysql)
//
// Typical usage (in cmd/etl):
//
//	import _ "salesetl/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: p.Storage.Kind, DSN: dsn})
//	if err != nil {
//	    return err
//	}
//	defer repo.Close()
package all

import (
	_ "salesetl/internal/storage/mssql"
	_ "salesetl/internal/storage/mysql"
	_ "salesetl/internal/storage/postgres"
	_ "salesetl/internal/storage/sqlite"
)
