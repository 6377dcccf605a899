// Package sqldb provides a gorm-backed connector with a table extractor and
// a table loader.
//
// Connector type "sqlite" opens the DSN with the sqlite dialect. When the
// "migrations" param names a directory, golang-migrate applies its
// NNN_name.up.sql files on Start. Role type "sql" selects the table
// extractor or loader:
//
//	connectors:
//	  d_db: {type: sqlite, params: {dsn: ./out.db, migrations: ./migrations}}
//	jobs:
//	  - load: {type: sql, destination: d_db, params: {table: partners, primary_keys: [name]}}
//
// The loader never returns write errors. A failed bulk insert or a failed
// keyed upsert is emitted as a pipeline.Failure for the error handler.
package sqldb
