package database

import "context"

// DB is a connection pool to a live database. Introspectors run catalog
// queries through it and the server reads table rows through it; neither
// imports the postgres or mysql packages.
type DB interface {
	Ping(ctx context.Context) error
	Close()

	// Dialect selects placeholder style and identifier quoting for SQL
	// sent through this pool.
	Dialect() Dialect

	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow runs sql and defers "no rows" to Row.Scan.
	QueryRow(ctx context.Context, sql string, args ...any) (Row, error)
}

// Rows is a result set. Close must be called even after an error; driver
// errors from Scan and Err are already mapped to *errs.Error.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Columns() ([]string, error)
	Close()
	Err() error
}

// Row is a single-row result. Scan reports errs.ErrKindNotFound when the
// query matched nothing.
type Row interface {
	Scan(dest ...any) error
}
