package db

import "context"

// Database is the subset of a SQL connection pool the service uses.
type Database interface {
	Querier
	Ping(ctx context.Context) error
	Close() error
}

// Row is a single-row query result.
type Row interface {
	Scan(dest ...interface{}) error
}

// Result summarizes an executed statement.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}
