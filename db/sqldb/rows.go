package sqldb

import "errors"

// ErrNoRows is what Row.Scan of every impl reports for an empty result
var ErrNoRows = errors.New("sqldb: no rows in result set")

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Row defers any query error to Scan
type Row interface {
	Scan(dest ...any) error
}

type Result interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}
