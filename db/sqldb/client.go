package sqldb

import (
	"context"
	"log"
)

// Client is one configured database. Init connects and loads the statements of all registered groups.
type Client interface {
	Init() error
	Close() error
	Conf() *Conf
	DBType() string
	DBHandle() DBHandle
	Stmts() *Stmts
	BeginTx(ctx context.Context) (Tx, error)
}

// Querier runs statements on a pool handle or inside a Tx
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRows(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row

	// InsertStmt runs a single INSERT whose Result reports LastInsertId for every dialect
	InsertStmt(ctx context.Context, query string, args ...any) (Result, error)
}

type DBHandle interface {
	Querier
	Ping(ctx context.Context) error
}

type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// WithTx commits when fn returns nil and rolls back otherwise
func WithTx(ctx context.Context, c Client, fn func(tx Tx) error) error {
	tx, err := c.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Printf("[WARN][SQLDB] rollback: %v", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func CloseClient(name string, c Client) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("[WARN][SQLDB] close `%s`: %v", name, err)
		return
	}
	log.Printf("[INFO][SQLDB] `%s` closed", name)
}
