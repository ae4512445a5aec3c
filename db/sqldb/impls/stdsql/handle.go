// Package stdsql adapts database/sql to the sqldb interfaces for the mysql and sqlite clients.
package stdsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zeptools/certgw/db/sqldb"
)

// runner is what *sql.DB and *sql.Tx share
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type querier struct {
	r runner
}

func (q querier) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	return q.r.ExecContext(ctx, query, args...)
}

func (q querier) QueryRows(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	rows, err := q.r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (q querier) QueryRow(ctx context.Context, query string, args ...any) sqldb.Row {
	return row{q.r.QueryRowContext(ctx, query, args...)}
}

// InsertStmt relies on the driver's LastInsertId
func (q querier) InsertStmt(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT") {
		return nil, fmt.Errorf("stdsql: InsertStmt needs an INSERT, got %.20q", query)
	}
	return q.Exec(ctx, query, args...)
}

type row struct{ *sql.Row }

func (r row) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return sqldb.ErrNoRows
	}
	return err
}

type DBHandle struct {
	querier
	db *sql.DB
}

var _ sqldb.DBHandle = (*DBHandle)(nil)

func NewDBHandle(db *sql.DB) *DBHandle {
	return &DBHandle{querier: querier{db}, db: db}
}

func (h *DBHandle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

type Tx struct {
	querier
	tx *sql.Tx
}

var _ sqldb.Tx = (*Tx)(nil)

func BeginTx(ctx context.Context, db *sql.DB) (sqldb.Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{querier: querier{tx}, tx: tx}, nil
}

func (t *Tx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *Tx) Rollback(context.Context) error { return t.tx.Rollback() }
