package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeptools/certgw/db/sqldb"
)

// pgxQuerier is what *pgxpool.Pool and pgx.Tx share
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type handle struct {
	q    pgxQuerier
	pool *pgxpool.Pool // nil inside a tx
}

var _ sqldb.DBHandle = (*handle)(nil)

func (h *handle) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	tag, err := h.q.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return result{affected: tag.RowsAffected()}, nil
}

func (h *handle) QueryRows(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	rows, err := h.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return cursor{rows}, nil
}

func (h *handle) QueryRow(ctx context.Context, query string, args ...any) sqldb.Row {
	return row{h.q.QueryRow(ctx, query, args...)}
}

// InsertStmt adds `RETURNING id` unless the statement already returns something
func (h *handle) InsertStmt(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	upper := strings.ToUpper(query)
	if !strings.HasPrefix(upper, "INSERT") {
		return nil, fmt.Errorf("pgsql: InsertStmt needs an INSERT, got %.20q", query)
	}
	if strings.Contains(upper, "RETURNING") {
		return h.Exec(ctx, query, args...)
	}
	var id int64
	if err := h.q.QueryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return nil, err
	}
	return result{affected: 1, id: id}, nil
}

func (h *handle) Ping(ctx context.Context) error {
	if h.pool == nil {
		return errNotReady
	}
	return h.pool.Ping(ctx)
}

type txHandle struct {
	handle
	tx pgx.Tx
}

func (t *txHandle) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *txHandle) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// result carries the id read back by InsertStmt. Postgres has no LastInsertId
type result struct {
	affected int64
	id       int64
}

func (r result) RowsAffected() (int64, error) { return r.affected, nil }

func (r result) LastInsertId() (int64, error) {
	if r.id == 0 {
		return 0, errors.New("pgsql: no inserted id, use InsertStmt")
	}
	return r.id, nil
}

type row struct{ pgx.Row }

func (r row) Scan(dest ...any) error {
	if err := r.Row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sqldb.ErrNoRows
		}
		return err
	}
	return nil
}

type cursor struct{ rows pgx.Rows }

func (c cursor) Next() bool             { return c.rows.Next() }
func (c cursor) Scan(dest ...any) error { return c.rows.Scan(dest...) }
func (c cursor) Err() error             { return c.rows.Err() }

func (c cursor) Close() error {
	c.rows.Close()
	return nil
}
