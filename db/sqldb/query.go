package sqldb

import (
	"context"
	"fmt"
	"log"
)

// Scannable is a pointer to a model M that lists its column destinations in select order
type Scannable[M any] interface {
	~*M
	TargetFields() []any
}

// QueryItem scans the single row of q into a new M. A missing row yields ErrNoRows
func QueryItem[M any, MP Scannable[M]](ctx context.Context, q Querier, stmt string, args ...any) (*M, error) {
	item := new(M)
	if err := q.QueryRow(ctx, stmt, args...).Scan(MP(item).TargetFields()...); err != nil {
		return nil, err
	}
	return item, nil
}

// QueryItems scans every row of q. No rows is an empty result, not an error
func QueryItems[M any, MP Scannable[M]](ctx context.Context, q Querier, stmt string, args ...any) ([]*M, error) {
	rows, err := q.QueryRows(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Printf("[WARN][SQLDB] close rows: %v", cerr)
		}
	}()

	var items []*M
	for rows.Next() {
		item := new(M)
		if err = rows.Scan(MP(item).TargetFields()...); err != nil {
			return nil, fmt.Errorf("sqldb: scan row %d: %w", len(items), err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterate rows: %w", err)
	}
	return items, nil
}

// QueryScalar reads a one-column, one-row result such as COUNT(*)
func QueryScalar[V any](ctx context.Context, q Querier, stmt string, args ...any) (V, error) {
	var v V
	err := q.QueryRow(ctx, stmt, args...).Scan(&v)
	return v, err
}
