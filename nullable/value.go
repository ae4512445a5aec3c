// Package nullable holds NULL-able column values that read from SQL and round-trip JSON null.
package nullable

import (
	"bytes"
	"database/sql"
	"time"

	"github.com/go-json-experiment/json"
)

// Value scans like sql.Null and encodes NULL as JSON null
type Value[T any] struct {
	sql.Null[T]
}

type (
	String = Value[string]
	Int    = Value[int64]
	Time   = Value[time.Time]
)

func Of[T any](v T) Value[T] {
	return Value[T]{sql.Null[T]{V: v, Valid: true}}
}

func StringOf(s string) String { return Of(s) }
func IntOf(i int64) Int        { return Of(i) }
func TimeOf(t time.Time) Time  { return Of(t) }

// ForceValue returns the zero T for NULL
func (n Value[T]) ForceValue() T {
	if !n.Valid {
		var zero T
		return zero
	}
	return n.V
}

func (n Value[T]) IsNil() bool {
	return !n.Valid
}

func (n Value[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.V)
}

func (n *Value[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*n = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Of(v)
	return nil
}
