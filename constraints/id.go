package constraints

import (
	"errors"
	"strconv"
	"strings"
)

// ID is a database row id type
type ID interface {
	~int | ~int64
}

var ErrInvalidID = errors.New("invalid id")

// ParseID accepts positive decimal ids only
func ParseID[I ID](s string) (I, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return I(n), nil
}

// ParseIDs parses every element of ss, failing on the first invalid one
func ParseIDs[I ID](ss []string) ([]I, error) {
	ids := make([]I, 0, len(ss))
	for _, s := range ss {
		id, err := ParseID[I](s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
