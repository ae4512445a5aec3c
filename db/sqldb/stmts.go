package sqldb

import (
	"fmt"
	"io/fs"
	"log"
	"path"
	"strconv"
	"strings"
	"sync"
)

type stmtGroup struct {
	name string
	fsys fs.FS
}

var (
	groupsMu sync.Mutex
	groups   []stmtGroup
)

// RegisterGroup adds the `sql` dir of fsys under the group name.
// Call it from package init() so every client loads the group.
func RegisterGroup(fsys fs.FS, group string) {
	groupsMu.Lock()
	defer groupsMu.Unlock()
	groups = append(groups, stmtGroup{name: group, fsys: fsys})
}

// Stmts holds the named statements of every registered group, bound to one dialect
type Stmts struct {
	dbType string
	byKey  map[string]string
}

func stmtKey(group string, name string) string {
	return group + "." + name
}

// Get returns the statement `name` of group
func (s *Stmts) Get(group string, name string) (string, error) {
	q, ok := s.byKey[stmtKey(group, name)]
	if !ok {
		return "", fmt.Errorf("sqldb: no %s stmt %s.%s", s.dbType, group, name)
	}
	return q, nil
}

func (s *Stmts) Len() int {
	return len(s.byKey)
}

// LoadStmts reads every registered group for dbType.
// `name.sql` files use `?` placeholders and are rebound. A `name.<dbType>` file replaces `name.sql` verbatim.
func LoadStmts(dbType string) (*Stmts, error) {
	groupsMu.Lock()
	snapshot := append([]stmtGroup(nil), groups...)
	groupsMu.Unlock()

	s, err := loadStmts(dbType, snapshot)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO][SQLDB][%s] %d stmts in %d groups", dbType, s.Len(), len(snapshot))
	return s, nil
}

func loadStmts(dbType string, from []stmtGroup) (*Stmts, error) {
	s := &Stmts{dbType: dbType, byKey: make(map[string]string)}
	for _, g := range from {
		for _, ext := range []string{"sql", dbType} {
			files, err := fs.Glob(g.fsys, "sql/*."+ext)
			if err != nil {
				return nil, fmt.Errorf("sqldb: group %s: %w", g.name, err)
			}
			for _, file := range files {
				data, err := fs.ReadFile(g.fsys, file)
				if err != nil {
					return nil, fmt.Errorf("sqldb: group %s: %w", g.name, err)
				}
				q := string(data)
				if ext == "sql" {
					q = Rebind(dbType, q)
				}
				s.byKey[stmtKey(g.name, strings.TrimSuffix(path.Base(file), "."+ext))] = q
			}
		}
	}
	return s, nil
}

// Rebind rewrites `?` placeholders into the numbered `$n` form for pgsql.
// Question marks inside single-quoted literals are left alone. Other dialects take `?` as is.
func Rebind(dbType string, q string) string {
	if dbType != "pgsql" || !strings.Contains(q, "?") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n, quoted := 0, false
	for _, r := range q {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
