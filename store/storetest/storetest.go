// Package storetest opens a migrated in-memory sqlite store and seeds fixtures
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/db/sqldb"
	"github.com/zeptools/certgw/db/sqldb/impls/sqlite"
	"github.com/zeptools/certgw/store"
)

func Open(t testing.TB) (*store.Store, sqldb.Client) {
	t.Helper()
	sqlite.Register()
	client, err := sqldb.New(sqlite.DBType, &sqldb.Conf{Type: sqlite.DBType, DB: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, client.Init())
	t.Cleanup(func() { _ = client.Close() })
	s := store.New(client)
	require.NoError(t, s.Migrate(context.Background()))
	return s, client
}

// Seeder inserts rows directly
type Seeder struct {
	T      testing.TB
	Client sqldb.Client
}

func (sd Seeder) insert(query string, args ...any) int64 {
	sd.T.Helper()
	res, err := sd.Client.DBHandle().InsertStmt(context.Background(), query, args...)
	require.NoError(sd.T, err)
	id, err := res.LastInsertId()
	require.NoError(sd.T, err)
	return id
}

func (sd Seeder) Event(name string, slug string, start time.Time) int64 {
	return sd.insert(`INSERT INTO events (name, slug, location, start_time) VALUES (?, ?, ?, ?)`, name, slug, "Jakarta", start)
}

// Participant adds a ticket and its holder, registered at `at`
func (sd Seeder) Participant(eventID int64, name string, verified bool, at time.Time) int64 {
	ticketID := sd.insert(`INSERT INTO tickets (event_id, token, is_verified) VALUES (?, ?, ?)`, eventID, "TKT-"+name, verified)
	return sd.insert(`INSERT INTO participants (ticket_id, name, email, created_at) VALUES (?, ?, ?, ?)`, ticketID, name, nil, at)
}

func (sd Seeder) Template(eventID int64, index int, imagePath string, fieldsJSON string) int64 {
	return sd.insert(`INSERT INTO certificate_templates_multi (event_id, template_index, template_path, template_fields) VALUES (?, ?, ?, ?)`,
		eventID, index, imagePath, fieldsJSON)
}
