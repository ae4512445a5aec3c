// Package store persists events, participants, certificate templates and issued certificates.
// Statements live in the embedded `sql` dir and are loaded into each client's Stmts.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/db/sqldb"
)

const Group = "certs"

//go:embed sql
var sqlFS embed.FS

//go:embed schema
var schemaFS embed.FS

func init() {
	sqldb.RegisterGroup(sqlFS, Group)
}

// ErrNotFound wraps sqldb.ErrNoRows for lookups by key
var ErrNotFound = errors.New("store: not found")

type Store struct {
	db sqldb.Client
}

func New(db sqldb.Client) *Store {
	return &Store{db: db}
}

func (s *Store) stmt(name string) (string, error) {
	return s.db.Stmts().Get(Group, name)
}

func notFound(err error, what string) error {
	if errors.Is(err, sqldb.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// Migrate creates the schema for the client's dialect
func (s *Store) Migrate(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema/" + s.db.DBType() + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for %s: %w", s.db.DBType(), err)
	}
	_, err = s.db.DBHandle().Exec(ctx, string(ddl))
	return err
}

func (s *Store) Event(ctx context.Context, eventID int64) (*Event, error) {
	q, err := s.stmt("event")
	if err != nil {
		return nil, err
	}
	ev, err := sqldb.QueryItem[Event, *Event](ctx, s.db.DBHandle(), q, eventID)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("event %d", eventID))
	}
	return ev, nil
}

func (s *Store) ParticipantContext(ctx context.Context, participantID int64) (certificate.ParticipantContext, error) {
	q, err := s.stmt("participant_context")
	if err != nil {
		return certificate.ParticipantContext{}, err
	}
	row, err := sqldb.QueryItem[participantRow, *participantRow](ctx, s.db.DBHandle(), q, participantID)
	if err != nil {
		return certificate.ParticipantContext{}, notFound(err, fmt.Sprintf("participant %d", participantID))
	}
	return row.context(), nil
}

// PendingParticipants lists verified participants of the event without a certificate,
// oldest registration first
func (s *Store) PendingParticipants(ctx context.Context, eventID int64) ([]certificate.ParticipantContext, error) {
	q, err := s.stmt("pending_participants")
	if err != nil {
		return nil, err
	}
	rows, err := sqldb.QueryItems[participantRow, *participantRow](ctx, s.db.DBHandle(), q, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]certificate.ParticipantContext, len(rows))
	for i, r := range rows {
		out[i] = r.context()
	}
	return out, nil
}

// Templates returns the event's templates by ascending index
func (s *Store) Templates(ctx context.Context, eventID int64) ([]certificate.TemplateDescriptor, error) {
	q, err := s.stmt("templates")
	if err != nil {
		return nil, err
	}
	rows, err := sqldb.QueryItems[templateRow, *templateRow](ctx, s.db.DBHandle(), q, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]certificate.TemplateDescriptor, len(rows))
	for i, r := range rows {
		out[i] = r.descriptor()
	}
	return out, nil
}

func (s *Store) Template(ctx context.Context, eventID int64, templateIndex int) (certificate.TemplateDescriptor, error) {
	q, err := s.stmt("template")
	if err != nil {
		return certificate.TemplateDescriptor{}, err
	}
	row, err := sqldb.QueryItem[templateRow, *templateRow](ctx, s.db.DBHandle(), q, eventID, templateIndex)
	if err != nil {
		return certificate.TemplateDescriptor{}, notFound(err, fmt.Sprintf("template %d of event %d", templateIndex, eventID))
	}
	return row.descriptor(), nil
}

// UpsertTemplates writes all slots in one transaction
func (s *Store) UpsertTemplates(ctx context.Context, eventID int64, inputs []TemplateInput) error {
	q, err := s.stmt("upsert_template")
	if err != nil {
		return err
	}
	return sqldb.WithTx(ctx, s.db, func(tx sqldb.Tx) error {
		for _, in := range inputs {
			fields, err := certificate.EncodeFields(in.Fields)
			if err != nil {
				return err
			}
			if _, err = tx.Exec(ctx, q, eventID, in.TemplateIndex, in.ImagePath, string(fields)); err != nil {
				return fmt.Errorf("upsert template %d: %w", in.TemplateIndex, err)
			}
		}
		return nil
	})
}

// SetTemplateImage points the slot at a new image, creating the slot with no fields if absent.
// It returns the replaced image path, empty when there was none.
func (s *Store) SetTemplateImage(ctx context.Context, eventID int64, templateIndex int, imagePath string) (string, error) {
	selectQ, err := s.stmt("template")
	if err != nil {
		return "", err
	}
	insertQ, err := s.stmt("insert_template_image")
	if err != nil {
		return "", err
	}
	updateQ, err := s.stmt("update_template_image")
	if err != nil {
		return "", err
	}
	var oldPath string
	err = sqldb.WithTx(ctx, s.db, func(tx sqldb.Tx) error {
		old, err := sqldb.QueryItem[templateRow, *templateRow](ctx, tx, selectQ, eventID, templateIndex)
		switch {
		case errors.Is(err, sqldb.ErrNoRows):
			_, err = tx.InsertStmt(ctx, insertQ, eventID, templateIndex, imagePath)
			return err
		case err != nil:
			return err
		}
		oldPath = old.Path.ForceValue()
		_, err = tx.Exec(ctx, updateQ, imagePath, eventID, templateIndex)
		return err
	})
	if err != nil {
		return "", err
	}
	return oldPath, nil
}

// DeleteTemplate reports whether a row was removed
func (s *Store) DeleteTemplate(ctx context.Context, eventID int64, templateIndex int) (bool, error) {
	q, err := s.stmt("delete_template")
	if err != nil {
		return false, err
	}
	res, err := s.db.DBHandle().Exec(ctx, q, eventID, templateIndex)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) InsertCertificate(ctx context.Context, participantID int64, templateID int64, path string, createdAt time.Time) (int64, error) {
	q, err := s.stmt("insert_certificate")
	if err != nil {
		return 0, err
	}
	res, err := s.db.DBHandle().InsertStmt(ctx, q, participantID, templateID, path, createdAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) CertificateByPath(ctx context.Context, path string) (*Certificate, error) {
	q, err := s.stmt("certificate_by_path")
	if err != nil {
		return nil, err
	}
	c, err := sqldb.QueryItem[Certificate, *Certificate](ctx, s.db.DBHandle(), q, path)
	if err != nil {
		return nil, notFound(err, "certificate "+path)
	}
	return c, nil
}

func (s *Store) Stats(ctx context.Context, eventID int64) (Stats, error) {
	var st Stats
	counts := []struct {
		stmt string
		dst  *int64
	}{
		{"count_verified", &st.TotalParticipants},
		{"count_with_certificates", &st.WithCertificates},
		{"count_without_certificates", &st.WithoutCertificates},
		{"count_templates", &st.TemplateCount},
	}
	for _, c := range counts {
		q, err := s.stmt(c.stmt)
		if err != nil {
			return Stats{}, err
		}
		n, err := sqldb.QueryScalar[int64](ctx, s.db.DBHandle(), q, eventID)
		if err != nil {
			return Stats{}, fmt.Errorf("%s: %w", c.stmt, err)
		}
		*c.dst = n
	}
	return st, nil
}
