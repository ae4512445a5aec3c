package store

import (
	"time"

	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/nullable"
)

type Event struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Location  nullable.String `json:"location"`
	StartTime nullable.Time   `json:"startTime"`
}

func (e *Event) TargetFields() []any {
	return []any{&e.ID, &e.Name, &e.Slug, &e.Location, &e.StartTime}
}

// participantRow is one participants/tickets/events join
type participantRow struct {
	ID             int64
	Name           string
	Email          nullable.String
	Token          string
	EventID        int64
	EventName      string
	EventSlug      string
	EventStartTime nullable.Time
}

func (r *participantRow) TargetFields() []any {
	return []any{&r.ID, &r.Name, &r.Email, &r.Token, &r.EventID, &r.EventName, &r.EventSlug, &r.EventStartTime}
}

func (r *participantRow) context() certificate.ParticipantContext {
	return certificate.ParticipantContext{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email.ForceValue(),
		Token:          r.Token,
		EventID:        r.EventID,
		EventName:      r.EventName,
		EventSlug:      r.EventSlug,
		EventStartTime: r.EventStartTime.ForceValue(),
	}
}

type templateRow struct {
	ID            int64
	EventID       int64
	TemplateIndex int
	Path          nullable.String
	Fields        nullable.String
}

func (r *templateRow) TargetFields() []any {
	return []any{&r.ID, &r.EventID, &r.TemplateIndex, &r.Path, &r.Fields}
}

// descriptor decodes the stored field list. A malformed list does not fail the read:
// it is carried on the descriptor so only renders of this template fail.
func (r *templateRow) descriptor() certificate.TemplateDescriptor {
	tpl := certificate.TemplateDescriptor{
		ID:            r.ID,
		EventID:       r.EventID,
		TemplateIndex: r.TemplateIndex,
		ImagePath:     r.Path.ForceValue(),
	}
	raw := r.Fields.ForceValue()
	if raw == "" {
		raw = "[]"
	}
	fields, err := certificate.DecodeFields([]byte(raw))
	if err != nil {
		if ffe, ok := err.(*certificate.TemplateFieldFormatError); ok {
			ffe.TemplateIndex = r.TemplateIndex
		}
		tpl.FieldsErr = err
		return tpl
	}
	tpl.Fields = fields
	return tpl
}

// TemplateInput is one slot written by the template designer
type TemplateInput struct {
	TemplateIndex int
	ImagePath     string
	Fields        []certificate.FieldSpec
}

type Certificate struct {
	ID            int64        `json:"id"`
	ParticipantID nullable.Int `json:"participantId"`
	TemplateID    nullable.Int `json:"templateId"`
	Path          string       `json:"path"`
	Sent          bool         `json:"sent"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func (c *Certificate) TargetFields() []any {
	return []any{&c.ID, &c.ParticipantID, &c.TemplateID, &c.Path, &c.Sent, &c.CreatedAt}
}

type Stats struct {
	TotalParticipants   int64 `json:"totalParticipants"`
	WithCertificates    int64 `json:"withCertificates"`
	WithoutCertificates int64 `json:"withoutCertificates"`
	TemplateCount       int64 `json:"templateCount"`
}
