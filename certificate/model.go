package certificate

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

const (
	MaxTemplates    = 6
	DefaultFontSize = 24
)

// Field keys with a dynamic value. Any other key renders its label.
const (
	KeyName   = "name"
	KeyEvent  = "event"
	KeyNumber = "number"
	KeyToken  = "token"
	KeyDate   = "date"
)

// FieldSpec is one positioned text element of a template.
// X and Y locate the center of the text on the design canvas, Y measured from the top.
type FieldSpec struct {
	Key        string  `json:"key" yaml:"key"`
	Active     *bool   `json:"active,omitempty" yaml:"active,omitempty"`
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	FontFamily string  `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitzero" yaml:"fontSize,omitempty"`
	Bold       bool    `json:"bold,omitzero" yaml:"bold,omitempty"`
	Italic     bool    `json:"italic,omitzero" yaml:"italic,omitempty"`
	Label      string  `json:"label,omitempty" yaml:"label,omitempty"`
	// Color is kept for the designer. Text is always drawn black.
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// IsActive treats an absent flag as active
func (f FieldSpec) IsActive() bool {
	return f.Active == nil || *f.Active
}

func (f FieldSpec) EffectiveFontSize() float64 {
	if f.FontSize <= 0 {
		return DefaultFontSize
	}
	return f.FontSize
}

type ImageSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// TemplateDescriptor pairs a background image with its text fields
type TemplateDescriptor struct {
	ID            int64       `json:"-" yaml:"-"`
	EventID       int64       `json:"-" yaml:"-"`
	TemplateIndex int         `json:"templateIndex" yaml:"templateIndex"`
	ImagePath     string      `json:"imagePath" yaml:"imagePath"`
	ImageSize     ImageSize   `json:"imageSize" yaml:"imageSize"`
	Fields        []FieldSpec `json:"fields" yaml:"fields"`
	// FieldsErr is set by the data layer when the stored field list could not be decoded.
	// Rendering such a template fails with this error.
	FieldsErr error `json:"-" yaml:"-"`
}

// Validate checks the descriptor can be rendered
func (t TemplateDescriptor) Validate() error {
	if t.FieldsErr != nil {
		return t.FieldsErr
	}
	for i, f := range t.Fields {
		if math.IsNaN(f.X) || math.IsInf(f.X, 0) || math.IsNaN(f.Y) || math.IsInf(f.Y, 0) {
			return &TemplateFieldFormatError{TemplateIndex: t.TemplateIndex, Index: i, Reason: "x/y must be finite numbers"}
		}
	}
	return nil
}

// ParticipantContext is the flattened participant/ticket/event record a certificate is rendered for
type ParticipantContext struct {
	ID             int64     `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Email          string    `json:"email" yaml:"email"`
	Token          string    `json:"token" yaml:"token"`
	EventID        int64     `json:"eventId" yaml:"eventId"`
	EventName      string    `json:"eventName" yaml:"eventName"`
	EventSlug      string    `json:"eventSlug" yaml:"eventSlug"`
	EventStartTime time.Time `json:"eventStartTime" yaml:"eventStartTime"`
}

// fieldWire mirrors FieldSpec with pointer positions, so a missing or null x/y is detected
type fieldWire struct {
	Key        string   `json:"key"`
	Active     *bool    `json:"active"`
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	FontFamily string   `json:"fontFamily"`
	FontSize   float64  `json:"fontSize"`
	Bold       bool     `json:"bold"`
	Italic     bool     `json:"italic"`
	Label      string   `json:"label"`
	Color      string   `json:"color"`
}

// DecodeFields decodes a stored JSON field list. It fails with *TemplateFieldFormatError
// when the data is not an array of objects, or when a field's x or y is not a number.
func DecodeFields(data []byte) ([]FieldSpec, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, &TemplateFieldFormatError{Index: -1, Reason: "fields must be an array"}
	}
	var raws []jsontext.Value
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &TemplateFieldFormatError{Index: -1, Reason: "fields must be an array", Err: err}
	}
	fields := make([]FieldSpec, 0, len(raws))
	for i, raw := range raws {
		var w fieldWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, &TemplateFieldFormatError{Index: i, Reason: "field must be an object with numeric x/y", Err: err}
		}
		if w.X == nil || w.Y == nil {
			return nil, &TemplateFieldFormatError{Index: i, Reason: "x/y must be numbers"}
		}
		fields = append(fields, FieldSpec{
			Key:        w.Key,
			Active:     w.Active,
			X:          *w.X,
			Y:          *w.Y,
			FontFamily: w.FontFamily,
			FontSize:   w.FontSize,
			Bold:       w.Bold,
			Italic:     w.Italic,
			Label:      w.Label,
			Color:      w.Color,
		})
	}
	return fields, nil
}

// EncodeFields is the inverse of DecodeFields
func EncodeFields(fields []FieldSpec) ([]byte, error) {
	if fields == nil {
		fields = []FieldSpec{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return data, nil
}
