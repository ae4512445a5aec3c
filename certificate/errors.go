package certificate

import (
	"errors"
	"fmt"
)

var (
	ErrNoTemplates   = errors.New("no certificate templates")
	ErrAssetNotFound = errors.New("template image not found")
	ErrUnsupported   = errors.New("template image must be PNG or JPG/JPEG")
)

// TemplateAssetError reports a background image that is missing, unreadable or of the wrong format
type TemplateAssetError struct {
	ImagePath string
	Err       error
}

func (e *TemplateAssetError) Error() string {
	return fmt.Sprintf("template asset %q: %v", e.ImagePath, e.Err)
}

func (e *TemplateAssetError) Unwrap() error {
	return e.Err
}

// TemplateFieldFormatError reports a field list that is not a sequence of fields,
// or a field whose position is not numeric. Index is -1 when the whole list is malformed.
type TemplateFieldFormatError struct {
	TemplateIndex int
	Index         int
	Reason        string
	Err           error
}

func (e *TemplateFieldFormatError) Error() string {
	msg := "invalid template fields format"
	if e.TemplateIndex > 0 {
		msg = fmt.Sprintf("template %d: %s", e.TemplateIndex, msg)
	}
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: field %d", msg, e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TemplateFieldFormatError) Unwrap() error {
	return e.Err
}

// FontResolutionError reports a font the output cannot embed.
// Rendering recovers from it by switching to DefaultFont.
type FontResolutionError struct {
	Font string
	Err  error
}

func (e *FontResolutionError) Error() string {
	return fmt.Sprintf("font %s unavailable: %v", e.Font, e.Err)
}

func (e *FontResolutionError) Unwrap() error {
	return e.Err
}
