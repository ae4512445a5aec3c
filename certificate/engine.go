package certificate

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/zeptools/certgw/pdfs"
)

// Engine composes certificates. T is the template type of the writer it renders with.
// An Engine holds no per-render state and is safe for concurrent use as long as
// newWriter returns a fresh writer on every call.
type Engine[T any] struct {
	assets    AssetSource
	newWriter func() pdfs.Writer[T]
	canvas    Canvas
	locale    Locale
	onFont    func(*FontResolutionError)
}

type Option func(*settings)

type settings struct {
	canvas Canvas
	locale Locale
	onFont func(*FontResolutionError)
}

// WithLocale sets the month names of date fields
func WithLocale(locale Locale) Option {
	return func(s *settings) { s.locale = locale }
}

// WithCanvas overrides the design canvas
func WithCanvas(c Canvas) Option {
	return func(s *settings) { s.canvas = c }
}

// OnFontFallback is called whenever a font could not be set and DefaultFont was used instead
func OnFontFallback(fn func(*FontResolutionError)) Option {
	return func(s *settings) { s.onFont = fn }
}

func NewEngine[T any](assets AssetSource, newWriter func() pdfs.Writer[T], opts ...Option) *Engine[T] {
	s := settings{canvas: DesignCanvas, locale: DefaultLocale}
	for _, opt := range opts {
		opt(&s)
	}
	return &Engine[T]{
		assets:    assets,
		newWriter: newWriter,
		canvas:    s.canvas,
		locale:    s.locale,
		onFont:    s.onFont,
	}
}

// RenderSingle renders one template for one participant into a one-page document
func (e *Engine[T]) RenderSingle(tpl TemplateDescriptor, p ParticipantContext, now time.Time) ([]byte, error) {
	w := e.newWriter()
	if err := e.RenderPage(w, tpl, p, now); err != nil {
		return nil, err
	}
	return w.ProduceBytes()
}

// RenderMerged renders every template for one participant, in ascending template index,
// into one document. Any failing template fails the whole document.
func (e *Engine[T]) RenderMerged(tpls []TemplateDescriptor, p ParticipantContext, now time.Time) ([]byte, error) {
	if len(tpls) == 0 {
		return nil, ErrNoTemplates
	}
	ordered := SortTemplates(tpls)
	for _, tpl := range ordered {
		if _, err := CheckImageFormat(tpl.ImagePath); err != nil {
			return nil, err
		}
	}
	w := e.newWriter()
	for _, tpl := range ordered {
		if err := e.RenderPage(w, tpl, p, now); err != nil {
			return nil, err
		}
	}
	return w.ProduceBytes()
}

// RenderPage appends one page to w: the background stretched over the page,
// then every active field centered on its position in black.
func (e *Engine[T]) RenderPage(w pdfs.Writer[T], tpl TemplateDescriptor, p ParticipantContext, now time.Time) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	// one import per background image and writer, however many pages reuse it
	key := "bg:" + tpl.ImagePath
	if !w.Templates().Has(key) {
		bg, err := LoadImage(e.assets, tpl.ImagePath)
		if err != nil {
			return err
		}
		if err = w.ImportImageAsTemplate(bg, key); err != nil {
			return &TemplateAssetError{ImagePath: tpl.ImagePath, Err: err}
		}
	}
	if !w.AddTemplatePage(key) {
		return &TemplateAssetError{ImagePath: tpl.ImagePath, Err: fmt.Errorf("page from template %q: %w", key, w.Err())}
	}

	page := w.PaperSize()
	for _, f := range tpl.Fields {
		if !f.IsActive() {
			continue
		}
		text := Sanitize(ResolveValue(f, p, now, e.locale))
		if text == "" {
			continue
		}
		if err := e.setFont(w, ResolveFont(f), f.EffectiveFontSize()); err != nil {
			return err
		}
		pt := e.canvas.ToPage(f.X, f.Y, page)
		w.Text(CenteredOrigin(pt.X, w.StringWidth(text)), pt.Y, text)
	}
	return w.Err()
}

func (e *Engine[T]) setFont(w pdfs.Writer[T], font pdfs.StandardFont, size float64) error {
	err := w.SetFont(font, size)
	if err == nil {
		return nil
	}
	fontErr := &FontResolutionError{Font: font.Name, Err: err}
	if e.onFont != nil {
		e.onFont(fontErr)
	}
	if font == DefaultFont {
		return fontErr
	}
	if err = w.SetFont(DefaultFont, size); err != nil {
		return &FontResolutionError{Font: DefaultFont.Name, Err: err}
	}
	return nil
}

// SortTemplates returns a copy ordered by ascending template index
func SortTemplates(tpls []TemplateDescriptor) []TemplateDescriptor {
	ordered := slices.Clone(tpls)
	slices.SortStableFunc(ordered, func(a, b TemplateDescriptor) int {
		return cmp.Compare(a.TemplateIndex, b.TemplateIndex)
	})
	return ordered
}
