package certificate

import (
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/pdfs"
)

type drawnText struct {
	X, Y float64
	Text string
	Font pdfs.StandardFont
	Size float64
}

// fakeWriter records drawing calls. Text width is 0.5 * size per byte.
type fakeWriter struct {
	tpls   pdfs.Templates[string]
	pages  int
	font   pdfs.StandardFont
	size   float64
	texts  []drawnText
	reject map[pdfs.FontFamily]bool
}

var _ pdfs.Writer[string] = (*fakeWriter)(nil)

func newFakeWriter() *fakeWriter {
	return &fakeWriter{tpls: make(pdfs.Templates[string])}
}

func (w *fakeWriter) PaperSize() pdfs.PaperSize         { return pdfs.CertificateSize }
func (w *fakeWriter) Orientation() string               { return "L" }
func (w *fakeWriter) Templates() pdfs.Templates[string] { return w.tpls }
func (w *fakeWriter) ImportImageAsTemplate(img pdfs.Image, key string) error {
	w.tpls[key] = string(img.Format)
	return nil
}
func (w *fakeWriter) AddBlankPage() { w.pages++ }
func (w *fakeWriter) AddTemplatePage(key string) bool {
	if !w.tpls.Has(key) {
		return false
	}
	w.pages++
	return true
}
func (w *fakeWriter) PageCount() int { return w.pages }
func (w *fakeWriter) SetFont(f pdfs.StandardFont, size float64) error {
	if w.reject[f.Family] {
		return io.ErrUnexpectedEOF
	}
	w.font, w.size = f, size
	return nil
}
func (w *fakeWriter) StringWidth(text string) float64 { return float64(len(text)) * w.size * 0.5 }
func (w *fakeWriter) Text(x, y float64, text string) {
	w.texts = append(w.texts, drawnText{X: x, Y: y, Text: text, Font: w.font, Size: w.size})
}
func (w *fakeWriter) Err() error                           { return nil }
func (w *fakeWriter) WriteTo(dst io.Writer) (int64, error) { return 0, nil }
func (w *fakeWriter) WriteToFile(string) error             { return nil }
func (w *fakeWriter) ProduceBytes() ([]byte, error)        { return []byte("%PDF-fake"), nil }

// writeImage saves a solid image at root/rel and returns its stored path ("/" + rel)
func writeImage(t *testing.T, root string, rel string, w, h int) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{R: 240, G: 230, B: 200, A: 255}), full))
	return "/" + rel
}

func active(b bool) *bool { return &b }
