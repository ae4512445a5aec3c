package gofpdf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	lowimpl "github.com/jung-kurt/gofpdf"
	"github.com/zeptools/certgw/pdfs"
	"github.com/zeptools/certgw/rw"
)

// Template is a registered full-page background image
type Template struct {
	Name string
	Info *lowimpl.ImageInfoType
}

// Writer implements pdfs.Writer on top of gofpdf using the 14 standard fonts
type Writer struct {
	paper    pdfs.PaperSize
	pdf      *lowimpl.Fpdf
	tpls     pdfs.Templates[Template]
	output   []byte // set once the document is produced
	fontSize float64
}

// Ensure Writer implements pdfs.Writer[Template]
var _ pdfs.Writer[Template] = (*Writer)(nil)

type Option func(*Writer)

// WithMetadata sets the document title and creator
func WithMetadata(title string, creator string) Option {
	return func(w *Writer) {
		w.pdf.SetTitle(title, true)
		w.pdf.SetCreator(creator, true)
	}
}

// WithCreationDate pins the creation date. Mostly for reproducible output
func WithCreationDate(t time.Time) Option {
	return func(w *Writer) {
		w.pdf.SetCreationDate(t)
		w.pdf.SetModificationDate(t)
	}
}

func NewWriter(paper pdfs.PaperSize, opts ...Option) *Writer {
	// gofpdf takes the portrait size and swaps it for landscape
	size := lowimpl.SizeType{Wd: min(paper.Width, paper.Height), Ht: max(paper.Width, paper.Height)}
	pdf := lowimpl.NewCustom(&lowimpl.InitType{
		OrientationStr: paper.Orientation(),
		UnitStr:        "pt",
		Size:           size,
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTextColor(0, 0, 0)
	w := &Writer{
		paper: paper,
		pdf:   pdf,
		tpls:  make(pdfs.Templates[Template]),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) PaperSize() pdfs.PaperSize {
	return w.paper
}

func (w *Writer) Orientation() string {
	return w.paper.Orientation()
}

func (w *Writer) Templates() pdfs.Templates[Template] {
	return w.tpls
}

func (w *Writer) ImportImageAsTemplate(img pdfs.Image, storeKey string) error {
	var imageType string
	switch img.Format {
	case pdfs.PNG:
		imageType = "PNG"
	case pdfs.JPEG:
		imageType = "JPG"
	default:
		return fmt.Errorf("unsupported image format %q", img.Format)
	}
	info := w.pdf.RegisterImageOptionsReader(storeKey, lowimpl.ImageOptions{ImageType: imageType}, bytes.NewReader(img.Data))
	if err := w.pdf.Error(); err != nil {
		// keep the document usable for the caller's error report
		w.pdf.ClearError()
		return fmt.Errorf("register image %q: %w", storeKey, err)
	}
	w.tpls[storeKey] = Template{Name: storeKey, Info: info}
	return nil
}

func (w *Writer) AddBlankPage() {
	w.pdf.AddPage()
}

func (w *Writer) AddTemplatePage(storeKey string) bool {
	tpl, ok := w.tpls[storeKey]
	if !ok {
		return false
	}
	w.pdf.AddPage()
	w.pdf.ImageOptions(tpl.Name, 0, 0, w.paper.Width, w.paper.Height, false, lowimpl.ImageOptions{}, 0, "")
	return w.pdf.Error() == nil
}

func (w *Writer) PageCount() int {
	return w.pdf.PageCount()
}

func (w *Writer) SetFont(font pdfs.StandardFont, size float64) error {
	family, ok := familyNames[font.Family]
	if !ok {
		return fmt.Errorf("font %s: unknown family %q", font.Name, font.Family)
	}
	w.pdf.SetFont(family, styleNames[font.Style&pdfs.BoldItalic], size)
	if err := w.pdf.Error(); err != nil {
		w.pdf.ClearError()
		return fmt.Errorf("font %s: %w", font.Name, err)
	}
	w.fontSize = size
	return nil
}

func (w *Writer) StringWidth(text string) float64 {
	return w.pdf.GetStringWidth(toWinAnsi(text))
}

// Text draws text with its baseline at (x, y), y measured from the page bottom
func (w *Writer) Text(x float64, y float64, text string) {
	w.pdf.Text(x, w.paper.Height-y, toWinAnsi(text))
}

func (w *Writer) Err() error {
	return w.pdf.Error()
}

func (w *Writer) ProduceBytes() ([]byte, error) {
	if w.output != nil {
		return w.output, nil
	}
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, err
	}
	w.output = buf.Bytes()
	return w.output, nil
}

func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	out, err := w.ProduceBytes()
	if err != nil {
		return 0, err
	}
	n, err := dst.Write(out)
	return int64(n), err
}

func (w *Writer) WriteToFile(filepath string) error {
	_, err := rw.WriteFileAtomic(filepath, 0o644, func(dst io.Writer) error {
		_, err := w.WriteTo(dst)
		return err
	})
	return err
}

var familyNames = map[pdfs.FontFamily]string{
	pdfs.Helvetica: "helvetica",
	pdfs.Times:     "times",
	pdfs.Courier:   "courier",
}

var styleNames = map[pdfs.FontStyle]string{
	pdfs.Regular:    "",
	pdfs.Bold:       "B",
	pdfs.Italic:     "I",
	pdfs.BoldItalic: "BI",
}
