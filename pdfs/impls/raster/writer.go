package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/zeptools/certgw/pdfs"
	"github.com/zeptools/certgw/rw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Writer implements pdfs.Writer by painting pages into RGBA images.
// Output is PNG; several pages are stacked top to bottom into one image.
type Writer struct {
	paper  pdfs.PaperSize
	scale  float64 // pixels per pt
	tpls   pdfs.Templates[image.Image]
	pages  []*image.NRGBA
	face   font.Face
	err    error
	output []byte
}

// Ensure Writer implements pdfs.Writer[image.Image]
var _ pdfs.Writer[image.Image] = (*Writer)(nil)

// NewWriter creates a raster writer. scale is the number of pixels per pt; 0 means 1
func NewWriter(paper pdfs.PaperSize, scale float64) *Writer {
	if scale <= 0 {
		scale = 1
	}
	return &Writer{
		paper: paper,
		scale: scale,
		tpls:  make(pdfs.Templates[image.Image]),
	}
}

func (w *Writer) PaperSize() pdfs.PaperSize {
	return w.paper
}

func (w *Writer) Orientation() string {
	return w.paper.Orientation()
}

func (w *Writer) Templates() pdfs.Templates[image.Image] {
	return w.tpls
}

func (w *Writer) pixelSize() (int, int) {
	return int(math.Round(w.paper.Width * w.scale)), int(math.Round(w.paper.Height * w.scale))
}

// ImportImageAsTemplate stretches the image to the full page size, ignoring its aspect ratio
func (w *Writer) ImportImageAsTemplate(img pdfs.Image, storeKey string) error {
	if img.Decoded == nil {
		return fmt.Errorf("template %q: image is not decoded", storeKey)
	}
	pw, ph := w.pixelSize()
	w.tpls[storeKey] = imaging.Resize(img.Decoded, pw, ph, imaging.Lanczos)
	return nil
}

func (w *Writer) AddBlankPage() {
	pw, ph := w.pixelSize()
	w.pages = append(w.pages, imaging.New(pw, ph, color.White))
}

func (w *Writer) AddTemplatePage(storeKey string) bool {
	tpl, ok := w.tpls[storeKey]
	if !ok {
		return false
	}
	w.pages = append(w.pages, imaging.Clone(tpl))
	return true
}

func (w *Writer) PageCount() int {
	return len(w.pages)
}

func (w *Writer) SetFont(f pdfs.StandardFont, size float64) error {
	otf, err := loadFont(f)
	if err != nil {
		return err
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size * w.scale,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return fmt.Errorf("font %s: %w", f.Name, err)
	}
	if w.face != nil {
		_ = w.face.Close()
	}
	w.face = face
	return nil
}

func (w *Writer) StringWidth(text string) float64 {
	if w.face == nil {
		return 0
	}
	return fixedToFloat(font.MeasureString(w.face, text)) / w.scale
}

func (w *Writer) Text(x float64, y float64, text string) {
	if len(w.pages) == 0 {
		w.setErr(fmt.Errorf("text %q drawn before any page was added", text))
		return
	}
	if w.face == nil {
		w.setErr(fmt.Errorf("text %q drawn before a font was set", text))
		return
	}
	d := &font.Drawer{
		Dst:  w.pages[len(w.pages)-1],
		Src:  image.NewUniform(color.Black),
		Face: w.face,
		Dot: fixed.Point26_6{
			X: floatToFixed(x * w.scale),
			Y: floatToFixed((w.paper.Height - y) * w.scale),
		},
	}
	d.DrawString(text)
}

func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Image returns all pages stacked vertically
func (w *Writer) Image() image.Image {
	if len(w.pages) == 1 {
		return w.pages[0]
	}
	pw, ph := w.pixelSize()
	sheet := imaging.New(pw, ph*max(len(w.pages), 1), color.White)
	for i, page := range w.pages {
		sheet = imaging.Paste(sheet, page, image.Pt(0, i*ph))
	}
	return sheet
}

func (w *Writer) ProduceBytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.output != nil {
		return w.output, nil
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, w.Image(), imaging.PNG); err != nil {
		return nil, err
	}
	if w.face != nil {
		_ = w.face.Close()
		w.face = nil
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
	if w.err != nil {
		return w.err
	}
	_, err := rw.WriteFileAtomic(filepath, 0o644, func(dst io.Writer) error {
		return imaging.Encode(dst, w.Image(), imaging.PNG)
	})
	return err
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
