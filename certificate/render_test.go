package certificate_test

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/pdfs"
	"github.com/zeptools/certgw/pdfs/impls/gofpdf"
	"github.com/zeptools/certgw/pdfs/impls/raster"
)

func saveImage(t *testing.T, root, rel string, w, h int) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{R: 250, G: 250, B: 240, A: 255}), full))
	return "/" + rel
}

func layout(imagePath string, index int) certificate.TemplateDescriptor {
	return certificate.TemplateDescriptor{
		TemplateIndex: index,
		ImagePath:     imagePath,
		Fields: []certificate.FieldSpec{
			{Key: certificate.KeyName, X: 421, Y: 260, FontFamily: certificate.FamilyHelvetica, FontSize: 36, Bold: true},
			{Key: certificate.KeyEvent, X: 421, Y: 320, FontFamily: certificate.FamilyCourier},
			{Key: certificate.KeyNumber, X: 421, Y: 120, FontFamily: certificate.FamilyTimes, FontSize: 14},
			{Key: certificate.KeyDate, X: 650, Y: 520, FontSize: 12, Italic: true},
		},
	}
}

var participant = certificate.ParticipantContext{
	ID:             7,
	Name:           "Dewi \u0141ukasiewicz\u200d",
	EventID:        3,
	EventName:      "Tech Summit 2024",
	EventSlug:      "summit",
	EventStartTime: time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
}

func TestRenderMergedPDF(t *testing.T) {
	root := t.TempDir()
	tpls := []certificate.TemplateDescriptor{
		layout(saveImage(t, root, "certificates/templates/b.jpg", 1684, 1190), 2),
		layout(saveImage(t, root, "certificates/templates/a.png", 842, 595), 1),
	}
	e := certificate.NewEngine(certificate.DirAssets{Root: root}, func() pdfs.Writer[gofpdf.Template] {
		return gofpdf.NewWriter(pdfs.CertificateSize)
	})

	doc, err := e.RenderMerged(tpls, participant, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	assert.Equal(t, 2, bytes.Count(doc, []byte("<</Type /Page\n")))
	assert.Contains(t, string(doc), "/BaseFont /Times-Bold")
}

func TestRenderSinglePNG(t *testing.T) {
	root := t.TempDir()
	tpl := layout(saveImage(t, root, "certificates/templates/a.png", 421, 297), 1)
	e := certificate.NewEngine(certificate.DirAssets{Root: root}, func() pdfs.Writer[image.Image] {
		return raster.NewWriter(pdfs.CertificateSize, 1)
	})

	doc, err := e.RenderSingle(tpl, participant, time.Now())
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 842, img.Bounds().Dx())
	assert.Equal(t, 595, img.Bounds().Dy())
}
