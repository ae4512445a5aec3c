package main

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/pdfs"
	"github.com/zeptools/certgw/pdfs/impls/raster"
)

const layoutYAML = `
locale: en
templates:
  - templateIndex: 2
    imagePath: /tpl/b.png
    fields:
      - {key: name, x: 421, y: 260, fontSize: 30, bold: true}
  - templateIndex: 1
    imagePath: /tpl/a.png
    fields:
      - {key: event, x: 421, y: 300, fontFamily: courier}
      - {key: date, x: 600, y: 500, active: false}
participants:
  - {id: 11, name: Ayu, eventName: Summit, eventStartTime: 2024-03-15T09:00:00Z}
  - {id: 12, name: Budi, eventName: Summit}
  - {id: 13, name: Citra, eventName: Summit}
`

func writeLayout(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png"} {
		full := filepath.Join(dir, "tpl", name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, imaging.Save(imaging.New(200, 140, color.White), full))
	}
	path := filepath.Join(dir, "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return dir, path
}

func TestLoadLayout(t *testing.T) {
	_, path := writeLayout(t, layoutYAML)
	l, err := loadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, certificate.LocaleEN, l.Locale)
	require.Len(t, l.Templates, 2)
	assert.False(t, l.Templates[1].Fields[1].IsActive())
	require.Len(t, l.Participants, 3)
	assert.Equal(t, 2024, l.Participants[0].EventStartTime.Year())
}

func TestLoadLayoutRejectsUnknownKeys(t *testing.T) {
	_, path := writeLayout(t, "templates: []\nbogus: 1\n")
	_, err := loadLayout(path)
	assert.Error(t, err)
}

func TestLoadLayoutNeedsTemplates(t *testing.T) {
	_, path := writeLayout(t, "participants: [{name: A}]\n")
	_, err := loadLayout(path)
	assert.ErrorIs(t, err, certificate.ErrNoTemplates)
}

func TestRunWritesOneFilePerParticipant(t *testing.T) {
	dir, path := writeLayout(t, layoutYAML)
	l, err := loadLayout(path)
	require.NoError(t, err)
	e := certificate.NewEngine(certificate.DirAssets{Root: dir}, func() pdfs.Writer[image.Image] {
		return raster.NewWriter(pdfs.CertificateSize, 0.25)
	})
	out := t.TempDir()

	result, err := run(context.Background(), e, l, out, ".png", false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount)
	// ordered by index: participant 0 -> template 1, 1 -> template 2, 2 -> template 1
	assert.Equal(t, []int{1, 2, 1}, []int{result.Results[0].TemplateIndex, result.Results[1].TemplateIndex, result.Results[2].TemplateIndex})
	for _, id := range []string{"11", "12", "13"} {
		assert.FileExists(t, filepath.Join(out, "certificate-"+id+".png"))
	}
}

func TestRunMergedReportsMissingAsset(t *testing.T) {
	dir, path := writeLayout(t, layoutYAML)
	l, err := loadLayout(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "tpl", "b.png")))
	e := certificate.NewEngine(certificate.DirAssets{Root: dir}, func() pdfs.Writer[image.Image] {
		return raster.NewWriter(pdfs.CertificateSize, 0.25)
	})

	result, err := run(context.Background(), e, l, t.TempDir(), ".png", true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.FailureCount)
	assert.ErrorIs(t, result.Results[0].Err, certificate.ErrAssetNotFound)
}
