package raster

import (
	"fmt"
	"sync"

	"github.com/zeptools/certgw/pdfs"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

type faceKey struct {
	family pdfs.FontFamily
	style  pdfs.FontStyle
}

// The Go fonts stand in for the standard PDF fonts. There is no Go serif face,
// so Times renders with the medium-weight sans.
var ttfs = map[faceKey][]byte{
	{pdfs.Helvetica, pdfs.Regular}:    goregular.TTF,
	{pdfs.Helvetica, pdfs.Bold}:       gobold.TTF,
	{pdfs.Helvetica, pdfs.Italic}:     goitalic.TTF,
	{pdfs.Helvetica, pdfs.BoldItalic}: gobolditalic.TTF,
	{pdfs.Times, pdfs.Regular}:        gomedium.TTF,
	{pdfs.Times, pdfs.Bold}:           gobold.TTF,
	{pdfs.Times, pdfs.Italic}:         gomediumitalic.TTF,
	{pdfs.Times, pdfs.BoldItalic}:     gobolditalic.TTF,
	{pdfs.Courier, pdfs.Regular}:      gomono.TTF,
	{pdfs.Courier, pdfs.Bold}:         gomonobold.TTF,
	{pdfs.Courier, pdfs.Italic}:       gomonoitalic.TTF,
	{pdfs.Courier, pdfs.BoldItalic}:   gomonobolditalic.TTF,
}

var (
	parsedMu sync.Mutex
	parsed   = map[faceKey]*opentype.Font{}
)

// loadFont parses each TTF at most once. Parsed fonts are safe for concurrent use
func loadFont(f pdfs.StandardFont) (*opentype.Font, error) {
	key := faceKey{f.Family, f.Style & pdfs.BoldItalic}
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if otf, ok := parsed[key]; ok {
		return otf, nil
	}
	ttf, ok := ttfs[key]
	if !ok {
		return nil, fmt.Errorf("font %s: no raster face for family %q", f.Name, f.Family)
	}
	otf, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", f.Name, err)
	}
	parsed[key] = otf
	return otf, nil
}
