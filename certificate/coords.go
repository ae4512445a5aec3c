package certificate

import "github.com/zeptools/certgw/pdfs"

// Canvas is the fixed space field positions are authored in
type Canvas struct {
	Width  float64
	Height float64
}

var DesignCanvas = Canvas{Width: 842, Height: 595}

type Point struct {
	X float64
	Y float64
}

// ToPage maps a canvas point (origin top-left, y down) to page coordinates
// (origin bottom-left, y up), scaling each axis independently.
func (c Canvas) ToPage(x float64, y float64, page pdfs.PaperSize) Point {
	return Point{
		X: x * page.Width / c.Width,
		Y: page.Height - y*page.Height/c.Height,
	}
}

// CenteredOrigin returns the left edge of a text run of the given width centered on x
func CenteredOrigin(x float64, width float64) float64 {
	return x - width/2
}
