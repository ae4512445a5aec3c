package pdfs

import "image"

type ImageFormat string

const (
	PNG  ImageFormat = "png"
	JPEG ImageFormat = "jpg"
)

// Image carries both the encoded bytes and the decoded pixels of a raster.
// Vector writers embed Data; raster writers draw Decoded.
type Image struct {
	Format  ImageFormat
	Data    []byte
	Decoded image.Image
}

// Bounds returns the pixel size of the decoded image
func (img Image) Bounds() (width int, height int) {
	if img.Decoded == nil {
		return 0, 0
	}
	b := img.Decoded.Bounds()
	return b.Dx(), b.Dy()
}
