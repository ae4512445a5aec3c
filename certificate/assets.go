package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/zeptools/certgw/pdfs"
)

// AssetSource reads template background images by their stored path
type AssetSource interface {
	ReadAsset(imagePath string) ([]byte, error)
}

// DirAssets resolves image paths such as "/certificates/templates/a.png" under a root directory.
// Paths cannot escape the root.
type DirAssets struct {
	Root string
}

// Ensure DirAssets implements AssetSource
var _ AssetSource = DirAssets{}

func (d DirAssets) ReadAsset(imagePath string) ([]byte, error) {
	name := strings.TrimPrefix(path.Clean("/"+imagePath), "/")
	root, err := os.OpenRoot(d.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = root.Close() }()
	f, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// CheckImageFormat accepts .png, .jpg and .jpeg paths only
func CheckImageFormat(imagePath string) (pdfs.ImageFormat, error) {
	format, err := imaging.FormatFromFilename(imagePath)
	if err != nil {
		return "", &TemplateAssetError{ImagePath: imagePath, Err: ErrUnsupported}
	}
	switch format {
	case imaging.PNG:
		return pdfs.PNG, nil
	case imaging.JPEG:
		return pdfs.JPEG, nil
	default:
		return "", &TemplateAssetError{ImagePath: imagePath, Err: ErrUnsupported}
	}
}

// LoadImage reads and decodes a template background. PNGs are re-encoded to plain
// 8-bit non-interlaced form so any PDF writer can embed them.
func LoadImage(src AssetSource, imagePath string) (pdfs.Image, error) {
	if _, err := CheckImageFormat(imagePath); err != nil {
		return pdfs.Image{}, err
	}
	data, err := src.ReadAsset(imagePath)
	if err != nil {
		return pdfs.Image{}, &TemplateAssetError{ImagePath: imagePath, Err: err}
	}
	_, sniffed, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return pdfs.Image{}, &TemplateAssetError{ImagePath: imagePath, Err: fmt.Errorf("undecodable image: %w", err)}
	}
	if sniffed != "png" && sniffed != "jpeg" {
		return pdfs.Image{}, &TemplateAssetError{ImagePath: imagePath, Err: fmt.Errorf("%w: content is %s", ErrUnsupported, sniffed)}
	}
	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return pdfs.Image{}, &TemplateAssetError{ImagePath: imagePath, Err: fmt.Errorf("undecodable image: %w", err)}
	}
	img := pdfs.Image{Format: pdfs.JPEG, Data: data, Decoded: decoded}
	if sniffed == "png" {
		var buf bytes.Buffer
		if err = imaging.Encode(&buf, decoded, imaging.PNG); err != nil {
			return pdfs.Image{}, &TemplateAssetError{ImagePath: imagePath, Err: err}
		}
		img.Format = pdfs.PNG
		img.Data = buf.Bytes()
	}
	return img, nil
}

// ReadImageSize returns the pixel size of a stored image, or the design canvas size
// when the image cannot be read.
func ReadImageSize(src AssetSource, imagePath string) ImageSize {
	fallback := ImageSize{Width: int(DesignCanvas.Width), Height: int(DesignCanvas.Height)}
	data, err := src.ReadAsset(imagePath)
	if err != nil {
		return fallback
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fallback
	}
	return ImageSize{Width: cfg.Width, Height: cfg.Height}
}
