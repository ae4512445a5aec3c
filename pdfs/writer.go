package pdfs

import "io"

// Writer appends pages; there is no going back to an earlier page.
// T is the imported background type of the implementation.
//
// Coordinates passed to Text are page coordinates in `pt` with the origin at the
// bottom-left corner of the page and y growing upward.
type Writer[T any] interface {
	PaperSize() PaperSize
	Orientation() string

	Templates() Templates[T]
	// ImportImageAsTemplate registers a full-page background under storeKey
	ImportImageAsTemplate(img Image, storeKey string) error

	AddBlankPage()
	// AddTemplatePage appends a page with the stored template stretched over the whole page
	AddTemplatePage(storeKey string) bool
	PageCount() int

	SetFont(font StandardFont, size float64) error
	// StringWidth measures text in `pt` with the current font and size
	StringWidth(text string) float64
	Text(x float64, y float64, text string)

	// Err returns the first error recorded by the writer, if any
	Err() error

	WriteTo(w io.Writer) (int64, error)
	WriteToFile(filepath string) error
	ProduceBytes() ([]byte, error)
}
