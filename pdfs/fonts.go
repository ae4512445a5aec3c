package pdfs

// FontFamily is one of the standard (non-embedded) PDF font families
type FontFamily string

const (
	Helvetica FontFamily = "Helvetica"
	Times     FontFamily = "Times"
	Courier   FontFamily = "Courier"
)

type FontStyle uint8

const (
	Regular    FontStyle = 0
	Bold       FontStyle = 1 << 0
	Italic     FontStyle = 1 << 1
	BoldItalic           = Bold | Italic
)

func (s FontStyle) IsBold() bool   { return s&Bold != 0 }
func (s FontStyle) IsItalic() bool { return s&Italic != 0 }

// StandardFont is a concrete font resource: a family, a style and its PostScript name
type StandardFont struct {
	Family FontFamily
	Style  FontStyle
	Name   string // PostScript name. e.g. "Times-BoldItalic"
}

func (f StandardFont) String() string {
	return f.Name
}
