package certificate

import "github.com/zeptools/certgw/pdfs"

// Designer font family names
const (
	FamilyHelvetica = "Helvetica"
	FamilyTimes     = "Times Roman"
	FamilyCourier   = "Courier"
)

type fontKey struct {
	family string
	style  pdfs.FontStyle
}

// fontTable is built once and only read afterwards
var fontTable = map[fontKey]pdfs.StandardFont{
	{FamilyHelvetica, pdfs.Regular}:    {Family: pdfs.Helvetica, Style: pdfs.Regular, Name: "Helvetica"},
	{FamilyHelvetica, pdfs.Bold}:       {Family: pdfs.Helvetica, Style: pdfs.Bold, Name: "Helvetica-Bold"},
	{FamilyHelvetica, pdfs.Italic}:     {Family: pdfs.Helvetica, Style: pdfs.Italic, Name: "Helvetica-Oblique"},
	{FamilyHelvetica, pdfs.BoldItalic}: {Family: pdfs.Helvetica, Style: pdfs.BoldItalic, Name: "Helvetica-BoldOblique"},
	{FamilyTimes, pdfs.Regular}:        {Family: pdfs.Times, Style: pdfs.Regular, Name: "Times-Roman"},
	{FamilyTimes, pdfs.Bold}:           {Family: pdfs.Times, Style: pdfs.Bold, Name: "Times-Bold"},
	{FamilyTimes, pdfs.Italic}:         {Family: pdfs.Times, Style: pdfs.Italic, Name: "Times-Italic"},
	{FamilyTimes, pdfs.BoldItalic}:     {Family: pdfs.Times, Style: pdfs.BoldItalic, Name: "Times-BoldItalic"},
	{FamilyCourier, pdfs.Regular}:      {Family: pdfs.Courier, Style: pdfs.Regular, Name: "Courier"},
	{FamilyCourier, pdfs.Bold}:         {Family: pdfs.Courier, Style: pdfs.Bold, Name: "Courier-Bold"},
	{FamilyCourier, pdfs.Italic}:       {Family: pdfs.Courier, Style: pdfs.Italic, Name: "Courier-Oblique"},
	{FamilyCourier, pdfs.BoldItalic}:   {Family: pdfs.Courier, Style: pdfs.BoldItalic, Name: "Courier-BoldOblique"},
}

// DefaultFont is used for unknown families and when a font cannot be set
var DefaultFont = fontTable[fontKey{FamilyHelvetica, pdfs.Regular}]

func styleOf(bold bool, italic bool) pdfs.FontStyle {
	var s pdfs.FontStyle
	if bold {
		s |= pdfs.Bold
	}
	if italic {
		s |= pdfs.Italic
	}
	return s
}

// LookupFont maps a designer family and style flags to a font, falling back to DefaultFont
func LookupFont(family string, bold bool, italic bool) pdfs.StandardFont {
	if f, ok := fontTable[fontKey{family, styleOf(bold, italic)}]; ok {
		return f
	}
	return DefaultFont
}

// ResolveFont picks the font a field is drawn with.
// Emphasized participant names always use the serif family.
func ResolveFont(f FieldSpec) pdfs.StandardFont {
	family := f.FontFamily
	if f.Key == KeyName && (f.Bold || f.Italic) {
		family = FamilyTimes
	}
	return LookupFont(family, f.Bold, f.Italic)
}
