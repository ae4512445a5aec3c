package pdfs

type PaperSize struct {
	Name   string
	Width  float64 // in `pt` (1" = 72pts)
	Height float64 // in `pt`
}

var (
	LetterSize = PaperSize{Name: "Letter", Width: 612, Height: 792}         // 8.5" x 11"
	A4Size     = PaperSize{Name: "A4", Width: 595.27559, Height: 841.88976} // 210mm x 297mm

	// CertificateSize is the landscape design canvas every certificate layout is authored against
	CertificateSize = PaperSize{Name: "Certificate", Width: 842, Height: 595}
)

// Landscape reports whether the paper is wider than it is tall
func (p PaperSize) Landscape() bool {
	return p.Width > p.Height
}

// Orientation returns "L" or "P"
func (p PaperSize) Orientation() string {
	if p.Landscape() {
		return "L"
	}
	return "P"
}
