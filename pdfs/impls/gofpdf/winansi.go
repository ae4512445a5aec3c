package gofpdf

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// stroked letters of Latin Extended-A/B have no canonical decomposition
var strokeBase = map[rune]byte{
	'Đ': 'D', 'đ': 'd', 'Ħ': 'H', 'ħ': 'h', 'ı': 'i', 'Ŀ': 'L', 'ŀ': 'l',
	'Ł': 'L', 'ł': 'l', 'Ŧ': 'T', 'ŧ': 't', 'ƀ': 'b', 'Ɨ': 'I', 'ƚ': 'l',
	'Ƶ': 'Z', 'ƶ': 'z', 'Ǥ': 'G', 'ǥ': 'g', 'Ƀ': 'B', 'Ɉ': 'J', 'ɉ': 'j',
	'Ɍ': 'R', 'ɍ': 'r', 'Ɏ': 'Y', 'ɏ': 'y', 'ȷ': 'j',
}

// toWinAnsi re-encodes UTF-8 text to the cp1252 byte string the core fonts expect.
// Runes outside cp1252 become their base letter when one is encodable (e.g. "Ā" -> "A",
// "Ł" -> "L"); runes without one are dropped.
func toWinAnsi(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if c, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteByte(c)
			continue
		}
		if c, ok := baseLetter(r); ok {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func baseLetter(r rune) (byte, bool) {
	if c, ok := strokeBase[r]; ok {
		return c, true
	}
	d, _ := utf8.DecodeRuneInString(norm.NFD.String(string(r)))
	return charmap.Windows1252.EncodeRune(d)
}
