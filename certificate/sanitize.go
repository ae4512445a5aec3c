package certificate

import (
	"unicode"

	"golang.org/x/text/runes"
)

var (
	zeroWidth = &unicode.RangeTable{
		R16: []unicode.Range16{
			{Lo: 0x200b, Hi: 0x200d, Stride: 1},
			{Lo: 0xfeff, Hi: 0xfeff, Stride: 1},
		},
	}
	// printable ASCII plus Latin-1 Supplement and Latin Extended-A/B
	renderable = &unicode.RangeTable{
		R16: []unicode.Range16{
			{Lo: 0x0020, Hi: 0x007e, Stride: 1},
			{Lo: 0x00a0, Hi: 0x024f, Stride: 1},
		},
		LatinOffset: 1,
	}

	removeZeroWidth    = runes.Remove(runes.In(zeroWidth))
	removeUnrenderable = runes.Remove(runes.NotIn(renderable))
)

// Sanitize drops zero-width characters, then every rune the standard fonts cannot render
func Sanitize(s string) string {
	return removeUnrenderable.String(removeZeroWidth.String(s))
}
