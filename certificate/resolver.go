package certificate

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Locale selects the month names of date fields
type Locale string

const (
	LocaleID Locale = "id"
	LocaleEN Locale = "en"

	DefaultLocale = LocaleID
)

var longMonths = map[Locale][12]string{
	LocaleID: {"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"},
	LocaleEN: {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
}

// index 0 is unused
var romanMonths = [13]string{"", "I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}

// RomanMonth returns the roman numeral of t's month
func RomanMonth(t time.Time) string {
	return romanMonths[t.Month()]
}

// FormatLongDate formats t as "D Month YYYY". Unknown locales use DefaultLocale
func FormatLongDate(t time.Time, locale Locale) string {
	months, ok := longMonths[locale]
	if !ok {
		months = longMonths[DefaultLocale]
	}
	return fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
}

// CertificateNumber builds the deterministic number printed on a certificate, e.g.
// "NOMOR : 73/summit/III/2024" for participant 7 of event 3 starting in March 2024.
// A zero event start time falls back to now.
func CertificateNumber(p ParticipantContext, now time.Time) string {
	start := p.EventStartTime
	if start.IsZero() {
		start = now
	}
	return fmt.Sprintf("NOMOR : %d%d/%s/%s/%d", p.ID, p.EventID, p.EventSlug, RomanMonth(start), start.Year())
}

// ResolveValue returns the text a field displays for a participant. It never fails:
// unknown keys render the field label, or nothing.
func ResolveValue(f FieldSpec, p ParticipantContext, now time.Time, locale Locale) string {
	switch f.Key {
	case KeyName:
		// Caser is stateful, so one per call
		return cases.Upper(language.Und).String(p.Name)
	case KeyEvent:
		return p.EventName
	case KeyNumber:
		return CertificateNumber(p, now)
	case KeyToken:
		return p.Token
	case KeyDate:
		return FormatLongDate(now, locale)
	default:
		return f.Label
	}
}
