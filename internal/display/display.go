// Package display holds the es-PE presentation rules shared by the HTTP
// payloads, the CLI tables and the confirmation e-mail.
package display

import (
	"fmt"
	"time"

	"github.com/example/cartelera/internal/domain/event"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale is the single supported display locale.
var Locale = language.MustParse("es-PE")

// Lima is the zone event times are shown in.
var Lima = time.FixedZone("PET", -5*60*60)

var (
	printer = message.NewPrinter(Locale)
	titler  = cases.Title(language.Spanish)
)

var months = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// Price formats an amount with exactly two fraction digits followed by the
// currency code, e.g. "1,250.00 PEN".
func Price(amount float64, currency string) string {
	n := printer.Sprint(number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if currency == "" {
		return n
	}
	return n + " " + currency
}

// DateTime renders an instant as a medium date and short time in Lima,
// e.g. "14 mar 2025, 20:00".
func DateTime(t time.Time) string {
	local := t.In(Lima)
	return fmt.Sprintf("%d %s %d, %02d:%02d",
		local.Day(), months[local.Month()-1], local.Year(), local.Hour(), local.Minute())
}

// CategoryLabel is the display label for a category token.
func CategoryLabel(c event.Category) string {
	switch c {
	case event.CategoryMusic:
		return "Música"
	case event.CategoryStandup:
		return "Stand-up"
	}
	return titler.String(string(c))
}
