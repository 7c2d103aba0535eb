package pricing

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders an amount the way the pricing cards show it: the
// narrow currency symbol, grouped digits, and cents only when the amount is
// not whole ("$1,200", "$19.50").
func FormatPrice(amount float64, code string) string {
	digits := 2
	if amount == math.Trunc(amount) {
		digits = 0
	}
	n := printer.Sprint(number.Decimal(amount, number.MinFractionDigits(digits), number.MaxFractionDigits(digits)))

	unit, err := currency.ParseISO(code)
	if err != nil {
		return code + " " + n
	}
	return printer.Sprint(currency.NarrowSymbol(unit)) + n
}
