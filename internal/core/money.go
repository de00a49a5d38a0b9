package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// thousandsOnly matches "1.500" or "12.345.678": dots grouping whole digits.
var thousandsOnly = regexp.MustCompile(`^-?[1-9]\d{0,2}(\.\d{3})+$`)

// ParseAmount converts a form value to a decimal amount.
//
// Both "1234.56" and the Brazilian "1.234,56" are accepted; when a comma is
// present it is the decimal separator and dots are thousands separators.
// Without a comma, dots followed by groups of exactly three digits are
// thousands separators too, so "1.500" is 1500 and "1.5" is 1.5.
// An empty value is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatBRL renders an amount as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v decimal.Decimal) string {
	rounded := v.Round(2)
	whole, cents, _ := strings.Cut(rounded.Abs().StringFixed(2), ".")
	s := "R$ " + groupThousands(whole) + "," + cents
	if rounded.IsNegative() {
		return "-" + s
	}
	return s
}

// groupThousands inserts pt-BR grouping into a string of digits.
func groupThousands(digits string) string {
	if n, err := decimal.NewFromString(digits); err == nil && n.BigInt().IsInt64() {
		return brPrinter.Sprintf("%d", n.IntPart())
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
