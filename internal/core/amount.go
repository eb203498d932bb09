// Package core provides amount parsing for imported spreadsheet cells.
//
// Card exports mix formats: plain integers ("15000"), thousands separators
// ("1,234,500"), currency marks ("₩15,000", "15,000원") and occasionally a
// decimal comma ("12,5"). ParseAmount normalizes all of them.
package core

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

var thousandsPattern = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)

// ParseAmount converts a spreadsheet cell into a non-negative amount.
//
// Examples:
//
//	ParseAmount("15000")      -> 15000, nil
//	ParseAmount("1,234,500")  -> 1234500, nil
//	ParseAmount("₩15,000")    -> 15000, nil
//	ParseAmount("1,234.50")   -> 1234.5, nil
//	ParseAmount("12,5")       -> 12.5, nil
//	ParseAmount("-3")         -> 0, ErrNegativeAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₩")
	s = strings.TrimSuffix(s, "원")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	switch {
	case strings.Contains(s, ".") && strings.Contains(s, ","):
		// "1,234.50": commas group thousands
		s = strings.ReplaceAll(s, ",", "")
	case thousandsPattern.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		// decimal comma
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	return d.InexactFloat64(), nil
}

// RoundAmount rounds a computed amount to the given number of decimal places
// using half-up rounding, for presentation of shares and totals.
func RoundAmount(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
