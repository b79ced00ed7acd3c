// Package core holds the domain types, amount handling, validation
// rules and balance derivation for the kyat tracker.
//
// Amounts are whole-kyat int64 values. Use FormatAmount for display;
// never format with floating point.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts user input to a whole-kyat amount.
//
// It accepts optional thousands separators (comma or space) and
// rejects signs, decimals and anything non-numeric. MMK amounts are
// whole units, so "1,000" parses to 1000 and "10.50" is an error.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, newValidationError("Amount is required")
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, newValidationError("Please enter a valid number")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return 0, newValidationError("Please enter a valid number")
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, newValidationError("Please enter a valid number")
	}
	return v, nil
}

// FormatAmount renders an amount with thousands separators and the
// MMK suffix, e.g. 12345 -> "12,345 MMK".
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	b.WriteString(" MMK")
	return b.String()
}
