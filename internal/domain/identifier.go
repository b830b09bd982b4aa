package domain

import (
	"strconv"
	"strings"
)

// NormalizeIdentifier renders an employee identifier in canonical string
// form so the same employee referenced from different sources collides
// into one record. Numeric identifiers (including float renderings like
// "12345.0" that spreadsheet cells produce) become plain digit strings;
// anything else is trimmed and kept as-is.
func NormalizeIdentifier(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
