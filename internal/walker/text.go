// internal/walker/text.go
package walker

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanText normalises extracted page text: compatibility forms are folded
// (non-breaking spaces, full-width digits) and runs of whitespace collapse to
// a single space.
func CleanText(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

var (
	leadingNumber = regexp.MustCompile(`\d[\d,]*(\.\d+)?`)
)

// ParseFloatPrefix returns the first decimal number in s, or 0
func ParseFloatPrefix(s string) float64 {
	m := leadingNumber.FindString(CleanText(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseIntPrefix returns the first integer in s with thousands separators
// removed, or 0
func ParseIntPrefix(s string) int {
	m := leadingNumber.FindString(CleanText(s))
	if m == "" {
		return 0
	}
	m = strings.ReplaceAll(m, ",", "")
	if i := strings.IndexByte(m, '.'); i >= 0 {
		m = m[:i]
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// Dedupe removes empty and repeated strings, keeping first occurrences
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
