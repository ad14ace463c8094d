package extract

import (
	"strconv"
	"strings"
)

// ParseNumber coerces a scalar pulled out of page data to a float. Strings go
// through currency cleanup; anything unparseable becomes 0, never an error.
func ParseNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		return parseNumericString(n)
	default:
		return 0
	}
}

// parseNumericString strips thousands separators and currency symbols, then
// parses the first number in the string. "$1,149,900" -> 1149900, "2.5" -> 2.5.
func parseNumericString(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")

	start := -1
	end := len(s)
	for i, c := range s {
		if c >= '0' && c <= '9' {
			start = i
			break
		}
	}
	if start == -1 {
		return 0
	}
	seenDot := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			continue
		}
		end = i
		break
	}
	f, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseYear accepts only plausible four-digit build years.
func ParseYear(v any) int {
	y := int(ParseNumber(v))
	if y < 1600 || y > 2200 {
		return 0
	}
	return y
}
