// Package address parses free-text listing addresses into components and
// normalizes postal-code and region formatting for US and Canadian formats.
// All functions are total: unparseable input yields empty strings, not errors.
package address

import (
	"regexp"
	"strings"
)

// Parts is a parsed address. Empty string means "unknown".
type Parts struct {
	Line1      string
	City       string
	Region     string
	PostalCode string
}

var (
	// "street, city, ON N9B 3P4" / "street, city, MI 48226" / "... 48226-1234"
	caShapeRe = regexp.MustCompile(`^(.+?),\s*(.+?),?\s+([A-Za-z]{2})\.?\s+([A-Za-z]\d[A-Za-z]\s?\d[A-Za-z]\d)\s*$`)
	usShapeRe = regexp.MustCompile(`^(.+?),\s*(.+?),?\s+([A-Za-z]{2})\.?\s+(\d{5}(?:-\d{4})?)\s*$`)

	caPostalRe = regexp.MustCompile(`^[A-Z]\d[A-Z]\d[A-Z]\d$`)
	usZipRe    = regexp.MustCompile(`^\d{5}(?:-?\d{4})?$`)

	// Upstream listing markup sometimes jams street and city together with no
	// separator ("123 Oak DriveKingsville, ON ..."). Detected as a lowercase
	// letter immediately followed by an uppercase run at the end of the first
	// segment, so names like McGregor mid-street survive.
	jammedRe = regexp.MustCompile(`([a-z])([A-Z][a-z]+)$`)

	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// ParseParts splits a free-text address into line1/city/region/postal code.
// Three shapes are tried in order: Canadian postal tail, US ZIP tail, then a
// naive comma split where missing components default to empty.
func ParseParts(addr string) Parts {
	addr = repairJammed(strings.TrimSpace(addr))
	if addr == "" {
		return Parts{}
	}

	if m := caShapeRe.FindStringSubmatch(addr); m != nil {
		return Parts{
			Line1:      strings.TrimSpace(m[1]),
			City:       strings.TrimSpace(m[2]),
			Region:     NormalizeRegion(m[3]),
			PostalCode: NormalizePostalCode(m[4]),
		}
	}
	if m := usShapeRe.FindStringSubmatch(addr); m != nil {
		return Parts{
			Line1:      strings.TrimSpace(m[1]),
			City:       strings.TrimSpace(m[2]),
			Region:     NormalizeRegion(m[3]),
			PostalCode: NormalizePostalCode(m[4]),
		}
	}

	var p Parts
	parts := strings.Split(addr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 0 {
		p.Line1 = parts[0]
	}
	if len(parts) > 1 {
		p.City = parts[1]
	}
	if len(parts) > 2 {
		// Remaining segment may be "ON N9B 3P4", "MI", or a bare postal code.
		fields := strings.Fields(parts[2])
		if len(fields) > 0 {
			if IsValidPostalCode(fields[0]) {
				p.PostalCode = NormalizePostalCode(strings.Join(fields, " "))
			} else {
				p.Region = NormalizeRegion(fields[0])
				if len(fields) > 1 {
					rest := strings.Join(fields[1:], " ")
					if IsValidPostalCode(rest) {
						p.PostalCode = NormalizePostalCode(rest)
					}
				}
			}
		}
	}
	return p
}

// repairJammed inserts the missing ", " at a street/city jam. Only the text
// before the first comma is touched so legitimate mixed-case words later in
// the address are left alone.
func repairJammed(addr string) string {
	head := addr
	tail := ""
	if i := strings.Index(addr, ","); i >= 0 {
		head, tail = addr[:i], addr[i:]
	}
	head = jammedRe.ReplaceAllString(head, "$1, $2")
	return head + tail
}

// NormalizePostalCode uppercases, collapses whitespace, and for
// Canadian-shaped codes enforces exactly one space after the third character.
// Idempotent.
func NormalizePostalCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = multiSpaceRe.ReplaceAllString(s, " ")
	compact := strings.ReplaceAll(s, " ", "")
	if caPostalRe.MatchString(compact) {
		return compact[:3] + " " + compact[3:]
	}
	return s
}

// NormalizeRegion uppercases and trims; nothing more.
func NormalizeRegion(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsValidPostalCode reports whether the cleaned string is a Canadian
// six-character alternating letter/digit code or a US 5- or 9-digit ZIP.
func IsValidPostalCode(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	compact := strings.ReplaceAll(s, " ", "")
	return caPostalRe.MatchString(compact) || usZipRe.MatchString(compact)
}
