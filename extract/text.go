package extract

import (
	"regexp"
	"strings"

	"propextract/models"
)

var (
	currencyRe = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{1,2})?`)
	bedsRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:bed(?:room)?s?)\b`)
	bathsRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:bath(?:room)?s?)\b`)
	sqftRe     = regexp.MustCompile(`(?i)([\d,]+)\s*(?:sq\.?\s?ft|sqft|square\s+feet)`)
	mlsRe      = regexp.MustCompile(`(?i)MLS[®#:\s]+([A-Z][A-Z0-9]{4,}|\d{5,})`)
)

// extractText is the last-resort strategy: mine the title, the meta
// description, and the visible body text with pattern matching, in that
// order, taking the first match per field.
func extractText(p *Page) models.PropertyRecord {
	var rec models.PropertyRecord

	title := p.Title()
	meta := p.MetaDescription()
	body := p.BodyText()
	sources := []string{title, meta, body}

	for _, src := range sources {
		if rec.Price > 0 {
			break
		}
		if m := currencyRe.FindString(src); m != "" {
			rec.Price = ParseNumber(m)
		}
	}
	for _, src := range sources {
		if rec.Bedrooms > 0 {
			break
		}
		if m := bedsRe.FindStringSubmatch(src); m != nil {
			rec.Bedrooms = ParseNumber(m[1])
		}
	}
	for _, src := range sources {
		if rec.Bathrooms > 0 {
			break
		}
		if m := bathsRe.FindStringSubmatch(src); m != nil {
			rec.Bathrooms = ParseNumber(m[1])
		}
	}
	for _, src := range sources {
		if rec.SquareFeet > 0 {
			break
		}
		if m := sqftRe.FindStringSubmatch(src); m != nil {
			rec.SquareFeet = ParseNumber(m[1])
		}
	}
	if m := mlsRe.FindStringSubmatch(title + " " + meta + " " + body); m != nil {
		rec.MLSNumber = m[1]
	}

	rec.Description = meta
	rec.Address = addressFromTitle(title)

	return rec
}

// addressFromTitle guesses the address from the text preceding a dash or
// pipe in the page title, where listing sites usually put it.
func addressFromTitle(title string) string {
	for _, sep := range []string{" - ", " | ", " – "} {
		if i := strings.Index(title, sep); i > 0 {
			return strings.TrimSpace(title[:i])
		}
	}
	return ""
}
