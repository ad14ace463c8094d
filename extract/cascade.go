package extract

import (
	"propextract/address"
	"propextract/models"
)

// Strategy names, recorded in the result's source field.
const (
	SourceStructured = "structured-data"
	SourceHydration  = "hydration-data"
	SourceDOM        = "dom-heuristics"
	SourceText       = "text-mining"
)

// Strategy is one extraction pass. It returns a partial record; the cascade
// owns the merge, so strategies never see or overwrite each other's output.
type Strategy struct {
	Name    string
	Extract func(p *Page) models.PropertyRecord
}

// Cascade runs the ordered strategies, folding their partial records with
// fill-only-if-empty semantics: once a field is non-empty it is frozen.
type Cascade struct {
	strategies []Strategy
	required   []string
	maxImages  int
}

// NewCascade builds the standard four-strategy cascade. The order is load
// bearing: later strategies only fill gaps left by earlier ones.
func NewCascade(required []string, maxImages int) *Cascade {
	if len(required) == 0 {
		required = models.DefaultRequiredFields
	}
	if maxImages <= 0 {
		maxImages = 12
	}
	return &Cascade{
		strategies: []Strategy{
			{Name: SourceStructured, Extract: extractStructured},
			{Name: SourceHydration, Extract: extractHydration},
			{Name: SourceDOM, Extract: extractDOM},
			{Name: SourceText, Extract: extractText},
		},
		required:  required,
		maxImages: maxImages,
	}
}

// Required returns the active required-field policy.
func (c *Cascade) Required() []string {
	return c.required
}

// Run executes the strategies strictly in order. The final record's source is
// the earliest strategy that filled at least one required field.
func (c *Cascade) Run(page *Page) models.PropertyRecord {
	var rec models.PropertyRecord
	for _, st := range c.strategies {
		before := len(rec.Missing(c.required))
		merge(&rec, st.Extract(page), c.maxImages)
		if rec.Source == "" && len(rec.Missing(c.required)) < before {
			rec.Source = st.Name
		}
	}
	c.finalize(&rec)
	return rec
}

// merge copies each non-empty field of src into dst only when dst still has
// the zero value for it. This makes the never-overwrite invariant structural
// rather than convention.
func merge(dst *models.PropertyRecord, src models.PropertyRecord, maxImages int) {
	fillString(&dst.Address, src.Address)
	fillString(&dst.AddressLine1, src.AddressLine1)
	fillString(&dst.City, src.City)
	fillString(&dst.Region, src.Region)
	fillString(&dst.PostalCode, src.PostalCode)
	fillFloat(&dst.Price, src.Price)
	fillFloat(&dst.Bedrooms, src.Bedrooms)
	fillFloat(&dst.Bathrooms, src.Bathrooms)
	fillFloat(&dst.SquareFeet, src.SquareFeet)
	fillString(&dst.LotSize, src.LotSize)
	if dst.YearBuilt == 0 && src.YearBuilt != 0 {
		dst.YearBuilt = src.YearBuilt
	}
	fillString(&dst.Description, src.Description)
	fillString(&dst.MLSNumber, src.MLSNumber)
	if len(dst.Images) == 0 && len(src.Images) > 0 {
		imgs := dedupe(src.Images)
		if len(imgs) > maxImages {
			imgs = imgs[:maxImages]
		}
		dst.Images = imgs
	}
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func fillFloat(dst *float64, src float64) {
	if *dst == 0 && src > 0 {
		*dst = src
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// finalize reconciles the full address with its components and normalizes
// postal code and region. Components already filled by a strategy stay put.
func (c *Cascade) finalize(rec *models.PropertyRecord) {
	if rec.Address != "" && (rec.AddressLine1 == "" || rec.City == "") {
		parts := address.ParseParts(rec.Address)
		fillString(&rec.AddressLine1, parts.Line1)
		fillString(&rec.City, parts.City)
		fillString(&rec.Region, parts.Region)
		fillString(&rec.PostalCode, parts.PostalCode)
	}
	if rec.Address == "" && rec.AddressLine1 != "" {
		rec.Address = composeAddress(rec)
	}
	rec.Region = address.NormalizeRegion(rec.Region)
	rec.PostalCode = address.NormalizePostalCode(rec.PostalCode)
}

func composeAddress(rec *models.PropertyRecord) string {
	out := rec.AddressLine1
	if rec.City != "" {
		out += ", " + rec.City
	}
	if rec.Region != "" {
		out += ", " + address.NormalizeRegion(rec.Region)
	}
	if rec.PostalCode != "" {
		out += " " + address.NormalizePostalCode(rec.PostalCode)
	}
	return out
}
