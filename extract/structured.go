package extract

import (
	"github.com/PuerkitoBio/goquery"

	"propextract/address"
	"propextract/models"
	"propextract/pagedata"
)

// Declared types that mark an ld+json entry as describing the listed entity.
var listingTypes = map[string]bool{
	"RealEstateListing":     true,
	"Product":               true,
	"Offer":                 true,
	"House":                 true,
	"SingleFamilyResidence": true,
	"Residence":             true,
	"Apartment":             true,
	"Place":                 true,
	"Home":                  true,
}

// extractStructured reads every application/ld+json block on the page,
// parses each tolerantly, and maps the best entry onto the flat record.
// Entries with a known listing type win; otherwise any entry carrying an
// address or price field is used.
func extractStructured(p *Page) models.PropertyRecord {
	var entries []map[string]any
	p.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		entries = append(entries, flattenEntries(pagedata.SafeParse(s.Text()))...)
	})
	if len(entries) == 0 {
		return models.PropertyRecord{}
	}

	entry := pickEntry(entries)
	if entry == nil {
		return models.PropertyRecord{}
	}
	return recordFromEntry(entry)
}

// flattenEntries unwraps top-level arrays and @graph containers into a flat
// entry list.
func flattenEntries(v any) []map[string]any {
	var out []map[string]any
	switch n := v.(type) {
	case map[string]any:
		if graph, ok := n["@graph"].([]any); ok {
			for _, g := range graph {
				out = append(out, flattenEntries(g)...)
			}
			return out
		}
		out = append(out, n)
	case []any:
		for _, el := range n {
			out = append(out, flattenEntries(el)...)
		}
	}
	return out
}

func pickEntry(entries []map[string]any) map[string]any {
	for _, e := range entries {
		if hasListingType(e) {
			return e
		}
	}
	for _, e := range entries {
		if e["address"] != nil || e["price"] != nil || e["offers"] != nil {
			return e
		}
	}
	return nil
}

func hasListingType(entry map[string]any) bool {
	switch t := entry["@type"].(type) {
	case string:
		return listingTypes[t]
	case []any:
		for _, el := range t {
			if s, ok := el.(string); ok && listingTypes[s] {
				return true
			}
		}
	}
	return false
}

func recordFromEntry(entry map[string]any) models.PropertyRecord {
	var rec models.PropertyRecord

	switch addr := entry["address"].(type) {
	case string:
		rec.Address = addr
	case map[string]any:
		rec.AddressLine1 = pagedata.AsString(addr["streetAddress"])
		rec.City = pagedata.AsString(addr["addressLocality"])
		rec.Region = address.NormalizeRegion(pagedata.AsString(addr["addressRegion"]))
		rec.PostalCode = address.NormalizePostalCode(pagedata.AsString(addr["postalCode"]))
	}

	if v, ok := entry["price"]; ok {
		rec.Price = ParseNumber(v)
	}
	if rec.Price == 0 {
		if v, ok := pagedata.FindKey(entry["offers"], "price", "lowPrice", "highPrice"); ok {
			rec.Price = ParseNumber(v)
		}
	}

	if v, ok := pagedata.FindKey(entry, "numberOfBedrooms", "numberOfRooms"); ok {
		rec.Bedrooms = ParseNumber(v)
	}
	if v, ok := pagedata.FindKey(entry, "numberOfBathroomsTotal", "numberOfFullBathrooms"); ok {
		rec.Bathrooms = ParseNumber(v)
	}
	if v, ok := pagedata.FindKey(entry["floorSize"], "value"); ok {
		rec.SquareFeet = ParseNumber(v)
	}
	rec.YearBuilt = ParseYear(entry["yearBuilt"])
	rec.Description = pagedata.AsString(entry["description"])
	rec.Images = pagedata.StringSlice(entry["image"], "url", "contentUrl")
	if len(rec.Images) == 0 {
		rec.Images = pagedata.StringSlice(entry["photo"], "url", "contentUrl")
	}

	return rec
}
