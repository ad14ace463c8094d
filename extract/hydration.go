package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"propextract/address"
	"propextract/models"
	"propextract/pagedata"
)

// Markers for framework state assigned onto window inside inline scripts.
var windowStateMarkers = []string{
	"window.__INITIAL_STATE__",
	"window.__PRELOADED_STATE__",
	"window.__APP_STATE__",
}

// extractHydration digs a framework hydration payload out of the page and
// mines it with a generic deep-key search. The payload shape is a black box
// per target site, so no fixed paths: first blob that yields at least one of
// price/bedrooms/bathrooms/address wins.
func extractHydration(p *Page) models.PropertyRecord {
	for _, blob := range hydrationBlobs(p) {
		root := pagedata.SafeParse(blob)
		if root == nil {
			continue
		}
		rec := recordFromTree(root)
		if rec.Price > 0 || rec.Bedrooms > 0 || rec.Bathrooms > 0 || rec.Address != "" || rec.AddressLine1 != "" {
			return rec
		}
	}
	return models.PropertyRecord{}
}

func hydrationBlobs(p *Page) []string {
	var blobs []string

	for _, sel := range []string{`script#__NEXT_DATA__`, `script#__NUXT_DATA__`, `script[type="application/json"]`} {
		p.doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				blobs = append(blobs, t)
			}
		})
	}

	p.doc.Find("script:not([src])").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		for _, marker := range windowStateMarkers {
			idx := strings.Index(text, marker)
			if idx < 0 {
				continue
			}
			rest := text[idx+len(marker):]
			if open := strings.Index(rest, "{"); open >= 0 {
				if close := strings.LastIndex(rest, "}"); close > open {
					blobs = append(blobs, rest[open:close+1])
				}
			}
			break
		}
	})

	return blobs
}

func recordFromTree(root any) models.PropertyRecord {
	var rec models.PropertyRecord

	if v, ok := pagedata.FindKey(root, "price", "Price", "ListPrice", "listPrice"); ok {
		rec.Price = ParseNumber(v)
	}
	if v, ok := pagedata.FindKey(root, "bedrooms", "Bedrooms", "beds", "numBedrooms"); ok {
		rec.Bedrooms = ParseNumber(v)
	}
	if v, ok := pagedata.FindKey(root, "bathrooms", "Bathrooms", "bathroomsTotal", "BathroomTotal", "baths"); ok {
		rec.Bathrooms = ParseNumber(v)
	}
	if v, ok := pagedata.FindKey(root, "squareFeet", "sqft", "SizeInterior", "livingArea"); ok {
		rec.SquareFeet = ParseNumber(v)
	}
	if v, ok := pagedata.FindKey(root, "description", "PublicRemarks", "publicRemarks"); ok {
		rec.Description = pagedata.AsString(v)
	}
	if v, ok := pagedata.FindKey(root, "mlsNumber", "MlsNumber", "MLS", "mls"); ok {
		rec.MLSNumber = pagedata.AsString(v)
	}
	if v, ok := pagedata.FindKey(root, "photos", "images", "Photo", "media"); ok {
		rec.Images = pagedata.StringSlice(v, "url", "href", "src", "HighResPath")
	}
	if v, ok := pagedata.FindKey(root, "yearBuilt", "YearBuilt"); ok {
		rec.YearBuilt = ParseYear(v)
	}

	switch addr, _ := pagedata.FindKey(root, "address", "Address"); a := addr.(type) {
	case string:
		rec.Address = a
	case map[string]any:
		rec.AddressLine1 = pagedata.AsString(firstOf(a, "streetAddress", "line1", "AddressText"))
		rec.City = pagedata.AsString(firstOf(a, "addressLocality", "city", "City"))
		rec.Region = address.NormalizeRegion(pagedata.AsString(firstOf(a, "addressRegion", "region", "province", "Province", "state")))
		rec.PostalCode = address.NormalizePostalCode(pagedata.AsString(firstOf(a, "postalCode", "PostalCode", "zip")))
	}

	return rec
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
