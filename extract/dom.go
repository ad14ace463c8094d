package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"propextract/models"
)

// Loose attribute-substring selectors. Markup varies wildly across listing
// sites, so exact selectors would be brittle; class-name fragments are not.
var (
	domPriceSelectors = []string{
		`[itemprop="price"]`,
		`[class*="price"]`, `[class*="Price"]`,
		`[data-testid*="price"]`, `[id*="price"]`,
	}
	domBedSelectors = []string{
		`[class*="bed"]`, `[class*="Bed"]`, `[data-testid*="bed"]`,
	}
	domBathSelectors = []string{
		`[class*="bath"]`, `[class*="Bath"]`, `[data-testid*="bath"]`,
	}
	domDescriptionSelectors = []string{
		`[itemprop="description"]`,
		`[class*="description"]`, `[class*="Description"]`, `[id*="description"]`,
	}
	domAddressSelectors = []string{
		`[itemprop="address"]`,
		`[class*="address"]`, `[class*="Address"]`, `[data-testid*="address"]`,
	}
)

func extractDOM(p *Page) models.PropertyRecord {
	var rec models.PropertyRecord

	rec.Price = firstNumber(p.doc, domPriceSelectors)
	rec.Bedrooms = firstNumber(p.doc, domBedSelectors)
	rec.Bathrooms = firstNumber(p.doc, domBathSelectors)
	rec.Description = firstText(p.doc, domDescriptionSelectors, 40)
	rec.Address = firstText(p.doc, domAddressSelectors, 8)
	rec.Images = collectImages(p.doc)

	return rec
}

// firstNumber returns the first positive number found in the text of any
// element matched by the selectors, tried in order.
func firstNumber(doc *goquery.Document, selectors []string) float64 {
	var found float64
	for _, sel := range selectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if n := ParseNumber(strings.TrimSpace(s.Text())); n > 0 {
				found = n
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
	}
	return 0
}

// firstText returns the first trimmed element text at least minLen long.
// The length floor filters out icon labels and empty wrapper nodes.
func firstText(doc *goquery.Document, selectors []string, minLen int) string {
	var found string
	for _, sel := range selectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.Join(strings.Fields(s.Text()), " ")
			if len(t) >= minLen {
				found = t
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// collectImages gathers every img source as a fallback photo set. The cascade
// caps the list; here we only dedupe and drop inline/data URIs.
func collectImages(doc *goquery.Document) []string {
	var urls []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			src, _ = s.Attr("data-src")
		}
		if strings.HasPrefix(src, "http") {
			urls = append(urls, src)
		}
	})
	return urls
}
