package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is one fetched listing page. Strategies share the parsed document so
// the HTML is only parsed once per request.
type Page struct {
	URL string
	doc *goquery.Document
}

func NewPage(url, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Page{URL: url, doc: doc}, nil
}

func (p *Page) Title() string {
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// MetaDescription prefers the Open Graph description over the plain meta tag.
func (p *Page) MetaDescription() string {
	if v, ok := p.doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := p.doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (p *Page) BodyText() string {
	return strings.TrimSpace(p.doc.Find("body").Text())
}
