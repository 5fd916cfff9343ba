package styleanalysis

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/donorkit/styleforge/internal/domain"
)

const maxHeadings = 5

// titleSeparators split "Page | Brand" style titles
var titleSeparators = []string{" :: ", " | ", " \u2014 ", " \u2013 ", " - ", " \u00b7 ", " : "}

// SummarizeContent extracts title, headings, description and a best-effort
// brand name from serialized page HTML.
func SummarizeContent(html, pageURL string) (domain.ContentSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ContentSummary{}, fmt.Errorf("parsing page html: %w", err)
	}

	summary := domain.ContentSummary{
		Title:    collapseSpace(doc.Find("title").First().Text()),
		Headings: []string{},
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxHeadings {
			return false
		}
		summary.Headings = append(summary.Headings, strings.TrimSpace(s.Text()))
		return true
	})

	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		summary.Description = desc
	}

	summary.BrandName = brandName(doc, summary.Title, pageURL)
	return summary, nil
}

func brandName(doc *goquery.Document, title, pageURL string) string {
	for _, sel := range []string{`meta[property="og:site_name"]`, `meta[name="application-name"]`} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}

	segments := splitTitle(title)
	if len(segments) == 0 {
		return ""
	}

	if label := hostLabel(pageURL); label != "" {
		for _, seg := range segments {
			squashed := strings.ToLower(strings.ReplaceAll(seg, " ", ""))
			if strings.Contains(squashed, label) {
				return seg
			}
		}
	}
	return segments[0]
}

func splitTitle(title string) []string {
	parts := []string{title}
	for _, sep := range titleSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	segments := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// hostLabel returns the registrable name of a host: "www.acme-shop.co.uk" -> "acme-shop"
func hostLabel(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	labels := strings.Split(strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), ".")
	if len(labels) == 0 || labels[0] == "" {
		return ""
	}
	if len(labels) >= 3 && len(labels[len(labels)-1]) == 2 && len(labels[len(labels)-2]) <= 3 {
		return labels[len(labels)-3]
	}
	if len(labels) >= 2 {
		return labels[len(labels)-2]
	}
	return labels[0]
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
