package styleanalysis

import (
	"strings"

	"github.com/donorkit/styleforge/internal/domain"
)

// FontSelectors are probed in order; only the first match of each is read
var FontSelectors = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "span", "div", "a", "button",
	".title", ".heading", ".subtitle", ".content",
}

// FontStyleProperties are read for each matched selector
var FontStyleProperties = []string{
	"font-family",
	"font-size",
	"font-weight",
	"line-height",
	"letter-spacing",
	"text-transform",
}

const fallbackFontFamily = "Arial, sans-serif"

var (
	headingWebFonts = []string{
		"Inter", "Roboto", "Open Sans", "Lato",
		"Poppins", "Montserrat", "Source Sans Pro", "Nunito",
	}
	bodyWebFonts = []string{
		"Inter", "Roboto", "Open Sans", "Lato",
		"Source Sans Pro", "PT Sans", "Nunito Sans", "IBM Plex Sans",
	}

	genericFamilies = []string{"serif", "sans-serif", "monospace"}
)

// FontRole selects the web font candidate list
type FontRole string

const (
	RoleHeading FontRole = "heading"
	RoleBody    FontRole = "body"
)

// CleanFamily reduces a font-family declaration to its first family name
func CleanFamily(family string) string {
	first, _, _ := strings.Cut(family, ",")
	first = strings.NewReplacer(`"`, "", "'", "").Replace(first)
	return strings.TrimSpace(first)
}

// CleanFamilies keeps the first real family of each declaration, dropping
// generic fallbacks.
func CleanFamilies(families []string) []string {
	clean := make([]string, 0, len(families))
	for _, f := range families {
		name := CleanFamily(f)
		if name == "" || isGenericFamily(name) {
			continue
		}
		clean = append(clean, name)
	}
	return clean
}

func isGenericFamily(name string) bool {
	lower := strings.ToLower(name)
	for _, g := range genericFamilies {
		if strings.Contains(lower, g) {
			return true
		}
	}
	return false
}

// SuggestWebFont returns the first web-safe font for role whose name contains,
// or is contained in, family. Inter is the default.
func SuggestWebFont(family string, role FontRole) string {
	candidates := bodyWebFonts
	if role == RoleHeading {
		candidates = headingWebFonts
	}

	lower := strings.ToLower(family)
	for _, candidate := range candidates {
		c := strings.ToLower(candidate)
		if strings.Contains(lower, c) || strings.Contains(c, lower) {
			return candidate
		}
	}
	return candidates[0]
}

// ResolveFonts picks heading, body and button fonts from the sampled
// families and per-selector styles.
func ResolveFonts(families []string, styles map[string]domain.FontStyle) domain.FontAnalysis {
	clean := CleanFamilies(families)

	heading := firstNonEmpty(
		familyFromStyles(styles, "h1", "h2", "h3"),
		at(clean, 0),
		fallbackFontFamily,
	)
	body := firstNonEmpty(
		familyFromStyles(styles, "p", "div", "span"),
		at(clean, 1),
		at(clean, 0),
		fallbackFontFamily,
	)

	return domain.FontAnalysis{
		Families:      families,
		CleanFamilies: clean,
		Styles:        styles,
		Recommendations: domain.FontRecommendations{
			Heading: domain.FontRecommendation{
				Family:    heading,
				Weight:    firstNonEmpty(styleValue(styles, weightOf, "h1", "h2"), "600"),
				Size:      firstNonEmpty(styleValue(styles, sizeOf, "h1"), "2rem"),
				Suggested: SuggestWebFont(heading, RoleHeading),
			},
			Body: domain.FontRecommendation{
				Family:    body,
				Weight:    firstNonEmpty(styleValue(styles, weightOf, "p", "div"), "400"),
				Size:      firstNonEmpty(styleValue(styles, sizeOf, "p"), "1rem"),
				Suggested: SuggestWebFont(body, RoleBody),
			},
			Button: domain.FontRecommendation{
				Family: firstNonEmpty(familyFromStyles(styles, "button", "a"), heading),
				Weight: "500",
				Size:   "1rem",
			},
		},
		Primary:   heading,
		Secondary: body,
	}
}

func weightOf(s domain.FontStyle) string { return s.FontWeight }
func sizeOf(s domain.FontStyle) string   { return s.FontSize }

func familyFromStyles(styles map[string]domain.FontStyle, selectors ...string) string {
	for _, sel := range selectors {
		if s, ok := styles[sel]; ok && s.FontFamily != "" {
			return CleanFamily(s.FontFamily)
		}
	}
	return ""
}

func styleValue(styles map[string]domain.FontStyle, field func(domain.FontStyle) string, selectors ...string) string {
	for _, sel := range selectors {
		if s, ok := styles[sel]; ok {
			if v := field(s); v != "" {
				return v
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
