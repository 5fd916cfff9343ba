package styleanalysis

import (
	"time"

	"github.com/donorkit/styleforge/internal/domain"
)

// FallbackConfidence is reported for every degraded result
const FallbackConfidence = 50

// Fallback builds the fixed degraded analysis returned when live extraction
// fails. message is the classified, user-facing error.
func Fallback(url, message string, now time.Time) *domain.StyleAnalysis {
	inter := func(weight, size, suggested string) domain.FontRecommendation {
		return domain.FontRecommendation{Family: "Inter", Weight: weight, Size: size, Suggested: suggested}
	}

	return &domain.StyleAnalysis{
		URL:       url,
		Timestamp: now,
		Error:     message,
		Fallback:  true,
		Colors: domain.ColorAnalysis{
			Primary:    domain.DefaultPrimaryColor,
			Secondary:  domain.DefaultSecondaryColor,
			Accent:     domain.DefaultAccentColor,
			Background: domain.DefaultBackgroundColor,
			Text:       domain.DefaultTextColor,
			Palette: []domain.Swatch{
				{Hex: domain.DefaultPrimaryColor, Name: "Primary", Usage: "40%", Category: domain.CategoryPrimary},
				{Hex: domain.DefaultSecondaryColor, Name: "Secondary", Usage: "30%", Category: domain.CategorySecondary},
				{Hex: domain.DefaultAccentColor, Name: "Accent", Usage: "20%", Category: domain.CategoryAccent},
			},
		},
		Fonts: domain.FontAnalysis{
			Recommendations: domain.FontRecommendations{
				Heading: inter("600", "2rem", "Inter"),
				Body:    inter("400", "1rem", "Inter"),
				Button:  inter("500", "1rem", ""),
			},
			Primary:   "Inter",
			Secondary: "Inter",
		},
		Layout: domain.LayoutAnalysis{
			Spacing:      domain.Spacing{Margins: []float64{}, Paddings: []float64{}},
			BorderRadii:  []float64{},
			ButtonStyles: []domain.ButtonStyle{},
			Recommendations: &domain.LayoutRecommendations{
				Margin:       "1rem",
				Padding:      "1rem",
				BorderRadius: "4px",
			},
		},
		Content: domain.ContentSummary{Headings: []string{}},
		Summary: domain.Summary{
			ColorsExtracted: 3,
			FontsFound:      1,
			PrimaryColor:    domain.DefaultPrimaryColor,
			PrimaryFont:     "Inter",
			Confidence:      FallbackConfidence,
		},
		Confidence: FallbackConfidence,
	}
}
