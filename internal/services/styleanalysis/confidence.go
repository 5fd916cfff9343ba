package styleanalysis

import "github.com/donorkit/styleforge/internal/domain"

// Confidence scores how much usable signal an extraction produced, 20 to 100
func Confidence(colors domain.ColorAnalysis, fonts domain.FontAnalysis, layout domain.LayoutAnalysis) int {
	score := 20

	switch n := len(colors.Palette); {
	case n >= 3:
		score += 30
	case n >= 1:
		score += 15
	}

	switch n := len(fonts.CleanFamilies); {
	case n >= 2:
		score += 30
	case n >= 1:
		score += 15
	}

	if layout.Recommendations != nil {
		score += 20
	}

	return min(score, 100)
}

// Summarize condenses an analysis for listings
func Summarize(colors domain.ColorAnalysis, fonts domain.FontAnalysis, confidence int) domain.Summary {
	return domain.Summary{
		ColorsExtracted: len(colors.Palette),
		FontsFound:      len(fonts.CleanFamilies),
		PrimaryColor:    colors.Primary,
		PrimaryFont:     fonts.Primary,
		Confidence:      confidence,
	}
}
