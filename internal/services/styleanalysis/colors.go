package styleanalysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/donorkit/styleforge/internal/domain"
)

// ColorProperties are the computed-style properties sampled for colors
var ColorProperties = []string{
	"color",
	"background-color",
	"border-color",
	"border-top-color",
	"border-right-color",
	"border-bottom-color",
	"border-left-color",
	"outline-color",
	"text-decoration-color",
}

// paletteNames label palette entries by rank
var paletteNames = []string{
	"Primary Brand",
	"Secondary",
	"Accent",
	"Highlight",
	"Support",
	"Detail",
	"Emphasis",
	"Feature",
}

const maxPaletteSize = 8

var (
	hexPattern     = regexp.MustCompile(`(?i)^#[0-9a-f]{6}$`)
	channelPattern = regexp.MustCompile(`\d+`)
)

// RGBToHex converts an rgb()/rgba() string to #rrggbb. Strings with fewer
// than three integer groups are returned unchanged.
func RGBToHex(rgb string) string {
	parts := channelPattern.FindAllString(rgb, -1)
	if len(parts) < 3 {
		return rgb
	}

	var packed int64 = 1 << 24
	for i, shift := range []uint{16, 8, 0} {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return rgb
		}
		packed += v << shift
	}

	return "#" + strconv.FormatInt(packed, 16)[1:]
}

// IsNeutral reports whether a lowercase hex color is white, black, or has
// the same digit twice in every channel.
func IsNeutral(hex string) bool {
	if hex == "#ffffff" || hex == "#000000" {
		return true
	}
	if len(hex) != 7 {
		return false
	}
	return hex[1] == hex[2] && hex[3] == hex[4] && hex[5] == hex[6]
}

// ToHexColors converts raw computed colors to the valid #rrggbb subset
func ToHexColors(raw []string) []string {
	hex := make([]string, 0, len(raw))
	for _, c := range raw {
		if strings.HasPrefix(c, "rgb") {
			c = RGBToHex(c)
		}
		if hexPattern.MatchString(c) {
			hex = append(hex, c)
		}
	}
	return hex
}

// ReduceColors ranks raw computed colors into a palette of brand colors
func ReduceColors(raw []string) domain.ColorAnalysis {
	analysis := defaultColors()
	analysis.Raw = raw
	if len(raw) == 0 {
		return analysis
	}

	hex := ToHexColors(raw)
	analysis.Hex = hex
	if len(hex) == 0 {
		return analysis
	}

	counts := make(map[string]int, len(hex))
	var order []string
	for _, c := range hex {
		c = strings.ToLower(c)
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	// Stable keeps first-seen order among equally frequent colors
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	filtered := order[:0]
	for _, c := range order {
		if !IsNeutral(c) {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) > 0 {
		analysis.Primary = filtered[0]
	}
	if len(filtered) > 1 {
		analysis.Secondary = filtered[1]
	}
	if len(filtered) > 2 {
		analysis.Accent = filtered[2]
	}

	top := filtered
	if len(top) > maxPaletteSize {
		top = top[:maxPaletteSize]
	}
	for i, c := range top {
		usage := math.Round(float64(counts[c]) / float64(len(hex)) * 100)
		analysis.Palette = append(analysis.Palette, domain.Swatch{
			Hex:      c,
			Name:     paletteName(i),
			Usage:    fmt.Sprintf("%d%%", int(usage)),
			Category: swatchCategory(i),
		})
	}

	return analysis
}

func defaultColors() domain.ColorAnalysis {
	return domain.ColorAnalysis{
		Palette:    []domain.Swatch{},
		Primary:    domain.DefaultPrimaryColor,
		Secondary:  domain.DefaultSecondaryColor,
		Accent:     domain.DefaultAccentColor,
		Background: domain.DefaultBackgroundColor,
		Text:       domain.DefaultTextColor,
	}
}

func paletteName(rank int) string {
	if rank < len(paletteNames) {
		return paletteNames[rank]
	}
	return fmt.Sprintf("Color %d", rank+1)
}

func swatchCategory(rank int) domain.SwatchCategory {
	switch rank {
	case 0:
		return domain.CategoryPrimary
	case 1:
		return domain.CategorySecondary
	default:
		return domain.CategoryAccent
	}
}
