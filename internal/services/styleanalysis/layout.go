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

// ButtonSelector matches the elements whose styles become button snapshots
const ButtonSelector = `button, .button, .btn, input[type="submit"], input[type="button"]`

// LayoutProperties are sampled from the leading elements for spacing
var LayoutProperties = []string{"margin-top", "padding-top", "border-radius"}

// ButtonProperties are captured for each button-like element
var ButtonProperties = []string{
	"border-radius",
	"padding",
	"background-color",
	"color",
	"border",
	"font-size",
	"font-weight",
}

var leadingNumber = regexp.MustCompile(`^\s*[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

// ParseCSSNumber reads the leading number of a CSS length ("12.5px" -> 12.5).
// Values without a leading number parse as 0.
func ParseCSSNumber(value string) float64 {
	m := leadingNumber.FindString(value)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// PositiveSorted returns the positive values in ascending order
func PositiveSorted(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// FindCommonValues rounds each value and returns up to three of the most
// frequent as "<n>px". Ties go to the smaller value.
func FindCommonValues(values []float64) []string {
	if len(values) == 0 {
		return []string{}
	}

	counts := make(map[int64]int)
	for _, v := range values {
		counts[int64(math.Floor(v+0.5))]++
	}

	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	sort.SliceStable(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })

	if len(keys) > 3 {
		keys = keys[:3]
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%dpx", k)
	}
	return out
}

// SummarizeLayout derives spacing recommendations from sampled layout data
func SummarizeLayout(spacing domain.Spacing, radii []float64, buttons []domain.ButtonStyle) domain.LayoutAnalysis {
	if spacing.Margins == nil {
		spacing.Margins = []float64{}
	}
	if spacing.Paddings == nil {
		spacing.Paddings = []float64{}
	}
	if radii == nil {
		radii = []float64{}
	}
	if buttons == nil {
		buttons = []domain.ButtonStyle{}
	}

	rec := &domain.LayoutRecommendations{
		Margin:       firstNonEmpty(at(FindCommonValues(spacing.Margins), 0), "1rem"),
		Padding:      firstNonEmpty(at(FindCommonValues(spacing.Paddings), 0), "1rem"),
		BorderRadius: firstNonEmpty(at(FindCommonValues(radii), 0), "4px"),
	}
	if len(buttons) > 0 {
		first := buttons[0]
		rec.ButtonStyle = &first
	}

	return domain.LayoutAnalysis{
		Spacing:         spacing,
		BorderRadii:     radii,
		ButtonStyles:    buttons,
		Recommendations: rec,
	}
}
