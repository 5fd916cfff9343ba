package styleanalysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/donorkit/styleforge/internal/browser"
	"github.com/donorkit/styleforge/internal/domain"
)

// Sampling limits, in document order
const (
	colorSampleLimit  = 500
	fontSampleLimit   = 200
	layoutSampleLimit = 100
)

// RawExtraction is everything read from a navigated page before reduction
type RawExtraction struct {
	Colors      []string
	Families    []string
	FontStyles  map[string]domain.FontStyle
	Spacing     domain.Spacing
	BorderRadii []float64
	Buttons     []domain.ButtonStyle
	Content     domain.ContentSummary
	Screenshot  []byte
}

// Extractor reads style samples from a page
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract runs the color, font, layout and content reads concurrently and
// attempts a screenshot. A failed screenshot leaves Screenshot nil.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, url string) (*RawExtraction, error) {
	raw := &RawExtraction{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		colors, err := e.extractColors(gctx, page)
		if err != nil {
			return fmt.Errorf("extracting colors: %w", err)
		}
		raw.Colors = colors
		return nil
	})

	g.Go(func() error {
		families, styles, err := e.extractFonts(gctx, page)
		if err != nil {
			return fmt.Errorf("extracting fonts: %w", err)
		}
		raw.Families, raw.FontStyles = families, styles
		return nil
	})

	g.Go(func() error {
		spacing, radii, buttons, err := e.extractLayout(gctx, page)
		if err != nil {
			return fmt.Errorf("extracting layout: %w", err)
		}
		raw.Spacing, raw.BorderRadii, raw.Buttons = spacing, radii, buttons
		return nil
	})

	g.Go(func() error {
		html, err := page.HTML(gctx)
		if err != nil {
			return fmt.Errorf("extracting content: %w", err)
		}
		content, err := SummarizeContent(html, url)
		if err != nil {
			return fmt.Errorf("extracting content: %w", err)
		}
		raw.Content = content
		return nil
	})

	g.Go(func() error {
		shot, err := page.Screenshot(gctx)
		if err != nil {
			e.logger.Warn("screenshot failed", zap.String("url", url), zap.Error(err))
			return nil
		}
		raw.Screenshot = shot
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

func (e *Extractor) extractColors(ctx context.Context, page browser.Page) ([]string, error) {
	rows, err := page.ComputedStyles(ctx, colorSampleLimit, ColorProperties)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	colors := []string{}
	for _, row := range rows {
		for _, prop := range ColorProperties {
			v := row[prop]
			if v == "" || v == "rgba(0, 0, 0, 0)" || v == "transparent" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			colors = append(colors, v)
		}
	}
	return colors, nil
}

func (e *Extractor) extractFonts(ctx context.Context, page browser.Page) ([]string, map[string]domain.FontStyle, error) {
	rows, err := page.ComputedStyles(ctx, fontSampleLimit, []string{"font-family"})
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{})
	families := []string{}
	for _, row := range rows {
		f := row["font-family"]
		if f == "" || f == "inherit" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		families = append(families, f)
	}

	matched, err := page.FirstMatchStyles(ctx, FontSelectors, FontStyleProperties)
	if err != nil {
		return nil, nil, err
	}

	styles := make(map[string]domain.FontStyle, len(matched))
	for sel, props := range matched {
		styles[sel] = domain.FontStyle{
			FontFamily:    props["font-family"],
			FontSize:      props["font-size"],
			FontWeight:    props["font-weight"],
			LineHeight:    props["line-height"],
			LetterSpacing: props["letter-spacing"],
			TextTransform: props["text-transform"],
		}
	}
	return families, styles, nil
}

func (e *Extractor) extractLayout(ctx context.Context, page browser.Page) (domain.Spacing, []float64, []domain.ButtonStyle, error) {
	rows, err := page.ComputedStyles(ctx, layoutSampleLimit, LayoutProperties)
	if err != nil {
		return domain.Spacing{}, nil, nil, err
	}

	margins := make([]float64, 0, len(rows))
	paddings := make([]float64, 0, len(rows))
	radii := make([]float64, 0, len(rows))
	for _, row := range rows {
		margins = append(margins, ParseCSSNumber(row["margin-top"]))
		paddings = append(paddings, ParseCSSNumber(row["padding-top"]))
		radii = append(radii, ParseCSSNumber(row["border-radius"]))
	}

	matches, err := page.MatchingStyles(ctx, ButtonSelector, ButtonProperties)
	if err != nil {
		return domain.Spacing{}, nil, nil, err
	}

	buttons := make([]domain.ButtonStyle, 0, len(matches))
	for _, m := range matches {
		buttons = append(buttons, domain.ButtonStyle{
			BorderRadius:    m["border-radius"],
			Padding:         m["padding"],
			BackgroundColor: m["background-color"],
			Color:           m["color"],
			Border:          m["border"],
			FontSize:        m["font-size"],
			FontWeight:      m["font-weight"],
		})
	}

	spacing := domain.Spacing{
		Margins:  PositiveSorted(margins),
		Paddings: PositiveSorted(paddings),
	}
	return spacing, PositiveSorted(radii), buttons, nil
}
