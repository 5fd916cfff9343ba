package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/browser"
	"github.com/donorkit/styleforge/internal/domain"
	"github.com/donorkit/styleforge/internal/errorlog"
	"github.com/donorkit/styleforge/internal/services/styleanalysis"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	targetURL := flag.String("url", "", "Website to analyze, e.g. example.org")
	output := flag.String("output", "", "Write the full analysis JSON to this file")
	headless := flag.Bool("headless", true, "Run the browser without a window")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall analysis timeout")
	withScreenshot := flag.Bool("screenshot", false, "Keep the base64 screenshot in the JSON output")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if *targetURL == "" && flag.NArg() > 0 {
		*targetURL = flag.Arg(0)
	}
	if *targetURL == "" {
		red.Println("❌ No URL given")
		fmt.Println("   Usage: analyze -url example.org [-output analysis.json]")
		os.Exit(2)
	}

	var logger *zap.Logger
	if *verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.OutputPaths = []string{"/dev/null"}
		logger, _ = cfg.Build()
	}
	defer logger.Sync()

	opts := browser.DefaultOptions()
	opts.Headless = *headless
	session := browser.NewSession(opts, logger)

	// Without a sink the error log only writes to the zap logger
	errorLog := errorlog.NewLogger(nil, errorlog.DefaultConfig(), logger)
	defer errorLog.Close()

	analyzer := styleanalysis.NewAnalyzer(session, nil, logger, styleanalysis.WithErrorLogger(errorLog))
	defer func() {
		if err := analyzer.Shutdown(); err != nil {
			logger.Warn("closing browser", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	bold.Printf("━━━ Analyzing %s ━━━\n", *targetURL)
	start := time.Now()
	analysis := runAnalysis(ctx, analyzer, *targetURL)

	printAnalysis(analysis, time.Since(start))

	if *output != "" {
		if !*withScreenshot && analysis.Screenshot != nil {
			analysis.Screenshot.Data = ""
		}
		if err := writeJSON(*output, analysis); err != nil {
			red.Printf("❌ Writing %s: %v\n", *output, err)
			os.Exit(1)
		}
		dim.Printf("   Saved analysis to %s\n", *output)
	}

	if analysis.Fallback {
		os.Exit(1)
	}
}

func runAnalysis(ctx context.Context, analyzer *styleanalysis.Analyzer, url string) *domain.StyleAnalysis {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("   Extracting styles..."),
		progressbar.OptionSpinnerType(14),
	)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				bar.Add(1)
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()

	analysis := analyzer.Analyze(ctx, url, domain.RequestContext{
		UserAgent: "styleforge-cli",
		Timestamp: time.Now().UTC(),
	})
	close(done)
	bar.Finish()
	fmt.Println()

	return analysis
}

func printAnalysis(a *domain.StyleAnalysis, elapsed time.Duration) {
	fmt.Println()
	if a.Fallback {
		yellow.Println("⚠️  Could not analyze the site, showing default styles")
		fmt.Printf("   %s\n", a.Error)
	} else {
		green.Printf("✅ Analysis complete in %s\n", elapsed.Round(100*time.Millisecond))
		if a.Content.Title != "" {
			fmt.Printf("   Title: %s\n", a.Content.Title)
		}
		if a.Content.BrandName != "" {
			fmt.Printf("   Brand: %s\n", a.Content.BrandName)
		}
	}

	fmt.Println()
	cyan.Println("   Colors")
	fmt.Printf("   primary    %s\n", swatch(a.Colors.Primary))
	fmt.Printf("   secondary  %s\n", swatch(a.Colors.Secondary))
	fmt.Printf("   accent     %s\n", swatch(a.Colors.Accent))
	if len(a.Colors.Palette) > 0 {
		dim.Println("   palette:")
		for _, s := range a.Colors.Palette {
			fmt.Printf("     %-10s %s  %s\n", s.Category, swatch(s.Hex), s.Usage)
		}
	}

	fmt.Println()
	cyan.Println("   Fonts")
	fmt.Printf("   primary    %s\n", orDash(a.Fonts.Primary))
	fmt.Printf("   secondary  %s\n", orDash(a.Fonts.Secondary))
	rec := a.Fonts.Recommendations
	if rec.Heading.Family != "" {
		fmt.Printf("   heading    %s %s %s\n", rec.Heading.Family, rec.Heading.Weight, rec.Heading.Size)
	}
	if rec.Body.Family != "" {
		fmt.Printf("   body       %s %s %s\n", rec.Body.Family, rec.Body.Weight, rec.Body.Size)
	}

	if l := a.Layout.Recommendations; l != nil {
		fmt.Println()
		cyan.Println("   Layout")
		fmt.Printf("   margin %s  padding %s  radius %s\n", l.Margin, l.Padding, l.BorderRadius)
	}

	fmt.Println()
	confidence := color.New(color.FgGreen)
	switch {
	case a.Confidence < 40:
		confidence = color.New(color.FgRed)
	case a.Confidence < 70:
		confidence = color.New(color.FgYellow)
	}
	fmt.Print("   Confidence: ")
	confidence.Printf("%d%%\n", a.Confidence)

	if a.Screenshot != nil && a.Screenshot.StorageURI != "" {
		dim.Printf("   Screenshot: %s\n", a.Screenshot.StorageURI)
	}
}

// swatch renders hex next to a block painted in that color when the
// terminal supports truecolor
func swatch(hex string) string {
	if hex == "" {
		return "-"
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil || color.NoColor {
		return hex
	}
	return fmt.Sprintf("\x1b[48;2;%d;%d;%dm    \x1b[0m %s", r, g, b, hex)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
