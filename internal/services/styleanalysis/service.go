// Package styleanalysis extracts brand colors, typography and layout
// conventions from a live website and reduces them to a confidence-scored
// StyleAnalysis.
package styleanalysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/donorkit/styleforge/internal/browser"
	"github.com/donorkit/styleforge/internal/domain"
	"github.com/donorkit/styleforge/internal/errorlog"
	"github.com/donorkit/styleforge/internal/resilience"
)

// Outcome labels for recorded analyses
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeCached   = "cached"
)

// DefaultExtractionTimeout bounds one shared extraction, retries included
const DefaultExtractionTimeout = 2 * time.Minute

// PageOpener hands out isolated pages on a shared browser
type PageOpener interface {
	NewPage(ctx context.Context) (browser.Page, error)
	Shutdown() error
}

// Cache stores successful analyses by normalized URL
type Cache interface {
	Get(ctx context.Context, key string) (*domain.StyleAnalysis, bool)
	Put(ctx context.Context, key string, analysis *domain.StyleAnalysis)
}

// ErrorLogger receives classified failures. Log must not block.
type ErrorLogger interface {
	Log(entry *errorlog.Entry)
}

// ScreenshotStore archives screenshot PNGs and returns their storage URI
type ScreenshotStore interface {
	UploadScreenshot(ctx context.Context, key string, data []byte) (string, error)
}

// Recorder receives analyzer metrics
type Recorder interface {
	RecordAnalysis(outcome string, duration time.Duration, confidence int)
	RecordRetry()
	RecordError(kind domain.ErrorKind)
	SetCacheEntries(n int)
}

// Analyzer runs the validate, cache, extract, reduce pipeline. Analyze never
// returns an error: failures become fallback analyses.
type Analyzer struct {
	pages       PageOpener
	cache       Cache
	extractor   *Extractor
	logger      *zap.Logger
	retry       resilience.RetryConfig
	errorLog    ErrorLogger
	screenshots ScreenshotStore
	metrics     Recorder
	now         func() time.Time
	extractFor  time.Duration

	inflight singleflight.Group
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithRetryConfig overrides the extraction retry policy
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(a *Analyzer) { a.retry = cfg }
}

// WithErrorLogger sets the error-logging collaborator
func WithErrorLogger(l ErrorLogger) Option {
	return func(a *Analyzer) { a.errorLog = l }
}

// WithScreenshotStore enables screenshot archiving
func WithScreenshotStore(s ScreenshotStore) Option {
	return func(a *Analyzer) { a.screenshots = s }
}

// WithExtractionTimeout bounds a shared extraction independently of the
// requests waiting on it
func WithExtractionTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.extractFor = d
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(r Recorder) Option {
	return func(a *Analyzer) { a.metrics = r }
}

// NewAnalyzer creates an analyzer. cache may be nil to disable caching.
func NewAnalyzer(pages PageOpener, cache Cache, logger *zap.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		pages:      pages,
		cache:      cache,
		extractor:  NewExtractor(logger),
		logger:     logger,
		retry:      resilience.DefaultRetryConfig(),
		metrics:    nopRecorder{},
		now:        time.Now,
		extractFor: DefaultExtractionTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze analyzes rawURL. The result has Fallback set when the site could
// not be analyzed.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, reqCtx domain.RequestContext) *domain.StyleAnalysis {
	start := a.now()

	url, err := domain.ValidateURL(rawURL)
	if err != nil {
		return a.fail(rawURL, err, reqCtx, start)
	}

	if cached, ok := a.cacheGet(ctx, url); ok {
		a.logger.Info("analysis cache hit", zap.String("url", url))
		a.metrics.RecordAnalysis(OutcomeCached, a.now().Sub(start), cached.Confidence)
		return cached
	}

	a.logger.Info("starting style analysis", zap.String("url", url))

	analysis, err := a.sharedExtraction(ctx, url)
	if err != nil {
		return a.fail(url, err, reqCtx, start)
	}

	duration := a.now().Sub(start)
	a.metrics.RecordAnalysis(OutcomeSuccess, duration, analysis.Confidence)
	a.logger.Info("style analysis completed",
		zap.String("url", url),
		zap.Int("colors_extracted", analysis.Summary.ColorsExtracted),
		zap.Int("fonts_found", analysis.Summary.FontsFound),
		zap.Int("confidence", analysis.Confidence),
		zap.Duration("duration", duration),
	)
	return analysis
}

// sharedExtraction joins or starts the extraction for url. Concurrent
// requests for the same URL share one extraction, which runs detached from
// every caller's context so one caller giving up does not fail the others.
// Each caller still stops waiting when its own ctx is done.
func (a *Analyzer) sharedExtraction(ctx context.Context, url string) (*domain.StyleAnalysis, error) {
	ch := a.inflight.DoChan(url, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.extractFor)
		defer cancel()

		if cached, ok := a.cacheGet(shared, url); ok {
			return cached, nil
		}
		analysis, err := a.extractWithRetry(shared, url)
		if err != nil {
			return nil, err
		}
		if a.cache != nil {
			a.cache.Put(shared, url, analysis)
			if l, ok := a.cache.(interface{ Len() int }); ok {
				a.metrics.SetCacheEntries(l.Len())
			}
		}
		return analysis, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.StyleAnalysis), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown releases the shared browser
func (a *Analyzer) Shutdown() error {
	return a.pages.Shutdown()
}

func (a *Analyzer) cacheGet(ctx context.Context, url string) (*domain.StyleAnalysis, bool) {
	if a.cache == nil {
		return nil, false
	}
	return a.cache.Get(ctx, url)
}

func (a *Analyzer) extractWithRetry(ctx context.Context, url string) (*domain.StyleAnalysis, error) {
	cfg := a.retry
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		a.metrics.RecordRetry()
		a.logger.Warn("retrying style extraction",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	return resilience.Retry(ctx, cfg, func(ctx context.Context) (*domain.StyleAnalysis, error) {
		return a.attempt(ctx, url)
	})
}

// attempt performs one extraction. Errors come back classified so the retry
// policy can skip futile attempts.
func (a *Analyzer) attempt(ctx context.Context, url string) (*domain.StyleAnalysis, error) {
	page, err := a.pages.NewPage(ctx)
	if err != nil {
		return nil, domain.Classify(err, url)
	}
	defer func() {
		if err := page.Close(); err != nil {
			a.logger.Debug("closing page", zap.Error(err))
		}
	}()

	if err := page.Navigate(ctx, url); err != nil {
		return nil, domain.Classify(err, url)
	}

	raw, err := a.extractor.Extract(ctx, page, url)
	if err != nil {
		return nil, domain.Classify(err, url)
	}

	return a.aggregate(ctx, url, raw), nil
}

func (a *Analyzer) aggregate(ctx context.Context, url string, raw *RawExtraction) *domain.StyleAnalysis {
	now := a.now()
	colors := ReduceColors(raw.Colors)
	fonts := ResolveFonts(raw.Families, raw.FontStyles)
	layout := SummarizeLayout(raw.Spacing, raw.BorderRadii, raw.Buttons)
	confidence := Confidence(colors, fonts, layout)

	analysis := &domain.StyleAnalysis{
		URL:        url,
		Timestamp:  now,
		Colors:     colors,
		Fonts:      fonts,
		Layout:     layout,
		Content:    raw.Content,
		Summary:    Summarize(colors, fonts, confidence),
		Confidence: confidence,
	}

	if raw.Screenshot != nil {
		analysis.Screenshot = &domain.Screenshot{
			Data:      base64.StdEncoding.EncodeToString(raw.Screenshot),
			URL:       url,
			Timestamp: now,
		}
		analysis.Screenshot.StorageURI = a.archiveScreenshot(ctx, url, raw.Screenshot, now)
	}

	return analysis
}

func (a *Analyzer) archiveScreenshot(ctx context.Context, url string, data []byte, now time.Time) string {
	if a.screenshots == nil {
		return ""
	}

	key := fmt.Sprintf("screenshots/%s/%d.png", domain.URLHash(url), now.Unix())
	uri, err := a.screenshots.UploadScreenshot(ctx, key, data)
	if err != nil {
		a.logger.Warn("screenshot upload failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	return uri
}

func (a *Analyzer) fail(url string, err error, reqCtx domain.RequestContext, start time.Time) *domain.StyleAnalysis {
	classified := domain.Classify(err, url)

	a.logger.Warn("style analysis failed, using fallback",
		zap.String("url", url),
		zap.String("kind", string(classified.Kind)),
		zap.Error(err),
	)
	a.metrics.RecordError(classified.Kind)
	a.metrics.RecordAnalysis(OutcomeFallback, a.now().Sub(start), FallbackConfidence)

	if a.errorLog != nil {
		cause := err
		if classified.Cause != nil {
			cause = classified.Cause
		}
		a.errorLog.Log(errorlog.NewEntry(cause, classified, url, reqCtx))
	}

	return Fallback(url, classified.Message, a.now())
}

type nopRecorder struct{}

func (nopRecorder) RecordAnalysis(string, time.Duration, int) {}
func (nopRecorder) RecordRetry()                              {}
func (nopRecorder) RecordError(domain.ErrorKind)              {}
func (nopRecorder) SetCacheEntries(int)                       {}
