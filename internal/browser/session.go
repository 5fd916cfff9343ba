// Package browser manages the shared headless Chromium process used for style
// extraction and exposes pages through a narrow query interface.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/resilience"
)

// Page is an isolated tab bound to the shared browser. It exposes only the
// DOM reads the analyzer performs, so extraction can run against a fake.
type Page interface {
	// Navigate loads url, waits for the network to go idle and then for the
	// settle delay. Responses with status >= 400 are returned as errors.
	Navigate(ctx context.Context, url string) error

	// ComputedStyles reads props (CSS property names) from the first limit
	// elements in document order.
	ComputedStyles(ctx context.Context, limit int, props []string) ([]map[string]string, error)

	// FirstMatchStyles reads props from the first element matching each
	// selector. Selectors without a match are absent from the result.
	FirstMatchStyles(ctx context.Context, selectors []string, props []string) (map[string]map[string]string, error)

	// MatchingStyles reads props from every element matching selector.
	MatchingStyles(ctx context.Context, selector string, props []string) ([]map[string]string, error)

	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)

	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}

// Options configures the browser process and every page it opens
type Options struct {
	Headless       bool
	NavTimeout     time.Duration
	SettleDelay    time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int

	// OnLaunch is called after every launch attempt
	OnLaunch func(err error)
}

// DefaultOptions returns the settings used for style analysis
func DefaultOptions() Options {
	return Options{
		Headless:       true,
		NavTimeout:     30 * time.Second,
		SettleDelay:    2 * time.Second,
		UserAgent:      "Mozilla/5.0 (compatible; StyleAnalyzer/1.0)",
		ViewportWidth:  1280,
		ViewportHeight: 720,
	}
}

// launchArgs is the sandboxing flag set Chromium is started with
var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--no-first-run",
	"--no-zygote",
	"--single-process",
}

// instance is a running browser process
type instance interface {
	newPage(ctx context.Context) (Page, error)
	connected() bool
	close() error
}

// closedMarkers identify page errors caused by a browser that has gone away
var closedMarkers = []string{
	"has been closed",
	"target closed",
	"browser closed",
	"browser has disconnected",
}

func isClosedError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range closedMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Session owns the process-wide browser. Concurrent analyses share the
// process but each gets its own page.
type Session struct {
	opts    Options
	logger  *zap.Logger
	breaker *resilience.Breaker
	launch  func(opts Options) (instance, error)

	mu   sync.Mutex
	inst instance
}

// NewSession creates a session. The browser is not started until the first
// EnsureStarted or NewPage call.
func NewSession(opts Options, logger *zap.Logger) *Session {
	breakerCfg := resilience.DefaultBreakerConfig("browser-launch")
	breakerCfg.OnStateChange = func(name string, from, to resilience.BreakerState) {
		logger.Warn("browser launch breaker changed state",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Session{
		opts:    opts,
		logger:  logger,
		breaker: resilience.NewBreaker(breakerCfg),
		launch:  launchPlaywright,
	}
}

// EnsureStarted launches the browser if none is running or the running one
// has disconnected. Concurrent callers wait for the same launch.
func (s *Session) EnsureStarted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inst != nil {
		if s.inst.connected() {
			return nil
		}
		s.logger.Warn("browser disconnected, relaunching")
		s.closeQuietly(s.inst)
		s.inst = nil
	}

	start := time.Now()
	err := s.breaker.Execute(func() error {
		inst, err := s.launch(s.opts)
		if err != nil {
			return err
		}
		s.inst = inst
		return nil
	})
	if s.opts.OnLaunch != nil {
		s.opts.OnLaunch(err)
	}
	if err != nil {
		s.logger.Error("browser launch failed", zap.Error(err))
		return fmt.Errorf("browser launch failed: %w", err)
	}

	s.logger.Info("browser started",
		zap.Bool("headless", s.opts.Headless),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// NewPage opens a fresh page on the shared browser, starting it if needed
func (s *Session) NewPage(ctx context.Context) (Page, error) {
	if err := s.EnsureStarted(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	inst := s.inst
	s.mu.Unlock()

	if inst == nil {
		return nil, fmt.Errorf("browser session was shut down")
	}

	page, err := inst.newPage(ctx)
	if err != nil {
		if !inst.connected() || isClosedError(err) {
			s.discard(inst)
		}
		return nil, fmt.Errorf("opening browser page: %w", err)
	}
	return page, nil
}

// discard drops inst so the next EnsureStarted relaunches. A newer instance
// started by another caller is left alone.
func (s *Session) discard(inst instance) {
	s.mu.Lock()
	if s.inst != inst {
		s.mu.Unlock()
		return
	}
	s.inst = nil
	s.mu.Unlock()

	s.logger.Warn("discarding dead browser")
	s.closeQuietly(inst)
}

func (s *Session) closeQuietly(inst instance) {
	if err := inst.close(); err != nil {
		s.logger.Debug("closing dead browser", zap.Error(err))
	}
}

// Running reports whether a browser process is alive
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inst != nil && s.inst.connected()
}

// Shutdown closes the browser. It is safe to call more than once and before
// the browser was ever started.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	inst := s.inst
	s.inst = nil
	s.mu.Unlock()

	if inst == nil {
		return nil
	}

	if err := inst.close(); err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	s.logger.Info("browser stopped")
	return nil
}
