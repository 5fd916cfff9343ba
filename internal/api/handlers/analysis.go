package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/api/middleware"
	"github.com/donorkit/styleforge/internal/domain"
	"github.com/donorkit/styleforge/pkg/httputil"
)

// StyleAnalyzer runs website style analyses
type StyleAnalyzer interface {
	Analyze(ctx context.Context, url string, reqCtx domain.RequestContext) *domain.StyleAnalysis
}

// AnalysisStore persists analyses for reuse across restarts
type AnalysisStore interface {
	Store(ctx context.Context, url string, analysis *domain.StyleAnalysis, clientIP string) error
	LatestByHash(ctx context.Context, hash string, within time.Duration) (*domain.StoredAnalysis, error)
	History(ctx context.Context, limit, offset int) ([]domain.HistoryEntry, error)
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}

const (
	cachedWindow    = 7 * 24 * time.Hour
	defaultKeepDays = 30
	defaultHistoryN = 50
	maxHistoryN     = 500
)

// AnalysisHandler handles website analysis requests
type AnalysisHandler struct {
	analyzer StyleAnalyzer
	store    AnalysisStore
	logger   *zap.Logger
	debug    bool
	now      func() time.Time
}

// NewAnalysisHandler creates a new analysis handler. store may be nil, in
// which case the persistence endpoints answer 503. debug adds the raw error
// to error bodies.
func NewAnalysisHandler(analyzer StyleAnalyzer, store AnalysisStore, logger *zap.Logger, debug bool) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		debug:    debug,
		now:      time.Now,
	}
}

// Routes registers the analysis endpoints. analyzeMW wraps only the
// analysis endpoint, which is the expensive one.
func (h *AnalysisHandler) Routes(r chi.Router, analyzeMW ...func(http.Handler) http.Handler) {
	r.With(analyzeMW...).Post("/api/analyze-website-styles", h.Analyze)
	r.Get("/api/website-analysis/health", h.Health)
	r.Delete("/api/website-analysis/cleanup", h.Cleanup)
	r.Get("/api/website-analysis/{urlHash}", h.GetCached)
	r.Get("/api/website-analysis-history", h.History)
}

// AnalyzeRequest is the body of an analysis request
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// Analyze handles POST /api/analyze-website-styles
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.JSONError(w, http.StatusBadRequest, httputil.CodeValidation, err.Error(), nil)
		return
	}

	if req.URL == "" {
		httputil.JSONError(w, http.StatusBadRequest, httputil.CodeValidation, "URL is required", map[string]any{
			"message": "Please provide a website URL to analyze",
		})
		return
	}

	clientIP := middleware.ClientIP(r)
	reqCtx := domain.RequestContext{
		UserAgent: r.UserAgent(),
		IP:        clientIP,
		Timestamp: h.now().UTC(),
	}

	analysis := h.analyzer.Analyze(r.Context(), req.URL, reqCtx)

	// The request deadline fired while the browser was still working
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		classified := domain.NewClassifiedError(domain.KindTimeout, req.URL, "").WithCause(r.Context().Err())
		httputil.Raw(w, classified.HTTPStatus(), domain.NewErrorResponse(classified, req.URL, h.debug))
		return
	}

	if h.store != nil {
		if err := h.store.Store(r.Context(), req.URL, analysis, clientIP); err != nil {
			h.logger.Error("Failed to store analysis result", zap.String("url", req.URL), zap.Error(err))
		}
	}

	httputil.Raw(w, http.StatusOK, analysis)
}

// CachedAnalysisResponse is a stored analysis served from the database
type CachedAnalysisResponse struct {
	*domain.StyleAnalysis
	Cached    bool      `json:"cached"`
	CacheDate time.Time `json:"cacheDate"`
}

// GetCached handles GET /api/website-analysis/{urlHash}
func (h *AnalysisHandler) GetCached(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	hash := chi.URLParam(r, "urlHash")
	stored, err := h.store.LatestByHash(r.Context(), hash, cachedWindow)
	if err != nil {
		if !errors.Is(err, domain.ErrAnalysisNotFound) {
			h.logger.Error("Failed to retrieve cached analysis", zap.String("url_hash", hash), zap.Error(err))
		}
		httputil.ErrorFromDomain(w, err)
		return
	}
	if stored.Analysis == nil {
		httputil.ErrorFromDomain(w, domain.ErrAnalysisNotFound)
		return
	}

	httputil.Raw(w, http.StatusOK, CachedAnalysisResponse{
		StyleAnalysis: stored.Analysis,
		Cached:        true,
		CacheDate:     stored.CreatedAt,
	})
}

// HistoryResponse lists stored analyses
type HistoryResponse struct {
	Success bool                  `json:"success"`
	History []domain.HistoryEntry `json:"history"`
	Count   int                   `json:"count"`
	HasMore bool                  `json:"hasMore"`
}

// History handles GET /api/website-analysis-history
func (h *AnalysisHandler) History(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	page := httputil.GetPage(r, defaultHistoryN, maxHistoryN)

	history, err := h.store.History(r.Context(), page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("Failed to fetch analysis history", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.Raw(w, http.StatusOK, HistoryResponse{
		Success: true,
		History: history,
		Count:   len(history),
		HasMore: len(history) == page.Limit,
	})
}

// Health handles GET /api/website-analysis/health
func (h *AnalysisHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.Raw(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "website-style-analyzer",
		"timestamp": h.now().UTC(),
		"capabilities": map[string]bool{
			"colorExtraction":   true,
			"fontAnalysis":      true,
			"layoutAnalysis":    true,
			"screenshotCapture": true,
		},
	})
}

// CleanupResponse reports a retention sweep
type CleanupResponse struct {
	Success      bool      `json:"success"`
	DeletedCount int64     `json:"deletedCount"`
	CutoffDate   time.Time `json:"cutoffDate"`
	DaysKept     int       `json:"daysKept"`
}

// Cleanup handles DELETE /api/website-analysis/cleanup
func (h *AnalysisHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	days := defaultKeepDays
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 {
			httputil.JSONError(w, http.StatusBadRequest, httputil.CodeValidation, "days must be a non-negative integer", nil)
			return
		}
		days = parsed
	}

	cutoff := h.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	deleted, err := h.store.Cleanup(r.Context(), cutoff)
	if err != nil {
		h.logger.Error("Cleanup failed", zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.logger.Info("Cleaned up old website analyses", zap.Int64("deleted", deleted), zap.Int("days_kept", days))

	httputil.Raw(w, http.StatusOK, CleanupResponse{
		Success:      true,
		DeletedCount: deleted,
		CutoffDate:   cutoff,
		DaysKept:     days,
	})
}

func (h *AnalysisHandler) requireStore(w http.ResponseWriter) bool {
	if h.store != nil {
		return true
	}
	httputil.ErrorFromDomain(w, domain.NewClassifiedError(domain.KindServiceUnavailable, "", "Analysis storage is not configured"))
	return false
}
