package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/domain"
	"github.com/donorkit/styleforge/pkg/httputil"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fakeAnalyzer struct {
	calls   int
	lastURL string
	lastCtx domain.RequestContext
	result  *domain.StyleAnalysis
	block   bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, url string, reqCtx domain.RequestContext) *domain.StyleAnalysis {
	f.calls++
	f.lastURL = url
	f.lastCtx = reqCtx
	if f.block {
		<-ctx.Done()
	}
	return f.result
}

type storedCall struct {
	url      string
	clientIP string
}

type fakeStore struct {
	stored     []storedCall
	storeErr   error
	latest     *domain.StoredAnalysis
	latestErr  error
	lastWithin time.Duration
	history    []domain.HistoryEntry
	lastLimit  int
	lastOffset int
	deleted    int64
	lastCutoff time.Time
}

func (f *fakeStore) Store(_ context.Context, url string, _ *domain.StyleAnalysis, clientIP string) error {
	f.stored = append(f.stored, storedCall{url, clientIP})
	return f.storeErr
}

func (f *fakeStore) LatestByHash(_ context.Context, _ string, within time.Duration) (*domain.StoredAnalysis, error) {
	f.lastWithin = within
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if f.latest == nil {
		return nil, domain.ErrAnalysisNotFound
	}
	return f.latest, nil
}

func (f *fakeStore) History(_ context.Context, limit, offset int) ([]domain.HistoryEntry, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.history, nil
}

func (f *fakeStore) Cleanup(_ context.Context, cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	return f.deleted, nil
}

func newTestHandler(analyzer StyleAnalyzer, store AnalysisStore) *AnalysisHandler {
	h := NewAnalysisHandler(analyzer, store, zap.NewNop(), true)
	h.now = func() time.Time { return fixedNow }
	return h
}

func newRouter(h *AnalysisHandler) chi.Router {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestAnalysisHandler_Analyze(t *testing.T) {
	t.Run("returns the analysis and stores it", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: &domain.StyleAnalysis{
			URL:        "https://harborlight.org/",
			Colors:     domain.ColorAnalysis{Primary: "#2a2a72"},
			Confidence: 85,
		}}
		store := &fakeStore{}
		r := newRouter(newTestHandler(analyzer, store))

		req := httptest.NewRequest(http.MethodPost, "/api/analyze-website-styles", bytes.NewBufferString(`{"url":"harborlight.org","extra":1}`))
		req.Header.Set("User-Agent", "campaign-builder/2.0")
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()

		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got domain.StyleAnalysis
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "#2a2a72", got.Colors.Primary)
		assert.Equal(t, 85, got.Confidence)

		assert.Equal(t, "harborlight.org", analyzer.lastURL)
		assert.Equal(t, "campaign-builder/2.0", analyzer.lastCtx.UserAgent)
		assert.Equal(t, "203.0.113.9", analyzer.lastCtx.IP)
		assert.Equal(t, fixedNow, analyzer.lastCtx.Timestamp)

		assert.Equal(t, []storedCall{{"harborlight.org", "203.0.113.9"}}, store.stored)
	})

	t.Run("fallback results are still 200", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: &domain.StyleAnalysis{
			URL: "https://down.example/", Confidence: 50, Fallback: true, Error: "Unable to reach the website",
		}}
		r := newRouter(newTestHandler(analyzer, nil))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze-website-styles", bytes.NewBufferString(`{"url":"down.example"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"fallback":true`)
	})

	t.Run("store failure is not surfaced", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: &domain.StyleAnalysis{URL: "https://a.org/"}}
		store := &fakeStore{storeErr: errors.New("connection reset")}
		r := newRouter(newTestHandler(analyzer, store))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze-website-styles", bytes.NewBufferString(`{"url":"a.org"}`)))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing url", func(t *testing.T) {
		analyzer := &fakeAnalyzer{}
		r := newRouter(newTestHandler(analyzer, nil))

		for _, body := range []string{`{}`, `{"url":""}`, ``, `not json`} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze-website-styles", bytes.NewBufferString(body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)

			var resp httputil.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, httputil.CodeValidation, resp.Error.Code)
		}
		assert.Zero(t, analyzer.calls)
	})

	t.Run("request deadline becomes a timeout error", func(t *testing.T) {
		analyzer := &fakeAnalyzer{result: &domain.StyleAnalysis{Fallback: true}, block: true}
		store := &fakeStore{}
		h := newTestHandler(analyzer, store)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-website-styles", bytes.NewBufferString(`{"url":"slow.example"}`)).WithContext(ctx)
		rec := httptest.NewRecorder()

		newRouter(h).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestTimeout, rec.Code)

		var resp domain.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, domain.KindTimeout, resp.Code)
		assert.True(t, resp.UserFriendly)
		assert.NotEmpty(t, resp.Suggestions)
		require.NotNil(t, resp.Debug)
		assert.Empty(t, store.stored)
	})
}

func TestAnalysisHandler_GetCached(t *testing.T) {
	hash := domain.URLHash("https://harborlight.org/")
	created := fixedNow.Add(-48 * time.Hour)

	t.Run("found", func(t *testing.T) {
		store := &fakeStore{latest: &domain.StoredAnalysis{
			URLHash:   hash,
			Analysis:  &domain.StyleAnalysis{URL: "https://harborlight.org/", Confidence: 90},
			CreatedAt: created,
		}}
		r := newRouter(newTestHandler(&fakeAnalyzer{}, store))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/website-analysis/"+hash, nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, true, body["cached"])
		assert.Equal(t, "https://harborlight.org/", body["url"])
		assert.Equal(t, float64(90), body["confidence"])
		assert.Equal(t, created.Format(time.RFC3339), body["cacheDate"])
		assert.Equal(t, 7*24*time.Hour, store.lastWithin)
	})

	t.Run("not found", func(t *testing.T) {
		r := newRouter(newTestHandler(&fakeAnalyzer{}, &fakeStore{}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/website-analysis/"+hash, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var resp httputil.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, httputil.CodeNotFound, resp.Error.Code)
	})

	t.Run("database error", func(t *testing.T) {
		r := newRouter(newTestHandler(&fakeAnalyzer{}, &fakeStore{latestErr: errors.New("connection refused")}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/website-analysis/"+hash, nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("no store configured", func(t *testing.T) {
		r := newRouter(newTestHandler(&fakeAnalyzer{}, nil))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/website-analysis/"+hash, nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAnalysisHandler_History(t *testing.T) {
	msg := "Unable to reach the website"
	store := &fakeStore{history: []domain.HistoryEntry{
		{URL: "https://a.org/", Success: true, Summary: &domain.HistorySummary{Colors: 5, Fonts: 2, Confidence: 100}},
		{URL: "https://b.org/", Success: false, Error: &msg},
	}}
	r := newRouter(newTestHandler(&fakeAnalyzer{}, store))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/website-analysis-history?limit=2&offset=4", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.True(t, resp.HasMore)
	assert.Equal(t, 2, store.lastLimit)
	assert.Equal(t, 4, store.lastOffset)
	assert.Nil(t, resp.History[1].Summary)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/website-analysis-history", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 50, store.lastLimit)
	assert.False(t, resp.HasMore)
}

func TestAnalysisHandler_Health(t *testing.T) {
	r := newRouter(newTestHandler(&fakeAnalyzer{}, nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/website-analysis/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status       string          `json:"status"`
		Service      string          `json:"service"`
		Capabilities map[string]bool `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "website-style-analyzer", body.Service)
	assert.True(t, body.Capabilities["screenshotCapture"])
}

func TestAnalysisHandler_Cleanup(t *testing.T) {
	t.Run("default retention", func(t *testing.T) {
		store := &fakeStore{deleted: 12}
		r := newRouter(newTestHandler(&fakeAnalyzer{}, store))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/website-analysis/cleanup", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp CleanupResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, int64(12), resp.DeletedCount)
		assert.Equal(t, 30, resp.DaysKept)
		assert.Equal(t, fixedNow.Add(-30*24*time.Hour), store.lastCutoff)
	})

	t.Run("custom days", func(t *testing.T) {
		store := &fakeStore{}
		r := newRouter(newTestHandler(&fakeAnalyzer{}, store))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/website-analysis/cleanup?days=7", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, fixedNow.Add(-7*24*time.Hour), store.lastCutoff)
	})

	t.Run("invalid days", func(t *testing.T) {
		r := newRouter(newTestHandler(&fakeAnalyzer{}, &fakeStore{}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/website-analysis/cleanup?days=soon", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
