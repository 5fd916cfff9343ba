package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/donorkit/styleforge/internal/domain"
	"github.com/donorkit/styleforge/internal/repository/postgres"
)

// TestDB holds the test database connection and container
type TestDB struct {
	Container testcontainers.Container
	DB        *sql.DB
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL container for testing
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("styleforge_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to connect to database: %v", err)
	}

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(time.Second)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}

	if err := testDB.RunMigrations(t); err != nil {
		testDB.Cleanup(t)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return testDB
}

// RunMigrations applies all SQL migrations
func (td *TestDB) RunMigrations(t *testing.T) error {
	t.Helper()

	migrationsDir := findMigrationsDir()
	if migrationsDir == "" {
		return fmt.Errorf("migrations directory not found")
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if _, err := td.DB.Exec(string(content)); err != nil {
			return fmt.Errorf("applying %s: %w", filepath.Base(file), err)
		}
	}

	return nil
}

// findMigrationsDir locates the migrations directory
func findMigrationsDir() string {
	candidates := []string{
		"../../migrations",
		"../../../migrations",
		"migrations",
	}

	for _, dir := range candidates {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
	}

	return ""
}

// Cleanup terminates the container and closes connections
func (td *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if td.DB != nil {
		td.DB.Close()
	}
	if td.Container != nil {
		td.Container.Terminate(ctx)
	}
}

// countingAnalyzer returns a fixed analysis per URL, or a fallback for
// hosts listed in broken
type countingAnalyzer struct {
	calls  int
	broken map[string]bool
}

func (a *countingAnalyzer) Analyze(_ context.Context, url string, _ domain.RequestContext) *domain.StyleAnalysis {
	a.calls++
	if a.broken[url] {
		return &domain.StyleAnalysis{
			URL:        url,
			Colors:     domain.ColorAnalysis{Primary: "#2563eb", Secondary: "#64748b", Accent: "#10b981"},
			Fonts:      domain.FontAnalysis{Primary: "Inter, system-ui, sans-serif"},
			Confidence: 0,
			Fallback:   true,
			Error:      "Website not found. Please check the URL and try again.",
		}
	}
	return &domain.StyleAnalysis{
		URL: url,
		Colors: domain.ColorAnalysis{
			Primary:   "#0b6e4f",
			Secondary: "#f2c14e",
			Accent:    "#f78154",
			Palette: []domain.Swatch{
				{Name: "Primary", Hex: "#0b6e4f", Usage: "48%", Category: domain.CategoryPrimary},
				{Name: "Secondary", Hex: "#f2c14e", Usage: "21%", Category: domain.CategorySecondary},
			},
		},
		Fonts:      domain.FontAnalysis{Primary: "Lato"},
		Summary:    domain.Summary{ColorsExtracted: 2, FontsFound: 1, Confidence: 78},
		Confidence: 78,
	}
}

func setupTestRouter(t *testing.T, testDB *TestDB, analyzer *countingAnalyzer) *Router {
	t.Helper()

	db, err := postgres.NewFromDSN(testDB.ConnStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRouter(RouterConfig{
		Analyzer:    analyzer,
		Store:       postgres.NewAnalysisRepository(db.DB),
		Checks:      map[string]HealthChecker{"database": db},
		Logger:      zap.NewNop(),
		Development: true,
	})
}

func TestAPIIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	analyzer := &countingAnalyzer{broken: map[string]bool{"no-such-charity.invalid": true}}
	router := setupTestRouter(t, testDB, analyzer)

	do := func(method, path string, body []byte) *httptest.ResponseRecorder {
		var req *http.Request
		if body != nil {
			req = httptest.NewRequest(method, path, bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.Header.Set("User-Agent", "styleforge-integration")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Ready", func(t *testing.T) {
		rec := do(http.MethodGet, "/ready", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"database":"healthy"`)
	})

	t.Run("Analyze_ThenCached", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/analyze-website-styles", []byte(`{"url":"riverbend-foodbank.org"}`))
		require.Equal(t, http.StatusOK, rec.Code)

		var analysis domain.StyleAnalysis
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
		assert.Equal(t, "#0b6e4f", analysis.Colors.Primary)

		rec = do(http.MethodGet, "/api/website-analysis/"+domain.URLHash("riverbend-foodbank.org"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var cached struct {
			Colors struct {
				Primary string `json:"primary"`
			} `json:"colors"`
			Confidence int       `json:"confidence"`
			Cached     bool      `json:"cached"`
			CacheDate  time.Time `json:"cacheDate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cached))
		assert.True(t, cached.Cached)
		assert.Equal(t, "#0b6e4f", cached.Colors.Primary)
		assert.Equal(t, 78, cached.Confidence)
		assert.WithinDuration(t, time.Now(), cached.CacheDate, time.Minute)
	})

	t.Run("Analyze_FallbackIsStoredAsFailure", func(t *testing.T) {
		rec := do(http.MethodPost, "/api/analyze-website-styles", []byte(`{"url":"no-such-charity.invalid"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"fallback":true`)
	})

	t.Run("Cached_Unknown", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/website-analysis/"+domain.URLHash("never-analyzed.org"), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "No cached analysis found for this URL")
	})

	t.Run("History", func(t *testing.T) {
		rec := do(http.MethodGet, "/api/website-analysis-history?limit=10", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Success bool `json:"success"`
			History []struct {
				URL     string  `json:"url"`
				Success bool    `json:"success"`
				Error   *string `json:"error"`
				Summary *struct {
					Colors     int `json:"colors"`
					Fonts      int `json:"fonts"`
					Confidence int `json:"confidence"`
				} `json:"summary"`
			} `json:"history"`
			Count   int  `json:"count"`
			HasMore bool `json:"hasMore"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.Equal(t, 2, resp.Count)
		assert.False(t, resp.HasMore)

		// newest first
		assert.Equal(t, "no-such-charity.invalid", resp.History[0].URL)
		assert.False(t, resp.History[0].Success)
		require.NotNil(t, resp.History[0].Error)
		assert.Nil(t, resp.History[0].Summary)

		assert.Equal(t, "riverbend-foodbank.org", resp.History[1].URL)
		assert.True(t, resp.History[1].Success)
		require.NotNil(t, resp.History[1].Summary)
		assert.Equal(t, 78, resp.History[1].Summary.Confidence)
	})

	t.Run("Cleanup", func(t *testing.T) {
		rec := do(http.MethodDelete, "/api/website-analysis/cleanup?days=0", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			DeletedCount int64 `json:"deletedCount"`
			DaysKept     int   `json:"daysKept"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(2), resp.DeletedCount)
		assert.Equal(t, 0, resp.DaysKept)
	})

	assert.Equal(t, 2, analyzer.calls)
}
