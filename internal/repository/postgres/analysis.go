package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/donorkit/styleforge/internal/domain"
)

// DefaultRetention is how far back LatestByHash looks by default
const DefaultRetention = 7 * 24 * time.Hour

// AnalysisRepository stores completed analyses in website_analyses
type AnalysisRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db, now: time.Now}
}

type analysisRow struct {
	URL          string         `db:"url"`
	URLHash      string         `db:"url_hash"`
	AnalysisData []byte         `db:"analysis_data"`
	Success      bool           `db:"success"`
	ErrorMessage sql.NullString `db:"error_message"`
	ClientIP     sql.NullString `db:"client_ip"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r *analysisRow) toDomain() (*domain.StoredAnalysis, error) {
	stored := &domain.StoredAnalysis{
		URL:          r.URL,
		URLHash:      r.URLHash,
		Success:      r.Success,
		ErrorMessage: r.ErrorMessage.String,
		ClientIP:     r.ClientIP.String,
		CreatedAt:    r.CreatedAt,
	}

	if len(r.AnalysisData) > 0 {
		var analysis domain.StyleAnalysis
		if err := json.Unmarshal(r.AnalysisData, &analysis); err != nil {
			return nil, fmt.Errorf("decoding analysis data: %w", err)
		}
		stored.Analysis = &analysis
	}

	return stored, nil
}

// Store records an analysis for url. Fallback results are stored with
// success false and their error message.
func (r *AnalysisRepository) Store(ctx context.Context, url string, analysis *domain.StyleAnalysis, clientIP string) error {
	if analysis == nil {
		return errors.New("analysis is required")
	}

	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}

	query := `
		INSERT INTO website_analyses (
			url, url_hash, analysis_data, success, error_message, client_ip, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		url,
		domain.URLHash(url),
		data,
		analysis.Error == "",
		nullString(analysis.Error),
		nullString(clientIP),
		r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing analysis: %w", err)
	}

	return nil
}

// LatestByHash returns the most recent analysis for hash created within the
// given window. A zero window uses DefaultRetention.
func (r *AnalysisRepository) LatestByHash(ctx context.Context, hash string, within time.Duration) (*domain.StoredAnalysis, error) {
	if within <= 0 {
		within = DefaultRetention
	}

	query := `
		SELECT url, url_hash, analysis_data, success, error_message, client_ip, created_at
		FROM website_analyses
		WHERE url_hash = $1 AND created_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var row analysisRow
	if err := r.db.GetContext(ctx, &row, query, hash, r.now().Add(-within).UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAnalysisNotFound
		}
		return nil, err
	}

	return row.toDomain()
}

type historyRow struct {
	URL          string         `db:"url"`
	URLHash      string         `db:"url_hash"`
	Success      bool           `db:"success"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	Summary      []byte         `db:"summary"`
}

// History lists stored analyses, newest first
func (r *AnalysisRepository) History(ctx context.Context, limit, offset int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT url, url_hash, success, error_message, created_at,
		       analysis_data->'summary' AS summary
		FROM website_analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, err
	}

	history := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := domain.HistoryEntry{
			URL:     row.URL,
			URLHash: row.URLHash,
			Date:    row.CreatedAt,
			Success: row.Success,
		}
		if row.ErrorMessage.Valid {
			msg := row.ErrorMessage.String
			entry.Error = &msg
		}
		if row.Success && len(row.Summary) > 0 && string(row.Summary) != "null" {
			var summary domain.Summary
			if err := json.Unmarshal(row.Summary, &summary); err != nil {
				return nil, fmt.Errorf("decoding summary for %s: %w", row.URLHash, err)
			}
			entry.Summary = &domain.HistorySummary{
				Colors:     summary.ColorsExtracted,
				Fonts:      summary.FontsFound,
				Confidence: summary.Confidence,
			}
		}
		history = append(history, entry)
	}

	return history, nil
}

// Cleanup deletes analyses created before cutoff and returns how many were removed
func (r *AnalysisRepository) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM website_analyses WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleaning up analyses: %w", err)
	}

	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
