package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/donorkit/styleforge/internal/errorlog"
)

// ErrorLogRepository persists analyzer error log entries. It is the
// errorlog.Sink used by the API.
type ErrorLogRepository struct {
	db *sqlx.DB
}

// NewErrorLogRepository creates a new error log repository
func NewErrorLogRepository(db *sqlx.DB) *ErrorLogRepository {
	return &ErrorLogRepository{db: db}
}

type errorRow struct {
	ID           string    `db:"id"`
	OccurredAt   time.Time `db:"occurred_at"`
	URL          string    `db:"url"`
	ErrorKind    string    `db:"error_kind"`
	ErrorName    string    `db:"error_name"`
	ErrorMessage string    `db:"error_message"`
	ErrorStack   string    `db:"error_stack"`
	UserAgent    string    `db:"user_agent"`
	ClientIP     string    `db:"client_ip"`
}

// WriteBatch inserts entries in a single statement
func (r *ErrorLogRepository) WriteBatch(ctx context.Context, entries []*errorlog.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]errorRow, len(entries))
	for i, e := range entries {
		rows[i] = errorRow{
			ID:           e.ID.String(),
			OccurredAt:   e.Timestamp.UTC(),
			URL:          e.URL,
			ErrorKind:    string(e.Error.Kind),
			ErrorName:    e.Error.Name,
			ErrorMessage: e.Error.Message,
			ErrorStack:   e.Error.Stack,
			UserAgent:    e.Context.UserAgent,
			ClientIP:     e.Context.IP,
		}
	}

	query := `
		INSERT INTO analysis_errors (
			id, occurred_at, url, error_kind, error_name, error_message,
			error_stack, user_agent, client_ip
		)
		VALUES (
			:id, :occurred_at, :url, :error_kind, :error_name, :error_message,
			:error_stack, :user_agent, :client_ip
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("writing %d error log entries: %w", len(entries), err)
	}

	return nil
}

// CountByKind returns how many errors of each kind have been recorded
func (r *ErrorLogRepository) CountByKind(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Kind  string `db:"error_kind"`
		Count int    `db:"count"`
	}
	query := `SELECT error_kind, COUNT(*) AS count FROM analysis_errors GROUP BY error_kind`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Kind] = row.Count
	}
	return counts, nil
}
