package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

// SummaryRepository implements repository.SummaryRepository using PostgreSQL
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository creates a new PostgreSQL summary repository
func NewSummaryRepository(db *sqlx.DB) repository.SummaryRepository {
	return &SummaryRepository{db: db}
}

// Upsert writes into the unique (session_id, summary_type) slot. Recomputing
// a summary replaces the prior row for that type, it never appends.
func (r *SummaryRepository) Upsert(ctx context.Context, summary *repository.ConversationSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	now := time.Now()
	summary.CreatedAt = now
	summary.UpdatedAt = now

	query := `
		INSERT INTO conversation_summaries
			(id, session_id, summary_type, start_index, end_index, summary_text, token_count, created_at, updated_at)
		VALUES
			(:id, :session_id, :summary_type, :start_index, :end_index, :summary_text, :token_count, :created_at, :updated_at)
		ON CONFLICT (session_id, summary_type) DO UPDATE SET
			start_index  = EXCLUDED.start_index,
			end_index    = EXCLUDED.end_index,
			summary_text = EXCLUDED.summary_text,
			token_count  = EXCLUDED.token_count,
			updated_at   = EXCLUDED.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, summary)
	return err
}

// GetByType retrieves a session's summary of the given type, if present
func (r *SummaryRepository) GetByType(ctx context.Context, sessionID, summaryType string) (*repository.ConversationSummary, error) {
	var summary repository.ConversationSummary
	query := `
		SELECT id, session_id, summary_type, start_index, end_index, summary_text, token_count, created_at, updated_at
		FROM conversation_summaries
		WHERE session_id = $1 AND summary_type = $2
	`

	err := r.db.GetContext(ctx, &summary, query, sessionID, summaryType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &summary, nil
}
