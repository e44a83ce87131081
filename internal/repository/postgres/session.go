package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *repository.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.CreatedAt = time.Now()
	session.UpdatedAt = time.Now()

	query := `
		INSERT INTO sessions (id, user_id, title, created_at, updated_at)
		VALUES (:id, :user_id, :title, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, session)
	return err
}

// Get retrieves a session by ID, scoped to its owner
func (r *SessionRepository) Get(ctx context.Context, userID uuid.UUID, id string) (*repository.Session, error) {
	var session repository.Session
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM sessions
		WHERE id = $1 AND user_id = $2
	`

	err := r.db.GetContext(ctx, &session, query, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &session, nil
}

// List retrieves all sessions belonging to a user, most recently active first
func (r *SessionRepository) List(ctx context.Context, userID uuid.UUID) ([]*repository.Session, error) {
	var sessions []*repository.Session
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	err := r.db.SelectContext(ctx, &sessions, query, userID)
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// UpdateTitle sets a session's display title
func (r *SessionRepository) UpdateTitle(ctx context.Context, id, title string) error {
	query := `UPDATE sessions SET title = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, title, time.Now(), id)
	return err
}

// Touch bumps a session's updated_at timestamp
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE sessions SET updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

// Delete deletes a session; messages and summaries cascade
func (r *SessionRepository) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	query := `DELETE FROM sessions WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	return err
}
