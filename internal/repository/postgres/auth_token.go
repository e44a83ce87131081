package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

// AuthTokenRepository implements repository.AuthTokenRepository using PostgreSQL
type AuthTokenRepository struct {
	db *sqlx.DB
}

// NewAuthTokenRepository creates a new PostgreSQL auth token repository
func NewAuthTokenRepository(db *sqlx.DB) repository.AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

// Create stores a new refresh token
func (r *AuthTokenRepository) Create(ctx context.Context, token *repository.AuthToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()

	query := `
		INSERT INTO auth_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (:id, :user_id, :token_hash, :expires_at, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, token)
	return err
}

// GetByHash looks up a token by its hash
func (r *AuthTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*repository.AuthToken, error) {
	var token repository.AuthToken
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM auth_tokens
		WHERE token_hash = $1
	`

	err := r.db.GetContext(ctx, &token, query, tokenHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &token, nil
}

// DeleteByHash revokes a token
func (r *AuthTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM auth_tokens WHERE token_hash = $1`
	_, err := r.db.ExecContext(ctx, query, tokenHash)
	return err
}

// DeleteExpired removes tokens past their expiry
func (r *AuthTokenRepository) DeleteExpired(ctx context.Context) error {
	query := `DELETE FROM auth_tokens WHERE expires_at < $1`
	_, err := r.db.ExecContext(ctx, query, time.Now())
	return err
}
