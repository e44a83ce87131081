package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Summary types. At most one row of each type exists per session.
const (
	SummaryTypeDetailed  = "detailed"
	SummaryTypeHighLevel = "high_level"
)

// Session represents one chat conversation thread belonging to a user.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Message represents a chat message. Messages are immutable once created
// and ordered by creation time.
type Message struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Role      string    `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ConversationSummary is a rolling compaction of older messages. StartIndex
// and EndIndex are 1-based positions over the session's message sequence at
// the time the summary was computed.
type ConversationSummary struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	SummaryType string    `db:"summary_type" json:"summary_type"`
	StartIndex  int       `db:"start_index" json:"start_index"`
	EndIndex    int       `db:"end_index" json:"end_index"`
	SummaryText string    `db:"summary_text" json:"summary_text"`
	TokenCount  int       `db:"token_count" json:"token_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// User represents an account. New signups start unapproved and are
// activated through the admin approval flow.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Approved     bool      `db:"approved" json:"approved"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AuthToken is a durable refresh token. Only the SHA-256 hash is stored.
type AuthToken struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionRepository defines session storage operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, userID uuid.UUID, id string) (*Session, error)
	List(ctx context.Context, userID uuid.UUID) ([]*Session, error)
	UpdateTitle(ctx context.Context, id, title string) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, userID uuid.UUID, id string) error
}

// MessageRepository defines message storage operations
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// ListBySession returns a page of messages in chronological order.
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]Message, error)
	// ListRecent returns the most recent limit messages in chronological
	// (oldest-first) order.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// SummaryRepository defines conversation summary storage operations
type SummaryRepository interface {
	// Upsert writes the summary into the unique (session, type) slot,
	// replacing any prior row of that type.
	Upsert(ctx context.Context, summary *ConversationSummary) error
	GetByType(ctx context.Context, sessionID, summaryType string) (*ConversationSummary, error)
}

// UserRepository defines user storage operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	SetApproved(ctx context.Context, id uuid.UUID, approved bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuthTokenRepository defines refresh token storage operations
type AuthTokenRepository interface {
	Create(ctx context.Context, token *AuthToken) error
	GetByHash(ctx context.Context, tokenHash string) (*AuthToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) error
}
