package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	// ErrInvalidCredentials is returned when email and password don't match
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when the signup email already exists
	ErrEmailTaken = errors.New("email already registered")
	// ErrNotApproved is returned when an unapproved account tries to log in
	ErrNotApproved = errors.New("account pending approval")
	// ErrUserNotFound is returned when the user record is missing
	ErrUserNotFound = errors.New("user not found")
)

// Service implements signup, login, and token lifecycle. Access tokens are
// short-lived JWTs; refresh tokens are random values stored hashed in the
// auth_tokens table.
type Service struct {
	users  repository.UserRepository
	tokens repository.AuthTokenRepository
	logger *logrus.Logger

	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates an auth service.
func NewService(
	users repository.UserRepository,
	tokens repository.AuthTokenRepository,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
	logger *logrus.Logger,
) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		logger:     logger,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Signup registers a new, unapproved account.
func (s *Service) Signup(ctx context.Context, email, username, password string) (*repository.User, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &repository.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         RoleUser,
		Approved:     false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.WithField("email", user.Email).Info("new signup pending approval")
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*repository.User, *TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.Approved {
		return nil, nil, ErrNotApproved
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh token and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*repository.User, *TokenPair, error) {
	hash := hashToken(refreshToken)
	stored, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		return nil, nil, fmt.Errorf("loading refresh token: %w", err)
	}
	if stored == nil || time.Now().After(stored.ExpiresAt) {
		return nil, nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	// Rotation: the presented token is single-use.
	if err := s.tokens.DeleteByHash(ctx, hash); err != nil {
		return nil, nil, fmt.Errorf("revoking refresh token: %w", err)
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteByHash(ctx, hashToken(refreshToken))
}

// ValidateAccessToken parses the JWT and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return ParseAccessToken(s.jwtSecret, tokenString)
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*repository.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Approve activates a pending account.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	return s.users.SetApproved(ctx, id, true)
}

// Decline removes a pending account.
func (s *Service) Decline(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}

func (s *Service) issueTokens(ctx context.Context, user *repository.User) (*TokenPair, error) {
	access, err := GenerateAccessToken(s.jwtSecret, user.ID, user.Email, user.Role, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	if err := s.tokens.Create(ctx, &repository.AuthToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.accessTTL),
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
