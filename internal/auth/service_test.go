package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*repository.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*repository.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *repository.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*repository.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *fakeUserRepo) SetApproved(_ context.Context, id uuid.UUID, approved bool) error {
	if u, ok := r.users[id]; ok {
		u.Approved = approved
	}
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]*repository.AuthToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*repository.AuthToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, t *repository.AuthToken) error {
	r.tokens[t.TokenHash] = t
	return nil
}

func (r *fakeTokenRepo) GetByHash(_ context.Context, hash string) (*repository.AuthToken, error) {
	t, ok := r.tokens[hash]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (r *fakeTokenRepo) DeleteByHash(_ context.Context, hash string) error {
	delete(r.tokens, hash)
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context) error {
	now := time.Now()
	for hash, t := range r.tokens {
		if now.After(t.ExpiresAt) {
			delete(r.tokens, hash)
		}
	}
	return nil
}

func newTestService() (*Service, *fakeUserRepo, *fakeTokenRepo) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	svc := NewService(users, tokens, "test-secret", 15*time.Minute, 30*24*time.Hour, logger)
	return svc, users, tokens
}

const goodPassword = "Str0ng-pass"

func TestSignup_CreatesUnapprovedUser(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.Signup(context.Background(), "ada@example.com", "ada", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, RoleUser, user.Role)
	assert.False(t, user.Approved)
	assert.NotEqual(t, goodPassword, user.PasswordHash)
}

func TestSignup_RejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Signup(context.Background(), "ada@example.com", "ada", goodPassword)
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), "ada@example.com", "ada2", goodPassword)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignup_RejectsWeakPassword(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Signup(context.Background(), "ada@example.com", "ada", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = svc.Signup(context.Background(), "ada@example.com", "ada", "alllowercase")
	assert.ErrorIs(t, err, ErrPasswordTooWeak)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.Signup(context.Background(), "ada@example.com", "ada", goodPassword)
	require.NoError(t, err)

	// Pending accounts cannot log in.
	_, _, err = svc.Login(context.Background(), "ada@example.com", goodPassword)
	assert.ErrorIs(t, err, ErrNotApproved)

	require.NoError(t, svc.Approve(context.Background(), user.ID))

	got, pair, err := svc.Login(context.Background(), "ada@example.com", goodPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.Signup(context.Background(), "ada@example.com", "ada", goodPassword)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), user.ID))

	_, _, err = svc.Login(context.Background(), "ada@example.com", "Wr0ng-pass!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", goodPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, tokens := newTestService()

	user, err := svc.Signup(context.Background(), "ada@example.com", "ada", goodPassword)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), user.ID))

	_, pair, err := svc.Login(context.Background(), "ada@example.com", goodPassword)
	require.NoError(t, err)

	_, next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The old token is single-use.
	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Exactly one live token remains.
	assert.Len(t, tokens.tokens, 1)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	svc, _, tokens := newTestService()

	token := "stale-token"
	tokens.tokens[hashToken(token)] = &repository.AuthToken{
		UserID:    uuid.New(),
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	_, _, err := svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.Signup(context.Background(), "ada@example.com", "ada", goodPassword)
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), user.ID))

	_, pair, err := svc.Login(context.Background(), "ada@example.com", goodPassword)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken))

	_, _, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecline_RemovesUser(t *testing.T) {
	svc, users, _ := newTestService()

	user, err := svc.Signup(context.Background(), "ada@example.com", "ada", goodPassword)
	require.NoError(t, err)

	require.NoError(t, svc.Decline(context.Background(), user.ID))
	got, _ := users.GetByID(context.Background(), user.ID)
	assert.Nil(t, got)
}
