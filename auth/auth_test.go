package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/nasermirzaei89/marginalia/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUserRepo struct {
	users map[string]*auth.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*auth.User)}
}

var _ auth.UserRepository = (*memoryUserRepo)(nil)

func (repo *memoryUserRepo) Insert(_ context.Context, user *auth.User) error {
	repo.users[user.ID] = user

	return nil
}

func (repo *memoryUserRepo) Find(_ context.Context, userID string) (*auth.User, error) {
	user, ok := repo.users[userID]
	if !ok {
		return nil, &auth.UserNotFoundError{ID: userID}
	}

	clone := *user

	return &clone, nil
}

func (repo *memoryUserRepo) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	for _, user := range repo.users {
		if user.Username == username {
			clone := *user

			return &clone, nil
		}
	}

	return nil, &auth.UserByUsernameNotFoundError{Username: username}
}

type memorySessionRepo struct {
	sessions map[string]*auth.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*auth.Session)}
}

var _ auth.SessionRepository = (*memorySessionRepo)(nil)

func (repo *memorySessionRepo) Insert(_ context.Context, session *auth.Session) error {
	repo.sessions[session.ID] = session

	return nil
}

func (repo *memorySessionRepo) Find(_ context.Context, id string) (*auth.Session, error) {
	session, ok := repo.sessions[id]
	if !ok {
		return nil, &auth.SessionNotFoundError{ID: id}
	}

	return session, nil
}

func (repo *memorySessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := repo.sessions[id]; !ok {
		return &auth.SessionNotFoundError{ID: id}
	}

	delete(repo.sessions, id)

	return nil
}

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase unchanged", input: "alice", expected: "alice"},
		{name: "uppercase folded", input: "Alice", expected: "alice"},
		{name: "surrounding spaces trimmed", input: "  alice  ", expected: "alice"},
		{name: "mixed", input: " ALICE ", expected: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, auth.NormalizeUsername(tt.input))
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := auth.NewService(newMemoryUserRepo(), newMemorySessionRepo())

	err := svc.Register(ctx, "Alice", "s3cret")
	require.NoError(t, err)

	// the same username in another case is taken
	err = svc.Register(ctx, "alice", "other")

	var userAlreadyExistsErr *auth.UserAlreadyExistsError
	require.ErrorAs(t, err, &userAlreadyExistsErr)

	session, err := svc.Login(ctx, "ALICE", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)

	_, err = svc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "s3cret")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestGetSessionExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessionRepo := newMemorySessionRepo()
	svc := auth.NewService(newMemoryUserRepo(), sessionRepo)

	err := sessionRepo.Insert(ctx, &auth.Session{
		ID:        "expired-session",
		UserID:    "user-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.GetSession(ctx, "expired-session")

	var sessionExpiredErr *auth.SessionExpiredError
	require.ErrorAs(t, err, &sessionExpiredErr)

	_, err = svc.GetSession(ctx, "no-such-session")

	var sessionNotFoundErr *auth.SessionNotFoundError
	require.ErrorAs(t, err, &sessionNotFoundErr)
}
