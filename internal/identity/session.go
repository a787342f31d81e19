package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Manager handles login and logout against the identity store.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl}
}

// Login verifies credentials and opens a new session.
func (m *Manager) Login(ctx context.Context, username, password string) (User, Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, Session{}, ErrInvalidCredentials
	}

	user, hash, err := m.store.GetUserByUsername(ctx, username)
	if err != nil || !CheckPassword(password, hash) {
		// Same answer for unknown user and wrong password.
		return User{}, Session{}, ErrInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return User{}, Session{}, fmt.Errorf("generate session token: %w", err)
	}

	sess := Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return User{}, Session{}, fmt.Errorf("create session: %w", err)
	}

	slog.InfoContext(ctx, "User logged in", "username", user.Username, "owner", user.ID)
	return user, sess, nil
}

// Logout closes the session for the given token. Unknown tokens are not an
// error.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.DeleteSession(ctx, token)
}

// Register creates a new user account with a hashed password.
func (m *Manager) Register(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return User{}, ErrInvalidCredentials
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return m.store.CreateUser(ctx, username, hash)
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
