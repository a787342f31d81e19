// Package identity resolves the authenticated principal for record
// operations. The access layer receives a Resolver; HTTP plumbs the session
// token into the context, keeping authentication an injected dependency
// rather than an ambient call.
package identity

import (
	"context"
	"errors"
	"time"

	"spendbook/internal/core"
)

// User is an account that owns expense records.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Session is an opaque login token with an expiry.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

var (
	ErrUserExists         = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Resolver yields the principal for the current call, or
// core.ErrUnauthenticated when there is none.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Store persists users and sessions. The SQLite repository implements it.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, string, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type tokenKey struct{}

// WithToken attaches a session token to the context for later resolution.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the session token attached to the context, if any.
func TokenFromContext(ctx context.Context) string {
	if tok, ok := ctx.Value(tokenKey{}).(string); ok {
		return tok
	}
	return ""
}

// SessionResolver resolves principals from session tokens carried in the
// context.
type SessionResolver struct {
	store Store
}

func NewSessionResolver(store Store) *SessionResolver {
	return &SessionResolver{store: store}
}

// Resolve validates the context's session token against the store. Missing,
// unknown, or expired tokens all resolve to core.ErrUnauthenticated.
func (r *SessionResolver) Resolve(ctx context.Context) (string, error) {
	token := TokenFromContext(ctx)
	if token == "" {
		return "", core.ErrUnauthenticated
	}
	sess, err := r.store.GetSession(ctx, token)
	if err != nil {
		return "", core.ErrUnauthenticated
	}
	if time.Now().After(sess.ExpiresAt) {
		// Best effort removal; the expiry check already rejects the token.
		_ = r.store.DeleteSession(ctx, token)
		return "", core.ErrUnauthenticated
	}
	return sess.UserID, nil
}

// StaticResolver always resolves to a fixed user id. Useful in tests and
// single-user deployments.
type StaticResolver string

func (s StaticResolver) Resolve(context.Context) (string, error) {
	if s == "" {
		return "", core.ErrUnauthenticated
	}
	return string(s), nil
}
