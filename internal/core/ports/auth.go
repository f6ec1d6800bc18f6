package ports

import (
	"context"

	"github.com/srgjo27/westudy/internal/core/domain"
)

type AuthEventType string

const (
	EventInitialSession AuthEventType = "INITIAL_SESSION"
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
)

// AuthEvent is emitted by the auth provider whenever its session changes.
// Session is nil once the user is signed out.
type AuthEvent struct {
	Type    AuthEventType
	Session *domain.Session
}

type AuthListener func(ctx context.Context, event AuthEvent)

type Subscription interface {
	Unsubscribe()
}

// SignUpResult carries the created identity. Session is nil when the provider
// requires an email confirmation before the first sign-in.
type SignUpResult struct {
	User    *domain.User
	Session *domain.Session
}

// AuthProvider issues, refreshes and revokes sessions. Successful calls notify
// subscribers through OnAuthStateChange before they return.
type AuthProvider interface {
	CurrentSession(ctx context.Context) (*domain.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	RefreshSession(ctx context.Context) (*domain.Session, error)
	OnAuthStateChange(listener AuthListener) Subscription
}

// TokenSource hands out the bearer token for API requests. An empty token
// means the request goes out unauthenticated.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// SessionStore persists the serialized session between runs.
// GetItem returns domain.ErrNotFound for a missing key.
type SessionStore interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key string, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Notifier surfaces blocking messages to the user.
type Notifier interface {
	Alert(title, message string)
	Info(title, message string)
}
