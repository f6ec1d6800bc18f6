package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

type SessionStatus string

const (
	StatusUnauthenticated SessionStatus = "unauthenticated"
	StatusAuthenticating  SessionStatus = "authenticating"
	StatusAuthenticated   SessionStatus = "authenticated"
)

const (
	alertTitleError        = "Error"
	alertTitleRegistration = "Registration complete"
	confirmEmailMessage    = "Check your email to confirm your account."
)

type SessionState struct {
	Status  SessionStatus
	User    *domain.User
	Session *domain.Session
	Loading bool
}

// SessionController mirrors the auth provider's session for the rest of the
// client. User and session only become set through provider events; Login and
// Register trigger those events but never assign state themselves.
//
// Build one at startup and pass it to whatever needs the signed-in user.
type SessionController struct {
	provider ports.AuthProvider
	profiles ports.ProfileAPI
	notifier ports.Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	status  SessionStatus
	user    *domain.User
	session *domain.Session
	pending int
	closed  bool

	sub ports.Subscription
}

// NewSessionController subscribes to provider events and restores a session
// the provider already holds.
func NewSessionController(ctx context.Context, provider ports.AuthProvider, profiles ports.ProfileAPI, notifier ports.Notifier, logger *zap.Logger) *SessionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = silentNotifier{}
	}

	c := &SessionController{
		provider: provider,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		status:   StatusUnauthenticated,
	}

	c.sub = provider.OnAuthStateChange(c.handleAuthEvent)
	c.restore(ctx)

	return c
}

func (c *SessionController) restore(ctx context.Context) {
	c.begin()
	defer c.end()

	session, err := c.provider.CurrentSession(ctx)
	if err != nil {
		c.logger.Error("failed to read stored session", zap.Error(err))
		return
	}
	// A refresh during the read has already authenticated us through its event.
	if session == nil || c.IsAuthenticated() {
		return
	}

	user, err := c.profiles.GetMe(ctx)
	if err != nil {
		c.logger.Warn("stored session found but profile fetch failed", zap.Error(err))
		return
	}

	c.setAuthenticated(session, user)
}

func (c *SessionController) handleAuthEvent(ctx context.Context, event ports.AuthEvent) {
	c.logger.Debug("auth state change", zap.String("event", string(event.Type)))

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	c.begin()
	defer c.end()

	if event.Session == nil {
		c.clear()
		return
	}

	// New tokens for a known user do not change the profile. RefreshSession
	// fetches it itself when a refresh is explicitly requested.
	if event.Type == ports.EventTokenRefreshed && c.updateTokens(event.Session) {
		return
	}

	user, err := c.profiles.GetMe(ctx)
	if err != nil {
		c.logger.Warn("profile fetch after auth event failed",
			zap.String("event", string(event.Type)),
			zap.Error(err),
		)
		return
	}

	c.setAuthenticated(event.Session, user)
}

// Login asks the provider to check the credentials. The SIGNED_IN event that
// follows a successful check is what authenticates the controller.
func (c *SessionController) Login(ctx context.Context, email, password string) error {
	c.beginAuthenticating()
	defer c.endAuthenticating()

	if _, err := c.provider.SignInWithPassword(ctx, email, password); err != nil {
		c.fail(err, "login failed")
		return err
	}

	return nil
}

// Register creates an account with name stored as provider user metadata.
func (c *SessionController) Register(ctx context.Context, name, email, password string) error {
	c.beginAuthenticating()
	defer c.endAuthenticating()

	result, err := c.provider.SignUp(ctx, email, password, map[string]any{"name": name})
	if err != nil {
		c.fail(err, "registration failed")
		return err
	}

	if result != nil && result.User != nil && result.Session == nil {
		c.notifier.Info(alertTitleRegistration, confirmEmailMessage)
	}

	return nil
}

// Logout signs out at the provider and clears local state whatever the
// provider answered. A provider error is still alerted and returned.
func (c *SessionController) Logout(ctx context.Context) error {
	c.begin()
	defer c.end()

	err := c.provider.SignOut(ctx)
	c.clear()

	if err != nil {
		c.fail(err, "logout failed")
		return err
	}

	return nil
}

// RefreshSession renews the tokens and the profile. Any failure signs the user
// out so stale credentials are never kept.
func (c *SessionController) RefreshSession(ctx context.Context) error {
	c.begin()
	defer c.end()

	session, err := c.provider.RefreshSession(ctx)
	if err == nil && session == nil {
		err = domain.ErrNoSession
	}

	var user *domain.User
	if err == nil {
		user, err = c.profiles.GetMe(ctx)
	}

	if err != nil {
		c.logger.Error("session refresh failed, signing out", zap.Error(err))
		_ = c.Logout(ctx)
		return err
	}

	c.setAuthenticated(session, user)

	return nil
}

// UpdateProfile saves the changed profile fields and keeps the session's copy
// of the user in step.
func (c *SessionController) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	c.begin()
	defer c.end()

	user, err := c.profiles.UpdateProfile(ctx, update)
	if err != nil {
		c.logger.Error("profile update failed", zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.session == nil {
		return user, nil
	}

	u := *user
	c.user = &u
	s := *c.session
	s.User = &u
	c.session = &s

	return user, nil
}

// RunAutoRefresh refreshes the session whenever it is within margin of
// expiring. It returns when ctx is cancelled or once there is no session left
// to keep alive, for example after a failed refresh signed the user out.
func (c *SessionController) RunAutoRefresh(ctx context.Context, interval, margin time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("session auto-refresh started", zap.Duration("interval", interval), zap.Duration("margin", margin))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("session auto-refresh stopped")
			return
		case <-ticker.C:
			if !c.refreshIfExpiring(ctx, margin) {
				c.logger.Info("session auto-refresh stopped, no active session")
				return
			}
		}
	}
}

// refreshIfExpiring reports whether a session is still held afterwards.
func (c *SessionController) refreshIfExpiring(ctx context.Context, margin time.Duration) bool {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return false
	}
	if !session.ExpiresWithin(c.now(), margin) {
		return true
	}

	if err := c.RefreshSession(ctx); err != nil {
		c.logger.Warn("scheduled session refresh failed", zap.Error(err))
		return false
	}

	return true
}

func (c *SessionController) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := SessionState{
		Status:  c.status,
		Loading: c.pending > 0,
	}
	if c.user != nil {
		u := *c.user
		state.User = &u
	}
	if c.session != nil {
		s := *c.session
		if s.User != nil {
			u := *s.User
			s.User = &u
		}
		state.Session = &s
	}

	return state
}

func (c *SessionController) User() *domain.User {
	return c.State().User
}

func (c *SessionController) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusAuthenticated
}

// Close drops the provider subscription. Later events are ignored.
func (c *SessionController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (c *SessionController) setAuthenticated(session *domain.Session, user *domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	u := *user
	s := *session
	s.User = &u
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}

	c.user = &u
	c.session = &s
	c.status = StatusAuthenticated
}

// updateTokens swaps in session while keeping the current user. It reports
// false when there is no user to keep.
func (c *SessionController) updateTokens(session *domain.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.user == nil {
		return false
	}

	u := *c.user
	s := *session
	s.User = &u
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}
	c.session = &s

	return true
}

func (c *SessionController) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.user = nil
	c.session = nil
	c.status = StatusUnauthenticated
}

func (c *SessionController) fail(err error, fallback string) {
	c.logger.Error(fallback, zap.Error(err))
	c.notifier.Alert(alertTitleError, errorMessage(err, fallback))
}

func (c *SessionController) begin() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
}

func (c *SessionController) end() {
	c.mu.Lock()
	c.pending--
	c.mu.Unlock()
}

func (c *SessionController) beginAuthenticating() {
	c.mu.Lock()
	c.pending++
	if c.status == StatusUnauthenticated {
		c.status = StatusAuthenticating
	}
	c.mu.Unlock()
}

// endAuthenticating falls back to unauthenticated unless an event has
// authenticated the controller in the meantime.
func (c *SessionController) endAuthenticating() {
	c.mu.Lock()
	c.pending--
	if c.status == StatusAuthenticating {
		c.status = StatusUnauthenticated
	}
	c.mu.Unlock()
}

type silentNotifier struct{}

func (silentNotifier) Alert(string, string) {}
func (silentNotifier) Info(string, string)  {}
