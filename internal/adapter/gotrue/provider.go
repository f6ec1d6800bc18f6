package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL     string
	AnonKey string
	// StorageKey names the persisted session. Defaults to sb-<project>-auth-token.
	StorageKey string
	// ExpiryMargin is how close to expiry a session may get before reading it
	// triggers a refresh. Defaults to DefaultExpiryMargin.
	ExpiryMargin time.Duration
}

const DefaultExpiryMargin = 90 * time.Second

// AuthError is a failure reported by the auth server.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Provider implements ports.AuthProvider and ports.TokenSource on top of a
// GoTrue auth server. The session is cached in memory and mirrored to the
// SessionStore so it survives restarts.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	store      ports.SessionStore
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.RWMutex
	session *domain.Session
	loaded  bool

	// refreshMu serialises token exchanges so a rotated refresh token is
	// never sent twice.
	refreshMu sync.Mutex

	listenersMu sync.Mutex
	listeners   map[uuid.UUID]ports.AuthListener
}

func NewProvider(cfg Config, httpClient *http.Client, store ports.SessionStore, logger *zap.Logger) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.StorageKey == "" {
		cfg.StorageKey = defaultStorageKey(cfg.URL)
	}
	if cfg.ExpiryMargin <= 0 {
		cfg.ExpiryMargin = DefaultExpiryMargin
	}

	return &Provider{
		cfg:        cfg,
		httpClient: httpClient,
		store:      store,
		logger:     logger,
		now:        time.Now,
		listeners:  make(map[uuid.UUID]ports.AuthListener),
	}
}

func defaultStorageKey(rawURL string) string {
	ref := "local"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		ref = strings.Split(u.Hostname(), ".")[0]
	}
	return "sb-" + ref + "-auth-token"
}

// CurrentSession returns the signed-in session, loading it from the store on
// first use. A session about to expire is refreshed before it is returned; if
// the server rejects the refresh token the session is dropped and nil is
// returned. It returns nil without error when nobody is signed in.
func (p *Provider) CurrentSession(ctx context.Context) (*domain.Session, error) {
	session, err := p.loadSession(ctx)
	if err != nil || !p.needsRefresh(session) {
		return session, err
	}

	return p.refreshExpiring(ctx)
}

func (p *Provider) loadSession(ctx context.Context) (*domain.Session, error) {
	p.mu.RLock()
	if p.loaded {
		s := copySession(p.session)
		p.mu.RUnlock()
		return s, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		session, err := p.readStore(ctx)
		if err != nil {
			return nil, err
		}
		p.session = session
		p.loaded = true
	}

	return copySession(p.session), nil
}

func (p *Provider) needsRefresh(session *domain.Session) bool {
	return session != nil && session.RefreshToken != "" && session.ExpiresWithin(p.now(), p.cfg.ExpiryMargin)
}

// refreshExpiring renews the session on behalf of a reader. Concurrent readers
// wait for the first exchange and then see its result.
func (p *Provider) refreshExpiring(ctx context.Context) (*domain.Session, error) {
	p.refreshMu.Lock()

	session, err := p.loadSession(ctx)
	if err != nil || !p.needsRefresh(session) {
		p.refreshMu.Unlock()
		return session, err
	}

	refreshed, err := p.exchangeRefreshToken(ctx, session.RefreshToken)
	if err == nil {
		p.refreshMu.Unlock()
		p.emit(ctx, ports.EventTokenRefreshed, refreshed)
		return copySession(refreshed), nil
	}

	// Only a 4xx answer means the refresh token itself is no good.
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.StatusCode >= http.StatusInternalServerError {
		p.refreshMu.Unlock()
		p.logger.Warn("could not refresh expiring session", zap.Error(err))
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	p.logger.Warn("refresh token rejected, signing out", zap.Error(err))
	clearErr := p.setSession(ctx, nil)
	p.refreshMu.Unlock()
	if clearErr != nil {
		return nil, clearErr
	}

	p.emit(ctx, ports.EventSignedOut, nil)

	return nil, nil
}

func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	session, err := p.CurrentSession(ctx)
	if err != nil || session == nil {
		return "", err
	}
	return session.AccessToken, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp tokenResponse
	if err := p.post(ctx, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}

	session, err := p.sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	if err := p.setSession(ctx, session); err != nil {
		return nil, err
	}

	p.emit(ctx, ports.EventSignedIn, session)

	return copySession(session), nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*ports.SignUpResult, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var resp signUpResponse
	if err := p.post(ctx, "/auth/v1/signup", "", body, &resp); err != nil {
		return nil, err
	}

	// Without email confirmation the server answers with a full session,
	// otherwise with the bare user.
	if resp.AccessToken == "" {
		return &ports.SignUpResult{User: resp.providerUser.toUser()}, nil
	}

	session, err := p.sessionFrom(resp.tokenResponse)
	if err != nil {
		return nil, err
	}
	if err := p.setSession(ctx, session); err != nil {
		return nil, err
	}

	p.emit(ctx, ports.EventSignedIn, session)

	return &ports.SignUpResult{User: session.User, Session: copySession(session)}, nil
}

// SignOut revokes the session at the server and always forgets it locally.
// The revoke error, if any, is returned after the local state is cleared.
func (p *Provider) SignOut(ctx context.Context) error {
	session, err := p.loadSession(ctx)
	if err != nil {
		p.logger.Warn("could not read session before sign-out", zap.Error(err))
	}

	var revokeErr error
	if session != nil {
		revokeErr = p.post(ctx, "/auth/v1/logout", session.AccessToken, nil, nil)
		if revokeErr != nil {
			p.logger.Warn("server-side sign-out failed", zap.Error(revokeErr))
		}
	}

	if err := p.setSession(ctx, nil); err != nil {
		return err
	}

	p.emit(ctx, ports.EventSignedOut, nil)

	return revokeErr
}

// RefreshSession exchanges the refresh token for a new session. A failure
// leaves the current session in place; callers decide whether to sign out.
func (p *Provider) RefreshSession(ctx context.Context) (*domain.Session, error) {
	p.refreshMu.Lock()

	current, err := p.loadSession(ctx)
	if err != nil {
		p.refreshMu.Unlock()
		return nil, err
	}
	if current == nil || current.RefreshToken == "" {
		p.refreshMu.Unlock()
		return nil, domain.ErrNoSession
	}

	session, err := p.exchangeRefreshToken(ctx, current.RefreshToken)
	p.refreshMu.Unlock()
	if err != nil {
		return nil, err
	}

	p.emit(ctx, ports.EventTokenRefreshed, session)

	return copySession(session), nil
}

// exchangeRefreshToken must be called with refreshMu held.
func (p *Provider) exchangeRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var resp tokenResponse
	if err := p.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}

	session, err := p.sessionFrom(resp)
	if err != nil {
		return nil, err
	}
	if err := p.setSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (p *Provider) OnAuthStateChange(listener ports.AuthListener) ports.Subscription {
	id := uuid.New()

	p.listenersMu.Lock()
	p.listeners[id] = listener
	p.listenersMu.Unlock()

	return &subscription{unsubscribe: func() {
		p.listenersMu.Lock()
		delete(p.listeners, id)
		p.listenersMu.Unlock()
	}}
}

type subscription struct {
	once        sync.Once
	unsubscribe func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.unsubscribe)
}

// emit runs listeners synchronously, outside of any provider lock.
func (p *Provider) emit(ctx context.Context, eventType ports.AuthEventType, session *domain.Session) {
	p.listenersMu.Lock()
	listeners := make([]ports.AuthListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.listenersMu.Unlock()

	p.logger.Debug("emitting auth event", zap.String("event", string(eventType)), zap.Int("listeners", len(listeners)))

	for _, l := range listeners {
		l(ctx, ports.AuthEvent{Type: eventType, Session: copySession(session)})
	}
}

func (p *Provider) setSession(ctx context.Context, session *domain.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.writeStore(ctx, session); err != nil {
		return err
	}
	p.session = copySession(session)
	p.loaded = true

	return nil
}

func (p *Provider) readStore(ctx context.Context) (*domain.Session, error) {
	if p.store == nil {
		return nil, nil
	}

	raw, err := p.store.GetItem(ctx, p.cfg.StorageKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stored session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		p.logger.Warn("discarding unreadable stored session", zap.Error(err))
		return nil, nil
	}

	return &session, nil
}

func (p *Provider) writeStore(ctx context.Context, session *domain.Session) error {
	if p.store == nil {
		return nil
	}

	if session == nil {
		if err := p.store.RemoveItem(ctx, p.cfg.StorageKey); err != nil {
			return fmt.Errorf("failed to remove stored session: %w", err)
		}
		return nil
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := p.store.SetItem(ctx, p.cfg.StorageKey, string(raw)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

func (p *Provider) post(ctx context.Context, path, bearer string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode auth request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.cfg.AnonKey)
	if bearer == "" {
		bearer = p.cfg.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthError{StatusCode: resp.StatusCode, Message: authErrorMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	return nil
}

func authErrorMessage(raw []byte) string {
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, msg := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	return "authentication failed"
}

func copySession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	return &c
}
