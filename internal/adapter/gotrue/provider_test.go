package gotrue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srgjo27/westudy/internal/adapter/gotrue"
	"github.com/srgjo27/westudy/internal/core/domain"
	"github.com/srgjo27/westudy/internal/core/ports"
)

const anonKey = "anon-key"

type memoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]string{}}
}

func (m *memoryStore) GetItem(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memoryStore) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryStore) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type fakeAuthServer struct {
	router      *mux.Router
	accessToken string
	logouts     int
	refreshes   atomic.Int32
}

func newFakeAuthServer(t *testing.T) (*fakeAuthServer, *httptest.Server) {
	f := &fakeAuthServer{
		router:      mux.NewRouter(),
		accessToken: signedToken(t, "u1", time.Now().Add(time.Hour)),
	}

	f.router.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, anonKey, r.Header.Get("apikey"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret123" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  f.accessToken,
			"refresh_token": "rt-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"user": map[string]any{
				"id":            "u1",
				"email":         body["email"],
				"user_metadata": map[string]any{"name": "Ana"},
			},
		})
	}).Methods(http.MethodPost).Queries("grant_type", "password")

	f.router.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh_token"] != "rt-1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "Invalid Refresh Token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "opaque-token",
			"refresh_token": "rt-2",
			"expires_in":    3600,
		})
	}).Methods(http.MethodPost).Queries("grant_type", "refresh_token")

	f.router.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string         `json:"email"`
			Data  map[string]any `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":            "u2",
			"email":         body.Email,
			"user_metadata": body.Data,
		})
	}).Methods(http.MethodPost)

	f.router.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+f.accessToken, r.Header.Get("Authorization"))
		f.logouts++
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	return f, srv
}

type recorder struct {
	mu     sync.Mutex
	events []ports.AuthEvent
}

func (r *recorder) listen(_ context.Context, e ports.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []ports.AuthEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.AuthEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func TestProvider_SignInPersistsAndEmits(t *testing.T) {
	fake, srv := newFakeAuthServer(t)
	store := newMemoryStore()
	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey, StorageKey: "session"}, srv.Client(), store, nil)

	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)

	ctx := context.Background()
	session, err := p.SignInWithPassword(ctx, "ana@usp.br", "secret123")
	require.NoError(t, err)

	assert.Equal(t, fake.accessToken, session.AccessToken)
	assert.Equal(t, "rt-1", session.RefreshToken)
	assert.NotZero(t, session.ExpiresAt)
	require.NotNil(t, session.User)
	assert.Equal(t, "Ana", session.User.Name)

	assert.Equal(t, []ports.AuthEventType{ports.EventSignedIn}, rec.types())

	token, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, fake.accessToken, token)

	// A fresh provider over the same store picks the session back up.
	restored, err := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey, StorageKey: "session"}, srv.Client(), store, nil).
		CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, fake.accessToken, restored.AccessToken)
}

func TestProvider_SignInFailure(t *testing.T) {
	_, srv := newFakeAuthServer(t)
	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey}, srv.Client(), newMemoryStore(), nil)

	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)

	_, err := p.SignInWithPassword(context.Background(), "ana@usp.br", "wrong")

	var authErr *gotrue.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Equal(t, "Invalid login credentials", authErr.Message)
	assert.Empty(t, rec.types())

	session, err := p.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestProvider_SignUpAwaitingConfirmation(t *testing.T) {
	_, srv := newFakeAuthServer(t)
	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey}, srv.Client(), newMemoryStore(), nil)

	result, err := p.SignUp(context.Background(), "new@usp.br", "secret123", map[string]any{"name": "Bia"})
	require.NoError(t, err)

	require.NotNil(t, result.User)
	assert.Equal(t, "u2", result.User.ID)
	assert.Equal(t, "Bia", result.User.Name)
	assert.Nil(t, result.Session)
}

func TestProvider_RefreshReadsExpiryFallback(t *testing.T) {
	_, srv := newFakeAuthServer(t)
	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey}, srv.Client(), newMemoryStore(), nil)
	ctx := context.Background()

	_, err := p.RefreshSession(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = p.SignInWithPassword(ctx, "ana@usp.br", "secret123")
	require.NoError(t, err)

	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)

	session, err := p.RefreshSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", session.AccessToken)
	assert.Equal(t, "rt-2", session.RefreshToken)
	assert.Equal(t, "bearer", session.TokenType)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), session.ExpiresAt, 5)
	assert.Equal(t, []ports.AuthEventType{ports.EventTokenRefreshed}, rec.types())

	// rt-2 is unknown to the server; the failed refresh keeps the session.
	_, err = p.RefreshSession(ctx)
	assert.EqualError(t, err, "Invalid Refresh Token")

	current, err := p.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", current.AccessToken)
}

func TestProvider_SignOutClearsAndUnsubscribe(t *testing.T) {
	fake, srv := newFakeAuthServer(t)
	store := newMemoryStore()
	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey, StorageKey: "session"}, srv.Client(), store, nil)
	ctx := context.Background()

	_, err := p.SignInWithPassword(ctx, "ana@usp.br", "secret123")
	require.NoError(t, err)

	rec := &recorder{}
	sub := p.OnAuthStateChange(rec.listen)

	require.NoError(t, p.SignOut(ctx))
	assert.Equal(t, 1, fake.logouts)
	assert.Equal(t, []ports.AuthEventType{ports.EventSignedOut}, rec.types())

	_, err = store.GetItem(ctx, "session")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	token, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, p.SignOut(ctx))
	assert.Len(t, rec.types(), 1)
	assert.Equal(t, 1, fake.logouts)
}

func storeSession(t *testing.T, store *memoryStore, key string, session domain.Session) {
	raw, err := json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, store.SetItem(context.Background(), key, string(raw)))
}

func TestProvider_ExpiredSessionRefreshedOnRead(t *testing.T) {
	fake, srv := newFakeAuthServer(t)
	store := newMemoryStore()
	storeSession(t, store, "session", domain.Session{
		AccessToken:  "expired-at",
		RefreshToken: "rt-1",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(-time.Hour).Unix(),
	})

	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey, StorageKey: "session"}, srv.Client(), store, nil)
	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)
	ctx := context.Background()

	token, err := p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)
	assert.Equal(t, []ports.AuthEventType{ports.EventTokenRefreshed}, rec.types())

	raw, err := store.GetItem(ctx, "session")
	require.NoError(t, err)
	assert.Contains(t, raw, `"refresh_token":"rt-2"`)

	// The renewed session is fresh, so reading it again does not refresh.
	token, err = p.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", token)
	assert.Equal(t, int32(1), fake.refreshes.Load())
}

func TestProvider_ExpiredSessionWithRejectedRefreshSignsOut(t *testing.T) {
	fake, srv := newFakeAuthServer(t)
	store := newMemoryStore()
	storeSession(t, store, "session", domain.Session{
		AccessToken:  "expired-at",
		RefreshToken: "rt-revoked",
		ExpiresAt:    time.Now().Add(-time.Hour).Unix(),
	})

	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey, StorageKey: "session"}, srv.Client(), store, nil)
	rec := &recorder{}
	p.OnAuthStateChange(rec.listen)
	ctx := context.Background()

	session, err := p.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Equal(t, []ports.AuthEventType{ports.EventSignedOut}, rec.types())
	assert.Equal(t, int32(1), fake.refreshes.Load())

	_, err = store.GetItem(ctx, "session")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProvider_ConcurrentReadersShareOneRefresh(t *testing.T) {
	fake, srv := newFakeAuthServer(t)
	store := newMemoryStore()
	storeSession(t, store, "session", domain.Session{
		AccessToken:  "expired-at",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(30 * time.Second).Unix(),
	})

	p := gotrue.NewProvider(gotrue.Config{URL: srv.URL, AnonKey: anonKey, StorageKey: "session", ExpiryMargin: time.Minute}, srv.Client(), store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	tokens := make([]string, 5)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := p.AccessToken(ctx)
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	for _, token := range tokens {
		assert.Equal(t, "opaque-token", token)
	}
	assert.Equal(t, int32(1), fake.refreshes.Load())
}
