// Package auth keeps the streaming service's access token for the life of
// the process and runs the OAuth login that obtains it.
package auth

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"

	playerrors "github.com/jscyril/golang_turntable/pkg/errors"
)

// Storage keys for the token and its expiry (Unix milliseconds)
const (
	KeyAccessToken     = "spotify_access_token"
	KeyTokenExpiration = "spotify_token_expiration"
)

// Storage is a string key/value store
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MemoryStorage is a Storage that lives only as long as the process
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStorage) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Session reads and clears the stored token. It satisfies
// oauth2.TokenSource so API clients can pull the token per request.
type Session struct {
	store Storage
	now   func() time.Time

	mu       sync.Mutex
	onLogout []func()
}

var _ oauth2.TokenSource = (*Session)(nil)

// NewSession creates a session over store
func NewSession(store Storage) *Session {
	if store == nil {
		store = NewMemoryStorage()
	}
	return &Session{store: store, now: time.Now}
}

// OnLogout registers fn to run after the token has been cleared
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Save stores a token that expires at expiresAt
func (s *Session) Save(accessToken string, expiresAt time.Time) {
	s.store.Set(KeyAccessToken, accessToken)
	s.store.Set(KeyTokenExpiration, strconv.FormatInt(expiresAt.UnixMilli(), 10))
}

// SaveToken stores an OAuth token. Tokens without an expiry are kept
// for an hour, the lifetime the service issues.
func (s *Session) SaveToken(tok *oauth2.Token) {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(time.Hour)
	}
	s.Save(tok.AccessToken, expiry)
}

// IsAuthenticated reports whether a live token is stored. Finding an
// expired token logs the session out.
func (s *Session) IsAuthenticated() bool {
	token, ok := s.store.Get(KeyAccessToken)
	if !ok || token == "" {
		return false
	}
	expiresAt, ok := s.expiration()
	if !ok {
		return false
	}
	if !s.now().Before(expiresAt) {
		s.Logout()
		return false
	}
	return true
}

// AccessToken returns the stored token or ErrNotAuthenticated
func (s *Session) AccessToken() (string, error) {
	if !s.IsAuthenticated() {
		return "", playerrors.ErrNotAuthenticated
	}
	token, _ := s.store.Get(KeyAccessToken)
	return token, nil
}

// Token implements oauth2.TokenSource
func (s *Session) Token() (*oauth2.Token, error) {
	access, err := s.AccessToken()
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	expiresAt, _ := s.expiration()
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer", Expiry: expiresAt}, nil
}

// Logout clears the stored token and notifies OnLogout listeners
func (s *Session) Logout() {
	s.store.Remove(KeyAccessToken)
	s.store.Remove(KeyTokenExpiration)

	s.mu.Lock()
	listeners := append([]func(){}, s.onLogout...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// TimeUntilExpiration returns the remaining token lifetime in whole
// seconds, never negative
func (s *Session) TimeUntilExpiration() time.Duration {
	expiresAt, ok := s.expiration()
	if !ok {
		return 0
	}
	left := expiresAt.Sub(s.now()).Truncate(time.Second)
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) expiration() (time.Time, bool) {
	raw, ok := s.store.Get(KeyTokenExpiration)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
