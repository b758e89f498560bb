// Package session holds the current bearer token.
//
// There is at most one current token. It is written after a successful
// login, read before every backend call and cleared on logout or when the
// backend rejects it. Expiry is never tracked here; an unauthorized response
// is the only expiry signal.
package session

import (
	"sync"

	"golang.org/x/oauth2"
)

// TokenType is the scheme used in the Authorization header.
const TokenType = "Bearer"

// Store is the token storage used by the HTTP client and the login/logout flows.
type Store interface {
	// Get returns the current token, or false if none is stored.
	Get() (*oauth2.Token, bool)

	// Set replaces the current token.
	Set(tok *oauth2.Token) error

	// Clear removes the current token. Clearing an empty store is not an error.
	Clear() error
}

// NewToken wraps an opaque access token string.
func NewToken(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken, TokenType: TokenType}
}

// MemoryStore keeps the token in memory only.
type MemoryStore struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (m *MemoryStore) Get() (*oauth2.Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tok == nil || m.tok.AccessToken == "" {
		return nil, false
	}
	cp := *m.tok
	return &cp, true
}

// Set implements Store.
func (m *MemoryStore) Set(tok *oauth2.Token) error {
	if tok == nil {
		return m.Clear()
	}
	cp := *tok
	m.mu.Lock()
	m.tok = &cp
	m.mu.Unlock()
	return nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.tok = nil
	m.mu.Unlock()
	return nil
}
