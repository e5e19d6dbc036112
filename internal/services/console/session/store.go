package session

import "sync"

// TokenStore persists the access token between console restarts so a valid
// session can be restored without re-entering credentials.
type TokenStore interface {
	Load() (string, error)
	Save(accessToken string) error
	Clear() error
}

// MemoryTokenStore keeps the token in memory. It is the default store and
// the one tests use; a browser frontend would substitute cookie storage.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the stored token, or empty when none is stored.
func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Save replaces the stored token.
func (s *MemoryTokenStore) Save(accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = accessToken
	return nil
}

// Clear removes the stored token.
func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

var _ TokenStore = (*MemoryTokenStore)(nil)
