package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ndthang/campusfind/internal/cache"
	"github.com/ndthang/campusfind/internal/credential"
)

// MemoryStorage is an in-memory stand-in for the keyring-backed
// credential store. Error fields let tests inject storage failures.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string

	// GetErr, SetErr, and RemoveErr, when set, are returned by the
	// corresponding operation instead of touching the map.
	GetErr    error
	SetErr    error
	RemoveErr error

	// SetHook, when set, is called at the moment a write executes,
	// before the value lands. Lets tests observe the caller's state
	// mid-persistence.
	SetHook func(key, value string)
}

// NewMemoryStorage creates an empty in-memory credential store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get retrieves a stored value by key.
func (s *MemoryStorage) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("key %q not found", key)
	}
	return v, nil
}

// Set stores a value by key.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}
	if s.SetHook != nil {
		s.SetHook(key, value)
	}
	s.values[key] = value
	return nil
}

// Remove deletes the given keys.
func (s *MemoryStorage) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

// TokenSource reads the stored bearer token, mirroring the keyring
// store's adapter for the API client.
func (s *MemoryStorage) TokenSource() (string, error) {
	return s.Get(credential.KeyToken)
}

// Has reports whether a key is present.
func (s *MemoryStorage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// NewTestCache creates an in-memory response cache with all migrations
// applied. It automatically closes the cache when the test completes.
func NewTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	c, err := cache.Open(":memory:")
	if err != nil {
		t.Fatalf("creating test cache: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test cache: %v", err)
		}
	})

	return c
}
