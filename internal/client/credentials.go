package client

import (
	"errors"
	"sync"

	"github.com/preventix/preventix/internal/api"
)

// ErrNoCredentials is returned by a CredentialStore when nothing is stored.
var ErrNoCredentials = errors.New("not logged in")

// Credentials holds the bearer credentials for the current session. At most
// one set is stored at a time; it is overwritten on refresh and removed on
// logout or unrecoverable refresh failure.
type Credentials struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         *api.UserProfile `json:"user,omitempty"`
}

// HasRefresh reports whether a refresh credential is available.
func (c *Credentials) HasRefresh() bool {
	return c != nil && c.RefreshToken != ""
}

// CredentialStore is the persistence abstraction for Credentials.
// Different implementations can store credentials in files, memory, keyrings, etc.
type CredentialStore interface {
	// Load returns the stored credentials, or ErrNoCredentials.
	Load() (*Credentials, error)

	// Save stores the credentials, replacing any previous set.
	Save(creds *Credentials) error

	// Clear removes stored credentials. Clearing an empty store is not an error.
	Clear() error
}

// MemoryStore is an in-process CredentialStore, safe for concurrent use.
// It backs tests and embedding applications that manage their own persistence.
type MemoryStore struct {
	mu    sync.Mutex
	creds *Credentials
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored credentials.
func (s *MemoryStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, ErrNoCredentials
	}
	copied := *s.creds
	return &copied, nil
}

// Save stores a copy of the credentials.
func (s *MemoryStore) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *creds
	s.creds = &copied
	return nil
}

// Clear removes the stored credentials.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}
