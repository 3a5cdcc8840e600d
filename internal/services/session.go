package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/vibesync/internal/models"
	"github.com/desertthunder/vibesync/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// SessionStore persists the signed-in account to a file.
type SessionStore struct {
	path  string
	clock shared.Clock

	mu     sync.Mutex
	cached *models.Session
	loaded bool
}

// NewSessionStore creates a store backed by path. An empty path keeps the session in memory only.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path, clock: shared.SystemClock}
}

// Path returns the session file location.
func (s *SessionStore) Path() string { return s.path }

// Load returns the stored session, or nil when there is none or its token has expired.
func (s *SessionStore) Load() (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		session, err := s.read()
		if err != nil {
			return nil, err
		}
		s.cached, s.loaded = session, true
	}

	if s.cached == nil || TokenExpired(s.cached.Token, s.clock()) {
		return nil, nil
	}
	copied := *s.cached
	return &copied, nil
}

// Save writes session with owner-only permissions.
func (s *SessionStore) Save(session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
		data, err := json.MarshalIndent(session, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		if err := os.WriteFile(s.path, data, 0o600); err != nil {
			return fmt.Errorf("failed to write session: %w", err)
		}
	}

	s.cached, s.loaded = &session, true
	return nil
}

// Clear removes the stored session.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached, s.loaded = nil, true
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// Reload drops the cached session so the next Load reads the file again.
func (s *SessionStore) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}

func (s *SessionStore) read() (*models.Session, error) {
	if s.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.Token == "" {
		return nil, nil
	}
	return &session, nil
}

// TokenExpired reports whether token is missing or past its exp claim at now.
//
// Tokens that are not JWTs, or carry no exp claim, are treated as non-expiring.
func TokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
