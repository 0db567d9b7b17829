// Package identity is the per-device persistent key/value store holding the
// player's chosen name and avatar URL, the Go stand-in for the browser's
// local storage. One JSON file, read lazily, rewritten on every Set.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	KeyPlayerName   = "playerName"
	KeyProfileImage = "profileImage"

	DefaultName  = "Player"
	DefaultImage = "/Base_Profile_Icon.png"
)

type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// Open returns a store backed by the given file. The file may not exist
// yet; it is created on first Set.
func Open(path string) *Store {
	return &Store{path: path}
}

// OpenDefault places the file under the user config dir.
func OpenDefault() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("identity: config dir: %w", err)
	}
	return Open(filepath.Join(dir, "alluminati", "identity.json")), nil
}

// Get returns the stored value or "" when absent.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.values[key]
}

// Set writes the value through to disk.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	s.values[key] = value

	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("identity: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("identity: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("identity: write: %w", err)
	}
	return nil
}

// PlayerName returns the stored name or the default.
func (s *Store) PlayerName() string {
	if v := s.Get(KeyPlayerName); v != "" {
		return v
	}
	return DefaultName
}

// ProfileImage returns the stored avatar URL or the default.
func (s *Store) ProfileImage() string {
	if v := s.Get(KeyProfileImage); v != "" {
		return v
	}
	return DefaultImage
}

func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.values = make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, &s.values)
}
