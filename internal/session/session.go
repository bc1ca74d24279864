// Package session holds the terminal client's login state and the scan
// allowance for anonymous users.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwalitptl/medinfo-api/internal/model"
)

// AnonymousScanLimit is the number of lookups allowed before login.
const AnonymousScanLimit = 3

// Unlimited is reported by RemainingScans for logged-in users.
const Unlimited = -1

type Session struct {
	User      *model.PublicUser `json:"user,omitempty"`
	Token     string            `json:"token,omitempty"`
	ScanCount int               `json:"scanCount"`
}

func (s *Session) LoggedIn() bool {
	return s.Token != ""
}

func (s *Session) CanScan() bool {
	return s.LoggedIn() || s.ScanCount < AnonymousScanLimit
}

func (s *Session) RemainingScans() int {
	if s.LoggedIn() {
		return Unlimited
	}
	return max(0, AnonymousScanLimit-s.ScanCount)
}

// RecordScan counts a successful anonymous scan. Logged-in scans are free.
func (s *Session) RecordScan() {
	if !s.LoggedIn() {
		s.ScanCount++
	}
}

func (s *Session) Login(user *model.PublicUser, token string) {
	s.User = user
	s.Token = token
	s.ScanCount = 0
}

func (s *Session) Logout() {
	s.User = nil
	s.Token = ""
	s.ScanCount = 0
}

// Store persists a session between runs.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// FileStore keeps the session as JSON in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is medinfo/session.json under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "medinfo", "session.json"), nil
}

func (f *FileStore) Path() string { return f.path }

// Load returns an empty session when none has been saved yet.
func (f *FileStore) Load(_ context.Context) (*Session, error) {
	data, err := os.ReadFile(f.path)
	if stderrors.Is(err, os.ErrNotExist) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", f.path, err)
	}
	if s.ScanCount < 0 {
		s.ScanCount = 0
	}
	return &s, nil
}

// Save writes through a temp file so a crash never leaves a torn session.
func (f *FileStore) Save(_ context.Context, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
