package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

var (
	_ ports.SessionStore = (*MemorySessionStore)(nil)
	_ ports.SessionStore = (*FileSessionStore)(nil)
)

// SessionKey is the fixed name of the client session record.
func SessionKey(projectID string) string {
	if projectID == "" {
		projectID = "default"
	}
	return "walletauth:" + projectID + ":session"
}

func decodeRecord(payload []byte) (*core.SessionRecord, error) {
	var rec core.SessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &rec, nil
}

// MemorySessionStore holds the record for the lifetime of the process.
type MemorySessionStore struct {
	mu  sync.RWMutex
	rec *core.SessionRecord
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Load(context.Context) (*core.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return nil, core.ErrNotFound
	}
	rec := *s.rec
	return &rec, nil
}

func (s *MemorySessionStore) Save(_ context.Context, rec *core.SessionRecord) error {
	cp := *rec
	s.mu.Lock()
	s.rec = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Clear(context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}

// ConfigDir returns $XDG_CONFIG_HOME/walletauth, falling back to ~/.config/walletauth.
func ConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "walletauth")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "walletauth")
}

// DefaultSessionPath is where FileSessionStore keeps the record for projectID.
func DefaultSessionPath(projectID string) string {
	if projectID == "" {
		projectID = "default"
	}
	return filepath.Join(ConfigDir(), projectID+".session.json")
}

// FileSessionStore keeps the record as a JSON file readable only by the owner.
type FileSessionStore struct {
	mu   sync.Mutex
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

func (s *FileSessionStore) Path() string { return s.path }

func (s *FileSessionStore) Load(context.Context) (*core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return decodeRecord(payload)
}

// Save replaces the file atomically through a temp file in the same directory.
func (s *FileSessionStore) Save(_ context.Context, rec *core.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *FileSessionStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
