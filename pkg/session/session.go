// Package session persists lightweight client state between runs: who is
// signed in and whether the one-time data migration has completed. State
// lives in a single JSON file written atomically, so a crash mid-write
// leaves the previous state intact.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/medicita/medicita/pkg/models"
)

// state is the on-disk shape. A zero state means signed out, migration not
// yet run.
type state struct {
	UserID             string    `json:"user_id,omitempty"`
	FullName           string    `json:"full_name,omitempty"`
	Email              string    `json:"email,omitempty"`
	Remote             bool      `json:"remote,omitempty"`
	MigrationCompleted bool      `json:"migration_completed,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Manager reads and writes the session file. Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	path  string
	state state
}

// New loads the session from path, creating parent directories as needed.
// A missing file starts a fresh session.
func New(path string) (*Manager, error) {
	m := &Manager{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := json.Unmarshal(data, &m.state); err != nil {
		return nil, fmt.Errorf("session file %s is corrupt: %w", path, err)
	}
	return m, nil
}

// persist writes the state through a temp file then renames it over the
// session file. Callers hold the mutex.
func (m *Manager) persist() error {
	m.state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(&m.state, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), m.path)
}

// SaveUser records the signed-in user. remote marks a session established
// against the remote store rather than the local one.
func (m *Manager) SaveUser(id models.UserID, fullName, email string, remote bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.UserID = id.String()
	m.state.FullName = fullName
	m.state.Email = email
	m.state.Remote = remote
	return m.persist()
}

// IsLoggedIn reports whether a user is recorded in the session.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UserID != ""
}

// CurrentUserID returns the signed-in user's ID, or a zero ID when signed
// out.
func (m *Manager) CurrentUserID() models.UserID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.UserID == "" {
		return models.UserID{}
	}
	id, err := models.ParseUserID(m.state.UserID)
	if err != nil {
		return models.UserID{}
	}
	return id
}

// CurrentUserEmail returns the signed-in user's email, or "".
func (m *Manager) CurrentUserEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Email
}

// IsRemote reports whether the session was established against the remote
// store.
func (m *Manager) IsRemote() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Remote
}

// IsMigrationCompleted reports whether the one-time migration already ran to
// completion. The migration service short-circuits on it.
func (m *Manager) IsMigrationCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.MigrationCompleted
}

// SetMigrationCompleted persists the migration flag. Set to true after a
// successful run, or by an operator to skip migration for a fresh install
// with no local data.
func (m *Manager) SetMigrationCompleted(done bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.MigrationCompleted = done
	return m.persist()
}

// Clear signs the user out. The migration flag survives; it describes the
// data, not the session.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	completed := m.state.MigrationCompleted
	m.state = state{MigrationCompleted: completed}
	return m.persist()
}
