// Package draft persists a single in-progress form snapshot, independent of
// prediction state. One slot: each save overwrites the previous draft.
package draft

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

// ErrNoDraft is returned by Load when no usable draft exists.
var ErrNoDraft = errors.New("no draft saved")

// Store persists one form snapshot. Load on missing or corrupted content
// returns ErrNoDraft, never a parse failure.
type Store interface {
	Save(data *risk.StudentRiskRequest) error
	Load() (*risk.StudentRiskRequest, error)
	Clear() error
}

// MemoryStore is an in-memory implementation of Store for testing.
type MemoryStore struct {
	mu    sync.RWMutex
	draft *risk.StudentRiskRequest
}

// NewMemoryStore creates a new in-memory draft store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Save(data *risk.StudentRiskRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := data.Clone()
	m.draft = &copy
	return nil
}

func (m *MemoryStore) Load() (*risk.StudentRiskRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.draft == nil {
		return nil, ErrNoDraft
	}
	copy := m.draft.Clone()
	return &copy, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draft = nil
	return nil
}

// fileName is the feature-scoped storage key for the risk form draft.
const fileName = "xai_form_draft.json"

// FileStore persists the draft as a JSON file under a data directory.
// Concurrent writers are resolved last-write-wins.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed draft store rooted at dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dataDir, fileName)}, nil
}

var _ Store = (*FileStore)(nil)

func (f *FileStore) Save(data *risk.StudentRiskRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, b, 0o644)
}

func (f *FileStore) Load() (*risk.StudentRiskRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if err != nil {
		return nil, ErrNoDraft
	}
	var data risk.StudentRiskRequest
	if err := json.Unmarshal(b, &data); err != nil {
		// Corrupted persisted content is treated as absent.
		return nil, ErrNoDraft
	}
	return &data, nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
