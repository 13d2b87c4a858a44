package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

// fileName is the feature-scoped storage key for the prediction history list.
const fileName = "xai_predictions.json"

// FileStore persists the history as an append-only JSON list. Reads are
// served from an in-memory cache invalidated on write, so repeated trend
// queries do not re-read the file.
type FileStore struct {
	mu    sync.Mutex
	path  string
	cache []risk.RiskPredictionResponse
	dirty bool
}

// NewFileStore creates a file-backed history repository rooted at dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dataDir, fileName), dirty: true}, nil
}

// Compile-time interface check
var _ Repository = (*FileStore)(nil)

func (f *FileStore) Save(pred *risk.RiskPredictionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.loadLocked()
	if err != nil {
		return err
	}
	entries = append(entries, *pred.Clone())

	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, b, 0o644); err != nil {
		f.dirty = true
		return err
	}
	f.cache = entries
	f.dirty = false
	return nil
}

func (f *FileStore) FindByStudent(studentID string) ([]risk.RiskPredictionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.loadLocked()
	if err != nil {
		return nil, err
	}
	return filterNewestFirst(entries, func(p *risk.RiskPredictionResponse) bool {
		return p.StudentID == studentID
	}), nil
}

func (f *FileStore) LatestForStudent(studentID string) (*risk.RiskPredictionResponse, error) {
	preds, err := f.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, ErrNotFound
	}
	return &preds[0], nil
}

func (f *FileStore) History(studentID string, limit int) ([]risk.RiskPredictionResponse, error) {
	preds, err := f.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(preds) > limit {
		preds = preds[:limit]
	}
	return preds, nil
}

func (f *FileStore) FindByRiskLevel(level string) ([]risk.RiskPredictionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.loadLocked()
	if err != nil {
		return nil, err
	}
	return filterNewestFirst(entries, func(p *risk.RiskPredictionResponse) bool {
		return p.RiskLevel == level
	}), nil
}

func (f *FileStore) RiskTrend(studentID string, limit int) ([]TrendPoint, error) {
	preds, err := f.History(studentID, limit)
	if err != nil {
		return nil, err
	}
	return trendFromHistory(preds), nil
}

// loadLocked returns the cached entry list, reading the file when stale.
// A missing or corrupted file yields an empty history. Caller holds the lock.
func (f *FileStore) loadLocked() ([]risk.RiskPredictionResponse, error) {
	if !f.dirty {
		return f.cache, nil
	}

	b, err := os.ReadFile(f.path)
	if err != nil {
		f.cache = nil
		f.dirty = false
		return nil, nil
	}
	var entries []risk.RiskPredictionResponse
	if err := json.Unmarshal(b, &entries); err != nil {
		f.cache = nil
		f.dirty = false
		return nil, nil
	}
	f.cache = entries
	f.dirty = false
	return entries, nil
}
