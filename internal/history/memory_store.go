package history

import (
	"sort"
	"sync"

	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

// MemoryStore is an in-memory implementation of Repository for testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []risk.RiskPredictionResponse
}

// NewMemoryStore creates a new in-memory history repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Compile-time interface check
var _ Repository = (*MemoryStore)(nil)

func (m *MemoryStore) Save(pred *risk.RiskPredictionResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *pred.Clone())
	return nil
}

func (m *MemoryStore) FindByStudent(studentID string) ([]risk.RiskPredictionResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterNewestFirst(m.entries, func(p *risk.RiskPredictionResponse) bool {
		return p.StudentID == studentID
	}), nil
}

func (m *MemoryStore) LatestForStudent(studentID string) (*risk.RiskPredictionResponse, error) {
	preds, err := m.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}
	if len(preds) == 0 {
		return nil, ErrNotFound
	}
	return &preds[0], nil
}

func (m *MemoryStore) History(studentID string, limit int) ([]risk.RiskPredictionResponse, error) {
	preds, err := m.FindByStudent(studentID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(preds) > limit {
		preds = preds[:limit]
	}
	return preds, nil
}

func (m *MemoryStore) FindByRiskLevel(level string) ([]risk.RiskPredictionResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterNewestFirst(m.entries, func(p *risk.RiskPredictionResponse) bool {
		return p.RiskLevel == level
	}), nil
}

func (m *MemoryStore) RiskTrend(studentID string, limit int) ([]TrendPoint, error) {
	preds, err := m.History(studentID, limit)
	if err != nil {
		return nil, err
	}
	return trendFromHistory(preds), nil
}

// filterNewestFirst copies matching entries out and sorts them by timestamp
// descending.
func filterNewestFirst(entries []risk.RiskPredictionResponse, match func(*risk.RiskPredictionResponse) bool) []risk.RiskPredictionResponse {
	var out []risk.RiskPredictionResponse
	for i := range entries {
		if match(&entries[i]) {
			out = append(out, *entries[i].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// trendFromHistory converts a newest-first history window into oldest-first
// trend points (chart order).
func trendFromHistory(preds []risk.RiskPredictionResponse) []TrendPoint {
	points := make([]TrendPoint, len(preds))
	for i, p := range preds {
		points[len(preds)-1-i] = TrendPoint{
			Timestamp: p.Timestamp,
			RiskScore: p.RiskScore,
			RiskLevel: p.RiskLevel,
		}
	}
	return points
}
