// Package history is the append-only store of past risk predictions, keyed by
// student. Entries are never mutated in place: updates are append plus
// supersede by latest-timestamp lookup. All reads are pure functions over the
// persisted set.
package history

import (
	"errors"
	"time"

	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

// ErrNotFound is returned when a student has no recorded predictions.
var ErrNotFound = errors.New("prediction not found")

// TrendPoint is one sample in a student's risk trend.
type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	RiskScore float64   `json:"riskScore"`
	RiskLevel string    `json:"riskLevel"`
}

// Repository persists predictions and answers trend queries.
type Repository interface {
	// Save appends a prediction. The stored entry is a copy.
	Save(pred *risk.RiskPredictionResponse) error
	// FindByStudent returns all predictions for a student, newest first.
	FindByStudent(studentID string) ([]risk.RiskPredictionResponse, error)
	// LatestForStudent returns the prediction with the highest timestamp,
	// or ErrNotFound.
	LatestForStudent(studentID string) (*risk.RiskPredictionResponse, error)
	// History returns up to limit predictions, newest first.
	History(studentID string, limit int) ([]risk.RiskPredictionResponse, error)
	// FindByRiskLevel returns all predictions carrying the given level.
	FindByRiskLevel(level string) ([]risk.RiskPredictionResponse, error)
	// RiskTrend returns trend points oldest first, over the same window
	// History(studentID, limit) would cover.
	RiskTrend(studentID string, limit int) ([]TrendPoint, error)
}
