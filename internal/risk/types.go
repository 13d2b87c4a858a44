// Package risk defines the student risk-assessment data model shared by the
// prediction client, orchestrator and what-if simulator, and validates it on
// both sides of the wire.
package risk

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Risk levels returned by the prediction service.
const (
	LevelSafe   = "Safe"
	LevelMedium = "Medium Risk"
	LevelAtRisk = "At-Risk"
)

// StudentRiskRequest is the input record for a risk prediction.
// A request is never mutated after submission; the simulator clones it.
type StudentRiskRequest struct {
	StudentID                string  `json:"student_id"`
	AvgGrade                 float64 `json:"avg_grade"`
	GradeConsistency         float64 `json:"grade_consistency"`
	GradeRange               float64 `json:"grade_range"`
	NumAssessments           int     `json:"num_assessments"`
	AssessmentCompletionRate float64 `json:"assessment_completion_rate"`
	StudiedCredits           float64 `json:"studied_credits"`
	NumOfPrevAttempts        int     `json:"num_of_prev_attempts"`
	LowPerformance           int     `json:"low_performance"`
	LowEngagement            int     `json:"low_engagement"`
	HasPreviousAttempts      int     `json:"has_previous_attempts"`
}

// DefaultRequest returns the form's initial values.
func DefaultRequest() StudentRiskRequest {
	return StudentRiskRequest{
		AvgGrade:                 70,
		GradeConsistency:         85,
		GradeRange:               30,
		NumAssessments:           8,
		AssessmentCompletionRate: 0.8,
		StudiedCredits:           60,
	}
}

// Clone returns a deep copy of the request.
func (r StudentRiskRequest) Clone() StudentRiskRequest {
	// All fields are value types.
	return r
}

// CoercedFloat is a float64 that absorbs malformed wire values instead of
// failing the whole response: null, empty strings and non-numeric content
// all decode to 0. Numeric strings are parsed.
type CoercedFloat float64

// UnmarshalJSON implements lenient decoding for factor values.
func (c *CoercedFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*c = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			*c = 0
			return nil
		}
		*c = CoercedFloat(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*c = 0
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	*c = CoercedFloat(f)
	return nil
}

// RiskFactor is one feature contribution in a prediction explanation.
type RiskFactor struct {
	Feature string       `json:"feature"`
	Value   CoercedFloat `json:"value"`
	Impact  string       `json:"impact"`
}

// RiskPredictionResponse is a settled prediction. Immutable once created;
// a new prediction supersedes rather than mutates it.
type RiskPredictionResponse struct {
	StudentID       string             `json:"student_id"`
	RiskLevel       string             `json:"risk_level"`
	RiskScore       float64            `json:"risk_score"`
	Confidence      float64            `json:"confidence"`
	Probabilities   map[string]float64 `json:"probabilities"`
	Recommendations []string           `json:"recommendations"`
	TopRiskFactors  []RiskFactor       `json:"top_risk_factors"`
	PredictionID    string             `json:"prediction_id"`
	Timestamp       time.Time          `json:"timestamp"`
}

// Probability returns the probability for an outcome label, or 0 when the
// service omitted it ("Medium Risk" is optional on the wire).
func (r *RiskPredictionResponse) Probability(label string) float64 {
	return r.Probabilities[label]
}

// Clone returns a deep copy of the response.
func (r *RiskPredictionResponse) Clone() *RiskPredictionResponse {
	if r == nil {
		return nil
	}
	out := *r
	if r.Probabilities != nil {
		out.Probabilities = make(map[string]float64, len(r.Probabilities))
		for k, v := range r.Probabilities {
			out.Probabilities[k] = v
		}
	}
	out.Recommendations = append([]string(nil), r.Recommendations...)
	out.TopRiskFactors = append([]RiskFactor(nil), r.TopRiskFactors...)
	return &out
}

// HealthResponse reports whether the prediction service can serve at all.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	ModelLoaded bool   `json:"model_loaded"`
	Environment string `json:"environment,omitempty"`
}
