package risk

import (
	"fmt"
	"strings"
)

// ValidationError represents a single field failing its bounds check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Field + ": " + ve.Message
	}
	return strings.Join(parts, "; ")
}

// Prefixed returns a copy with every field path prefixed, e.g. "students[2].".
func (e ValidationErrors) Prefixed(prefix string) ValidationErrors {
	out := make(ValidationErrors, len(e))
	for i, ve := range e {
		out[i] = ValidationError{Field: prefix + ve.Field, Message: ve.Message}
	}
	return out
}

func rangeCheck(errs *ValidationErrors, field string, value, min, max float64) {
	if value < min || value > max {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %g and %g, got %g", min, max, value),
		})
	}
}

func nonNegative(errs *ValidationErrors, field string, value float64) {
	if value < 0 {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must not be negative, got %g", value),
		})
	}
}

func binaryFlag(errs *ValidationErrors, field string, value int) {
	if value != 0 && value != 1 {
		*errs = append(*errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be 0 or 1, got %d", value),
		})
	}
}

// ValidateRequest enforces every bound of the student risk request. A request
// failing validation must never reach the network layer.
func ValidateRequest(r *StudentRiskRequest) error {
	var errs ValidationErrors

	if strings.TrimSpace(r.StudentID) == "" {
		errs = append(errs, ValidationError{Field: "student_id", Message: "is required"})
	}
	rangeCheck(&errs, "avg_grade", r.AvgGrade, 0, 100)
	rangeCheck(&errs, "grade_consistency", r.GradeConsistency, 0, 100)
	rangeCheck(&errs, "grade_range", r.GradeRange, 0, 100)
	nonNegative(&errs, "num_assessments", float64(r.NumAssessments))
	rangeCheck(&errs, "assessment_completion_rate", r.AssessmentCompletionRate, 0, 1)
	nonNegative(&errs, "studied_credits", r.StudiedCredits)
	nonNegative(&errs, "num_of_prev_attempts", float64(r.NumOfPrevAttempts))
	binaryFlag(&errs, "low_performance", r.LowPerformance)
	binaryFlag(&errs, "low_engagement", r.LowEngagement)
	binaryFlag(&errs, "has_previous_attempts", r.HasPreviousAttempts)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateResponse checks a decoded prediction response against the service
// contract and filters out invalid risk factors in place. A factor is invalid
// when its coerced value is 0 and its feature name is empty; a genuine zero
// value with a named feature is retained.
func ValidateResponse(r *RiskPredictionResponse) error {
	var errs ValidationErrors

	if r.StudentID == "" {
		errs = append(errs, ValidationError{Field: "student_id", Message: "is required"})
	}
	if r.RiskLevel == "" {
		errs = append(errs, ValidationError{Field: "risk_level", Message: "is required"})
	}
	rangeCheck(&errs, "risk_score", r.RiskScore, 0, 1)
	rangeCheck(&errs, "confidence", r.Confidence, 0, 100)
	if _, ok := r.Probabilities[LevelSafe]; !ok {
		errs = append(errs, ValidationError{Field: "probabilities.Safe", Message: "is required"})
	}
	if _, ok := r.Probabilities[LevelAtRisk]; !ok {
		errs = append(errs, ValidationError{Field: "probabilities.At-Risk", Message: "is required"})
	}
	if r.PredictionID == "" {
		errs = append(errs, ValidationError{Field: "prediction_id", Message: "is required"})
	}
	if r.Timestamp.IsZero() {
		errs = append(errs, ValidationError{Field: "timestamp", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}

	kept := r.TopRiskFactors[:0]
	for _, f := range r.TopRiskFactors {
		if f.Value == 0 && f.Feature == "" {
			continue
		}
		kept = append(kept, f)
	}
	r.TopRiskFactors = kept

	return nil
}
