// Package whatif runs speculative predictions against a mutable copy of the
// committed form. Scenario edits and simulated results never leak into
// committed state until the caller applies them explicitly.
package whatif

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"

	"github.com/VoidEngineers/EduMind-sub000/internal/apierr"
	"github.com/VoidEngineers/EduMind-sub000/internal/metrics"
	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

// Source is the committed state the simulator branches from and applies back
// to. *orchestrator.Orchestrator satisfies it.
type Source interface {
	Form() risk.StudentRiskRequest
	Prediction() *risk.RiskPredictionResponse
	SetForm(risk.StudentRiskRequest)
}

// Client runs predictions for scenarios.
type Client interface {
	Predict(ctx context.Context, req *risk.StudentRiskRequest) (*risk.RiskPredictionResponse, error)
}

// FieldChange is one row of the scenario-vs-committed comparison. Change is
// Simulated minus Original, in the same display scale.
type FieldChange struct {
	Field     string  `json:"field"`
	Label     string  `json:"label"`
	Original  float64 `json:"original"`
	Simulated float64 `json:"simulated"`
	Change    float64 `json:"change"`
}

// RiskDelta summarizes the simulated outcome against the committed one.
type RiskDelta struct {
	Delta         float64 `json:"delta"`
	Percent       float64 `json:"percent"`
	IsImprovement bool    `json:"isImprovement"`
}

// Simulator owns one scenario branched from the committed form.
type Simulator struct {
	client Client
	source Source
	logger *slog.Logger

	mu           sync.Mutex
	active       bool
	scenario     risk.StudentRiskRequest
	simulated    *risk.RiskPredictionResponse
	isSimulating bool
	lastErr      *apierr.Error
	simSeq       uint64
}

// New creates a simulator over the given committed-state source.
func New(client Client, source Source, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{client: client, source: source, logger: logger}
}

// Open branches a scenario from the committed form. It requires a committed
// prediction to compare against.
func (s *Simulator) Open() error {
	if s.source.Prediction() == nil {
		return apierr.State("run a prediction before exploring scenarios")
	}
	form := s.source.Form()

	s.mu.Lock()
	s.active = true
	s.scenario = form.Clone()
	s.simulated = nil
	s.lastErr = nil
	s.isSimulating = false
	s.simSeq++
	s.mu.Unlock()
	return nil
}

// Close discards the scenario without touching committed state.
func (s *Simulator) Close() {
	s.mu.Lock()
	s.active = false
	s.simulated = nil
	s.lastErr = nil
	s.isSimulating = false
	s.simSeq++
	s.mu.Unlock()
}

// Active reports whether a scenario is open.
func (s *Simulator) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Set mutates the scenario. Any previous simulation result no longer
// describes the scenario and is dropped; an in-flight simulation is
// superseded so its result cannot land on the edited scenario.
func (s *Simulator) Set(mutate func(*risk.StudentRiskRequest)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return apierr.State("no scenario open")
	}
	mutate(&s.scenario)
	s.simulated = nil
	s.lastErr = nil
	s.simSeq++
	s.isSimulating = false
	return nil
}

// Scenario returns a copy of the current scenario form.
func (s *Simulator) Scenario() risk.StudentRiskRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenario.Clone()
}

// Simulate runs a prediction for the scenario. The result lands in simulator
// state only; committed state is untouched. A result arriving after the
// scenario changed again, or after Close, is discarded.
func (s *Simulator) Simulate(ctx context.Context) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return apierr.State("no scenario open")
	}
	s.simSeq++
	seq := s.simSeq
	s.isSimulating = true
	form := s.scenario.Clone()
	s.mu.Unlock()

	pred, err := s.client.Predict(ctx, &form)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.simSeq {
		// Superseded by an edit, Close or Apply while in flight. The
		// flag belongs to the superseding state, not this request.
		metrics.SimulationsTotal.WithLabelValues("stale").Inc()
		s.logger.Debug("discarding stale simulation result", "seq", seq)
		return nil
	}
	s.isSimulating = false

	if err != nil {
		s.lastErr = coerce(err)
		s.simulated = nil
		metrics.SimulationsTotal.WithLabelValues("error").Inc()
		return err
	}
	s.simulated = pred
	s.lastErr = nil
	metrics.SimulationsTotal.WithLabelValues("success").Inc()
	return nil
}

// IsSimulating reports whether a scenario prediction is in flight.
func (s *Simulator) IsSimulating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSimulating
}

// Simulated returns the scenario's prediction, or nil when the scenario has
// not been simulated since its last edit.
func (s *Simulator) Simulated() *risk.RiskPredictionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulated.Clone()
}

// LastError returns the most recent simulation failure, if any.
func (s *Simulator) LastError() *apierr.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// metric describes one comparable form field. Rates stored as fractions are
// scaled to percentages for display.
type metric struct {
	field string
	label string
	scale float64
	get   func(r *risk.StudentRiskRequest) float64
}

var comparedMetrics = []metric{
	{"avg_grade", "Average Grade", 1, func(r *risk.StudentRiskRequest) float64 { return r.AvgGrade }},
	{"grade_consistency", "Grade Consistency", 1, func(r *risk.StudentRiskRequest) float64 { return r.GradeConsistency }},
	{"assessment_completion_rate", "Assessment Completion", 100, func(r *risk.StudentRiskRequest) float64 { return r.AssessmentCompletionRate }},
	{"num_assessments", "Assessments Submitted", 1, func(r *risk.StudentRiskRequest) float64 { return float64(r.NumAssessments) }},
	{"studied_credits", "Studied Credits", 1, func(r *risk.StudentRiskRequest) float64 { return r.StudiedCredits }},
	{"num_of_prev_attempts", "Previous Attempts", 1, func(r *risk.StudentRiskRequest) float64 { return float64(r.NumOfPrevAttempts) }},
}

// Diff lists the scenario fields that differ from the committed form.
// Unchanged fields are omitted.
func (s *Simulator) Diff() []FieldChange {
	committed := s.source.Form()

	s.mu.Lock()
	scenario := s.scenario.Clone()
	s.mu.Unlock()

	var out []FieldChange
	for _, m := range comparedMetrics {
		orig, sim := m.get(&committed), m.get(&scenario)
		if orig == sim {
			continue
		}
		out = append(out, FieldChange{
			Field:     m.field,
			Label:     m.label,
			Original:  orig * m.scale,
			Simulated: sim * m.scale,
			Change:    (sim - orig) * m.scale,
		})
	}
	return out
}

// Delta compares the simulated risk score against the committed one. It
// requires both a committed prediction and a current simulation result.
func (s *Simulator) Delta() (*RiskDelta, error) {
	committed := s.source.Prediction()
	if committed == nil {
		return nil, apierr.State("no committed prediction to compare against")
	}

	s.mu.Lock()
	simulated := s.simulated
	s.mu.Unlock()
	if simulated == nil {
		return nil, apierr.State("scenario has not been simulated")
	}

	delta := simulated.RiskScore - committed.RiskScore
	return &RiskDelta{
		Delta:         delta,
		Percent:       math.Abs(delta) * 100,
		IsImprovement: delta < 0,
	}, nil
}

// Apply promotes the scenario into the committed form and closes the
// scenario. The caller re-submits to obtain a committed prediction for the
// new values.
func (s *Simulator) Apply() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return apierr.State("no scenario open")
	}
	scenario := s.scenario.Clone()
	s.active = false
	s.simulated = nil
	s.isSimulating = false
	s.simSeq++
	s.mu.Unlock()

	s.source.SetForm(scenario)
	return nil
}

// Reset re-branches the scenario from the committed form, dropping edits and
// any simulation result.
func (s *Simulator) Reset() error {
	form := s.source.Form()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return apierr.State("no scenario open")
	}
	s.scenario = form.Clone()
	s.simulated = nil
	s.lastErr = nil
	s.isSimulating = false
	s.simSeq++
	return nil
}

func coerce(err error) *apierr.Error {
	var e *apierr.Error
	if errors.As(err, &e) {
		return e
	}
	return apierr.Transport(err)
}
