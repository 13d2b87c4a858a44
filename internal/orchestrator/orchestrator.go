// Package orchestrator owns the prediction lifecycle: form state, in-flight
// and settled predictions, the derived action plan, filters, modal visibility
// and toast/announcement state. It coordinates the prediction client, draft
// store and history repository, and guarantees that a superseded request can
// never commit state over a newer one.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VoidEngineers/EduMind-sub000/internal/actionplan"
	"github.com/VoidEngineers/EduMind-sub000/internal/apierr"
	"github.com/VoidEngineers/EduMind-sub000/internal/draft"
	"github.com/VoidEngineers/EduMind-sub000/internal/history"
	"github.com/VoidEngineers/EduMind-sub000/internal/idgen"
	"github.com/VoidEngineers/EduMind-sub000/internal/metrics"
	"github.com/VoidEngineers/EduMind-sub000/internal/risk"
)

// Phase is the prediction lifecycle state.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseSubmitting     Phase = "submitting"
	PhaseSettledSuccess Phase = "settled-success"
	PhaseSettledError   Phase = "settled-error"
)

// ToastKind classifies an ephemeral notification.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastInfo    ToastKind = "info"
	ToastError   ToastKind = "error"
)

// Toast is an ephemeral user-facing notification, auto-dismissed after the
// configured TTL.
type Toast struct {
	ID      string    `json:"id"`
	Kind    ToastKind `json:"kind"`
	Message string    `json:"message"`
}

// Filters narrow the visible action plan. Empty lists leave a dimension
// unrestricted.
type Filters struct {
	Priorities    []actionplan.Priority `json:"priorities"`
	Categories    []actionplan.Category `json:"categories"`
	ShowCompleted bool                  `json:"showCompleted"`
}

// DefaultFilters returns the unrestricted filter set.
func DefaultFilters() Filters {
	return Filters{ShowCompleted: true}
}

// PredictionClient is the slice of the risk client the orchestrator needs.
type PredictionClient interface {
	Predict(ctx context.Context, req *risk.StudentRiskRequest) (*risk.RiskPredictionResponse, error)
	Health(ctx context.Context) (*risk.HealthResponse, error)
}

// Options configures an Orchestrator.
type Options struct {
	AutosaveDelay time.Duration // Quiet period before a draft write; 0 uses 2s
	ToastTTL      time.Duration // Toast lifetime; 0 uses 3s
	Logger        *slog.Logger
}

// Orchestrator is an explicit, constructed instance with injected
// collaborators; multiple independent instances can coexist in tests.
type Orchestrator struct {
	client  PredictionClient
	drafts  draft.Store
	history history.Repository
	logger  *slog.Logger

	autosaveDelay time.Duration
	toastTTL      time.Duration

	mu               sync.Mutex
	phase            Phase
	form             risk.StudentRiskRequest
	prediction       *risk.RiskPredictionResponse
	lastErr          *apierr.Error
	plan             []actionplan.ActionItem
	filters          Filters
	searchQuery      string
	whatIfOpen       bool
	customActionOpen bool
	announcement     string
	toasts           []Toast
	submitSeq        uint64
	saveTimer        *time.Timer
	listeners        []func()
}

// New creates an orchestrator in the idle state with default form values.
func New(client PredictionClient, drafts draft.Store, hist history.Repository, opts Options) *Orchestrator {
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = 2 * time.Second
	}
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		client:        client,
		drafts:        drafts,
		history:       hist,
		logger:        opts.Logger,
		autosaveDelay: opts.AutosaveDelay,
		toastTTL:      opts.ToastTTL,
		phase:         PhaseIdle,
		form:          risk.DefaultRequest(),
		filters:       DefaultFilters(),
	}
}

// Subscribe registers a callback invoked after every state change.
func (o *Orchestrator) Subscribe(fn func()) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

// notify runs listeners outside the lock.
func (o *Orchestrator) notify() {
	o.mu.Lock()
	listeners := make([]func(), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Submit runs one prediction attempt through the full lifecycle. The health
// gate runs before any transition: when the model is not loaded the
// submission is rejected and the phase is unchanged. Only the most recent
// submission's resolution commits state; a stale resolution is discarded as
// a no-op arrival.
func (o *Orchestrator) Submit(ctx context.Context) error {
	health, err := o.client.Health(ctx)
	if err != nil {
		o.rejectSubmission(apierrFrom(err))
		return err
	}
	if !health.ModelLoaded {
		e := apierr.FromStatus(503, "prediction model is not loaded")
		o.rejectSubmission(e)
		return e
	}

	o.mu.Lock()
	o.submitSeq++
	seq := o.submitSeq
	o.phase = PhaseSubmitting
	o.lastErr = nil
	o.announcement = "Prediction in progress"
	form := o.form.Clone()
	o.mu.Unlock()
	o.notify()

	pred, err := o.client.Predict(ctx, &form)

	o.mu.Lock()
	if seq != o.submitSeq {
		// A newer submission superseded this one while it was in
		// flight. Its result must not commit.
		o.mu.Unlock()
		metrics.PredictionsTotal.WithLabelValues("stale").Inc()
		o.logger.Debug("discarding stale prediction result", "seq", seq)
		return nil
	}

	if err != nil {
		e := apierrFrom(err)
		o.phase = PhaseSettledError
		o.lastErr = e
		o.announcement = "Prediction failed: " + e.UserMessage
		o.pushToastLocked(ToastError, e.UserMessage)
		o.mu.Unlock()
		o.notify()
		return err
	}

	o.phase = PhaseSettledSuccess
	o.prediction = pred
	plan := actionplan.Generate(pred, o.plan)
	if len(plan) == 0 {
		plan = actionplan.BaselinePlan(pred.RiskLevel)
	}
	o.plan = plan
	o.announcement = "Prediction complete"
	o.pushToastLocked(ToastSuccess, fmt.Sprintf("Prediction ready: %s", pred.RiskLevel))
	o.mu.Unlock()
	o.notify()

	if err := o.history.Save(pred); err != nil {
		o.logger.Warn("failed to persist prediction history", "error", err)
	}
	return nil
}

// rejectSubmission surfaces a pre-transition failure without changing phase.
func (o *Orchestrator) rejectSubmission(e *apierr.Error) {
	o.mu.Lock()
	o.lastErr = e
	o.announcement = "Prediction unavailable: " + e.UserMessage
	o.pushToastLocked(ToastError, e.UserMessage)
	o.mu.Unlock()
	o.notify()
}

// Reset returns to idle: clears prediction, plan and error, restores form
// defaults. The draft store is untouched; callers wanting a clean slate call
// ClearDraft as well.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.submitSeq++ // any in-flight resolution becomes a no-op arrival
	o.phase = PhaseIdle
	o.prediction = nil
	o.plan = nil
	o.lastErr = nil
	o.form = risk.DefaultRequest()
	o.announcement = "Form reset"
	o.mu.Unlock()
	o.notify()
}

// UpdateForm applies a mutation to the committed form and arms the debounced
// autosave when a student is identified. Rapid edits coalesce into a single
// draft write after the quiet period.
func (o *Orchestrator) UpdateForm(mutate func(*risk.StudentRiskRequest)) {
	o.mu.Lock()
	mutate(&o.form)
	if o.form.StudentID != "" {
		o.scheduleSaveLocked()
	}
	o.mu.Unlock()
	o.notify()
}

// SetForm replaces the committed form wholesale (used when a what-if
// scenario is applied or a draft is restored).
func (o *Orchestrator) SetForm(form risk.StudentRiskRequest) {
	o.mu.Lock()
	o.form = form.Clone()
	if o.form.StudentID != "" {
		o.scheduleSaveLocked()
	}
	o.mu.Unlock()
	o.notify()
}

// scheduleSaveLocked (re)arms the autosave timer. Caller holds the lock.
func (o *Orchestrator) scheduleSaveLocked() {
	if o.saveTimer != nil {
		o.saveTimer.Stop()
	}
	o.saveTimer = time.AfterFunc(o.autosaveDelay, o.flushDraft)
}

// flushDraft persists the current form snapshot.
func (o *Orchestrator) flushDraft() {
	o.mu.Lock()
	form := o.form.Clone()
	o.saveTimer = nil
	o.mu.Unlock()

	if err := o.drafts.Save(&form); err != nil {
		o.logger.Warn("draft autosave failed", "error", err)
		return
	}
	metrics.DraftSavesTotal.Inc()
	o.logger.Debug("draft autosaved", "student_id", form.StudentID)
}

// SaveDraft persists the form immediately, cancelling any pending autosave.
func (o *Orchestrator) SaveDraft() error {
	o.mu.Lock()
	if o.saveTimer != nil {
		o.saveTimer.Stop()
		o.saveTimer = nil
	}
	form := o.form.Clone()
	o.mu.Unlock()

	if err := o.drafts.Save(&form); err != nil {
		return err
	}
	o.pushToast(ToastInfo, "Draft saved")
	return nil
}

// LoadDraft restores a saved draft into the committed form. Returns
// draft.ErrNoDraft when none exists.
func (o *Orchestrator) LoadDraft() error {
	saved, err := o.drafts.Load()
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.form = saved.Clone()
	o.mu.Unlock()
	o.pushToast(ToastInfo, "Draft restored")
	o.notify()
	return nil
}

// ClearDraft cancels any pending debounced save before deleting the draft,
// so a clear issued after edits always wins over the armed timer.
func (o *Orchestrator) ClearDraft() error {
	o.mu.Lock()
	if o.saveTimer != nil {
		o.saveTimer.Stop()
		o.saveTimer = nil
	}
	o.mu.Unlock()

	if err := o.drafts.Clear(); err != nil {
		return err
	}
	o.pushToast(ToastInfo, "Draft cleared")
	return nil
}

// ToggleAction flips completion on a plan item.
func (o *Orchestrator) ToggleAction(id string) {
	o.mu.Lock()
	for i := range o.plan {
		if o.plan[i].ID == id {
			o.plan[i].IsCompleted = !o.plan[i].IsCompleted
			break
		}
	}
	o.mu.Unlock()
	o.notify()
}

// AddCustomAction appends a user-created item to the plan.
func (o *Orchestrator) AddCustomAction(title, description string, priority actionplan.Priority, category actionplan.Category) actionplan.ActionItem {
	item := actionplan.ActionItem{
		ID:          idgen.WithPrefix("act_"),
		Title:       title,
		Description: description,
		Priority:    priority,
		Category:    category,
		IsCustom:    true,
	}
	o.mu.Lock()
	o.plan = append(o.plan, item)
	o.mu.Unlock()
	o.pushToast(ToastSuccess, "Action added")
	o.notify()
	return item
}

// RemoveAction deletes a custom item. Derived items are owned by the
// generator and can only disappear through regeneration.
func (o *Orchestrator) RemoveAction(id string) error {
	o.mu.Lock()
	for i := range o.plan {
		if o.plan[i].ID != id {
			continue
		}
		if !o.plan[i].IsCustom {
			o.mu.Unlock()
			return apierr.State("only custom actions can be removed")
		}
		o.plan = append(o.plan[:i], o.plan[i+1:]...)
		o.mu.Unlock()
		o.pushToast(ToastInfo, "Action removed")
		o.notify()
		return nil
	}
	o.mu.Unlock()
	return apierr.State("action not found")
}

// SetSearchQuery updates the free-text plan filter.
func (o *Orchestrator) SetSearchQuery(query string) {
	o.mu.Lock()
	o.searchQuery = query
	o.mu.Unlock()
	o.notify()
}

// UpdateFilters replaces the filter set.
func (o *Orchestrator) UpdateFilters(f Filters) {
	o.mu.Lock()
	o.filters = f
	o.mu.Unlock()
	o.notify()
}

// ResetFilters restores the unrestricted filter set and clears the search.
func (o *Orchestrator) ResetFilters() {
	o.mu.Lock()
	o.filters = DefaultFilters()
	o.searchQuery = ""
	o.mu.Unlock()
	o.notify()
}

// FilteredActions returns plan items matching search AND category AND
// priority AND the completed-items flag.
func (o *Orchestrator) FilteredActions() []actionplan.ActionItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return actionplan.Filter(o.plan, o.searchQuery, o.filters.Categories, o.filters.Priorities, o.filters.ShowCompleted)
}

// Progress returns the completed percentage of the plan.
func (o *Orchestrator) Progress() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return actionplan.Progress(o.plan)
}

// SetWhatIfOpen toggles the scenario modal.
func (o *Orchestrator) SetWhatIfOpen(open bool) {
	o.mu.Lock()
	o.whatIfOpen = open
	o.mu.Unlock()
	o.notify()
}

// SetCustomActionOpen toggles the custom-action modal.
func (o *Orchestrator) SetCustomActionOpen(open bool) {
	o.mu.Lock()
	o.customActionOpen = open
	o.mu.Unlock()
	o.notify()
}

// pushToastLocked queues a toast and arms its dismissal timer. Caller holds
// the lock.
func (o *Orchestrator) pushToastLocked(kind ToastKind, message string) {
	toast := Toast{ID: idgen.WithPrefix("toast_"), Kind: kind, Message: message}
	o.toasts = append(o.toasts, toast)
	time.AfterFunc(o.toastTTL, func() { o.dismissToast(toast.ID) })
}

func (o *Orchestrator) pushToast(kind ToastKind, message string) {
	o.mu.Lock()
	o.pushToastLocked(kind, message)
	o.mu.Unlock()
}

// dismissToast removes a toast by ID.
func (o *Orchestrator) dismissToast(id string) {
	o.mu.Lock()
	for i := range o.toasts {
		if o.toasts[i].ID == id {
			o.toasts = append(o.toasts[:i], o.toasts[i+1:]...)
			break
		}
	}
	o.mu.Unlock()
	o.notify()
}

// Accessors. All return copies; callers never observe live internal state.

func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) IsSubmitting() bool {
	return o.Phase() == PhaseSubmitting
}

func (o *Orchestrator) Form() risk.StudentRiskRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.form.Clone()
}

func (o *Orchestrator) Prediction() *risk.RiskPredictionResponse {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prediction.Clone()
}

func (o *Orchestrator) Plan() []actionplan.ActionItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]actionplan.ActionItem(nil), o.plan...)
}

func (o *Orchestrator) LastError() *apierr.Error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) Announcement() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.announcement
}

func (o *Orchestrator) Toasts() []Toast {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Toast(nil), o.toasts...)
}

func (o *Orchestrator) Filters() Filters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filters
}

func (o *Orchestrator) WhatIfOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.whatIfOpen
}

func (o *Orchestrator) CustomActionOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.customActionOpen
}

// apierrFrom coerces any error into a classified one.
func apierrFrom(err error) *apierr.Error {
	var e *apierr.Error
	if errors.As(err, &e) {
		return e
	}
	return apierr.Transport(err)
}
