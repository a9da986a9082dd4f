// Package wizard owns the step cursor and accumulated form data for one
// onboarding session. The machine is explicitly constructed with its store
// injected, so it is unit-testable without any HTTP host.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"analysthub/internal/onboarding/models"
	"analysthub/internal/onboarding/rules"
	"analysthub/internal/onboarding/store"
	"analysthub/pkg/platform/sentinel"
)

// NavOutcome is the typed result of a navigation request. The gate outcome
// is a required argument to Next, so the no-skip-ahead invariant is enforced
// inside the machine rather than by caller discipline.
type NavOutcome int

const (
	Advanced NavOutcome = iota
	RejectedInvalid
	AtBoundary
)

func (o NavOutcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case RejectedInvalid:
		return "rejected_invalid"
	case AtBoundary:
		return "at_boundary"
	default:
		return "unknown"
	}
}

// Machine is the single source of truth for one user's wizard state. Every
// mutation writes through to the store; a failed write is logged and the
// in-memory state stays authoritative so a network blip cannot corrupt the
// session.
type Machine struct {
	userID string
	state  *models.WizardState
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the timestamp source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		m.clock = clock
	}
}

// New builds a machine for the given user, rehydrating prior state from the
// store when a previous session exists. A corrupt or absent record starts
// the wizard fresh; store read errors do the same rather than blocking the
// user, but they are logged.
func New(ctx context.Context, userID string, st store.Store, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		userID: userID,
		store:  st,
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	state, err := st.Load(ctx, userID)
	switch {
	case err == nil:
		m.state = state
	case errors.Is(err, sentinel.ErrNotFound):
		m.state = models.NewWizardState()
	default:
		logger.WarnContext(ctx, "wizard state load failed, starting fresh",
			"user_id", userID,
			"error", err.Error(),
		)
		m.state = models.NewWizardState()
	}
	return m
}

// Resumed reports whether this machine was rehydrated from a prior session,
// which callers use to distinguish a fresh start from a resume.
func (m *Machine) Resumed() bool {
	return !m.state.Timestamp.IsZero()
}

// State returns a copy of the current wizard state. Tier and tag slices are
// cloned so callers can never mutate the machine behind its back.
func (m *Machine) State() models.WizardState {
	copied := *m.state
	copied.FormData.Specializations = append([]string(nil), m.state.FormData.Specializations...)
	copied.FormData.Languages = append([]string(nil), m.state.FormData.Languages...)
	copied.FormData.PricingTiers = cloneTiers(m.state.FormData.PricingTiers)
	return copied
}

func cloneTiers(tiers []models.Tier) []models.Tier {
	cloned := make([]models.Tier, len(tiers))
	for i, tier := range tiers {
		cloned[i] = tier
		cloned[i].Features = append([]string(nil), tier.Features...)
	}
	return cloned
}

// UpdateFormData merges the patch into the form data. No validation happens
// here: partial, not-yet-valid edits are always accepted so the user never
// loses typed input.
func (m *Machine) UpdateFormData(ctx context.Context, patch models.FormDataPatch) {
	m.state.FormData.ApplyPatch(patch)
	m.persist(ctx)
}

// StepValid evaluates the gate for the given step against current form data.
func (m *Machine) StepValid(step models.Step) rules.Result {
	return rules.ValidateStep(step, m.state.FormData)
}

// CurrentStep returns the cursor position.
func (m *Machine) CurrentStep() models.Step {
	return m.state.CurrentStep
}

// Next advances the cursor by one step, clamped at the final step. The gate
// result for the current step is required: an invalid gate rejects the
// advance and leaves both cursor and form data untouched.
func (m *Machine) Next(ctx context.Context, gate rules.Result) NavOutcome {
	if !gate.Valid {
		return RejectedInvalid
	}
	if m.state.CurrentStep >= models.StepMax {
		return AtBoundary
	}
	m.state.CurrentStep++
	m.persist(ctx)
	return Advanced
}

// Prev moves the cursor back one step, clamped at the first step. Going
// back is always permitted, even with incomplete data in later steps.
func (m *Machine) Prev(ctx context.Context) NavOutcome {
	if m.state.CurrentStep <= models.StepMin {
		return AtBoundary
	}
	m.state.CurrentStep--
	m.persist(ctx)
	return Advanced
}

// GoTo jumps to an absolute step. Out-of-range requests are ignored.
func (m *Machine) GoTo(ctx context.Context, step models.Step) NavOutcome {
	if step < models.StepMin || step > models.StepMax {
		return AtBoundary
	}
	if step == m.state.CurrentStep {
		return AtBoundary
	}
	m.state.CurrentStep = step
	m.persist(ctx)
	return Advanced
}

// Reset restores the all-empty default state and erases the persisted copy.
// Used after a successful submission and on explicit abandon.
func (m *Machine) Reset(ctx context.Context) {
	m.state = models.NewWizardState()
	if err := m.store.Clear(ctx, m.userID); err != nil {
		m.logger.WarnContext(ctx, "wizard state clear failed",
			"user_id", m.userID,
			"error", err.Error(),
		)
	}
}

func (m *Machine) persist(ctx context.Context) {
	m.state.Timestamp = m.clock()
	if err := m.store.Save(ctx, m.userID, m.state); err != nil {
		m.logger.WarnContext(ctx, "wizard state save failed",
			"user_id", m.userID,
			"error", err.Error(),
		)
	}
}
