// Package service orchestrates the onboarding wizard: it owns the live
// per-user state machines, routes tier edits through the single form-data
// merge path, enforces the step gates on navigation, and drives the
// submission protocol against the external collaborators.
package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"analysthub/internal/audit"
	"analysthub/internal/identity"
	"analysthub/internal/onboarding/models"
	"analysthub/internal/onboarding/rules"
	"analysthub/internal/onboarding/store"
	"analysthub/internal/onboarding/tiers"
	"analysthub/internal/onboarding/wizard"
	"analysthub/internal/platform/metrics"
	"analysthub/internal/submission"
	"analysthub/internal/uploads"
	dErrors "analysthub/pkg/domain-errors"
	"analysthub/pkg/requestcontext"
)

// Snapshot is what callers get back after every operation: the full wizard
// state plus the gate status of each step, which the client uses for its
// progress indicator.
type Snapshot struct {
	State     models.WizardState
	StepValid map[models.Step]bool
}

// Service coordinates one wizard session per authenticated user. Sessions
// are created lazily and rehydrated from the store, so a process restart
// resumes where the analyst left off.
type Service struct {
	store     store.Store
	submitter submission.Sender
	uploader  uploads.Uploader
	identity  identity.Service
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session serializes access to one user's machine. The wizard itself is
// synchronously consistent; the lock only arbitrates concurrent HTTP
// requests for the same user.
type session struct {
	mu      sync.Mutex
	machine *wizard.Machine
}

func New(
	st store.Store,
	submitter submission.Sender,
	uploader uploads.Uploader,
	identitySvc identity.Service,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     st,
		submitter: submitter,
		uploader:  uploader,
		identity:  identitySvc,
		auditor:   auditor,
		metrics:   m,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// session returns the live session for userID, creating and rehydrating it
// on first access.
func (s *Service) session(ctx context.Context, userID string) *session {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{}
		s.sessions[userID] = sess
	}
	s.mu.Unlock()

	sess.mu.Lock()
	if sess.machine == nil {
		sess.machine = wizard.New(ctx, userID, s.store, s.logger)
		if sess.machine.Resumed() {
			s.emit(ctx, userID, audit.ActionSessionResumed, "", "")
		} else {
			s.metrics.SessionsStarted.Inc()
			s.emit(ctx, userID, audit.ActionSessionStarted, "", "")
			s.prefillFromIdentity(ctx, userID, sess.machine)
		}
	}
	sess.mu.Unlock()
	return sess
}

// prefillFromIdentity seeds the display name from the Identity Service on a
// fresh session. Best effort: onboarding works fine without it.
func (s *Service) prefillFromIdentity(ctx context.Context, userID string, m *wizard.Machine) {
	profile, err := s.identity.FetchProfile(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "identity profile prefill failed",
			"user_id", userID,
			"error", err.Error(),
		)
		return
	}
	if profile.DisplayName == "" {
		return
	}
	name := profile.DisplayName
	m.UpdateFormData(ctx, models.FormDataPatch{DisplayName: &name})
}

func (s *Service) snapshot(m *wizard.Machine) Snapshot {
	state := m.State()
	valid := make(map[models.Step]bool, models.StepMax)
	for step := models.StepMin; step <= models.StepMax; step++ {
		valid[step] = rules.ValidateStep(step, state.FormData).Valid
	}
	return Snapshot{State: state, StepValid: valid}
}

func (s *Service) emit(ctx context.Context, userID string, action audit.Action, step, reason string) {
	s.auditor.Emit(ctx, audit.Event{
		UserID:    userID,
		Action:    action,
		Step:      step,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}

// State returns the current snapshot, creating the session if needed.
func (s *Service) State(ctx context.Context, userID string) Snapshot {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.snapshot(sess.machine)
}

// UpdateForm merges a partial form update. No validation happens here, so
// incomplete drafts are always accepted and persisted.
func (s *Service) UpdateForm(ctx context.Context, userID string, patch models.FormDataPatch) Snapshot {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.machine.UpdateFormData(ctx, patch)
	return s.snapshot(sess.machine)
}

// Next gates the current step and advances on success. Leaving the pricing
// step additionally runs the deep per-tier gate; its violations block the
// advance just like the shallow gate's. The returned violation map is
// non-empty exactly when the advance was rejected.
func (s *Service) Next(ctx context.Context, userID string) (Snapshot, map[string]string) {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	m := sess.machine
	current := m.CurrentStep()
	gate := m.StepValid(current)

	violations := make(map[string]string, len(gate.Violations))
	for field, message := range gate.Violations {
		violations[field] = message
	}
	if current == models.StepPricing {
		for field, message := range tiers.ValidateForSubmit(m.State().FormData.PricingTiers) {
			violations[field] = message
		}
	}

	combined := rules.Result{Valid: len(violations) == 0, Violations: violations}
	switch m.Next(ctx, combined) {
	case wizard.RejectedInvalid:
		s.metrics.StepRejections.WithLabelValues(strconv.Itoa(int(current))).Inc()
		s.emit(ctx, userID, audit.ActionStepRejected, current.String(), "validation failed")
		return s.snapshot(m), violations
	case wizard.Advanced:
		s.metrics.StepAdvances.WithLabelValues(strconv.Itoa(int(current))).Inc()
		s.emit(ctx, userID, audit.ActionStepAdvanced, current.String(), "")
	}
	return s.snapshot(m), nil
}

// Prev moves back one step. Never gated.
func (s *Service) Prev(ctx context.Context, userID string) Snapshot {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.machine.Prev(ctx)
	return s.snapshot(sess.machine)
}

// GoTo jumps to an absolute step; out-of-range requests are ignored.
func (s *Service) GoTo(ctx context.Context, userID string, step int) Snapshot {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.machine.GoTo(ctx, models.Step(step))
	return s.snapshot(sess.machine)
}

// Reset restores the empty default state and erases the persisted copy.
func (s *Service) Reset(ctx context.Context, userID string) Snapshot {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.machine.Reset(ctx)
	s.emit(ctx, userID, audit.ActionReset, "", "")
	return s.snapshot(sess.machine)
}

// editTiers applies one editor operation and, on success, merges the
// updated collection back through the regular form-data path.
func (s *Service) editTiers(
	ctx context.Context,
	userID string,
	edit func([]models.Tier) ([]models.Tier, error),
) (Snapshot, error) {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	m := sess.machine
	updated, err := edit(m.State().FormData.PricingTiers)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnprocessable) {
			s.emit(ctx, userID, audit.ActionTierLimitHit, m.CurrentStep().String(), err.Error())
		}
		return s.snapshot(m), err
	}
	m.UpdateFormData(ctx, models.FormDataPatch{PricingTiers: updated})
	return s.snapshot(m), nil
}

// AddTier appends a tier with creation defaults, bounded at five.
func (s *Service) AddTier(ctx context.Context, userID string) (Snapshot, error) {
	return s.editTiers(ctx, userID, tiers.Add)
}

// RemoveTier deletes a tier; the last remaining tier stays put.
func (s *Service) RemoveTier(ctx context.Context, userID, tierID string) (Snapshot, error) {
	return s.editTiers(ctx, userID, func(current []models.Tier) ([]models.Tier, error) {
		return tiers.Remove(current, tierID)
	})
}

// ToggleTier flips a tier's active flag without losing its data.
func (s *Service) ToggleTier(ctx context.Context, userID, tierID string) (Snapshot, error) {
	return s.editTiers(ctx, userID, func(current []models.Tier) ([]models.Tier, error) {
		return tiers.ToggleActive(current, tierID)
	})
}

// UpdateTier applies a partial name/price update to one tier.
func (s *Service) UpdateTier(ctx context.Context, userID, tierID string, patch tiers.Patch) (Snapshot, error) {
	return s.editTiers(ctx, userID, func(current []models.Tier) ([]models.Tier, error) {
		return tiers.Update(current, tierID, patch)
	})
}

// AddFeature appends an empty feature slot to one tier.
func (s *Service) AddFeature(ctx context.Context, userID, tierID string) (Snapshot, error) {
	return s.editTiers(ctx, userID, func(current []models.Tier) ([]models.Tier, error) {
		return tiers.AddFeature(current, tierID)
	})
}

// UpdateFeature sets the text of one feature slot.
func (s *Service) UpdateFeature(ctx context.Context, userID, tierID string, index int, text string) (Snapshot, error) {
	return s.editTiers(ctx, userID, func(current []models.Tier) ([]models.Tier, error) {
		return tiers.UpdateFeature(current, tierID, index, text)
	})
}

// RemoveFeature drops a feature slot; the last slot stays put.
func (s *Service) RemoveFeature(ctx context.Context, userID, tierID string, index int) (Snapshot, error) {
	return s.editTiers(ctx, userID, func(current []models.Tier) ([]models.Tier, error) {
		return tiers.RemoveFeature(current, tierID, index)
	})
}

// Upload validates and forwards a binary upload, then merges the returned
// reference URL into the matching form field. A rejected or failed upload
// leaves the wizard state untouched.
func (s *Service) Upload(
	ctx context.Context,
	userID string,
	kind uploads.Kind,
	filename, contentType string,
	size int64,
	body io.Reader,
) (Snapshot, error) {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	m := sess.machine

	if err := uploads.Precheck(kind, contentType, size); err != nil {
		s.metrics.Uploads.WithLabelValues(string(kind), "rejected").Inc()
		s.emit(ctx, userID, audit.ActionUploadRejected, m.CurrentStep().String(), err.Error())
		return s.snapshot(m), err
	}

	url, err := s.uploader.Upload(ctx, kind, filename, contentType, body)
	if err != nil {
		s.metrics.Uploads.WithLabelValues(string(kind), "failed").Inc()
		return s.snapshot(m), err
	}
	s.metrics.Uploads.WithLabelValues(string(kind), "succeeded").Inc()

	patch := models.FormDataPatch{}
	if kind == uploads.KindPhoto {
		patch.ProfilePhotoURL = &url
	} else {
		patch.CertificateURL = &url
	}
	m.UpdateFormData(ctx, patch)
	return s.snapshot(m), nil
}

// Submit composes the application payload and delivers it exactly once per
// attempt. On success the persisted wizard state is erased and the Identity
// Service's cached profile state is updated; on failure the state survives
// untouched so a user-initiated retry resubmits identical data.
func (s *Service) Submit(ctx context.Context, userID string) (Snapshot, error) {
	sess := s.session(ctx, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	m := sess.machine

	if m.CurrentStep() != models.StepSubmit {
		return s.snapshot(m), dErrors.New(dErrors.CodeConflict, "complete all steps before submitting")
	}

	payload := submission.BuildPayload(m.State())
	if err := s.submitter.Submit(ctx, payload); err != nil {
		s.metrics.Submissions.WithLabelValues("failure").Inc()
		s.emit(ctx, userID, audit.ActionSubmissionFailed, m.CurrentStep().String(), err.Error())
		return s.snapshot(m), err
	}

	s.metrics.Submissions.WithLabelValues("success").Inc()
	s.emit(ctx, userID, audit.ActionSubmissionSucceeded, "", "")

	if err := s.identity.MarkSubmitted(ctx, userID); err != nil {
		// The application went through; a stale profile flag is not worth
		// failing the request over.
		s.logger.WarnContext(ctx, "identity profile status update failed",
			"user_id", userID,
			"error", err.Error(),
		)
	}

	m.Reset(ctx)
	return s.snapshot(m), nil
}
