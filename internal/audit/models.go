package audit

import (
	"context"
	"time"
)

// Action names the onboarding event being recorded.
type Action string

const (
	ActionSessionStarted      Action = "onboarding_session_started"
	ActionSessionResumed      Action = "onboarding_session_resumed"
	ActionStepAdvanced        Action = "onboarding_step_advanced"
	ActionStepRejected        Action = "onboarding_step_rejected"
	ActionTierLimitHit        Action = "onboarding_tier_limit_hit"
	ActionUploadRejected      Action = "onboarding_upload_rejected"
	ActionSubmissionSucceeded Action = "onboarding_submission_succeeded"
	ActionSubmissionFailed    Action = "onboarding_submission_failed"
	ActionReset               Action = "onboarding_reset"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Action    Action    `json:"action"`
	Step      string    `json:"step,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Store is an append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
}
