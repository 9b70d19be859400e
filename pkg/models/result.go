package models

import "time"

// StepStatus is the outcome of evaluating a single step.
type StepStatus string

const (
	StepStatusPassed  StepStatus = "PASSED"
	StepStatusFailed  StepStatus = "FAILED"
	StepStatusPending StepStatus = "PENDING"
)

// StepResult is one entry of an evaluation trace.
type StepResult struct {
	StepID               string     `json:"step_id"`
	Label                string     `json:"label"`
	Kind                 StepKind   `json:"kind"`
	Status               StepStatus `json:"status"`
	Detail               string     `json:"detail"`
	OffsetMinutes        int        `json:"offset_minutes"`
	ScheduledAt          *time.Time `json:"scheduled_at,omitempty"`
	DeferredByQuietHours bool       `json:"deferred_by_quiet_hours,omitempty"`
	Channel              Channel    `json:"channel,omitempty"`
}

// SimulationResult is the full trace plus aggregate counters of one evaluation run.
type SimulationResult struct {
	StepResults            []StepResult `json:"step_results"`
	Blocked                bool         `json:"blocked"`
	SentActions            int          `json:"sent_actions"`
	SuppressedByQuietHours int          `json:"suppressed_by_quiet_hours"`
	CapBlocked             bool         `json:"cap_blocked"`
	EvaluatedAt            time.Time    `json:"evaluated_at"`
}
