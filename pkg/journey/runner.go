package journey

import (
	"fmt"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/jonboulle/clockwork"
)

const pendingDetail = "not evaluated: a previous condition failed"

// Runner walks a journey's steps for one contact and produces the execution trace.
// It holds no mutable state and is safe to share.
type Runner struct {
	clock     clockwork.Clock
	evaluator Evaluator
}

// Option configures a Runner.
type Option func(*Runner)

// WithEvaluator replaces the default condition evaluator.
func WithEvaluator(evaluator Evaluator) Option {
	return func(r *Runner) {
		r.evaluator = evaluator
	}
}

// NewRunner creates a runner reading "now" from clock.
func NewRunner(clock clockwork.Clock, opts ...Option) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	runner := &Runner{clock: clock}
	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run evaluates steps in order against contact under policy. A nil policy means no
// quiet hours and no caps. Run never fails; malformed steps are reported in the trace.
func (r *Runner) Run(steps []*models.JourneyStep, contact models.SimulationContact, policy *models.OrganizationPolicy) models.SimulationResult {
	now := r.clock.Now()
	quietHours := QuietHoursFromPolicy(policy)

	result := models.SimulationResult{
		StepResults: make([]models.StepResult, 0, len(steps)),
		EvaluatedAt: now,
	}

	offset := 0

	for _, step := range steps {
		if step == nil {
			result.StepResults = append(result.StepResults, models.StepResult{
				Label:         "Missing step",
				Status:        models.StepStatusFailed,
				Detail:        "missing step",
				OffsetMinutes: offset,
			})

			continue
		}

		stepResult := models.StepResult{
			StepID:        step.ID,
			Label:         step.DisplayLabel(),
			Kind:          step.Kind,
			OffsetMinutes: offset,
		}

		if result.Blocked {
			stepResult.Status = models.StepStatusPending
			stepResult.Detail = pendingDetail
			result.StepResults = append(result.StepResults, stepResult)

			continue
		}

		switch step.Kind {
		case models.StepKindTrigger:
			stepResult.Status = models.StepStatusPassed
			stepResult.Detail = triggerDetail(step.Trigger)

		case models.StepKindCondition:
			var cond models.ConditionConfig
			if step.Condition != nil {
				cond = *step.Condition
			}

			match := r.evaluator.Evaluate(cond, contact)
			stepResult.Detail = match.Detail

			if match.Matched {
				stepResult.Status = models.StepStatusPassed
			} else {
				stepResult.Status = models.StepStatusFailed
				result.Blocked = true
			}

		case models.StepKindDelay:
			minutes := 0
			if step.Delay != nil {
				minutes = step.Delay.Minutes
			}

			offset += max(1, minutes)
			stepResult.OffsetMinutes = offset
			stepResult.Status = models.StepStatusPassed
			stepResult.Detail = fmt.Sprintf("wait %d min, cumulative offset %d min", max(1, minutes), offset)

		case models.StepKindAction:
			if step.Action == nil {
				stepResult.Status = models.StepStatusFailed
				stepResult.Detail = "action step has no configuration"

				break
			}

			candidate := now.Add(time.Duration(offset) * time.Minute)
			deferral := ApplyQuietHours(candidate, quietHours)

			result.SentActions++
			if deferral.DeferredByQuietHours {
				result.SuppressedByQuietHours++
			}

			scheduledAt := deferral.Date
			stepResult.Status = models.StepStatusPassed
			stepResult.Channel = step.Action.Channel
			stepResult.ScheduledAt = &scheduledAt
			stepResult.DeferredByQuietHours = deferral.DeferredByQuietHours
			stepResult.Detail = actionDetail(step.Action.Channel, deferral)

		default:
			stepResult.Status = models.StepStatusFailed
			stepResult.Detail = fmt.Sprintf("unsupported step kind %q", step.Kind)
		}

		result.StepResults = append(result.StepResults, stepResult)
	}

	result.CapBlocked = CapExceeded(result.SentActions, policy)

	return result
}

func triggerDetail(trigger *models.TriggerConfig) string {
	if trigger == nil || trigger.Event == "" {
		return "journey entered"
	}

	return "journey entered on " + trigger.Event
}

func actionDetail(channel models.Channel, deferral Deferral) string {
	detail := fmt.Sprintf("send via %s at %s", channel, deferral.Date.Format(time.RFC3339))
	if deferral.DeferredByQuietHours {
		detail += " (deferred by quiet hours)"
	}

	return detail
}
