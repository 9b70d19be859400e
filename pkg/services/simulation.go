package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/journey/pkg/journey"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/otelhelper"
	"github.com/dukex/journey/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Simulation runs journeys against hypothetical contacts. Nothing is persisted.
type Simulation struct {
	persistence persistence.Persistence
	policies    *Policy
	runner      *journey.Runner
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewSimulation creates a new simulation service.
func NewSimulation(persistence persistence.Persistence, policies *Policy, runner *journey.Runner, tracer trace.Tracer, logger *slog.Logger) *Simulation {
	return &Simulation{
		persistence: persistence,
		policies:    policies,
		runner:      runner,
		tracer:      tracer,
		logger:      logger.With("module", "simulation_service"),
	}
}

// SimulateRequest is a test contact plus an optional policy that replaces the
// organization's stored one.
type SimulateRequest struct {
	Contact models.SimulationContact   `json:"contact"`
	Policy  *models.OrganizationPolicy `json:"policy,omitempty"`
}

// Simulate evaluates a stored journey, in any status, for a test contact.
func (s *Simulation) Simulate(ctx context.Context, journeyID string, req *SimulateRequest) (*models.SimulationResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "journey.simulate",
		attribute.String(otelhelper.JourneyIDKey, journeyID))
	defer span.End()

	stored, err := s.persistence.JourneyRepository().GetByID(ctx, journeyID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to get journey: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.OrganizationIDKey, stored.OrganizationID))

	return s.run(ctx, span, stored.OrganizationID, stored.Steps, req.Contact, req.Policy)
}

// PreviewRequest evaluates unsaved steps, as edited in the composer.
type PreviewRequest struct {
	OrganizationID string                     `json:"organization_id"`
	Steps          []*models.JourneyStep      `json:"steps"`
	Contact        models.SimulationContact   `json:"contact"`
	Policy         *models.OrganizationPolicy `json:"policy,omitempty"`
}

// Preview evaluates ad-hoc steps. Either an organization or an explicit policy is
// required to know which policy applies.
func (s *Simulation) Preview(ctx context.Context, req *PreviewRequest) (*models.SimulationResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "journey.preview",
		attribute.String(otelhelper.OrganizationIDKey, req.OrganizationID))
	defer span.End()

	if req.OrganizationID == "" && req.Policy == nil {
		otelhelper.SetError(span, ErrOrganizationRequired)

		return nil, ErrOrganizationRequired
	}

	return s.run(ctx, span, req.OrganizationID, req.Steps, req.Contact, req.Policy)
}

func (s *Simulation) run(ctx context.Context, span trace.Span, organizationID string, steps []*models.JourneyStep, contact models.SimulationContact, override *models.OrganizationPolicy) (*models.SimulationResult, error) {
	policy, err := s.resolvePolicy(ctx, organizationID, override)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	result := s.runner.Run(steps, contact, policy)

	span.SetAttributes(
		attribute.Int(otelhelper.StepCountKey, len(steps)),
		attribute.Int(otelhelper.SentActionsKey, result.SentActions),
		attribute.Bool(otelhelper.BlockedKey, result.Blocked),
	)

	s.logger.DebugContext(ctx, "journey simulated",
		"organization_id", organizationID,
		"steps", len(steps),
		"blocked", result.Blocked,
		"sent_actions", result.SentActions)

	return &result, nil
}

func (s *Simulation) resolvePolicy(ctx context.Context, organizationID string, override *models.OrganizationPolicy) (*models.OrganizationPolicy, error) {
	if override == nil {
		return s.policies.EffectivePolicy(ctx, organizationID)
	}

	policy := *override
	if policy.OrganizationID == "" {
		policy.OrganizationID = organizationID
	}

	err := s.policies.ValidatePolicy(&policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPolicyOverride, err)
	}

	return &policy, nil
}
