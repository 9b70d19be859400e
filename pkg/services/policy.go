package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"
)

// PolicyCacheTTL bounds how stale the evaluator's view of a policy can be on a
// replica that did not perform the update.
const PolicyCacheTTL = time.Minute

// Policy manages organization messaging policies.
type Policy struct {
	persistence persistence.Persistence
	cache       *gocache.Cache
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewPolicy creates a new policy service.
func NewPolicy(persistence persistence.Persistence, logger *slog.Logger) *Policy {
	return &Policy{
		persistence: persistence,
		cache:       gocache.New(PolicyCacheTTL, 5*PolicyCacheTTL),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "policy_service"),
	}
}

// DefaultPolicy is used for organizations that never configured one: UTC, no quiet
// hours and no caps.
func DefaultPolicy(organizationID string) *models.OrganizationPolicy {
	return &models.OrganizationPolicy{
		OrganizationID: organizationID,
		Timezone:       "UTC",
	}
}

// GetPolicy returns the stored policy of an organization.
func (p *Policy) GetPolicy(ctx context.Context, organizationID string) (*models.OrganizationPolicy, error) {
	if organizationID == "" {
		return nil, ErrOrganizationRequired
	}

	policy, err := p.persistence.PolicyRepository().Get(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	return policy, nil
}

// EffectivePolicy returns the policy the evaluator runs with, served from cache when
// fresh. Organizations without a stored policy get DefaultPolicy.
func (p *Policy) EffectivePolicy(ctx context.Context, organizationID string) (*models.OrganizationPolicy, error) {
	if cached, found := p.cache.Get(organizationID); found {
		policy := cached.(models.OrganizationPolicy)

		return &policy, nil
	}

	policy, err := p.persistence.PolicyRepository().Get(ctx, organizationID)
	if err != nil {
		if !persistence.IsPolicyNotFound(err) {
			return nil, fmt.Errorf("failed to get policy: %w", err)
		}

		policy = DefaultPolicy(organizationID)
	}

	p.cache.SetDefault(organizationID, *policy)

	return policy, nil
}

// UpdatePolicyRequest replaces an organization policy.
type UpdatePolicyRequest struct {
	Timezone              string                    `json:"timezone"`
	QuietHoursStartMinute *int                      `json:"quiet_hours_start_minute,omitempty" validate:"omitempty,min=0,max=1439"`
	QuietHoursEndMinute   *int                      `json:"quiet_hours_end_minute,omitempty"   validate:"omitempty,min=0,max=1439"`
	CapPerDay             int                       `json:"cap_per_day"                        validate:"min=0"`
	CapPerWeek            int                       `json:"cap_per_week"                       validate:"min=0"`
	CapPerMonth           int                       `json:"cap_per_month"                      validate:"min=0"`
	Approval              models.ApprovalEscalation `json:"approval"`
}

// UpdatePolicy validates and stores the policy of an organization.
func (p *Policy) UpdatePolicy(ctx context.Context, organizationID string, req *UpdatePolicyRequest) (*models.OrganizationPolicy, error) {
	if organizationID == "" {
		return nil, ErrOrganizationRequired
	}

	policy := &models.OrganizationPolicy{
		OrganizationID:        organizationID,
		Timezone:              req.Timezone,
		QuietHoursStartMinute: req.QuietHoursStartMinute,
		QuietHoursEndMinute:   req.QuietHoursEndMinute,
		CapPerDay:             req.CapPerDay,
		CapPerWeek:            req.CapPerWeek,
		CapPerMonth:           req.CapPerMonth,
		Approval:              req.Approval,
	}

	err := p.ValidatePolicy(policy)
	if err != nil {
		return nil, err
	}

	err = p.persistence.PolicyRepository().Save(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	p.cache.SetDefault(organizationID, *policy)

	p.logger.InfoContext(ctx, "policy updated",
		"organization_id", organizationID,
		"quiet_hours", policy.HasQuietHours(),
		"cap_per_day", policy.CapPerDay)

	return policy, nil
}

// ValidatePolicy checks ranges, the timezone and that quiet hours are either fully
// configured or absent. An empty timezone is normalized to UTC.
func (p *Policy) ValidatePolicy(policy *models.OrganizationPolicy) error {
	err := p.validate.Struct(policy)
	if err != nil {
		return NewValidationError("ValidatePolicy", "INVALID_POLICY", err.Error(), ErrInvalidPolicy)
	}

	if policy.Timezone == "" {
		policy.Timezone = "UTC"
	}

	_, err = time.LoadLocation(policy.Timezone)
	if err != nil {
		return NewValidationError("ValidatePolicy", "INVALID_TIMEZONE",
			fmt.Sprintf("unknown timezone '%s'", policy.Timezone), ErrInvalidTimezone)
	}

	if (policy.QuietHoursStartMinute == nil) != (policy.QuietHoursEndMinute == nil) {
		return ErrIncompleteQuietHours
	}

	return nil
}
