package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
)

// PolicyRepository is the PostgreSQL policy store.
type PolicyRepository struct {
	db *sql.DB
}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(db *sql.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// Get returns the policy of an organization.
func (r *PolicyRepository) Get(ctx context.Context, organizationID string) (*models.OrganizationPolicy, error) {
	query := `
		SELECT
			organization_id
		  , timezone
		  , quiet_hours_start_minute
		  , quiet_hours_end_minute
		  , cap_per_day
		  , cap_per_week
		  , cap_per_month
		  , approval_reminder_after_minutes
		  , approval_escalate_after_minutes
		  , updated_at
		FROM organization_policies
		WHERE organization_id = $1
	`

	var (
		policy     models.OrganizationPolicy
		quietStart sql.NullInt32
		quietEnd   sql.NullInt32
	)

	err := r.db.QueryRowContext(ctx, query, organizationID).Scan(
		&policy.OrganizationID,
		&policy.Timezone,
		&quietStart,
		&quietEnd,
		&policy.CapPerDay,
		&policy.CapPerWeek,
		&policy.CapPerMonth,
		&policy.Approval.ReminderAfterMinutes,
		&policy.Approval.EscalateAfterMinutes,
		&policy.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("organization %s: %w", organizationID, persistence.ErrPolicyNotFound)
		}

		return nil, fmt.Errorf("failed to load policy for organization %s: %w", organizationID, err)
	}

	policy.QuietHoursStartMinute = nullableInt(quietStart)
	policy.QuietHoursEndMinute = nullableInt(quietEnd)

	return &policy, nil
}

// Save upserts the policy of an organization.
func (r *PolicyRepository) Save(ctx context.Context, policy *models.OrganizationPolicy) error {
	policy.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO organization_policies (
			organization_id, timezone, quiet_hours_start_minute, quiet_hours_end_minute,
			cap_per_day, cap_per_week, cap_per_month,
			approval_reminder_after_minutes, approval_escalate_after_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			quiet_hours_start_minute = EXCLUDED.quiet_hours_start_minute,
			quiet_hours_end_minute = EXCLUDED.quiet_hours_end_minute,
			cap_per_day = EXCLUDED.cap_per_day,
			cap_per_week = EXCLUDED.cap_per_week,
			cap_per_month = EXCLUDED.cap_per_month,
			approval_reminder_after_minutes = EXCLUDED.approval_reminder_after_minutes,
			approval_escalate_after_minutes = EXCLUDED.approval_escalate_after_minutes,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		policy.OrganizationID,
		policy.Timezone,
		policy.QuietHoursStartMinute,
		policy.QuietHoursEndMinute,
		policy.CapPerDay,
		policy.CapPerWeek,
		policy.CapPerMonth,
		policy.Approval.ReminderAfterMinutes,
		policy.Approval.EscalateAfterMinutes,
		policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy for organization %s: %w", policy.OrganizationID, err)
	}

	return nil
}

func nullableInt(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}

	i := int(v.Int32)

	return &i
}
