package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukex/journey/pkg/mocks"
	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/dukex/journey/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestPolicy_UpdateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.policies.GetPolicy(ctx, "org-1")
	assert.True(t, IsNotFoundError(err))

	policy, err := f.policies.UpdatePolicy(ctx, "org-1", &UpdatePolicyRequest{
		QuietHoursStartMinute: intPtr(22 * 60),
		QuietHoursEndMinute:   intPtr(8 * 60),
		CapPerDay:             2,
	})
	require.NoError(t, err)
	assert.Equal(t, "UTC", policy.Timezone)

	stored, err := f.policies.GetPolicy(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, stored.HasQuietHours())
	assert.Equal(t, 2, stored.CapPerDay)
}

func TestPolicy_UpdatePolicy_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		orgID   string
		req     *UpdatePolicyRequest
		wantErr error
	}{
		{name: "missing organization", req: &UpdatePolicyRequest{}, wantErr: ErrOrganizationRequired},
		{name: "minute out of range", orgID: "org-1", req: &UpdatePolicyRequest{
			QuietHoursStartMinute: intPtr(1440), QuietHoursEndMinute: intPtr(0),
		}, wantErr: ErrInvalidPolicy},
		{name: "negative cap", orgID: "org-1", req: &UpdatePolicyRequest{CapPerWeek: -1}, wantErr: ErrInvalidPolicy},
		{name: "unknown timezone", orgID: "org-1", req: &UpdatePolicyRequest{Timezone: "Mars/Olympus"}, wantErr: ErrInvalidTimezone},
		{name: "half quiet window", orgID: "org-1", req: &UpdatePolicyRequest{QuietHoursStartMinute: intPtr(60)}, wantErr: ErrIncompleteQuietHours},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.policies.UpdatePolicy(ctx, tt.orgID, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestPolicy_EffectivePolicy_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := &mocks.MockPolicyRepository{}
	repo.On("Get", mock.Anything, "org-1").Return(testutil.CreateTestPolicy("org-1"), nil).Once()
	repo.On("Get", mock.Anything, "org-2").Return(nil, persistence.ErrPolicyNotFound).Once()

	p := &mocks.MockPersistence{}
	p.On("PolicyRepository").Return(repo)

	policies := NewPolicy(p, logger)

	for range 3 {
		policy, err := policies.EffectivePolicy(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, 3, policy.CapPerDay)

		policy.CapPerDay = 99
	}

	fallback, err := policies.EffectivePolicy(ctx, "org-2")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy("org-2"), fallback)

	_, err = policies.EffectivePolicy(ctx, "org-2")
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestPolicy_EffectivePolicy_RepositoryError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := &mocks.MockPolicyRepository{}
	repo.On("Get", mock.Anything, "org-1").Return(nil, errors.New("disk full"))

	p := &mocks.MockPersistence{}
	p.On("PolicyRepository").Return(repo)

	_, err := NewPolicy(p, logger).EffectivePolicy(context.Background(), "org-1")
	require.Error(t, err)
	assert.False(t, IsNotFoundError(err))
}

func TestPolicy_UpdateRefreshesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	policy, err := f.policies.EffectivePolicy(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, policy.CapPerDay)

	_, err = f.policies.UpdatePolicy(ctx, "org-1", &UpdatePolicyRequest{CapPerDay: 1})
	require.NoError(t, err)

	policy, err = f.policies.EffectivePolicy(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 1, policy.CapPerDay)
	assert.IsType(t, &models.OrganizationPolicy{}, policy)
}
