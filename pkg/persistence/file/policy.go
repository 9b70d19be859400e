package file

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
)

const policiesCollection = "policies"

// PolicyRepository stores one policy document per organization.
type PolicyRepository struct {
	store *store
}

// Get retrieves the policy of an organization.
func (pr *PolicyRepository) Get(_ context.Context, organizationID string) (*models.OrganizationPolicy, error) {
	pr.store.mu.RLock()
	defer pr.store.mu.RUnlock()

	var policy models.OrganizationPolicy

	found, err := pr.store.read(policiesCollection, organizationID, &policy)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("organization %s: %w", organizationID, persistence.ErrPolicyNotFound)
	}

	return &policy, nil
}

// Save replaces the policy of an organization.
func (pr *PolicyRepository) Save(_ context.Context, policy *models.OrganizationPolicy) error {
	pr.store.mu.Lock()
	defer pr.store.mu.Unlock()

	policy.UpdatedAt = time.Now().UTC()

	return pr.store.write(policiesCollection, policy.OrganizationID, policy)
}
