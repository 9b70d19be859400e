package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
)

const journeysCollection = "journeys"

// JourneyRepository handles journey-related file operations.
type JourneyRepository struct {
	store *store
}

// List returns paginated and filtered journeys, newest first.
func (jr *JourneyRepository) List(_ context.Context, opts persistence.ListJourneysOptions) (*persistence.JourneyListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	jr.store.mu.RLock()
	defer jr.store.mu.RUnlock()

	ids, err := jr.store.ids(journeysCollection)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.Journey, 0, len(ids))

	for _, id := range ids {
		var journey models.Journey

		found, err := jr.store.read(journeysCollection, id, &journey)
		if err != nil {
			return nil, err
		}

		if !found {
			continue
		}

		if opts.OrganizationID != "" && journey.OrganizationID != opts.OrganizationID {
			continue
		}

		if opts.Status != nil && journey.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, &journey)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	totalCount := int64(len(filtered))

	if opts.Offset >= len(filtered) {
		return &persistence.JourneyListResult{
			Journeys:   make([]*models.Journey, 0),
			TotalCount: totalCount,
		}, nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.JourneyListResult{
		Journeys:    filtered[opts.Offset:end],
		TotalCount:  totalCount,
		HasNextPage: end < len(filtered),
	}, nil
}

// GetByID retrieves a journey by its ID from the file system.
func (jr *JourneyRepository) GetByID(_ context.Context, id string) (*models.Journey, error) {
	jr.store.mu.RLock()
	defer jr.store.mu.RUnlock()

	var journey models.Journey

	found, err := jr.store.read(journeysCollection, id, &journey)
	if err != nil {
		return nil, persistence.NewJourneyError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewJourneyError("GetByID", id, persistence.ErrJourneyNotFound)
	}

	return &journey, nil
}

// Save saves a journey to the file system.
func (jr *JourneyRepository) Save(_ context.Context, journey *models.Journey) error {
	jr.store.mu.Lock()
	defer jr.store.mu.Unlock()

	now := time.Now().UTC()
	if journey.CreatedAt.IsZero() {
		journey.CreatedAt = now
	}

	journey.UpdatedAt = now

	err := jr.store.write(journeysCollection, journey.ID, journey)
	if err != nil {
		return persistence.NewJourneyError("Save", journey.ID, err)
	}

	return nil
}

// Delete removes a journey by its ID.
func (jr *JourneyRepository) Delete(_ context.Context, id string) error {
	jr.store.mu.Lock()
	defer jr.store.mu.Unlock()

	found, err := jr.store.remove(journeysCollection, id)
	if err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	if !found {
		return persistence.NewJourneyError("Delete", id, persistence.ErrJourneyNotFound)
	}

	return nil
}
