package file

import (
	"context"
	"sort"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
)

const runsCollection = "runs"

// RunRepository stores each journey run, with its scheduled actions, as one document.
type RunRepository struct {
	store *store
}

// Save creates or replaces a run. An active run is rejected while another run of
// the same contact is active in the journey.
func (rr *RunRepository) Save(_ context.Context, run *models.JourneyRun) error {
	rr.store.mu.Lock()
	defer rr.store.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if run.Status == models.RunStatusActive {
		others, err := rr.all(func(other *models.JourneyRun) bool {
			return other.ID != run.ID && other.JourneyID == run.JourneyID &&
				other.ContactID == run.ContactID && other.Status == models.RunStatusActive
		})
		if err != nil {
			return persistence.NewRunError("Save", run.ID, err)
		}

		if len(others) > 0 {
			return persistence.NewRunError("Save", run.ID, persistence.ErrActiveRunConflict)
		}
	}

	err := rr.store.write(runsCollection, run.ID, run)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	return nil
}

// GetByID retrieves a run by its ID.
func (rr *RunRepository) GetByID(_ context.Context, id string) (*models.JourneyRun, error) {
	rr.store.mu.RLock()
	defer rr.store.mu.RUnlock()

	var run models.JourneyRun

	found, err := rr.store.read(runsCollection, id, &run)
	if err != nil {
		return nil, persistence.NewRunError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	return &run, nil
}

// ListByJourney returns the newest runs of a journey.
func (rr *RunRepository) ListByJourney(_ context.Context, journeyID string, limit int) ([]*models.JourneyRun, error) {
	rr.store.mu.RLock()
	defer rr.store.mu.RUnlock()

	runs, err := rr.all(func(run *models.JourneyRun) bool {
		return run.JourneyID == journeyID
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

// ActiveRun returns the active run of a contact in a journey, or nil.
func (rr *RunRepository) ActiveRun(_ context.Context, journeyID, contactID string) (*models.JourneyRun, error) {
	rr.store.mu.RLock()
	defer rr.store.mu.RUnlock()

	runs, err := rr.all(func(run *models.JourneyRun) bool {
		return run.JourneyID == journeyID && run.ContactID == contactID && run.Status == models.RunStatusActive
	})
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return runs[0], nil
}

// DueActions returns scheduled actions due at or before the given time.
func (rr *RunRepository) DueActions(_ context.Context, before time.Time, limit int) ([]*models.ScheduledAction, error) {
	rr.store.mu.RLock()
	defer rr.store.mu.RUnlock()

	runs, err := rr.all(func(run *models.JourneyRun) bool {
		return run.Status == models.RunStatusActive
	})
	if err != nil {
		return nil, err
	}

	due := make([]*models.ScheduledAction, 0)

	for _, run := range runs {
		for _, action := range run.Actions {
			if action.Status == models.ActionStatusScheduled && !action.ScheduledAt.After(before) {
				due = append(due, action)
			}
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

// MarkDispatched flips a scheduled action to dispatched.
func (rr *RunRepository) MarkDispatched(_ context.Context, actionID string, at time.Time) error {
	rr.store.mu.Lock()
	defer rr.store.mu.Unlock()

	runs, err := rr.all(func(run *models.JourneyRun) bool {
		return run.Status == models.RunStatusActive
	})
	if err != nil {
		return err
	}

	for _, run := range runs {
		for _, action := range run.Actions {
			if action.ID != actionID || action.Status != models.ActionStatusScheduled {
				continue
			}

			dispatchedAt := at.UTC()
			action.Status = models.ActionStatusDispatched
			action.DispatchedAt = &dispatchedAt

			return rr.store.write(runsCollection, run.ID, run)
		}
	}

	return persistence.NewRunError("MarkDispatched", actionID, persistence.ErrScheduledActionNotFound)
}

// all loads every run accepted by keep. Callers hold the store lock.
func (rr *RunRepository) all(keep func(*models.JourneyRun) bool) ([]*models.JourneyRun, error) {
	ids, err := rr.store.ids(runsCollection)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.JourneyRun, 0)

	for _, id := range ids {
		var run models.JourneyRun

		found, err := rr.store.read(runsCollection, id, &run)
		if err != nil {
			return nil, err
		}

		if found && keep(&run) {
			runs = append(runs, &run)
		}
	}

	return runs, nil
}
