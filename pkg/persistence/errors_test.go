package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/journey/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		journeyErr := persistence.NewJourneyError("GetByID", "journey-123", persistence.ErrJourneyNotFound)
		runErr := persistence.NewRunError("GetByID", "run-456", persistence.ErrRunNotFound)

		assert.True(t, persistence.IsJourneyNotFound(journeyErr))
		assert.True(t, persistence.IsRunNotFound(runErr))
		assert.False(t, persistence.IsPolicyNotFound(runErr))

		assert.True(t, errors.Is(journeyErr, persistence.ErrJourneyNotFound))
		assert.True(t, errors.Is(runErr, persistence.ErrRunNotFound))
	})

	t.Run("errors survive further wrapping", func(t *testing.T) {
		err := fmt.Errorf("loading policy: %w", persistence.ErrPolicyNotFound)

		assert.True(t, persistence.IsPolicyNotFound(err))
		assert.True(t, persistence.IsScheduledActionNotFound(fmt.Errorf("x: %w", persistence.ErrScheduledActionNotFound)))
		assert.True(t, persistence.IsActiveRunConflict(persistence.NewRunError("Save", "run-1", persistence.ErrActiveRunConflict)))
		assert.False(t, persistence.IsActiveRunConflict(nil))
	})

	t.Run("journey error contains context", func(t *testing.T) {
		err := persistence.NewJourneyError("Delete", "journey-123", persistence.ErrJourneyNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "journey-123")
		assert.Contains(t, err.Error(), "journey not found")
	})
}
