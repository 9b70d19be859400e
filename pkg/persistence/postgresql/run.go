package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const runColumns = `
			id
		  , journey_id
		  , organization_id
		  , contact_id
		  , status
		  , contact
		  , result
		  , created_at
		  , completed_at`

const actionColumns = `
			id
		  , run_id
		  , step_id
		  , channel
		  , title
		  , body
		  , cta_label
		  , cta_url
		  , scheduled_at
		  , deferred_by_quiet_hours
		  , status
		  , reason
		  , dispatched_at`

const (
	uniqueViolation    = "23505"
	activeContactIndex = "idx_journey_runs_active_contact"
)

// RunRepository stores journey runs and their scheduled actions.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Save upserts a run and replaces its scheduled actions in a single transaction.
func (r *RunRepository) Save(ctx context.Context, run *models.JourneyRun) error {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run ID: %w", err)
		}

		run.ID = id.String()
	}

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	contactJSON, err := json.Marshal(run.Contact)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, fmt.Errorf("failed to marshal contact: %w", err))
	}

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, fmt.Errorf("failed to marshal result: %w", err))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			if rollbackErr != nil {
				r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO journey_runs (id, journey_id, organization_id, contact_id, status, contact, result, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			contact = EXCLUDED.contact,
			result = EXCLUDED.result,
			completed_at = EXCLUDED.completed_at
	`,
		run.ID,
		run.JourneyID,
		run.OrganizationID,
		run.ContactID,
		string(run.Status),
		contactJSON,
		resultJSON,
		run.CreatedAt,
		run.CompletedAt,
	)
	if isUniqueViolation(err, activeContactIndex) {
		return persistence.NewRunError("Save", run.ID, persistence.ErrActiveRunConflict)
	}

	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM scheduled_actions WHERE run_id = $1", run.ID)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, fmt.Errorf("failed to clear scheduled actions: %w", err))
	}

	for position, action := range run.Actions {
		err = r.insertAction(ctx, tx, run.ID, position, action)
		if err != nil {
			return persistence.NewRunError("Save", run.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

func (r *RunRepository) insertAction(ctx context.Context, tx *sql.Tx, runID string, position int, action *models.ScheduledAction) error {
	if action.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate action ID: %w", err)
		}

		action.ID = id.String()
	}

	action.RunID = runID

	_, err := tx.ExecContext(ctx, `
		INSERT INTO scheduled_actions (
			id, run_id, position, step_id, channel, title, body, cta_label, cta_url,
			scheduled_at, deferred_by_quiet_hours, status, reason, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		action.ID,
		runID,
		position,
		action.StepID,
		string(action.Channel),
		action.Title,
		action.Body,
		action.CTALabel,
		action.CTAURL,
		action.ScheduledAt,
		action.DeferredByQuietHours,
		string(action.Status),
		action.Reason,
		action.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled action %s: %w", action.ID, err)
	}

	return nil
}

// GetByID returns a run with its scheduled actions.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.JourneyRun, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM journey_runs WHERE id = $1", id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewRunError("GetByID", id, err)
	}

	run.Actions, err = r.actionsOf(ctx, run.ID)
	if err != nil {
		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return run, nil
}

// ListByJourney returns the newest runs of a journey.
func (r *RunRepository) ListByJourney(ctx context.Context, journeyID string, limit int) ([]*models.JourneyRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM journey_runs WHERE journey_id = $1 ORDER BY created_at DESC LIMIT $2",
		journeyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	runs := make([]*models.JourneyRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	for _, run := range runs {
		run.Actions, err = r.actionsOf(ctx, run.ID)
		if err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// ActiveRun returns the active run of a contact in a journey, or nil.
func (r *RunRepository) ActiveRun(ctx context.Context, journeyID, contactID string) (*models.JourneyRun, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM journey_runs WHERE journey_id = $1 AND contact_id = $2 AND status = 'active'",
		journeyID, contactID)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query active run: %w", err)
	}

	run.Actions, err = r.actionsOf(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// DueActions returns scheduled actions due at or before the given time, oldest first.
func (r *RunRepository) DueActions(ctx context.Context, before time.Time, limit int) ([]*models.ScheduledAction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+actionColumns+" FROM scheduled_actions WHERE status = 'scheduled' AND scheduled_at <= $1 ORDER BY scheduled_at ASC LIMIT $2",
		before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due actions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return scanActions(rows)
}

// MarkDispatched flips a scheduled action to dispatched.
func (r *RunRepository) MarkDispatched(ctx context.Context, actionID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE scheduled_actions SET status = 'dispatched', dispatched_at = $2 WHERE id = $1 AND status = 'scheduled'",
		actionID, at.UTC())
	if err != nil {
		return persistence.NewRunError("MarkDispatched", actionID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewRunError("MarkDispatched", actionID, persistence.ErrScheduledActionNotFound)
	}

	return nil
}

func (r *RunRepository) actionsOf(ctx context.Context, runID string) ([]*models.ScheduledAction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+actionColumns+" FROM scheduled_actions WHERE run_id = $1 ORDER BY position ASC",
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled actions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	return scanActions(rows)
}

func scanRun(row scanner) (*models.JourneyRun, error) {
	var (
		run         models.JourneyRun
		status      string
		contactJSON []byte
		resultJSON  []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.JourneyID,
		&run.OrganizationID,
		&run.ContactID,
		&status,
		&contactJSON,
		&resultJSON,
		&run.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = models.RunStatus(status)

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	err = json.Unmarshal(contactJSON, &run.Contact)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact: %w", err)
	}

	err = json.Unmarshal(resultJSON, &run.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	run.Actions = make([]*models.ScheduledAction, 0)

	return &run, nil
}

func scanActions(rows *sql.Rows) ([]*models.ScheduledAction, error) {
	actions := make([]*models.ScheduledAction, 0)

	for rows.Next() {
		var (
			action       models.ScheduledAction
			channel      string
			status       string
			dispatchedAt sql.NullTime
		)

		err := rows.Scan(
			&action.ID,
			&action.RunID,
			&action.StepID,
			&channel,
			&action.Title,
			&action.Body,
			&action.CTALabel,
			&action.CTAURL,
			&action.ScheduledAt,
			&action.DeferredByQuietHours,
			&status,
			&action.Reason,
			&dispatchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled action: %w", err)
		}

		action.Channel = models.Channel(channel)
		action.Status = models.ActionStatus(status)

		if dispatchedAt.Valid {
			action.DispatchedAt = &dispatchedAt.Time
		}

		actions = append(actions, &action)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating scheduled actions: %w", err)
	}

	return actions, nil
}
