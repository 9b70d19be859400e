package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/google/uuid"
)

const journeyColumns = `
			id
		  , organization_id
		  , name
		  , description
		  , status
		  , steps
		  , created_at
		  , updated_at
		  , published_at`

// JourneyRepository handles journey-related database operations.
type JourneyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJourneyRepository creates a new journey repository.
func NewJourneyRepository(db *sql.DB, logger *slog.Logger) *JourneyRepository {
	return &JourneyRepository{db: db, logger: logger}
}

// List returns journeys matching opts, newest first.
func (r *JourneyRepository) List(ctx context.Context, opts persistence.ListJourneysOptions) (*persistence.JourneyListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.Offset < 0 {
		opts.Offset = 0
	}

	conditions := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if opts.OrganizationID != "" {
		args = append(args, opts.OrganizationID)
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", len(args)))
	}

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journeys "+where, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count journeys: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`SELECT %s FROM journeys %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		journeyColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journeys: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	journeys := make([]*models.Journey, 0)

	for rows.Next() {
		journey, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journey: %w", err)
		}

		journeys = append(journeys, journey)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating journeys: %w", err)
	}

	return &persistence.JourneyListResult{
		Journeys:    journeys,
		TotalCount:  totalCount,
		HasNextPage: int64(opts.Offset+len(journeys)) < totalCount,
	}, nil
}

// GetByID returns a journey by its ID.
func (r *JourneyRepository) GetByID(ctx context.Context, id string) (*models.Journey, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+journeyColumns+" FROM journeys WHERE id = $1", id)

	journey, err := scanJourney(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewJourneyError("GetByID", id, persistence.ErrJourneyNotFound)
		}

		return nil, persistence.NewJourneyError("GetByID", id, err)
	}

	return journey, nil
}

// Save upserts a journey.
func (r *JourneyRepository) Save(ctx context.Context, journey *models.Journey) error {
	now := time.Now().UTC()

	if journey.CreatedAt.IsZero() {
		journey.CreatedAt = now
	}

	journey.UpdatedAt = now

	if journey.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate journey ID: %w", err)
		}

		journey.ID = id.String()
	}

	stepsJSON, err := json.Marshal(journey.Steps)
	if err != nil {
		return persistence.NewJourneyError("Save", journey.ID, fmt.Errorf("failed to marshal steps: %w", err))
	}

	query := `
		INSERT INTO journeys (id, organization_id, name, description, status, steps, created_at, updated_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at
	`

	_, err = r.db.ExecContext(ctx, query,
		journey.ID,
		journey.OrganizationID,
		journey.Name,
		journey.Description,
		string(journey.Status),
		stepsJSON,
		journey.CreatedAt,
		journey.UpdatedAt,
		journey.PublishedAt,
	)
	if err != nil {
		return persistence.NewJourneyError("Save", journey.ID, err)
	}

	return nil
}

// Delete removes a journey and, by cascade, its runs.
func (r *JourneyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM journeys WHERE id = $1", id)
	if err != nil {
		return persistence.NewJourneyError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewJourneyError("Delete", id, persistence.ErrJourneyNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJourney(row scanner) (*models.Journey, error) {
	var (
		journey     models.Journey
		status      string
		stepsJSON   []byte
		publishedAt sql.NullTime
	)

	err := row.Scan(
		&journey.ID,
		&journey.OrganizationID,
		&journey.Name,
		&journey.Description,
		&status,
		&stepsJSON,
		&journey.CreatedAt,
		&journey.UpdatedAt,
		&publishedAt,
	)
	if err != nil {
		return nil, err
	}

	journey.Status = models.JourneyStatus(status)

	if publishedAt.Valid {
		journey.PublishedAt = &publishedAt.Time
	}

	err = json.Unmarshal(stepsJSON, &journey.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	return &journey, nil
}
