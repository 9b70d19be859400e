package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/dukex/journey/pkg/persistence/postgresql"
	"github.com/dukex/journey/pkg/testutil"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Children first, parents last
	for _, table := range []string{"scheduled_actions", "journey_runs", "organization_policies", "journeys", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("journey_test"),
			postgres.WithUsername("journey"),
			postgres.WithPassword("journey"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer db.Close()

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	for _, table := range []string{"journeys", "organization_policies", "journey_runs", "scheduled_actions"} {
		var exists bool

		err = db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)", table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}
}

func TestPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestJourneyRepository_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.JourneyRepository()

	journey := testutil.CreateTestJourney()
	require.NoError(t, repo.Save(ctx, journey))

	got, err := repo.GetByID(ctx, journey.ID)
	require.NoError(t, err)
	assert.Equal(t, journey.Name, got.Name)
	assert.Equal(t, journey.OrganizationID, got.OrganizationID)
	assert.Equal(t, models.JourneyStatusDraft, got.Status)
	require.Len(t, got.Steps, 4)
	assert.Equal(t, journey.Steps[1].Condition, got.Steps[1].Condition)
	assert.Equal(t, journey.Steps[3].Action, got.Steps[3].Action)
	assert.Nil(t, got.PublishedAt)

	published := time.Now().UTC().Truncate(time.Second)
	journey.Status = models.JourneyStatusPublished
	journey.PublishedAt = &published
	require.NoError(t, repo.Save(ctx, journey))

	got, err = repo.GetByID(ctx, journey.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JourneyStatusPublished, got.Status)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, published.Equal(*got.PublishedAt))
}

func TestJourneyRepository_GetByID_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.JourneyRepository().GetByID(ctx, uuid.NewString())
	require.Error(t, err)
	assert.True(t, persistence.IsJourneyNotFound(err))
}

func TestJourneyRepository_List(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.JourneyRepository()

	for range 3 {
		require.NoError(t, repo.Save(ctx, testutil.CreateTestJourney()))
	}

	require.NoError(t, repo.Save(ctx, testutil.CreateTestJourney(
		testutil.WithOrganization("org-2"),
		testutil.WithStatus(models.JourneyStatusPublished),
	)))

	all, err := repo.List(ctx, persistence.ListJourneysOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.TotalCount)
	assert.Len(t, all.Journeys, 4)
	assert.False(t, all.HasNextPage)

	page, err := repo.List(ctx, persistence.ListJourneysOptions{OrganizationID: "org-1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Len(t, page.Journeys, 2)
	assert.True(t, page.HasNextPage)

	status := models.JourneyStatusPublished
	published, err := repo.List(ctx, persistence.ListJourneysOptions{Status: &status})
	require.NoError(t, err)
	require.Len(t, published.Journeys, 1)
	assert.Equal(t, "org-2", published.Journeys[0].OrganizationID)
}

func TestJourneyRepository_Delete(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.JourneyRepository()

	journey := testutil.CreateTestJourney()
	require.NoError(t, repo.Save(ctx, journey))
	require.NoError(t, repo.Delete(ctx, journey.ID))

	_, err := repo.GetByID(ctx, journey.ID)
	assert.True(t, persistence.IsJourneyNotFound(err))

	err = repo.Delete(ctx, journey.ID)
	assert.True(t, persistence.IsJourneyNotFound(err))
}

func TestPolicyRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.PolicyRepository()

	_, err := repo.Get(ctx, "org-1")
	assert.True(t, persistence.IsPolicyNotFound(err))

	policy := testutil.CreateTestPolicy("org-1")
	require.NoError(t, repo.Save(ctx, policy))

	got, err := repo.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 22*60, *got.QuietHoursStartMinute)
	assert.Equal(t, 8*60, *got.QuietHoursEndMinute)
	assert.Equal(t, 3, got.CapPerDay)
	assert.Equal(t, 240, got.Approval.EscalateAfterMinutes)

	policy.QuietHoursStartMinute = nil
	policy.QuietHoursEndMinute = nil
	policy.CapPerDay = 0
	require.NoError(t, repo.Save(ctx, policy))

	got, err = repo.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, got.HasQuietHours())
	assert.Equal(t, 0, got.CapPerDay)
}

func newRun(journey *models.Journey, contactID string, scheduledAt ...time.Time) *models.JourneyRun {
	run := &models.JourneyRun{
		ID:             uuid.NewString(),
		JourneyID:      journey.ID,
		OrganizationID: journey.OrganizationID,
		ContactID:      contactID,
		Status:         models.RunStatusActive,
		Contact:        models.SimulationContact{LastActivityDays: "45", MarketingOptIn: true},
		Result:         models.SimulationResult{SentActions: len(scheduledAt)},
	}

	for _, at := range scheduledAt {
		run.Actions = append(run.Actions, &models.ScheduledAction{
			StepID:      journey.Steps[len(journey.Steps)-1].ID,
			Channel:     models.ChannelInApp,
			Title:       "We miss you",
			Body:        "Book your next match",
			ScheduledAt: at,
			Status:      models.ActionStatusScheduled,
		})
	}

	return run
}

func TestRunRepository_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	journey := testutil.CreateTestJourney()
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	run := newRun(journey, "contact-1", at, at.Add(time.Hour))
	require.NoError(t, p.RunRepository().Save(ctx, run))

	for _, action := range run.Actions {
		assert.NotEmpty(t, action.ID)
		assert.Equal(t, run.ID, action.RunID)
	}

	got, err := p.RunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusActive, got.Status)
	assert.Equal(t, "45", got.Contact.LastActivityDays)
	assert.Equal(t, 2, got.Result.SentActions)
	require.Len(t, got.Actions, 2)
	assert.True(t, at.Equal(got.Actions[0].ScheduledAt))
	assert.Equal(t, 2, got.PendingActions())

	_, err = p.RunRepository().GetByID(ctx, uuid.NewString())
	assert.True(t, persistence.IsRunNotFound(err))
}

func TestRunRepository_ActiveRun(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RunRepository()

	journey := testutil.CreateTestJourney()
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	active, err := repo.ActiveRun(ctx, journey.ID, "contact-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	run := newRun(journey, "contact-1", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, run))

	active, err = repo.ActiveRun(ctx, journey.ID, "contact-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, run.ID, active.ID)

	duplicate := newRun(journey, "contact-1")
	err = repo.Save(ctx, duplicate)
	assert.True(t, persistence.IsActiveRunConflict(err))

	runs, err := repo.ListByJourney(ctx, journey.ID, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunRepository_DueActionsAndMarkDispatched(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.RunRepository()

	journey := testutil.CreateTestJourney()
	require.NoError(t, p.JourneyRepository().Save(ctx, journey))

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	run := newRun(journey, "contact-1", now.Add(-2*time.Hour), now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, run))

	due, err := repo.DueActions(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, run.Actions[0].ID, due[0].ID)
	assert.Equal(t, run.Actions[1].ID, due[1].ID)

	require.NoError(t, repo.MarkDispatched(ctx, due[0].ID, now))

	err = repo.MarkDispatched(ctx, due[0].ID, now)
	assert.True(t, persistence.IsScheduledActionNotFound(err))

	due, err = repo.DueActions(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusDispatched, got.Actions[0].Status)
	require.NotNil(t, got.Actions[0].DispatchedAt)
	assert.Equal(t, 2, got.PendingActions())
}
