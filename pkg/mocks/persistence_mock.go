package mocks

import (
	"context"
	"time"

	"github.com/dukex/journey/pkg/models"
	"github.com/dukex/journey/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) JourneyRepository() persistence.JourneyRepository {
	args := m.Called()

	return args.Get(0).(persistence.JourneyRepository)
}

func (m *MockPersistence) PolicyRepository() persistence.PolicyRepository {
	args := m.Called()

	return args.Get(0).(persistence.PolicyRepository)
}

func (m *MockPersistence) RunRepository() persistence.RunRepository {
	args := m.Called()

	return args.Get(0).(persistence.RunRepository)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockJourneyRepository is a mock implementation of persistence.JourneyRepository interface.
type MockJourneyRepository struct {
	mock.Mock
}

func (m *MockJourneyRepository) List(ctx context.Context, opts persistence.ListJourneysOptions) (*persistence.JourneyListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.JourneyListResult), args.Error(1)
}

func (m *MockJourneyRepository) GetByID(ctx context.Context, id string) (*models.Journey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Journey), args.Error(1)
}

func (m *MockJourneyRepository) Save(ctx context.Context, journey *models.Journey) error {
	args := m.Called(ctx, journey)

	return args.Error(0)
}

func (m *MockJourneyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPolicyRepository is a mock implementation of persistence.PolicyRepository interface.
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) Get(ctx context.Context, organizationID string) (*models.OrganizationPolicy, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.OrganizationPolicy), args.Error(1)
}

func (m *MockPolicyRepository) Save(ctx context.Context, policy *models.OrganizationPolicy) error {
	args := m.Called(ctx, policy)

	return args.Error(0)
}

// MockRunRepository is a mock implementation of persistence.RunRepository interface.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Save(ctx context.Context, run *models.JourneyRun) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*models.JourneyRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.JourneyRun), args.Error(1)
}

func (m *MockRunRepository) ListByJourney(ctx context.Context, journeyID string, limit int) ([]*models.JourneyRun, error) {
	args := m.Called(ctx, journeyID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.JourneyRun), args.Error(1)
}

func (m *MockRunRepository) ActiveRun(ctx context.Context, journeyID, contactID string) (*models.JourneyRun, error) {
	args := m.Called(ctx, journeyID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.JourneyRun), args.Error(1)
}

func (m *MockRunRepository) DueActions(ctx context.Context, before time.Time, limit int) ([]*models.ScheduledAction, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ScheduledAction), args.Error(1)
}

func (m *MockRunRepository) MarkDispatched(ctx context.Context, actionID string, at time.Time) error {
	args := m.Called(ctx, actionID, at)

	return args.Error(0)
}

// MockSendHistory is a mock implementation of sendhistory.History interface.
type MockSendHistory struct {
	mock.Mock
}

func (m *MockSendHistory) Record(ctx context.Context, organizationID, contactID string, at time.Time) error {
	args := m.Called(ctx, organizationID, contactID, at)

	return args.Error(0)
}

func (m *MockSendHistory) Count(ctx context.Context, organizationID, contactID string, from, to time.Time) (int, error) {
	args := m.Called(ctx, organizationID, contactID, from, to)

	return args.Int(0), args.Error(1)
}

func (m *MockSendHistory) Close() error {
	args := m.Called()

	return args.Error(0)
}
