package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fixturefox/fixturefox/internal/models"
)

// MockSourceRepository provides a mock implementation for SourceRepository
type MockSourceRepository struct {
	mock.Mock
}

func (m *MockSourceRepository) Create(ctx context.Context, source *models.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockSourceRepository) GetByID(ctx context.Context, id int64) (*models.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Source), args.Error(1)
}

func (m *MockSourceRepository) List(ctx context.Context, enabledOnly bool) ([]*models.Source, error) {
	args := m.Called(ctx, enabledOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Source), args.Error(1)
}

func (m *MockSourceRepository) Update(ctx context.Context, source *models.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockSourceRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSourceHealthRepository provides a mock implementation for SourceHealthRepository
type MockSourceHealthRepository struct {
	mock.Mock
}

func (m *MockSourceHealthRepository) Upsert(ctx context.Context, health *models.SourceHealth) error {
	args := m.Called(ctx, health)
	return args.Error(0)
}

func (m *MockSourceHealthRepository) GetBySourceID(ctx context.Context, sourceID int64) (*models.SourceHealth, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SourceHealth), args.Error(1)
}

func (m *MockSourceHealthRepository) List(ctx context.Context) ([]*models.SourceHealth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SourceHealth), args.Error(1)
}

// MockBlocklistRepository provides a mock implementation for BlocklistRepository
type MockBlocklistRepository struct {
	mock.Mock
}

func (m *MockBlocklistRepository) Create(ctx context.Context, record *models.RejectionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockBlocklistRepository) Contains(ctx context.Context, key string, sourceID int64) (bool, error) {
	args := m.Called(ctx, key, sourceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBlocklistRepository) List(ctx context.Context, limit, offset int) ([]*models.RejectionRecord, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RejectionRecord), args.Error(1)
}

// MockPendingImportRepository provides a mock implementation for PendingImportRepository
type MockPendingImportRepository struct {
	mock.Mock
}

func (m *MockPendingImportRepository) Create(ctx context.Context, pending *models.PendingImport) error {
	args := m.Called(ctx, pending)
	return args.Error(0)
}

func (m *MockPendingImportRepository) GetByID(ctx context.Context, id int64) (*models.PendingImport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingImport), args.Error(1)
}

func (m *MockPendingImportRepository) Claim(ctx context.Context, id int64, now time.Time) (*models.PendingImport, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingImport), args.Error(1)
}

func (m *MockPendingImportRepository) Transition(ctx context.Context, id int64, from, to models.PendingImportState, now time.Time) error {
	args := m.Called(ctx, id, from, to, now)
	return args.Error(0)
}

func (m *MockPendingImportRepository) List(ctx context.Context, state models.PendingImportState, limit int) ([]*models.PendingImport, error) {
	args := m.Called(ctx, state, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PendingImport), args.Error(1)
}

// MockEventRepository provides a mock implementation for EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventRepository) ListCandidates(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockEventRepository) Update(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockProfileRepository provides a mock implementation for ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) SaveProfile(ctx context.Context, profile *models.QualityProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetProfile(ctx context.Context, id int64) (*models.QualityProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QualityProfile), args.Error(1)
}

func (m *MockProfileRepository) ListProfiles(ctx context.Context) ([]*models.QualityProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QualityProfile), args.Error(1)
}

func (m *MockProfileRepository) SaveRule(ctx context.Context, rule *models.FormatRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockProfileRepository) ListRules(ctx context.Context) ([]*models.FormatRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FormatRule), args.Error(1)
}
