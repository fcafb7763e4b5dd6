package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
)

// fakeTxManager runs the transactional function directly, without a database.
type fakeTxManager struct{}

func (f *fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockVehicleRepository struct {
	mock.Mock
}

func (m *mockVehicleRepository) Create(ctx context.Context, vehicle *cacheDomain.CachedVehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *mockVehicleRepository) Update(ctx context.Context, vehicle *cacheDomain.CachedVehicle) error {
	args := m.Called(ctx, vehicle)
	return args.Error(0)
}

func (m *mockVehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*cacheDomain.CachedVehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cacheDomain.CachedVehicle), args.Error(1)
}

func (m *mockVehicleRepository) GetByContractPlateHash(ctx context.Context, hash string) (*cacheDomain.CachedVehicle, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cacheDomain.CachedVehicle), args.Error(1)
}

func (m *mockVehicleRepository) ListIncomplete(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cacheDomain.CachedVehicle), args.Error(1)
}

func (m *mockVehicleRepository) ListMissingHashes(ctx context.Context, limit int) ([]*cacheDomain.CachedVehicle, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cacheDomain.CachedVehicle), args.Error(1)
}

func (m *mockVehicleRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVehicleRepository) CountIncomplete(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVehicleRepository) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *mockVehicleRepository) RetireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVehicleRepository) ListDuplicateHashes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockVehicleRepository) ListByContractPlateHash(ctx context.Context, hash string) ([]*cacheDomain.CachedVehicle, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cacheDomain.CachedVehicle), args.Error(1)
}

func (m *mockVehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockApprehensionRepository struct {
	mock.Mock
}

func (m *mockApprehensionRepository) Create(ctx context.Context, record *cacheDomain.ApprehensionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockApprehensionRepository) Update(ctx context.Context, record *cacheDomain.ApprehensionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockApprehensionRepository) GetByVehicleID(ctx context.Context, vehicleID uuid.UUID) (*cacheDomain.ApprehensionRecord, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cacheDomain.ApprehensionRecord), args.Error(1)
}
