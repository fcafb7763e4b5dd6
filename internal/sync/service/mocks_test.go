package service

import (
	"context"
	"encoding/base64"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	cacheService "github.com/msiav/vehicle-cache/internal/cache/service"
	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
	cryptoDomain "github.com/msiav/vehicle-cache/internal/crypto/domain"
	cryptoService "github.com/msiav/vehicle-cache/internal/crypto/service"
	upstreamDomain "github.com/msiav/vehicle-cache/internal/upstream/domain"
)

func newTestGate(t *testing.T) *cacheService.CryptoGate {
	t.Helper()

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	dataKey, err := cryptoDomain.LoadDataKey(key)
	require.NoError(t, err)

	cipher, err := cryptoService.NewDeterministicFieldCipher(dataKey)
	require.NoError(t, err)

	return cacheService.NewCryptoGate(cipher, slog.New(slog.DiscardHandler))
}

// failingCipher simulates a cipher whose output violates the encrypted-shape
// contract.
type failingCipher struct{}

func (f *failingCipher) Encrypt(string) (string, error) { return "short", nil }
func (f *failingCipher) Decrypt(v string) (string, error) {
	return v, nil
}
func (f *failingCipher) LookupHash(string) string { return "hash" }

type mockClient struct {
	mock.Mock
}

func (m *mockClient) SearchPeriod(ctx context.Context, start, end time.Time) ([]upstreamDomain.Notification, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]upstreamDomain.Notification), args.Error(1)
}

func (m *mockClient) SearchCancelledPeriod(ctx context.Context, start, end time.Time) ([]upstreamDomain.Notification, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]upstreamDomain.Notification), args.Error(1)
}

func (m *mockClient) FetchDetail(ctx context.Context, plate string) (*upstreamDomain.VehicleDetail, error) {
	args := m.Called(ctx, plate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstreamDomain.VehicleDetail), args.Error(1)
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

type mockCacheUseCase struct {
	mock.Mock
}

func (m *mockCacheUseCase) UpdateCache(ctx context.Context, vehicles []*cacheDomain.CachedVehicle) (*cacheUseCase.UpdateResult, error) {
	args := m.Called(ctx, vehicles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cacheUseCase.UpdateResult), args.Error(1)
}

func (m *mockCacheUseCase) CleanupOld(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCacheUseCase) Deduplicate(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCacheUseCase) DeactivateByHashes(ctx context.Context, hashes []string) (int64, error) {
	args := m.Called(ctx, hashes)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCacheUseCase) Status(ctx context.Context) (*cacheUseCase.CacheStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cacheUseCase.CacheStatus), args.Error(1)
}

func (m *mockCacheUseCase) BackfillHashes(ctx context.Context, limit int) (int64, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).(int64), args.Error(1)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchCompleteVehicleData(ctx context.Context, start, end time.Time) ([]*cacheDomain.CachedVehicle, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cacheDomain.CachedVehicle), args.Error(1)
}

func (m *mockFetcher) FetchCancelledHashes(ctx context.Context, start, end time.Time) ([]string, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
