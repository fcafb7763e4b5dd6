package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	"github.com/msiav/vehicle-cache/internal/cache/http/dto"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
)

type mockQueryResultUseCase struct {
	mock.Mock
}

func (m *mockQueryResultUseCase) GetOrCreate(ctx context.Context, vehicleID uuid.UUID) (*cacheDomain.ApprehensionRecord, error) {
	args := m.Called(ctx, vehicleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cacheDomain.ApprehensionRecord), args.Error(1)
}

func (m *mockQueryResultUseCase) Schedule(ctx context.Context, vehicleID uuid.UUID, scheduledAt time.Time) (*cacheDomain.ApprehensionRecord, error) {
	args := m.Called(ctx, vehicleID, scheduledAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cacheDomain.ApprehensionRecord), args.Error(1)
}

func setupTestHandler(t *testing.T) (*VehicleHandler, *mockQueryResultUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	useCase := &mockQueryResultUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewVehicleHandler(useCase, logger), useCase
}

func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func TestVehicleHandler_QueryResultHandler(t *testing.T) {
	t.Run("Success_ExistingRecord", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		vehicleID := uuid.Must(uuid.NewV7())
		recordID := uuid.Must(uuid.NewV7())
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		record := &cacheDomain.ApprehensionRecord{
			ID:             recordID,
			VehicleID:      vehicleID,
			Status:         cacheDomain.StatusAwaitingScheduling,
			LastMovementAt: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		useCase.On("GetOrCreate", mock.Anything, vehicleID).Return(record, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/vehicles/"+vehicleID.String()+"/query-result", nil)
		c.Params = gin.Params{{Key: "id", Value: vehicleID.String()}}

		handler.QueryResultHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ApprehensionRecordResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, recordID.String(), response.ID)
		assert.Equal(t, vehicleID.String(), response.VehicleID)
		assert.Equal(t, cacheDomain.StatusAwaitingScheduling, response.Status)
		assert.Nil(t, response.ScheduledAt)
		useCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidVehicleID", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/vehicles/not-a-uuid/query-result", nil)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

		handler.QueryResultHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
	})

	t.Run("Error_UnknownVehicle", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		vehicleID := uuid.Must(uuid.NewV7())
		useCase.On("GetOrCreate", mock.Anything, vehicleID).
			Return(nil, apperrors.Wrap(apperrors.ErrNotFound, "vehicle")).
			Once()

		c, w := createTestContext(http.MethodGet, "/v1/vehicles/"+vehicleID.String()+"/query-result", nil)
		c.Params = gin.Params{{Key: "id", Value: vehicleID.String()}}

		handler.QueryResultHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		useCase.AssertExpectations(t)
	})
}

func TestVehicleHandler_ScheduleHandler(t *testing.T) {
	t.Run("Success_SchedulesAppointment", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		vehicleID := uuid.Must(uuid.NewV7())
		scheduledAt := time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		record := &cacheDomain.ApprehensionRecord{
			ID:             uuid.Must(uuid.NewV7()),
			VehicleID:      vehicleID,
			Status:         cacheDomain.StatusScheduled,
			ScheduledAt:    &scheduledAt,
			LastMovementAt: now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		useCase.On("Schedule", mock.Anything, vehicleID, scheduledAt).Return(record, nil).Once()

		request := dto.ScheduleApprehensionRequest{ScheduledAt: "2025-06-10T14:30:00Z"}
		c, w := createTestContext(http.MethodPost, "/v1/vehicles/"+vehicleID.String()+"/apprehension", request)
		c.Params = gin.Params{{Key: "id", Value: vehicleID.String()}}

		handler.ScheduleHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ApprehensionRecordResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		require.NoError(t, err)
		assert.Equal(t, cacheDomain.StatusScheduled, response.Status)
		require.NotNil(t, response.ScheduledAt)
		assert.True(t, scheduledAt.Equal(*response.ScheduledAt))
		useCase.AssertExpectations(t)
	})

	t.Run("Success_OffsetTimeNormalizedToUTC", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		vehicleID := uuid.Must(uuid.NewV7())
		// 14:30 at -03:00 is 17:30 UTC.
		expected := time.Date(2025, 6, 10, 17, 30, 0, 0, time.UTC)

		record := &cacheDomain.ApprehensionRecord{
			ID:          uuid.Must(uuid.NewV7()),
			VehicleID:   vehicleID,
			Status:      cacheDomain.StatusScheduled,
			ScheduledAt: &expected,
		}

		useCase.On("Schedule", mock.Anything, vehicleID, expected).Return(record, nil).Once()

		request := dto.ScheduleApprehensionRequest{ScheduledAt: "2025-06-10T14:30:00-03:00"}
		c, w := createTestContext(http.MethodPost, "/v1/vehicles/"+vehicleID.String()+"/apprehension", request)
		c.Params = gin.Params{{Key: "id", Value: vehicleID.String()}}

		handler.ScheduleHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		useCase.AssertExpectations(t)
	})

	t.Run("Error_MissingScheduledAt", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		vehicleID := uuid.Must(uuid.NewV7())
		request := dto.ScheduleApprehensionRequest{}
		c, w := createTestContext(http.MethodPost, "/v1/vehicles/"+vehicleID.String()+"/apprehension", request)
		c.Params = gin.Params{{Key: "id", Value: vehicleID.String()}}

		handler.ScheduleHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_MalformedTimestamp", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		vehicleID := uuid.Must(uuid.NewV7())
		request := dto.ScheduleApprehensionRequest{ScheduledAt: "10/06/2025 14:30"}
		c, w := createTestContext(http.MethodPost, "/v1/vehicles/"+vehicleID.String()+"/apprehension", request)
		c.Params = gin.Params{{Key: "id", Value: vehicleID.String()}}

		handler.ScheduleHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidVehicleID", func(t *testing.T) {
		handler, useCase := setupTestHandler(t)

		request := dto.ScheduleApprehensionRequest{ScheduledAt: "2025-06-10T14:30:00Z"}
		c, w := createTestContext(http.MethodPost, "/v1/vehicles/42/apprehension", request)
		c.Params = gin.Params{{Key: "id", Value: "42"}}

		handler.ScheduleHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything, mock.Anything)
	})
}
