package dto

import (
	"time"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
)

// ApprehensionRecordResponse represents a per-vehicle apprehension record
// in API responses.
type ApprehensionRecordResponse struct {
	ID             string     `json:"id"`
	VehicleID      string     `json:"vehicle_id"`
	Status         string     `json:"status"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	LastMovementAt time.Time  `json:"last_movement_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MapApprehensionRecordToResponse converts a domain record to an API response.
func MapApprehensionRecordToResponse(record *cacheDomain.ApprehensionRecord) ApprehensionRecordResponse {
	return ApprehensionRecordResponse{
		ID:             record.ID.String(),
		VehicleID:      record.VehicleID.String(),
		Status:         record.Status,
		ScheduledAt:    record.ScheduledAt,
		LastMovementAt: record.LastMovementAt,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}
