package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApprehensionRecord tracks the apprehension workflow of one cached vehicle.
//
// A record is created lazily on first access and updated when a diligence is
// scheduled. Status transitions are forward-only: once scheduled, re-scheduling
// moves the date but never reverts the status.
type ApprehensionRecord struct {
	// ID is the unique identifier of the record.
	ID uuid.UUID
	// VehicleID references the cached vehicle this record belongs to.
	VehicleID uuid.UUID
	// Status is the apprehension workflow status.
	Status string
	// ScheduledAt is the UTC date of the scheduled diligence, when any.
	ScheduledAt *time.Time
	// LastMovementAt mirrors the vehicle's most recent movement.
	LastMovementAt time.Time
	// CreatedAt is when the record was created.
	CreatedAt time.Time
	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time
}

// Scheduled reports whether a diligence has been scheduled. The comparison is
// case-insensitive because upstream reports the status with varying casing.
func (r *ApprehensionRecord) Scheduled() bool {
	return strings.EqualFold(r.Status, StatusScheduled)
}
