// Package dto provides data transfer objects for vehicle HTTP request and
// response handling.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	customValidation "github.com/msiav/vehicle-cache/internal/validation"
)

// ScheduleApprehensionRequest contains the parameters for scheduling a
// diligence appointment on a vehicle.
type ScheduleApprehensionRequest struct {
	ScheduledAt string `json:"scheduled_at" binding:"required"`
}

// Validate checks if the schedule request is valid.
func (r *ScheduleApprehensionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ScheduledAt,
			validation.Required,
			customValidation.NotBlank,
			validation.Date(time.RFC3339),
		),
	)
}

// ScheduledTime returns the parsed appointment time in UTC.
// Call only after Validate has succeeded.
func (r *ScheduleApprehensionRequest) ScheduledTime() (time.Time, error) {
	scheduledAt, err := time.Parse(time.RFC3339, r.ScheduledAt)
	if err != nil {
		return time.Time{}, err
	}
	return scheduledAt.UTC(), nil
}
