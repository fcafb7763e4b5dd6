// Package dto provides data transfer objects for sync HTTP request and
// response handling.
package dto

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
)

// RunEnrichmentRequest contains the parameters for a manual enrichment pass.
// When IDs is non-empty the listed vehicles are enriched in the background
// and Limit is ignored.
type RunEnrichmentRequest struct {
	Limit int         `json:"limit"`
	IDs   []uuid.UUID `json:"ids"`
}

// Validate checks if the enrichment request is valid.
func (r *RunEnrichmentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Limit,
			validation.Min(0),
			validation.Max(1000),
		),
		validation.Field(&r.IDs,
			validation.Length(0, 100),
		),
	)
}
