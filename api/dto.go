/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Booking:
    EntryDTO, SubmitBookingRequest, ReleaseReportDTO

  Resource:
    ResourceDTO, ShiftDTO

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the validator before touching the engine.

TIME FORMAT:
  All timestamps are RFC3339. Request bodies also accept the short
  form "2006-01-02T15:04", read in the site zone.

SEE ALSO:
  - handlers.go: Uses these types
  - booking/types.go: the domain model these map from
*/
package api

import (
	"time"

	"github.com/warp/booking-engine/booking"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SubmitBookingRequest is the request to book a resource.
type SubmitBookingRequest struct {
	Resource    string `json:"resource" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Actor       string `json:"actor,omitempty"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end" validate:"required"`
	IgnoreHolds bool   `json:"ignore_holds,omitempty"`
}

// EntryDTO represents a committed booking in API responses.
type EntryDTO struct {
	ID         string  `json:"id"`
	Resource   string  `json:"resource"`
	Subject    string  `json:"subject"`
	Actor      string  `json:"actor"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	ShiftCount float64 `json:"shift_count"`
	Charge     string  `json:"charge"`
	Policy     string  `json:"policy,omitempty"`
	Comment    string  `json:"comment,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

// ReleaseReportDTO describes a released booking.
type ReleaseReportDTO struct {
	Entry    EntryDTO `json:"entry"`
	Policy   string   `json:"policy,omitempty"`
	Override bool     `json:"override,omitempty"`
	Forced   bool     `json:"forced,omitempty"`
}

// ResourceDTO represents a bookable resource in API responses.
type ResourceDTO struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Policies []string   `json:"policies"`
	Shifts   []ShiftDTO `json:"shifts,omitempty"`
}

// ShiftDTO represents one shift of a resource's daily cycle.
type ShiftDTO struct {
	Name      string  `json:"name"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Weighting float64 `json:"weighting"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func toEntryDTO(e booking.Entry) EntryDTO {
	return EntryDTO{
		ID:         string(e.ID),
		Resource:   string(e.Resource),
		Subject:    string(e.Subject),
		Actor:      string(e.Actor),
		Start:      e.Window.Start.Format(time.RFC3339),
		End:        e.Window.End.Format(time.RFC3339),
		ShiftCount: e.ShiftCount,
		Charge:     e.Charge.String(),
		Policy:     e.Policy,
		Comment:    e.Comment,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

func toEntryDTOs(entries []booking.Entry) []EntryDTO {
	dtos := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	return dtos
}

func toResourceDTO(res booking.Resource) ResourceDTO {
	dto := ResourceDTO{
		ID:       string(res.ID),
		Name:     res.Name,
		Policies: make([]string, 0, len(res.Policies)),
	}
	for _, p := range res.Policies {
		dto.Policies = append(dto.Policies, p.Name)
	}
	for _, s := range res.Shifts {
		dto.Shifts = append(dto.Shifts, ShiftDTO{
			Name:      s.Name,
			Start:     s.Start.String(),
			End:       s.End.String(),
			Weighting: s.Weighting,
		})
	}
	return dto
}
