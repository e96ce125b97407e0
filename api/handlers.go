/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Bookings:
    POST   /api/bookings               Submit a booking
    GET    /api/bookings/{id}          Get one booking
    DELETE /api/bookings/{id}          Release a booking (?force=true)

  Resources:
    GET    /api/resources                    List bookable resources
    GET    /api/resources/{id}/bookings      Bookings in a window (?from=&to=)
    GET    /api/resources/{id}/shifts        The resource's shift cycle

  Health:
    GET    /api/healthz

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: validation, resolution and commit
  - Store: read access for listing endpoints
  - validate: request body validation

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status; engine
  rejections map onto statuses in writeEngineError:
  - 400: Validation errors, invalid input
  - 403: Held subject, no applicable policy
  - 404: Unknown booking or resource
  - 409: Window overlaps an existing booking
  - 422: Window fails basic validity
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  The actor field in booking requests is trusted as given.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - booking/engine.go: Submit and Release semantics
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/booking-engine/booking"
)

// Handler holds the API dependencies.
type Handler struct {
	Engine *booking.Engine
	Store  booking.EntryStore

	validate *validator.Validate
}

// NewHandler creates a new API handler.
func NewHandler(engine *booking.Engine, store booking.EntryStore) *Handler {
	return &Handler{
		Engine:   engine,
		Store:    store,
		validate: validator.New(),
	}
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// SubmitBooking validates, resolves and commits a booking.
// POST /api/bookings
func (h *Handler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req SubmitBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields", err)
		return
	}

	start, err := h.parseTime(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	end, err := h.parseTime(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end time", err)
		return
	}

	entry, err := h.Engine.Submit(r.Context(), booking.Request{
		Resource:    booking.ResourceID(req.Resource),
		Subject:     booking.UserID(req.Subject),
		Actor:       booking.UserID(req.Actor),
		Window:      booking.Window{Start: start, End: end},
		IgnoreHolds: req.IgnoreHolds,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// GetBooking returns one committed booking.
// GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.EntryID(chi.URLParam(r, "id"))

	entry, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// ReleaseBooking removes a committed booking.
// DELETE /api/bookings/{id}?force=true
func (h *Handler) ReleaseBooking(w http.ResponseWriter, r *http.Request) {
	id := booking.EntryID(chi.URLParam(r, "id"))
	force := r.URL.Query().Get("force") == "true"

	report, err := h.Engine.Release(r.Context(), id, force)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ReleaseReportDTO{
		Entry:    toEntryDTO(report.Entry),
		Policy:   report.Policy,
		Override: report.Override,
		Forced:   report.Forced,
	})
}

// =============================================================================
// RESOURCE HANDLERS
// =============================================================================

// ListResources returns all bookable resources.
// GET /api/resources
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources := h.Engine.Resources()

	dtos := make([]ResourceDTO, 0, len(resources))
	for _, res := range resources {
		dtos = append(dtos, toResourceDTO(res))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// ListResourceBookings returns the resource's bookings intersecting a
// window, defaulting to the next 30 days.
// GET /api/resources/{id}/bookings?from=2026-08-01T00:00:00Z&to=...
func (h *Handler) ListResourceBookings(w http.ResponseWriter, r *http.Request) {
	id := booking.ResourceID(chi.URLParam(r, "id"))
	if _, ok := h.Engine.Resource(id); !ok {
		writeError(w, http.StatusNotFound, "Unknown resource", nil)
		return
	}

	now := time.Now().In(h.Engine.Zone())
	window := booking.Window{Start: now, End: now.AddDate(0, 0, 30)}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := h.parseTime(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from time", err)
			return
		}
		window.Start = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := h.parseTime(to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to time", err)
			return
		}
		window.End = t
	}
	if !window.IsValid() {
		writeError(w, http.StatusBadRequest, "Window start must precede end", nil)
		return
	}

	entries, err := h.Store.ByResource(r.Context(), id, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// GetShifts returns the resource's daily shift cycle.
// GET /api/resources/{id}/shifts
func (h *Handler) GetShifts(w http.ResponseWriter, r *http.Request) {
	id := booking.ResourceID(chi.URLParam(r, "id"))
	res, ok := h.Engine.Resource(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown resource", nil)
		return
	}

	writeJSON(w, http.StatusOK, toResourceDTO(res).Shifts)
}

// Healthz reports process liveness.
// GET /api/healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseTime accepts RFC3339 or the short local form used by UIs.
func (h *Handler) parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", s, h.Engine.Zone())
}

// writeEngineError maps the booking error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrOverlap):
		writeEngineRejection(w, http.StatusConflict, "overlap", err)
	case errors.Is(err, booking.ErrUserHeld):
		writeEngineRejection(w, http.StatusForbidden, "user_held", err)
	case errors.Is(err, booking.ErrAdminHeld):
		writeEngineRejection(w, http.StatusForbidden, "admin_held", err)
	case errors.Is(err, booking.ErrPolicyNotFound):
		writeEngineRejection(w, http.StatusForbidden, "policy_not_found", err)
	case errors.Is(err, booking.ErrInvalidWindow):
		writeEngineRejection(w, http.StatusUnprocessableEntity, "invalid_window", err)
	case booking.IsNotFound(err):
		writeEngineRejection(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeEngineRejection(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
