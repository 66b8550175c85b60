package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/studio-scheduler/internal/application"
	"github.com/example/studio-scheduler/internal/persistence"
)

var errMissingLocationID = errors.New("locationId is required")

type locationService interface {
	CreateLocation(ctx context.Context, principal application.Principal, input application.LocationInput) (persistence.Location, error)
	GetLocation(ctx context.Context, principal application.Principal, id string) (persistence.Location, error)
	UpdateLocation(ctx context.Context, principal application.Principal, id string, input application.LocationInput) (persistence.Location, error)
	DeleteLocation(ctx context.Context, principal application.Principal, id string) error
	ListLocations(ctx context.Context, principal application.Principal) ([]persistence.Location, error)
}

type LocationHandler struct {
	service   locationService
	responder responder
}

func NewLocationHandler(service locationService, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{service: service, responder: newResponder(logger)}
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if id := strings.TrimSpace(r.URL.Query().Get("locationId")); id != "" {
		location, err := h.service.GetLocation(r.Context(), principal, id)
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, toLocationDTO(location))
		return
	}

	locations, err := h.service.ListLocations(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listLocationsResponse{Locations: toLocationDTOs(locations)})
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	location, err := h.service.CreateLocation(r.Context(), principal, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toLocationDTO(location))
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.LocationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingLocationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	location, err := h.service.UpdateLocation(r.Context(), principal, strings.TrimSpace(req.LocationID), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toLocationDTO(location))
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("locationId"))
	if id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingLocationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteLocation(r.Context(), principal, id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type locationRequest struct {
	LocationID          string            `json:"locationId,omitempty"`
	Name                string            `json:"name"`
	Lat                 *float64          `json:"lat,omitempty"`
	Lng                 *float64          `json:"lng,omitempty"`
	CheckInRadiusMeters *float64          `json:"checkInRadiusMeters,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
}

func (r locationRequest) toInput() application.LocationInput {
	return application.LocationInput{
		Name:                strings.TrimSpace(r.Name),
		Lat:                 r.Lat,
		Lng:                 r.Lng,
		CheckInRadiusMeters: r.CheckInRadiusMeters,
		Extra:               r.Extra,
	}
}

type locationDTO struct {
	LocationID          string            `json:"locationId"`
	Name                string            `json:"name"`
	Lat                 *float64          `json:"lat,omitempty"`
	Lng                 *float64          `json:"lng,omitempty"`
	CheckInRadiusMeters float64           `json:"checkInRadiusMeters"`
	Extra               map[string]string `json:"extra,omitempty"`
	CreatedAt           string            `json:"createdAt"`
	UpdatedAt           string            `json:"updatedAt"`
}

type listLocationsResponse struct {
	Locations []locationDTO `json:"locations"`
}

func toLocationDTO(location persistence.Location) locationDTO {
	return locationDTO{
		LocationID:          location.ID,
		Name:                location.Name,
		Lat:                 location.Lat,
		Lng:                 location.Lng,
		CheckInRadiusMeters: location.CheckInRadiusMeters,
		Extra:               location.Extra,
		CreatedAt:           formatTimestamp(location.CreatedAt),
		UpdatedAt:           formatTimestamp(location.UpdatedAt),
	}
}

func toLocationDTOs(locations []persistence.Location) []locationDTO {
	if len(locations) == 0 {
		return nil
	}
	out := make([]locationDTO, 0, len(locations))
	for _, location := range locations {
		out = append(out, toLocationDTO(location))
	}
	return out
}
