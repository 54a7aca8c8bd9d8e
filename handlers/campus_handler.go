package handlers

import (
	"net/http"

	"github.com/matchpoint-academy/tournament-engine/middleware"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/services"
)

type CampusHandler struct {
	campuses services.CampusService
}

func NewCampusHandler(campuses services.CampusService) *CampusHandler {
	return &CampusHandler{campuses: campuses}
}

// Create registers a new campus.
// @Summary      Create campus
// @Tags         campuses
// @Accept       json
// @Produce      json
// @Success      201 {object} models.Campus
// @Router       /campuses [post]
func (h *CampusHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}

	var campus models.Campus
	if err := readJSON(w, r, &campus); err != nil {
		badRequestResponse(w, err)
		return
	}

	created, err := h.campuses.Create(r.Context(), actor, &campus)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, created, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// Get returns a single campus.
// @Summary      Get campus
// @Tags         campuses
// @Produce      json
// @Success      200 {object} models.Campus
// @Router       /campuses/{id} [get]
func (h *CampusHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	campus, err := h.campuses.GetByID(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, campus, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// List returns all campuses ordered by name.
// @Summary      List campuses
// @Tags         campuses
// @Produce      json
// @Success      200 {array} models.Campus
// @Router       /campuses [get]
func (h *CampusHandler) List(w http.ResponseWriter, r *http.Request) {
	campuses, err := h.campuses.List(r.Context())
	if err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"campuses": campuses}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
