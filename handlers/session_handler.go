package handlers

import (
	"net/http"

	"github.com/matchpoint-academy/tournament-engine/middleware"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/services"
)

type SessionHandler struct {
	results services.ResultsService
}

func NewSessionHandler(results services.ResultsService) *SessionHandler {
	return &SessionHandler{results: results}
}

// SubmitResult godoc
// @Summary Submit a match result
// @Tags sessions
// @Accept json
// @Produce json
// @Router /sessions/{id}/result [post]
func (h *SessionHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	sessionID, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var result models.MatchResult
	if err := readJSON(w, r, &result); err != nil {
		badRequestResponse(w, err)
		return
	}

	session, err := h.results.SubmitResult(r.Context(), actor, sessionID, &result)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// FinalizeStage godoc
// @Summary Finalize a stage and trigger its continuation
// @Tags stages
// @Produce json
// @Param stageID path int true "Stage ID"
// @Success 200 {object} jsonResponse
// @Router /stages/{stageID}/finalize [post]
func (h *SessionHandler) FinalizeStage(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, "authentication required")
		return
	}
	stageID, err := idParam(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.results.FinalizeStage(r.Context(), actor, stageID); err != nil {
		mapServiceError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stage_id": stageID, "finalized": true}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *SessionHandler) StageStandings(w http.ResponseWriter, r *http.Request) {
	stageID, err := idParam(r, "stageID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	standings, err := h.results.StageStandings(r.Context(), stageID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
