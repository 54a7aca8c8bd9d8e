package handlers

import (
	"errors"
	"net/http"

	"github.com/matchpoint-academy/tournament-engine/middleware"
	"github.com/matchpoint-academy/tournament-engine/models"
	"github.com/matchpoint-academy/tournament-engine/repositories"
	"github.com/matchpoint-academy/tournament-engine/services"
)

type TournamentHandler struct {
	tournaments services.TournamentService
	lifecycle   services.LifecycleService
	rewards     services.RewardService
}

func NewTournamentHandler(
	tournaments services.TournamentService,
	lifecycle services.LifecycleService,
	rewards services.RewardService,
) *TournamentHandler {
	return &TournamentHandler{
		tournaments: tournaments,
		lifecycle:   lifecycle,
		rewards:     rewards,
	}
}

// Create godoc
// @Summary Create a tournament
// @Tags tournaments
// @Accept json
// @Produce json
// @Success 201 {object} models.Tournament
// @Router /tournaments [post]
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}

	var tournament models.Tournament
	if err := readJSON(w, r, &tournament); err != nil {
		badRequestResponse(w, err)
		return
	}

	created, err := h.tournaments.Create(r.Context(), actor, &tournament)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": created}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	tournament, err := h.tournaments.GetByID(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListTournamentsFilter{}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if formatStr := r.URL.Query().Get("format"); formatStr != "" {
		format := models.TournamentFormat(formatStr)
		filter.Format = &format
	}

	tournaments, err := h.tournaments.List(r.Context(), filter)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

type assignInstructorRequest struct {
	InstructorID int `json:"instructor_id"`
}

func (h *TournamentHandler) AssignInstructor(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var req assignInstructorRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	if req.InstructorID < 1 {
		badRequestResponse(w, errors.New("instructor_id is required"))
		return
	}

	if err := h.tournaments.AssignInstructor(r.Context(), actor, id, req.InstructorID); err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "instructor assigned"}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

type transitionRequest struct {
	Status models.TournamentStatus `json:"status"`
}

// Transition godoc
// @Summary Move a tournament along its status graph
// @Tags tournaments
// @Accept json
// @Produce json
// @Router /tournaments/{id}/status [post]
func (h *TournamentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var req transitionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	tournament, err := h.lifecycle.Transition(r.Context(), actor, id, req.Status)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)
	contentType := r.Header.Get("Content-Type")

	tournament, err := h.tournaments.UploadLogo(r.Context(), actor, id, contentType, r.Body)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

// DistributeRewards re-runs reward distribution for a completed
// tournament. Safe to call repeatedly: participants already rewarded
// are skipped.
func (h *TournamentHandler) DistributeRewards(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	report, err := h.rewards.Distribute(r.Context(), id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *TournamentHandler) RewardTransactions(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	transactions, err := h.rewards.Transactions(r.Context(), actor, id)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"transactions": transactions}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
