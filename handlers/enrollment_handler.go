package handlers

import (
	"net/http"

	"github.com/matchpoint-academy/tournament-engine/middleware"
	"github.com/matchpoint-academy/tournament-engine/services"
)

type EnrollmentHandler struct {
	enrollments services.EnrollmentService
}

func NewEnrollmentHandler(enrollments services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

type enrollRequest struct {
	ParticipantID int `json:"participant_id,omitempty"`
}

func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	tournamentID, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	// The body is optional: without it the actor enrolls themselves.
	participantID := actor.UserID
	if r.ContentLength > 0 {
		var req enrollRequest
		if err := readJSON(w, r, &req); err != nil {
			badRequestResponse(w, err)
			return
		}
		if req.ParticipantID > 0 {
			participantID = req.ParticipantID
		}
	}

	enrollment, err := h.enrollments.Enroll(r.Context(), actor, tournamentID, participantID)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"enrollment": enrollment}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *EnrollmentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, err.Error())
		return
	}
	enrollmentID, err := idParam(r, "enrollmentID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if err := h.enrollments.Withdraw(r.Context(), actor, enrollmentID); err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "enrollment withdrawn"}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}

func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	enrollments, err := h.enrollments.ListByTournament(r.Context(), tournamentID, activeOnly)
	if err != nil {
		mapServiceError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"enrollments": enrollments}, nil); err != nil {
		serverErrorResponse(w, err)
	}
}
