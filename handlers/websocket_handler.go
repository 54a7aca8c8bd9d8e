package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/matchpoint-academy/tournament-engine/events"
	"github.com/matchpoint-academy/tournament-engine/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the academy frontend origin once it is deployed.
		return true
	},
}

type WebSocketHandler struct {
	hub         *events.Hub
	tournaments services.TournamentService
	logger      *slog.Logger
}

func NewWebSocketHandler(hub *events.Hub, tournaments services.TournamentService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		tournaments: tournaments,
		logger:      logger,
	}
}

// ServeWs subscribes the caller to one tournament's event stream.
// Clients connect to /ws/tournaments/{id} and receive events as JSON
// frames; anything they send is ignored.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "id")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	if _, err := h.tournaments.GetByID(r.Context(), tournamentID); err != nil {
		mapServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error to the client.
		h.logger.Warn("websocket upgrade failed",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err),
		)
		return
	}

	client := events.NewClient(h.hub, conn, events.RoomForTournament(tournamentID))
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
