package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the engine. Delivery is at-least-once; the
// event ID lets consumers deduplicate.
const (
	TypeTournamentStateChanged = "TOURNAMENT_STATE_CHANGED"
	TypeMatchFinalized         = "MATCH_FINALIZED"
	TypeRewardDistributed      = "REWARD_DISTRIBUTED"
)

type Event struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	TournamentID int         `json:"tournament_id"`
	OccurredAt   time.Time   `json:"occurred_at"`
	Payload      interface{} `json:"payload"`
}

func New(eventType string, tournamentID int, payload interface{}) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TournamentID: tournamentID,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	}
}

type TournamentStateChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MatchFinalizedPayload struct {
	SessionID int  `json:"session_id"`
	StageID   int  `json:"stage_id"`
	WinnerID  *int `json:"winner_id,omitempty"`
}

type RewardDistributedPayload struct {
	ParticipantID int `json:"participant_id"`
	Placement     int `json:"placement"`
	XPDelta       int `json:"xp_delta"`
	CreditsDelta  int `json:"credits_delta"`
}

// Publisher fans an event out to whoever listens. Publishing must not
// block the caller's transaction path.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher drops every event. Used in tests and in deployments
// without live subscribers.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
