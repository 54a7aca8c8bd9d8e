package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sessionBetween(p1, p2 int) *Session {
	return &Session{ID: 1, P1ParticipantID: &p1, P2ParticipantID: &p2}
}

func TestValidateHeadToHead(t *testing.T) {
	session := sessionBetween(1, 2)

	tests := []struct {
		name    string
		result  MatchResult
		wantErr error
	}{
		{"p1 win", MatchResult{Outcome: OutcomeP1Win, P1Score: 6, P2Score: 3}, nil},
		{"p2 win", MatchResult{Outcome: OutcomeP2Win, P1Score: 2, P2Score: 6}, nil},
		{"draw", MatchResult{Outcome: OutcomeDraw, P1Score: 4, P2Score: 4}, nil},
		{"missing outcome", MatchResult{P1Score: 6, P2Score: 3}, ErrResultOutcomeMissing},
		{"outcome contradicts scores", MatchResult{Outcome: OutcomeP1Win, P1Score: 1, P2Score: 6}, ErrResultOutcomeConflict},
		{"draw with unequal scores", MatchResult{Outcome: OutcomeDraw, P1Score: 4, P2Score: 2}, ErrResultOutcomeConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.result.ValidateHeadToHead(session)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestValidateHeadToHeadRequiresBothParticipants(t *testing.T) {
	p2 := 5
	waiting := &Session{ID: 3, P2ParticipantID: &p2}

	result := MatchResult{Outcome: OutcomeP2Win, P2Score: 2}
	assert.ErrorIs(t, result.ValidateHeadToHead(waiting), ErrResultSessionNotReady)

	waiting.P1ParticipantID = nil
	waiting.P2ParticipantID = nil
	assert.ErrorIs(t, result.ValidateHeadToHead(waiting), ErrResultSessionNotReady)
}

func TestValidateHeadToHeadRejectsPlacements(t *testing.T) {
	result := MatchResult{
		Outcome:    OutcomeP1Win,
		P1Score:    6,
		Placements: []Placement{{ParticipantID: 1, Position: 1}},
	}
	assert.Error(t, result.ValidateHeadToHead(sessionBetween(1, 2)))
}

func TestValidatePlacements(t *testing.T) {
	participants := []int{1, 2, 3}

	ok := MatchResult{Placements: []Placement{
		{ParticipantID: 2, Position: 1, Score: 10},
		{ParticipantID: 1, Position: 2, Score: 7},
		{ParticipantID: 3, Position: 3, Score: 4},
	}}
	assert.NoError(t, ok.ValidatePlacements(participants))

	empty := MatchResult{}
	assert.ErrorIs(t, empty.ValidatePlacements(participants), ErrResultPlacementMissing)

	unknown := MatchResult{Placements: []Placement{{ParticipantID: 9, Position: 1}}}
	assert.ErrorIs(t, unknown.ValidatePlacements(participants), ErrResultUnknownEntry)

	duplicate := MatchResult{Placements: []Placement{
		{ParticipantID: 1, Position: 1},
		{ParticipantID: 1, Position: 2},
	}}
	assert.ErrorIs(t, duplicate.ValidatePlacements(participants), ErrResultDuplicateEntry)

	gap := MatchResult{Placements: []Placement{
		{ParticipantID: 1, Position: 1},
		{ParticipantID: 2, Position: 3},
	}}
	assert.Error(t, gap.ValidatePlacements(participants))

	repeatedPosition := MatchResult{Placements: []Placement{
		{ParticipantID: 1, Position: 1},
		{ParticipantID: 2, Position: 1},
	}}
	assert.Error(t, repeatedPosition.ValidatePlacements(participants))
}

func TestWinnerID(t *testing.T) {
	session := sessionBetween(4, 9)

	winner := (&MatchResult{Outcome: OutcomeP1Win}).WinnerID(session)
	assert.Equal(t, 4, *winner)

	winner = (&MatchResult{Outcome: OutcomeP2Win}).WinnerID(session)
	assert.Equal(t, 9, *winner)

	assert.Nil(t, (&MatchResult{Outcome: OutcomeDraw}).WinnerID(session))
}
