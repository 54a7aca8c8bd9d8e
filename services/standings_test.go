package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-academy/tournament-engine/models"
)

func intPtrOf(v int) *int { return &v }

func finalizedSession(id, stageID, round int, p1, p2 int, outcome models.Outcome, s1, s2 int) *models.Session {
	return &models.Session{
		ID:              id,
		StageID:         stageID,
		Round:           round,
		P1ParticipantID: intPtrOf(p1),
		P2ParticipantID: intPtrOf(p2),
		Status:          models.SessionCompleted,
		Finalized:       true,
		Result: &models.MatchResult{
			Outcome: outcome,
			P1Score: s1,
			P2Score: s2,
		},
	}
}

func TestComputeStandingsPointsAndDifferential(t *testing.T) {
	stage := &models.Stage{ID: 10}
	sessions := []*models.Session{
		finalizedSession(1, 10, 1, 1, 2, models.OutcomeP1Win, 6, 2),
		finalizedSession(2, 10, 1, 3, 4, models.OutcomeDraw, 3, 3),
		finalizedSession(3, 10, 2, 1, 3, models.OutcomeP1Win, 6, 4),
		finalizedSession(4, 10, 2, 2, 4, models.OutcomeP2Win, 1, 5),
	}

	standings := ComputeStandings(stage, sessions, []int{1, 2, 3, 4}, models.Scoring{})
	require.False(t, standings.Incomplete)
	require.Len(t, standings.Entries, 4)

	byID := make(map[int]models.Standing)
	for _, e := range standings.Entries {
		byID[e.ParticipantID] = e
	}

	assert.Equal(t, 6, byID[1].Points)
	assert.Equal(t, 2, byID[1].Wins)
	assert.Equal(t, 6, byID[1].ScoreDiff())
	assert.Equal(t, 4, byID[4].Points)
	assert.Equal(t, 1, byID[3].Points)
	assert.Equal(t, 0, byID[2].Points)

	assert.Equal(t, 1, byID[1].Rank)
	assert.Equal(t, 2, byID[4].Rank)
	assert.Equal(t, 3, byID[3].Rank)
	assert.Equal(t, 4, byID[2].Rank)
}

func TestComputeStandingsTwoWayTieUsesHeadToHead(t *testing.T) {
	stage := &models.Stage{ID: 1}
	// Participants 1 and 2 finish level on points. 2 beat 1 directly
	// but carries the worse differential.
	sessions := []*models.Session{
		finalizedSession(1, 1, 1, 2, 1, models.OutcomeP1Win, 5, 4),
		finalizedSession(2, 1, 2, 1, 3, models.OutcomeP1Win, 9, 0),
		finalizedSession(3, 1, 2, 2, 4, models.OutcomeP2Win, 0, 2),
		finalizedSession(4, 1, 3, 4, 3, models.OutcomeP1Win, 1, 0),
	}

	standings := ComputeStandings(stage, sessions, []int{1, 2, 3, 4}, models.Scoring{})
	require.Len(t, standings.Entries, 4)
	assert.Equal(t, []int{4, 2, 1, 3}, standingIDs(standings.Entries), "head-to-head winner ranks first despite worse differential")
}

func TestComputeStandingsThreeWayTieFallsBackToDifferential(t *testing.T) {
	stage := &models.Stage{ID: 1}
	// A beats B, B beats C, C beats A. Same points, circular
	// head-to-head, so differential decides.
	sessions := []*models.Session{
		finalizedSession(1, 1, 1, 1, 2, models.OutcomeP1Win, 8, 1),
		finalizedSession(2, 1, 2, 2, 3, models.OutcomeP1Win, 3, 2),
		finalizedSession(3, 1, 3, 3, 1, models.OutcomeP1Win, 4, 3),
	}

	standings := ComputeStandings(stage, sessions, []int{1, 2, 3}, models.Scoring{})
	require.Len(t, standings.Entries, 3)
	assert.Equal(t, []int{1, 3, 2}, standingIDs(standings.Entries))
}

func TestComputeStandingsIncompleteAndSkips(t *testing.T) {
	stage := &models.Stage{ID: 7}
	unplayed := &models.Session{
		ID: 3, StageID: 7, Round: 2,
		P1ParticipantID: intPtrOf(1), P2ParticipantID: intPtrOf(2),
		Status: models.SessionScheduled,
	}
	void := finalizedSession(4, 7, 1, 1, 2, models.OutcomeP1Win, 9, 0)
	void.Status = models.SessionVoid
	bye := &models.Session{
		ID: 5, StageID: 7, Round: 1,
		P1ParticipantID: intPtrOf(2),
		Status:          models.SessionCompleted,
	}
	otherStage := finalizedSession(6, 99, 1, 1, 2, models.OutcomeP2Win, 0, 5)

	standings := ComputeStandings(stage, []*models.Session{unplayed, void, bye, otherStage}, []int{1, 2}, models.Scoring{})
	assert.True(t, standings.Incomplete)
	require.Len(t, standings.Entries, 2)
	for _, e := range standings.Entries {
		assert.Zero(t, e.Played, "participant %d", e.ParticipantID)
		assert.Zero(t, e.Points, "participant %d", e.ParticipantID)
	}
}

func TestComputeStandingsPlacementResult(t *testing.T) {
	stage := &models.Stage{ID: 3}
	group := 0
	session := &models.Session{
		ID: 1, StageID: 3, Round: 1, GroupIndex: &group,
		Status: models.SessionCompleted, Finalized: true,
		Result: &models.MatchResult{
			Placements: []models.Placement{
				{ParticipantID: 1, Position: 2, Score: 12},
				{ParticipantID: 2, Position: 1, Score: 20},
				{ParticipantID: 3, Position: 3, Score: 8},
			},
		},
	}

	standings := ComputeStandings(stage, []*models.Session{session}, []int{1, 2, 3}, models.Scoring{})
	require.False(t, standings.Incomplete)
	assert.Equal(t, []int{2, 1, 3}, standingIDs(standings.Entries))

	first := standings.Entries[0]
	assert.Equal(t, 3, first.Points)
	assert.Equal(t, 1, first.Wins)
	assert.Equal(t, 20-(12+8), first.ScoreDiff())

	second := standings.Entries[1]
	assert.Equal(t, 0, second.Points)
	assert.Equal(t, 1, second.Losses)
}

func TestComputeStandingsDeterministic(t *testing.T) {
	stage := &models.Stage{ID: 1}
	sessions := []*models.Session{
		finalizedSession(1, 1, 1, 1, 2, models.OutcomeDraw, 2, 2),
		finalizedSession(2, 1, 1, 3, 4, models.OutcomeDraw, 1, 1),
	}

	first := ComputeStandings(stage, sessions, []int{4, 3, 2, 1}, models.Scoring{})
	for range 10 {
		again := ComputeStandings(stage, sessions, []int{4, 3, 2, 1}, models.Scoring{})
		assert.Equal(t, first, again)
	}
	// Everybody level on points and differential, so ids decide.
	assert.Equal(t, []int{1, 2, 3, 4}, standingIDs(first.Entries))
}

func TestAdvanceTopN(t *testing.T) {
	standings := &models.StageStandings{
		Entries: []models.Standing{
			{ParticipantID: 5, Points: 9},
			{ParticipantID: 2, Points: 6},
			{ParticipantID: 8, Points: 3},
			{ParticipantID: 1, Points: 0},
		},
	}

	ids, err := Advance(standings, models.AdvancementRule{Kind: models.AdvanceTopN, TopN: 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2}, ids)
}

func TestAdvanceCutoffPadsToRequired(t *testing.T) {
	standings := &models.StageStandings{
		Entries: []models.Standing{
			{ParticipantID: 5, Points: 9},
			{ParticipantID: 2, Points: 4},
			{ParticipantID: 8, Points: 3},
			{ParticipantID: 1, Points: 0},
		},
	}
	rule := models.AdvancementRule{Kind: models.AdvanceScoreCutoff, Cutoff: 6}

	// Only one participant clears the cutoff; the field is padded with
	// the best remaining to fill the next stage.
	ids, err := Advance(standings, rule, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2, 8, 1}, ids)

	ids, err = Advance(standings, rule, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 2}, ids)
}

func TestAdvanceRefusesIncompleteStage(t *testing.T) {
	standings := &models.StageStandings{
		Incomplete: true,
		Entries:    []models.Standing{{ParticipantID: 1}},
	}
	_, err := Advance(standings, models.AdvancementRule{Kind: models.AdvanceTopN, TopN: 1}, 1)
	assert.ErrorIs(t, err, ErrStageNotComplete)
}

func TestAdvanceRejectsInvalidRule(t *testing.T) {
	standings := &models.StageStandings{Entries: []models.Standing{{ParticipantID: 1}}}
	_, err := Advance(standings, models.AdvancementRule{Kind: models.AdvanceTopN}, 1)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestKnockoutPlacements(t *testing.T) {
	sessions := []*models.Session{
		// Semifinals.
		finalizedSession(1, 1, 1, 1, 4, models.OutcomeP1Win, 6, 3),
		finalizedSession(2, 1, 1, 2, 3, models.OutcomeP2Win, 2, 6),
		// Final.
		finalizedSession(3, 1, 2, 1, 3, models.OutcomeP2Win, 4, 6),
	}

	placements, err := KnockoutPlacements(sessions)
	require.NoError(t, err)
	require.Len(t, placements, 4)

	assert.Equal(t, 3, placements[0].ParticipantID)
	assert.Equal(t, 1, placements[0].Position)
	assert.Equal(t, 1, placements[1].ParticipantID, "losing finalist places second")
	// Semifinal losers ordered by differential.
	assert.Equal(t, 4, placements[2].ParticipantID)
	assert.Equal(t, 2, placements[3].ParticipantID)
}

func TestKnockoutPlacementsRejectsDraw(t *testing.T) {
	sessions := []*models.Session{
		finalizedSession(1, 1, 1, 1, 2, models.OutcomeDraw, 3, 3),
	}
	_, err := KnockoutPlacements(sessions)
	assert.ErrorIs(t, err, ErrDataIntegrityViolation)
}

func TestKnockoutPlacementsRejectsMissingParticipant(t *testing.T) {
	sessions := []*models.Session{
		{
			ID: 1, StageID: 1, Round: 2,
			P2ParticipantID: intPtrOf(5),
			Status:          models.SessionCompleted,
			Finalized:       true,
			Result:          &models.MatchResult{Outcome: models.OutcomeP2Win, P2Score: 2},
		},
	}
	_, err := KnockoutPlacements(sessions)
	assert.ErrorIs(t, err, ErrDataIntegrityViolation)
}

func TestKnockoutPlacementsUndecidedFinal(t *testing.T) {
	sessions := []*models.Session{
		finalizedSession(1, 1, 1, 1, 4, models.OutcomeP1Win, 6, 3),
		{
			ID: 2, StageID: 1, Round: 2,
			P1ParticipantID: intPtrOf(1),
			Status:          models.SessionScheduled,
		},
	}
	_, err := KnockoutPlacements(sessions)
	assert.ErrorIs(t, err, ErrStageNotComplete)
}
