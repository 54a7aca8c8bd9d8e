package services

import (
	"fmt"
	"sort"

	"github.com/matchpoint-academy/tournament-engine/models"
)

// ComputeStandings rebuilds the full table for a stage from its
// finalized sessions. It never reads stored aggregates: every call
// derives the same table from the same session set. Participants with
// no finalized sessions still appear with zero counters. Bye sessions
// contribute nothing.
func ComputeStandings(stage *models.Stage, sessions []*models.Session, participants []int, scoring models.Scoring) *models.StageStandings {
	scoring = scoring.OrDefault()

	byID := make(map[int]*models.Standing, len(participants))
	order := make([]int, 0, len(participants))
	for _, id := range participants {
		if _, ok := byID[id]; ok {
			continue
		}
		byID[id] = &models.Standing{ParticipantID: id}
		order = append(order, id)
	}

	incomplete := false
	// headToHead[a][b] is positive when a leads b on decided results.
	headToHead := make(map[int]map[int]int)

	for _, session := range sessions {
		if session.StageID != stage.ID || session.Status == models.SessionVoid || session.IsBye() {
			continue
		}
		if !session.Finalized || session.Result == nil {
			incomplete = true
			continue
		}
		result := session.Result
		if len(result.Placements) > 0 {
			applyPlacementResult(byID, result, scoring)
			continue
		}
		applyHeadToHeadResult(byID, headToHead, session, result, scoring)
	}

	entries := make([]models.Standing, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byID[id])
	}
	sortStandings(entries, headToHead)
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return &models.StageStandings{
		StageID:    stage.ID,
		Incomplete: incomplete,
		Entries:    entries,
	}
}

func applyHeadToHeadResult(byID map[int]*models.Standing, headToHead map[int]map[int]int, session *models.Session, result *models.MatchResult, scoring models.Scoring) {
	if session.P1ParticipantID == nil || session.P2ParticipantID == nil {
		return
	}
	p1, okP1 := byID[*session.P1ParticipantID]
	p2, okP2 := byID[*session.P2ParticipantID]
	if !okP1 || !okP2 {
		return
	}

	p1.Played++
	p2.Played++
	p1.ScoreFor += result.P1Score
	p1.ScoreAgainst += result.P2Score
	p2.ScoreFor += result.P2Score
	p2.ScoreAgainst += result.P1Score

	switch result.Outcome {
	case models.OutcomeP1Win:
		p1.Wins++
		p1.Points += scoring.Win
		p2.Losses++
		p2.Points += scoring.Loss
		recordHeadToHead(headToHead, p1.ParticipantID, p2.ParticipantID)
	case models.OutcomeP2Win:
		p2.Wins++
		p2.Points += scoring.Win
		p1.Losses++
		p1.Points += scoring.Loss
		recordHeadToHead(headToHead, p2.ParticipantID, p1.ParticipantID)
	case models.OutcomeDraw:
		p1.Draws++
		p2.Draws++
		p1.Points += scoring.Draw
		p2.Points += scoring.Draw
	}
}

// applyPlacementResult scores a ranked group result: first position
// counts as a win, every other as a loss, and the reported score feeds
// the differential.
func applyPlacementResult(byID map[int]*models.Standing, result *models.MatchResult, scoring models.Scoring) {
	total := 0
	for _, p := range result.Placements {
		total += p.Score
	}
	for _, p := range result.Placements {
		standing, ok := byID[p.ParticipantID]
		if !ok {
			continue
		}
		standing.Played++
		standing.ScoreFor += p.Score
		standing.ScoreAgainst += total - p.Score
		if p.Position == 1 {
			standing.Wins++
			standing.Points += scoring.Win
		} else {
			standing.Losses++
			standing.Points += scoring.Loss
		}
	}
}

func recordHeadToHead(headToHead map[int]map[int]int, winner, loser int) {
	if headToHead[winner] == nil {
		headToHead[winner] = make(map[int]int)
	}
	if headToHead[loser] == nil {
		headToHead[loser] = make(map[int]int)
	}
	headToHead[winner][loser]++
	headToHead[loser][winner]--
}

// sortStandings orders entries by points, then the head-to-head result
// within a two-way tie, then score differential, then participant id.
// Head-to-head only decides ties between exactly two participants;
// larger tied groups fall through to the differential.
func sortStandings(entries []models.Standing, headToHead map[int]map[int]int) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if diffA, diffB := a.ScoreDiff(), b.ScoreDiff(); diffA != diffB {
			return diffA > diffB
		}
		return a.ParticipantID < b.ParticipantID
	})

	// Resolve two-way point ties by the decided head-to-head result
	// before the differential ordering applied above.
	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) && entries[end].Points == entries[start].Points {
			end++
		}
		if end-start == 2 {
			a, b := entries[start], entries[start+1]
			if headToHead[b.ParticipantID][a.ParticipantID] > 0 {
				entries[start], entries[start+1] = b, a
			}
		}
		start = end
	}
}

// Advance selects the participants moving on from a stage. The required
// count is the field size the next stage needs; a cutoff rule that
// selects fewer is padded with the best remaining so the next bracket
// is never short. Advancement from an incomplete stage is refused.
func Advance(standings *models.StageStandings, rule models.AdvancementRule, required int) ([]int, error) {
	if standings.Incomplete {
		return nil, ErrStageNotComplete
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	entries := standings.Entries
	switch rule.Kind {
	case models.AdvanceTopN:
		n := rule.TopN
		if n > len(entries) {
			n = len(entries)
		}
		return standingIDs(entries[:n]), nil
	case models.AdvanceScoreCutoff:
		count := 0
		for _, e := range entries {
			if e.Points > rule.Cutoff {
				count++
			}
		}
		if count < required {
			count = required
		}
		if count > len(entries) {
			count = len(entries)
		}
		return standingIDs(entries[:count]), nil
	default:
		return nil, fmt.Errorf("%w: advancement rule kind %q", ErrValidationFailed, rule.Kind)
	}
}

func standingIDs(entries []models.Standing) []int {
	ids := make([]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ParticipantID
	}
	return ids
}

// KnockoutPlacements derives the final placement list of a knockout
// stage from its finalized sessions: the winner of the last round
// places first, then everyone else by the round they were eliminated
// in, with score differential and participant id breaking ties within
// a round. Bye sessions do not eliminate anyone.
func KnockoutPlacements(sessions []*models.Session) ([]models.Placement, error) {
	type elimination struct {
		participantID int
		round         int
		scoreDiff     int
	}

	lastRound := 0
	for _, s := range sessions {
		if s.Status == models.SessionVoid {
			continue
		}
		if s.Round > lastRound {
			lastRound = s.Round
		}
	}

	var winnerID *int
	eliminated := make([]elimination, 0)
	scoreDiffs := make(map[int]int)

	for _, s := range sessions {
		if s.Status == models.SessionVoid || s.IsBye() || !s.Finalized || s.Result == nil {
			continue
		}
		if s.Result.Outcome == models.OutcomeDraw {
			return nil, fmt.Errorf("%w: knockout session %d finalized as a draw", ErrDataIntegrityViolation, s.ID)
		}
		if s.P1ParticipantID != nil {
			scoreDiffs[*s.P1ParticipantID] += s.Result.P1Score - s.Result.P2Score
		}
		if s.P2ParticipantID != nil {
			scoreDiffs[*s.P2ParticipantID] += s.Result.P2Score - s.Result.P1Score
		}
	}

	for _, s := range sessions {
		if s.Status == models.SessionVoid || s.IsBye() || !s.Finalized || s.Result == nil {
			continue
		}
		winner := s.Result.WinnerID(s)
		if winner == nil {
			continue
		}
		if s.P1ParticipantID == nil || s.P2ParticipantID == nil {
			return nil, fmt.Errorf("%w: knockout session %d finalized without both participants", ErrDataIntegrityViolation, s.ID)
		}
		var loser int
		if *winner == *s.P1ParticipantID {
			loser = *s.P2ParticipantID
		} else {
			loser = *s.P1ParticipantID
		}
		eliminated = append(eliminated, elimination{
			participantID: loser,
			round:         s.Round,
			scoreDiff:     scoreDiffs[loser],
		})
		if s.Round == lastRound {
			winnerID = winner
		}
	}

	if winnerID == nil {
		return nil, fmt.Errorf("%w: knockout stage has no decided final", ErrStageNotComplete)
	}

	sort.Slice(eliminated, func(i, j int) bool {
		a, b := eliminated[i], eliminated[j]
		if a.round != b.round {
			return a.round > b.round
		}
		if a.scoreDiff != b.scoreDiff {
			return a.scoreDiff > b.scoreDiff
		}
		return a.participantID < b.participantID
	})

	placements := make([]models.Placement, 0, len(eliminated)+1)
	placements = append(placements, models.Placement{
		ParticipantID: *winnerID,
		Position:      1,
		Score:         scoreDiffs[*winnerID],
	})
	for i, e := range eliminated {
		placements = append(placements, models.Placement{
			ParticipantID: e.participantID,
			Position:      i + 2,
			Score:         e.scoreDiff,
		})
	}
	return placements, nil
}
