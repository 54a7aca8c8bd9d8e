package models

// Standing is a computed aggregate of one participant within a stage.
// It is derived from finalized sessions on every read and never stored
// as source of truth.
type Standing struct {
	ParticipantID int `json:"participant_id"`
	Played        int `json:"played"`
	Wins          int `json:"wins"`
	Draws         int `json:"draws"`
	Losses        int `json:"losses"`
	Points        int `json:"points"`
	ScoreFor      int `json:"score_for"`
	ScoreAgainst  int `json:"score_against"`
	Rank          int `json:"rank"`
}

func (s Standing) ScoreDiff() int {
	return s.ScoreFor - s.ScoreAgainst
}

// StageStandings is the full table for one stage. Incomplete is set when
// some sessions of the stage are not finalized yet, in which case the
// table covers the finalized subset only.
type StageStandings struct {
	StageID    int        `json:"stage_id"`
	Incomplete bool       `json:"incomplete"`
	Entries    []Standing `json:"entries"`
}
