package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type AdvancementKind string

const (
	AdvanceTopN        AdvancementKind = "top_n"
	AdvanceScoreCutoff AdvancementKind = "score_cutoff"
)

// AdvancementRule selects which participants move on from a stage. Kind
// determines which of the parameter fields is meaningful; the JSON form
// is stored verbatim on the stage row.
type AdvancementRule struct {
	Kind   AdvancementKind `json:"kind"`
	TopN   int             `json:"top_n,omitempty"`
	Cutoff int             `json:"cutoff,omitempty"`
}

func (r AdvancementRule) Validate() error {
	switch r.Kind {
	case AdvanceTopN:
		if r.TopN < 1 {
			return errors.New("advancement rule: top_n must be at least 1")
		}
	case AdvanceScoreCutoff:
		if r.Cutoff < 0 {
			return errors.New("advancement rule: cutoff must not be negative")
		}
	case "":
		// Final stages carry no rule.
	default:
		return fmt.Errorf("advancement rule: unknown kind %q", r.Kind)
	}
	return nil
}

// Stage is one phase of a tournament. Round-robin, knockout and swiss
// tournaments have a single stage; group+knockout has two, with the
// group stage carrying the advancement rule into the knockout.
type Stage struct {
	ID           int              `json:"id" db:"id"`
	TournamentID int              `json:"tournament_id" db:"tournament_id"`
	Index        int              `json:"index" db:"stage_index"`
	Format       TournamentFormat `json:"format" db:"format"`
	Advancement  AdvancementRule  `json:"advancement" db:"advancement"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// AdvancementJSON round-trips the rule for the advancement JSONB column.
func (s *Stage) AdvancementJSON() ([]byte, error) {
	return json.Marshal(s.Advancement)
}

func (s *Stage) SetAdvancementJSON(raw []byte) error {
	if len(raw) == 0 {
		s.Advancement = AdvancementRule{}
		return nil
	}
	return json.Unmarshal(raw, &s.Advancement)
}
