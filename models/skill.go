package models

import "time"

// Skill rating bounds. Every EMA update is clamped into this range.
const (
	SkillFloor   = 40.0
	SkillCeiling = 99.0
)

// SkillProfile is a participant's rating for one skill, keyed by
// (participant, skill). PrevValue is persisted explicitly so EMA
// continuity survives non-consecutive tournaments.
type SkillProfile struct {
	ID            int       `json:"id" db:"id"`
	ParticipantID int       `json:"participant_id" db:"participant_id"`
	Skill         string    `json:"skill" db:"skill"`
	Value         float64   `json:"value" db:"value"`
	PrevValue     float64   `json:"prev_value" db:"prev_value"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ApplyEMA blends the observed performance into the rating and clamps
// the outcome. Returns the delta actually applied.
func (p *SkillProfile) ApplyEMA(observed, alpha float64) float64 {
	p.PrevValue = p.Value
	next := p.Value*(1-alpha) + observed*alpha
	p.Value = ClampSkill(next)
	return p.Value - p.PrevValue
}

func ClampSkill(v float64) float64 {
	if v < SkillFloor {
		return SkillFloor
	}
	if v > SkillCeiling {
		return SkillCeiling
	}
	return v
}
