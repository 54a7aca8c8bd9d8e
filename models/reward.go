package models

import (
	"errors"
	"time"
)

// RewardBucket maps a final placement to its payout. Placement 0 is the
// catch-all bucket for every participant without a dedicated one.
type RewardBucket struct {
	Placement int `json:"placement"`
	XP        int `json:"xp"`
	Credits   int `json:"credits"`
}

// RewardPolicy is the immutable snapshot stored on the tournament at
// creation time. Later edits to the academy-wide policy never change it.
type RewardPolicy struct {
	Alpha            float64        `json:"alpha"`
	Buckets          []RewardBucket `json:"buckets"`
	DominantSkills   []string       `json:"dominant_skills"`
	SupportingSkills []string       `json:"supporting_skills"`
	DominantDelta    float64        `json:"dominant_delta"`
	SupportingDelta  float64        `json:"supporting_delta"`
}

var ErrRewardPolicyMissing = errors.New("reward policy snapshot is missing or empty")

func (p RewardPolicy) Validate() error {
	if p.Alpha <= 0 || p.Alpha > 1 {
		return errors.New("reward policy: alpha must be in (0, 1]")
	}
	if len(p.Buckets) == 0 {
		return ErrRewardPolicyMissing
	}
	return nil
}

// BucketFor returns the payout for a placement, falling back to the
// catch-all bucket.
func (p RewardPolicy) BucketFor(placement int) RewardBucket {
	var fallback RewardBucket
	for _, b := range p.Buckets {
		if b.Placement == placement {
			return b
		}
		if b.Placement == 0 {
			fallback = b
		}
	}
	return fallback
}

const BadgeChampion = "champion"

// BadgeMetadata records the context in which a badge was earned.
type BadgeMetadata struct {
	Placement         int `json:"placement"`
	TotalParticipants int `json:"total_participants"`
}

type Badge struct {
	Code     string        `json:"code"`
	Metadata BadgeMetadata `json:"metadata"`
	IconURL  *string       `json:"icon_url,omitempty"`
}

// RewardTransaction is the immutable audit record of one reward
// application. A unique constraint on (participant_id, tournament_id)
// makes re-application a no-op.
type RewardTransaction struct {
	ID            int                `json:"id" db:"id"`
	ParticipantID int                `json:"participant_id" db:"participant_id"`
	TournamentID  int                `json:"tournament_id" db:"tournament_id"`
	Placement     int                `json:"placement" db:"placement"`
	XPDelta       int                `json:"xp_delta" db:"xp_delta"`
	CreditsDelta  int                `json:"credits_delta" db:"credits_delta"`
	SkillDeltas   map[string]float64 `json:"skill_deltas" db:"skill_deltas"`
	Badges        []Badge            `json:"badges,omitempty" db:"badges"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
}
