package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyEMA(t *testing.T) {
	profile := &SkillProfile{Value: 60}

	delta := profile.ApplyEMA(80, 0.25)
	assert.InDelta(t, 65, profile.Value, 1e-9)
	assert.InDelta(t, 5, delta, 1e-9)
	assert.InDelta(t, 60, profile.PrevValue, 1e-9)

	// A second update blends from the new value, not the original.
	profile.ApplyEMA(80, 0.25)
	assert.InDelta(t, 68.75, profile.Value, 1e-9)
	assert.InDelta(t, 65, profile.PrevValue, 1e-9)
}

func TestApplyEMAClampsToBounds(t *testing.T) {
	low := &SkillProfile{Value: 42}
	low.ApplyEMA(0, 1)
	assert.Equal(t, SkillFloor, low.Value)

	high := &SkillProfile{Value: 98}
	high.ApplyEMA(200, 1)
	assert.Equal(t, SkillCeiling, high.Value)
}

func TestClampSkill(t *testing.T) {
	assert.Equal(t, SkillFloor, ClampSkill(12))
	assert.Equal(t, SkillCeiling, ClampSkill(150))
	assert.Equal(t, 73.5, ClampSkill(73.5))
}

func TestRewardPolicyValidate(t *testing.T) {
	policy := RewardPolicy{
		Alpha:   0.3,
		Buckets: []RewardBucket{{Placement: 1, XP: 100}},
	}
	assert.NoError(t, policy.Validate())

	policy.Alpha = 0
	assert.Error(t, policy.Validate())

	policy.Alpha = 1.5
	assert.Error(t, policy.Validate())

	policy.Alpha = 0.3
	policy.Buckets = nil
	assert.ErrorIs(t, policy.Validate(), ErrRewardPolicyMissing)
}

func TestBucketForFallsBackToCatchAll(t *testing.T) {
	policy := RewardPolicy{
		Buckets: []RewardBucket{
			{Placement: 1, XP: 100, Credits: 50},
			{Placement: 2, XP: 60, Credits: 25},
			{Placement: 0, XP: 20, Credits: 5},
		},
	}

	assert.Equal(t, 100, policy.BucketFor(1).XP)
	assert.Equal(t, 60, policy.BucketFor(2).XP)
	assert.Equal(t, 20, policy.BucketFor(7).XP)

	noFallback := RewardPolicy{Buckets: []RewardBucket{{Placement: 1, XP: 100}}}
	assert.Zero(t, noFallback.BucketFor(5).XP)
}
