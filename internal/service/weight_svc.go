package service

import "github.com/redstone-squid/Redstone-Squid/internal/model"

// Base vote weights by member standing. Staff opinions count triple;
// everyone else casts a unit vote. Shadowbanned members still "vote" but
// carry no weight.
const (
	BaseWeightStaff        = 3.0
	BaseWeightRegular      = 1.0
	BaseWeightShadowbanned = 0.0
)

// Voter describes what the weight calculation needs to know about a member.
// The calling layer fills this from Discord roles and server settings.
type Voter struct {
	IsStaff        bool
	IsTrusted      bool
	IsShadowbanned bool
}

// WeightService derives the signed weight of a ballot from the voter's
// standing and the chosen emoji's multiplier. It is the "calling layer"
// policy the vote engine deliberately does not own.
type WeightService struct{}

func NewWeightService() *WeightService {
	return &WeightService{}
}

// BaseWeight returns the unsigned weight a voter contributes.
func (s *WeightService) BaseWeight(v Voter) float64 {
	if v.IsShadowbanned {
		return BaseWeightShadowbanned
	}
	if v.IsStaff {
		return BaseWeightStaff
	}
	return BaseWeightRegular
}

// EffectiveWeight combines the voter's base weight with the emoji's
// declared multiplier (negative for deny options).
func (s *WeightService) EffectiveWeight(v Voter, emojiMultiplier float64) float64 {
	return s.BaseWeight(v) * emojiMultiplier
}

// ToggleWeight implements the reaction semantics: reacting with the same
// option you already voted for withdraws the vote (weight 0); anything else
// replaces it.
func (s *WeightService) ToggleWeight(currentWeight float64, hasVoted bool, proposed float64) float64 {
	if hasVoted && currentWeight == proposed {
		return 0
	}
	return proposed
}

// CanVote reports whether a voter may participate in a delete-log session,
// which is restricted to trusted members and staff.
func (s *WeightService) CanVote(v Voter, sessionKind string) bool {
	if v.IsShadowbanned {
		return false
	}
	if sessionKind == model.VoteKindDeleteLog {
		return v.IsTrusted || v.IsStaff
	}
	return true
}
