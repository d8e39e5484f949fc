package valueobject

import "fmt"

// RiskTier is an immutable value object representing the recommendation tier
// derived from an overall risk score.
type RiskTier struct {
	value string
}

var (
	TierSafe    = RiskTier{value: "SAFE"}
	TierCaution = RiskTier{value: "CAUTION"}
	TierDanger  = RiskTier{value: "DANGER"}
)

// RiskTierFromString reconstructs a RiskTier from its string representation.
func RiskTierFromString(s string) (RiskTier, error) {
	switch s {
	case "SAFE":
		return TierSafe, nil
	case "CAUTION":
		return TierCaution, nil
	case "DANGER":
		return TierDanger, nil
	default:
		return RiskTier{}, fmt.Errorf("invalid risk tier: %s", s)
	}
}

// RiskTierFromScore derives the tier from a numeric score (0-100) using the
// given tier thresholds. The tier is a pure function of the score.
func RiskTierFromScore(score, cautionAt, dangerAt int) RiskTier {
	switch {
	case score >= dangerAt:
		return TierDanger
	case score >= cautionAt:
		return TierCaution
	default:
		return TierSafe
	}
}

// String returns the string representation.
func (t RiskTier) String() string {
	return t.value
}

// IsZero returns true if the RiskTier has not been set.
func (t RiskTier) IsZero() bool {
	return t.value == ""
}

// Equal checks equality with another RiskTier.
func (t RiskTier) Equal(other RiskTier) bool {
	return t.value == other.value
}

// IsDanger returns true if the tier is DANGER.
func (t RiskTier) IsDanger() bool {
	return t.value == "DANGER"
}

// IsSafe returns true if the tier is SAFE.
func (t RiskTier) IsSafe() bool {
	return t.value == "SAFE"
}
