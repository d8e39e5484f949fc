package service

import (
	"fmt"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// AggregationPolicy carries the tier thresholds and the override floor rules.
// Zero values fall back to the defaults at construction.
type AggregationPolicy struct {
	CautionThreshold int
	DangerThreshold  int

	// A danger-tier floor is narrowed to DangerSecondaryFloor when the
	// classifier disagrees with probability below DangerSuppressBelow.
	DangerSuppressBelow  float64
	DangerSecondaryFloor int

	// Same shape for caution-tier floors.
	CautionSuppressBelow  float64
	CautionSecondaryFloor int
}

// DefaultAggregationPolicy returns the built-in thresholds and floors.
func DefaultAggregationPolicy() AggregationPolicy {
	return AggregationPolicy{
		CautionThreshold:      40,
		DangerThreshold:       70,
		DangerSuppressBelow:   0.8,
		DangerSecondaryFloor:  60,
		CautionSuppressBelow:  0.7,
		CautionSecondaryFloor: 30,
	}
}

// AggregateInput is everything the aggregation step works from.
type AggregateInput struct {
	// Signals holds the non-classifier results in any status. Unavailable
	// and Error entries contribute nothing but are kept for the record.
	Signals []valueobject.SignalResult

	Classifier   ClassifierVerdict
	Weight       float64
	Contribution int
}

// AggregateOutput is the aggregation result plus the aggregator's own
// evidence notes, which record floor decisions for the audit trail.
type AggregateOutput struct {
	OverallScore int
	Tier         valueobject.RiskTier
	FloorApplied int
	Notes        []string
}

// RiskAggregator combines signal scores, the weighted classifier
// contribution and override floors into a final bounded score. It only ever
// narrows or keeps what the signals propose; missing signals are simply
// excluded with no renormalization, and aggregation itself cannot fail.
type RiskAggregator struct {
	policy AggregationPolicy
}

// NewRiskAggregator creates an aggregator, filling zero policy fields with
// the defaults.
func NewRiskAggregator(policy AggregationPolicy) *RiskAggregator {
	defaults := DefaultAggregationPolicy()
	if policy.CautionThreshold <= 0 {
		policy.CautionThreshold = defaults.CautionThreshold
	}
	if policy.DangerThreshold <= 0 {
		policy.DangerThreshold = defaults.DangerThreshold
	}
	if policy.DangerSuppressBelow <= 0 {
		policy.DangerSuppressBelow = defaults.DangerSuppressBelow
	}
	if policy.DangerSecondaryFloor <= 0 {
		policy.DangerSecondaryFloor = defaults.DangerSecondaryFloor
	}
	if policy.CautionSuppressBelow <= 0 {
		policy.CautionSuppressBelow = defaults.CautionSuppressBelow
	}
	if policy.CautionSecondaryFloor <= 0 {
		policy.CautionSecondaryFloor = defaults.CautionSecondaryFloor
	}
	return &RiskAggregator{policy: policy}
}

// Aggregate produces the overall score and tier.
//
// Steps: sum the Ok signal scores plus the classifier contribution, clamp,
// then raise to the highest applicable override floor. Floors proposed by
// signals are narrowed to their secondary value when the classifier actively
// disagrees; with the classifier Unavailable its probability is unknown and
// no narrowing happens. Floors never lower a score.
func (a *RiskAggregator) Aggregate(input AggregateInput) AggregateOutput {
	sum := 0
	for _, s := range input.Signals {
		if s.IsOk() {
			sum += s.Score
		}
	}
	if input.Classifier.IsOk() {
		sum += input.Contribution
	}
	candidate := clampScore(sum)

	var notes []string
	floor, floorSource := 0, ""
	for _, s := range input.Signals {
		if !s.IsOk() || s.Verdict.IsNone() || s.Floor <= 0 {
			continue
		}
		f := s.Floor
		if input.Classifier.IsOk() {
			p := input.Classifier.Probability
			switch {
			case f >= a.policy.DangerThreshold && p < a.policy.DangerSuppressBelow:
				notes = append(notes, fmt.Sprintf(
					"aggregator: floor %d from %s narrowed to %d, classifier probability %.2f",
					f, s.SignalName, a.policy.DangerSecondaryFloor, p))
				f = a.policy.DangerSecondaryFloor
			case f >= a.policy.CautionThreshold && f < a.policy.DangerThreshold && p < a.policy.CautionSuppressBelow:
				notes = append(notes, fmt.Sprintf(
					"aggregator: floor %d from %s narrowed to %d, classifier probability %.2f",
					f, s.SignalName, a.policy.CautionSecondaryFloor, p))
				f = a.policy.CautionSecondaryFloor
			}
		}
		if f > floor {
			floor, floorSource = f, s.SignalName
		}
	}

	overall := candidate
	applied := 0
	if floor > overall {
		overall = floor
		applied = floor
		notes = append(notes, fmt.Sprintf("aggregator: override floor %d applied from %s", floor, floorSource))
	}
	if overall < 0 || overall > 100 {
		notes = append(notes, fmt.Sprintf("aggregator: score %d outside range after flooring, re-clamped", overall))
		overall = clampScore(overall)
	}

	return AggregateOutput{
		OverallScore: overall,
		Tier:         valueobject.RiskTierFromScore(overall, a.policy.CautionThreshold, a.policy.DangerThreshold),
		FloorApplied: applied,
		Notes:        notes,
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
