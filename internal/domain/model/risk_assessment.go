package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/event"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
	"github.com/AyushPandey510/Phis-Shield/pkg/events"
)

// RiskAssessment is the aggregate root for one target assessment. It owns the
// request lifecycle state machine:
//
//	RECEIVED -> EXTRACTING -> CONSENSUS -> AGGREGATING -> COMPLETED
//	          \-> FAILED (from any non-terminal state)
//
// Contributing signal results are copied in at completion; the assessment is
// the only thing that outlives the request (via cache and events).
type RiskAssessment struct {
	events.EventCollector

	assessedAt           time.Time
	createdAt            time.Time
	target               valueobject.Target
	state                valueobject.AssessmentState
	tier                 valueobject.RiskTier
	domainTrust          valueobject.DomainTrust
	failureReason        string
	contributingSignals  []valueobject.SignalResult
	notes                []string
	classifierWeightUsed float64
	externalConsensus    float64
	overallScore         int
	id                   uuid.UUID
}

// Outcome carries everything the aggregation phase decided about a target.
// Notes are evidence-style entries produced by the aggregator itself, for
// example which override floor was applied or suppressed.
type Outcome struct {
	OverallScore      int
	Tier              valueobject.RiskTier
	Signals           []valueobject.SignalResult
	Notes             []string
	ClassifierWeight  float64
	DomainTrust       valueobject.DomainTrust
	ExternalConsensus float64
}

// NewRiskAssessment creates an assessment in the RECEIVED state.
func NewRiskAssessment(target valueobject.Target) (*RiskAssessment, error) {
	if target.IsZero() {
		return nil, fmt.Errorf("target is required")
	}

	return &RiskAssessment{
		id:                  uuid.New(),
		target:              target,
		state:               valueobject.StateReceived,
		contributingSignals: make([]valueobject.SignalResult, 0),
		createdAt:           time.Now().UTC(),
	}, nil
}

// BeginExtraction marks the start of the concurrent signal extraction phase.
func (a *RiskAssessment) BeginExtraction() error {
	return a.transition(valueobject.StateExtracting)
}

// BeginConsensus marks all extractors as finished or timed out.
func (a *RiskAssessment) BeginConsensus() error {
	return a.transition(valueobject.StateConsensus)
}

// BeginAggregation marks the start of score aggregation.
func (a *RiskAssessment) BeginAggregation() error {
	return a.transition(valueobject.StateAggregating)
}

// Complete finalizes the assessment with the aggregated outcome and emits
// domain events. The tier must already be consistent with the score; this is
// the aggregate's own invariant, re-checked here.
func (a *RiskAssessment) Complete(outcome Outcome) error {
	if outcome.OverallScore < 0 || outcome.OverallScore > 100 {
		return fmt.Errorf("overall score must be between 0 and 100, got %d", outcome.OverallScore)
	}
	if outcome.Tier.IsZero() {
		return fmt.Errorf("risk tier is required")
	}
	if err := a.transition(valueobject.StateCompleted); err != nil {
		return err
	}

	a.overallScore = outcome.OverallScore
	a.tier = outcome.Tier
	a.contributingSignals = make([]valueobject.SignalResult, len(outcome.Signals))
	copy(a.contributingSignals, outcome.Signals)
	a.notes = make([]string, len(outcome.Notes))
	copy(a.notes, outcome.Notes)
	a.classifierWeightUsed = outcome.ClassifierWeight
	a.domainTrust = outcome.DomainTrust
	a.externalConsensus = outcome.ExternalConsensus
	a.assessedAt = time.Now().UTC()

	a.Record(event.NewAssessmentCompleted(
		a.id,
		a.target.Kind().String(),
		a.target.Digest(),
		a.target.Raw(),
		a.overallScore,
		a.tier.String(),
		a.classifierWeightUsed,
		a.assessedAt,
	))

	if a.tier.IsDanger() {
		a.Record(event.NewDangerDetected(
			a.id,
			a.target.Digest(),
			a.target.Raw(),
			a.overallScore,
			a.Evidence(),
			a.assessedAt,
		))
	}

	return nil
}

// Fail terminates the assessment without a score. The use case decides what
// the caller sees instead (stale cache entry or explicit unavailability).
func (a *RiskAssessment) Fail(reason string) error {
	if err := a.transition(valueobject.StateFailed); err != nil {
		return err
	}
	a.failureReason = reason
	a.assessedAt = time.Now().UTC()
	return nil
}

func (a *RiskAssessment) transition(next valueobject.AssessmentState) error {
	if !a.state.CanTransitionTo(next) {
		return fmt.Errorf("illegal state transition %s -> %s", a.state, next)
	}
	a.state = next
	return nil
}

// Evidence flattens the evidence entries of all contributing signals,
// preserving signal order, followed by the aggregator's own notes. Entries
// are already tagged with their originating signal name.
func (a *RiskAssessment) Evidence() []string {
	var out []string
	for _, sig := range a.contributingSignals {
		out = append(out, sig.Evidence...)
	}
	out = append(out, a.notes...)
	return out
}

// --- Accessors ---

func (a *RiskAssessment) ID() uuid.UUID                      { return a.id }
func (a *RiskAssessment) Target() valueobject.Target         { return a.target }
func (a *RiskAssessment) State() valueobject.AssessmentState { return a.state }
func (a *RiskAssessment) OverallScore() int                  { return a.overallScore }
func (a *RiskAssessment) Tier() valueobject.RiskTier         { return a.tier }
func (a *RiskAssessment) ClassifierWeightUsed() float64      { return a.classifierWeightUsed }
func (a *RiskAssessment) DomainTrust() valueobject.DomainTrust {
	return a.domainTrust
}
func (a *RiskAssessment) ExternalConsensus() float64 { return a.externalConsensus }
func (a *RiskAssessment) FailureReason() string      { return a.failureReason }
func (a *RiskAssessment) AssessedAt() time.Time      { return a.assessedAt }
func (a *RiskAssessment) CreatedAt() time.Time       { return a.createdAt }

// Notes returns a copy of the aggregator's own evidence entries.
func (a *RiskAssessment) Notes() []string {
	out := make([]string, len(a.notes))
	copy(out, a.notes)
	return out
}

// ContributingSignals returns a copy of the signal results that fed this assessment.
func (a *RiskAssessment) ContributingSignals() []valueobject.SignalResult {
	out := make([]valueobject.SignalResult, len(a.contributingSignals))
	copy(out, a.contributingSignals)
	return out
}
