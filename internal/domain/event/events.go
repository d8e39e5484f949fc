package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/AyushPandey510/Phis-Shield/pkg/events"
)

const (
	// EventTypeAssessmentCompleted is emitted when a target assessment finishes.
	EventTypeAssessmentCompleted = "risk.assessment.completed"

	// EventTypeDangerDetected is emitted when an assessment lands in the DANGER tier.
	EventTypeDangerDetected = "risk.danger.detected"
)

// AssessmentCompleted is published after every completed assessment.
type AssessmentCompleted struct {
	events.BaseEvent
	AssessmentID     uuid.UUID `json:"assessment_id"`
	TargetKind       string    `json:"target_kind"`
	TargetDigest     string    `json:"target_digest"`
	Target           string    `json:"target"`
	OverallScore     int       `json:"overall_score"`
	Tier             string    `json:"tier"`
	ClassifierWeight float64   `json:"classifier_weight"`
	AssessedAt       time.Time `json:"assessed_at"`
}

// NewAssessmentCompleted creates an AssessmentCompleted event.
func NewAssessmentCompleted(
	assessmentID uuid.UUID,
	targetKind, targetDigest, target string,
	overallScore int,
	tier string,
	classifierWeight float64,
	assessedAt time.Time,
) AssessmentCompleted {
	return AssessmentCompleted{
		BaseEvent:        events.NewBaseEvent(EventTypeAssessmentCompleted, assessmentID),
		AssessmentID:     assessmentID,
		TargetKind:       targetKind,
		TargetDigest:     targetDigest,
		Target:           target,
		OverallScore:     overallScore,
		Tier:             tier,
		ClassifierWeight: classifierWeight,
		AssessedAt:       assessedAt,
	}
}

// DangerDetected is published when a target is assessed into the DANGER tier,
// so downstream consumers (alerting, block-list refresh) can react promptly.
type DangerDetected struct {
	events.BaseEvent
	AssessmentID uuid.UUID `json:"assessment_id"`
	TargetDigest string    `json:"target_digest"`
	Target       string    `json:"target"`
	OverallScore int       `json:"overall_score"`
	Evidence     []string  `json:"evidence"`
	DetectedAt   time.Time `json:"detected_at"`
}

// NewDangerDetected creates a DangerDetected event.
func NewDangerDetected(
	assessmentID uuid.UUID,
	targetDigest, target string,
	overallScore int,
	evidence []string,
	detectedAt time.Time,
) DangerDetected {
	return DangerDetected{
		BaseEvent:    events.NewBaseEvent(EventTypeDangerDetected, assessmentID),
		AssessmentID: assessmentID,
		TargetDigest: targetDigest,
		Target:       target,
		OverallScore: overallScore,
		Evidence:     evidence,
		DetectedAt:   detectedAt,
	}
}
