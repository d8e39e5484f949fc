package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User verdict values for feedback records.
const (
	FeedbackVerdictConfirm = "confirm"
	FeedbackVerdictDispute = "dispute"
)

// Corrected label values for disputed assessments.
const (
	FeedbackLabelPhishing   = "phishing"
	FeedbackLabelLegitimate = "legitimate"
)

// FeedbackRecord captures one user correction of an assessment. Records are
// append-only: the engine writes them and never edits, deletes, or reads them
// back into its live scoring tables. Consumption happens in an offline
// retraining job outside this repository.
type FeedbackRecord struct {
	ID                   uuid.UUID `json:"id"`
	TargetKind           string    `json:"target_kind"`
	TargetRaw            string    `json:"target"`
	TargetDigest         string    `json:"target_digest"`
	OriginalScore        int       `json:"original_score"`
	OriginalTier         string    `json:"original_tier"`
	ClassifierWeightUsed float64   `json:"classifier_weight_used"`
	UserVerdict          string    `json:"user_verdict"`
	CorrectedLabel       string    `json:"corrected_label,omitempty"`
	Comment              string    `json:"comment,omitempty"`
	Source               string    `json:"source,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewFeedbackRecord validates and creates a feedback record.
func NewFeedbackRecord(
	targetKind, targetRaw, targetDigest string,
	originalScore int,
	originalTier string,
	classifierWeightUsed float64,
	userVerdict, correctedLabel, comment, source string,
) (*FeedbackRecord, error) {
	if targetRaw == "" {
		return nil, fmt.Errorf("target is required")
	}
	if originalScore < 0 || originalScore > 100 {
		return nil, fmt.Errorf("original score must be between 0 and 100, got %d", originalScore)
	}
	if userVerdict != FeedbackVerdictConfirm && userVerdict != FeedbackVerdictDispute {
		return nil, fmt.Errorf("invalid user verdict: %s", userVerdict)
	}
	if correctedLabel != "" && correctedLabel != FeedbackLabelPhishing && correctedLabel != FeedbackLabelLegitimate {
		return nil, fmt.Errorf("invalid corrected label: %s", correctedLabel)
	}
	if userVerdict == FeedbackVerdictDispute && correctedLabel == "" {
		return nil, fmt.Errorf("disputed feedback requires a corrected label")
	}

	return &FeedbackRecord{
		ID:                   uuid.New(),
		TargetKind:           targetKind,
		TargetRaw:            targetRaw,
		TargetDigest:         targetDigest,
		OriginalScore:        originalScore,
		OriginalTier:         originalTier,
		ClassifierWeightUsed: classifierWeightUsed,
		UserVerdict:          userVerdict,
		CorrectedLabel:       correctedLabel,
		Comment:              comment,
		Source:               source,
		CreatedAt:            time.Now().UTC(),
	}, nil
}
