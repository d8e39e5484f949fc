package dto

import (
	"time"

	"github.com/google/uuid"
)

// RecordFeedbackRequest is the input DTO for the RecordFeedback use case.
// The client echoes back the assessment it is responding to, so a feedback
// record stays meaningful even after the cached assessment expires.
type RecordFeedbackRequest struct {
	TargetKind       string  `json:"target_kind"`
	Target           string  `json:"target"`
	TargetDigest     string  `json:"target_digest,omitempty"`
	OriginalTier     string  `json:"original_tier"`
	UserVerdict      string  `json:"user_verdict"`
	CorrectedLabel   string  `json:"corrected_label,omitempty"`
	Comment          string  `json:"comment,omitempty"`
	Source           string  `json:"source,omitempty"`
	ClassifierWeight float64 `json:"classifier_weight"`
	OriginalScore    int     `json:"original_score"`
}

// RecordFeedbackResponse acknowledges an accepted feedback record.
type RecordFeedbackResponse struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}
