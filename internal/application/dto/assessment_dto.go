package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/model"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// Assessment response statuses. Completed means the pipeline ran to the end
// for this request, Stale means a previously computed assessment was served
// because the pipeline could not run, Unavailable means neither was possible.
const (
	StatusCompleted   = "completed"
	StatusStale       = "stale"
	StatusUnavailable = "unavailable"
)

// AssessTargetRequest is the input DTO for the AssessTarget use case. Kind
// selects the variant: URL targets carry URL, EMAIL_TEXT targets carry
// Subject and Body.
type AssessTargetRequest struct {
	Kind    string `json:"kind"`
	URL     string `json:"url,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// ToTarget validates the request and builds the domain target.
func (r AssessTargetRequest) ToTarget() (valueobject.Target, error) {
	kind, err := valueobject.TargetKindFromString(r.Kind)
	if err != nil {
		return valueobject.Target{}, err
	}
	if kind.IsURL() {
		return valueobject.NewURLTarget(r.URL)
	}
	return valueobject.NewEmailTextTarget(r.Subject, r.Body)
}

// SignalDTO is one contributing signal in the response.
type SignalDTO struct {
	Evidence   []string `json:"evidence,omitempty"`
	SignalName string   `json:"signal_name"`
	Status     string   `json:"status"`
	Verdict    string   `json:"verdict,omitempty"`
	Confidence float64  `json:"confidence"`
	Score      int      `json:"score"`
	Floor      int      `json:"floor,omitempty"`
}

// AssessmentResponse is the output DTO returned for an assessment. It is
// also the exact form cached and replayed for repeat lookups of the same
// target.
type AssessmentResponse struct {
	AssessedAt        time.Time   `json:"assessed_at"`
	Signals           []SignalDTO `json:"signals,omitempty"`
	Notes             []string    `json:"notes,omitempty"`
	Evidence          []string    `json:"evidence,omitempty"`
	ID                uuid.UUID   `json:"id"`
	TargetKind        string      `json:"target_kind"`
	Target            string      `json:"target"`
	TargetDigest      string      `json:"target_digest"`
	Status            string      `json:"status"`
	Tier              string      `json:"tier,omitempty"`
	DomainTrust       string      `json:"domain_trust,omitempty"`
	FailureReason     string      `json:"failure_reason,omitempty"`
	ExternalConsensus float64     `json:"external_consensus"`
	ClassifierWeight  float64     `json:"classifier_weight"`
	OverallScore      int         `json:"overall_score"`
	Stale             bool        `json:"stale"`
}

// GetAssessmentRequest is the input DTO for retrieving a cached assessment.
type GetAssessmentRequest struct {
	TargetDigest string `json:"target_digest"`
}

// Validate rejects digests that cannot be a cache key.
func (r GetAssessmentRequest) Validate() error {
	if len(r.TargetDigest) != 64 {
		return fmt.Errorf("target digest must be 64 hex characters, got %d", len(r.TargetDigest))
	}
	return nil
}

// FromModel maps a completed assessment to the response DTO.
func FromModel(a *model.RiskAssessment) AssessmentResponse {
	return AssessmentResponse{
		ID:                a.ID(),
		TargetKind:        a.Target().Kind().String(),
		Target:            a.Target().Raw(),
		TargetDigest:      a.Target().Digest(),
		Status:            StatusCompleted,
		OverallScore:      a.OverallScore(),
		Tier:              a.Tier().String(),
		DomainTrust:       a.DomainTrust().String(),
		ExternalConsensus: a.ExternalConsensus(),
		ClassifierWeight:  a.ClassifierWeightUsed(),
		Signals:           signalsFromResults(a.ContributingSignals()),
		Notes:             a.Notes(),
		Evidence:          a.Evidence(),
		AssessedAt:        a.AssessedAt(),
	}
}

// UnavailableFromModel maps a failed assessment to an explicit unavailable
// response. The degraded signal results are kept so the caller can see why
// nothing usable was produced; no score is synthesized.
func UnavailableFromModel(a *model.RiskAssessment, results []valueobject.SignalResult) AssessmentResponse {
	resp := AssessmentResponse{
		ID:            a.ID(),
		TargetKind:    a.Target().Kind().String(),
		Target:        a.Target().Raw(),
		TargetDigest:  a.Target().Digest(),
		Status:        StatusUnavailable,
		FailureReason: a.FailureReason(),
		Signals:       signalsFromResults(results),
		AssessedAt:    a.AssessedAt(),
	}
	for _, sig := range results {
		resp.Evidence = append(resp.Evidence, sig.Evidence...)
	}
	return resp
}

func signalsFromResults(results []valueobject.SignalResult) []SignalDTO {
	if len(results) == 0 {
		return nil
	}
	signals := make([]SignalDTO, 0, len(results))
	for _, sig := range results {
		signals = append(signals, SignalDTO{
			SignalName: sig.SignalName,
			Score:      sig.Score,
			Confidence: sig.Confidence,
			Evidence:   sig.Evidence,
			Status:     sig.Status.String(),
			Verdict:    verdictString(sig),
			Floor:      sig.Floor,
		})
	}
	return signals
}

func verdictString(sig valueobject.SignalResult) string {
	if sig.Verdict.IsNone() {
		return ""
	}
	return sig.Verdict.String()
}
