package service

import (
	"context"
	"fmt"
	"math"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// SignalClassifier is the name the classifier reports under.
const SignalClassifier = "classifier"

// ClassifierVerdict is the classifier's self-contained output. Probability is
// kept at full precision. How much weight the probability carries in the
// final score is decided by the consensus engine, never here.
type ClassifierVerdict struct {
	Probability float64
	Confidence  float64
	Evidence    []string
	Status      valueobject.SignalStatus
}

// IsOk returns true if the classifier produced a usable probability.
func (v ClassifierVerdict) IsOk() bool { return v.Status.IsOk() }

// AsSignalResult renders the verdict for the assessment's contributing-signal
// record. The score is informational only; aggregation works from the raw
// probability and the consensus weight.
func (v ClassifierVerdict) AsSignalResult() valueobject.SignalResult {
	if !v.IsOk() {
		reason := "classifier unavailable"
		if len(v.Evidence) > 0 {
			reason = v.Evidence[0]
		}
		return valueobject.UnavailableResult(SignalClassifier, reason)
	}
	score := int(math.Round(v.Probability * 100))
	return valueobject.NewSignalResult(SignalClassifier, score, v.Confidence, v.Evidence)
}

// ClassifierAdapter bridges the trained model into signal terms: features in,
// a probability-bearing verdict out. Every internal failure, from a missing
// model to a malformed vector, is reported as Unavailable so the assessment
// continues without the classifier's opinion.
type ClassifierAdapter struct {
	extractor *FeatureExtractor
	model     port.ModelClient
}

// NewClassifierAdapter creates an adapter around the given model client.
func NewClassifierAdapter(extractor *FeatureExtractor, model port.ModelClient) *ClassifierAdapter {
	return &ClassifierAdapter{extractor: extractor, model: model}
}

// Classify runs feature extraction and model inference for the target.
func (c *ClassifierAdapter) Classify(ctx context.Context, target valueobject.Target) ClassifierVerdict {
	features, completeness, err := c.extractor.Extract(target)
	if err != nil {
		return unavailableVerdict(fmt.Sprintf("classifier: %v", err))
	}
	if len(features) != FeatureCount {
		return unavailableVerdict(fmt.Sprintf("classifier: feature vector has width %d, want %d", len(features), FeatureCount))
	}

	probability, err := c.model.Predict(ctx, features)
	if err != nil {
		return unavailableVerdict(fmt.Sprintf("classifier: model unavailable: %v", err))
	}
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return unavailableVerdict(fmt.Sprintf("classifier: model returned out-of-range probability %v", probability))
	}

	evidence := []string{fmt.Sprintf("classifier: phishing probability %.2f", probability)}
	if completeness < 1 {
		evidence = append(evidence, "classifier: features derived from embedded link only")
	}

	return ClassifierVerdict{
		Probability: probability,
		Confidence:  completeness * math.Max(probability, 1-probability),
		Evidence:    evidence,
		Status:      valueobject.StatusOk,
	}
}

func unavailableVerdict(reason string) ClassifierVerdict {
	return ClassifierVerdict{
		Evidence: []string{reason},
		Status:   valueobject.StatusUnavailable,
	}
}
