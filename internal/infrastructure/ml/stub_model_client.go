package ml

import (
	"context"
	"errors"
	"log/slog"
)

// ErrModelUnavailable reports that no classifier model is loaded.
var ErrModelUnavailable = errors.New("classifier model unavailable")

// StubModelClient implements port.ModelClient as a stub for development.
// It returns a fixed neutral probability so the rest of the pipeline can be
// exercised without a model artifact.
type StubModelClient struct {
	logger      *slog.Logger
	probability float64
}

// NewStubModelClient creates a stub client. probability outside [0, 1]
// falls back to 0.5.
func NewStubModelClient(logger *slog.Logger, probability float64) *StubModelClient {
	if probability < 0 || probability > 1 {
		probability = 0.5
	}
	return &StubModelClient{logger: logger, probability: probability}
}

// Predict returns the configured probability for every target.
func (c *StubModelClient) Predict(ctx context.Context, features []float64) (float64, error) {
	c.logger.Debug("stub model prediction requested",
		slog.Int("feature_count", len(features)),
		slog.Float64("probability", c.probability),
	)
	return c.probability, nil
}

// DisabledModelClient fails every prediction. It is wired when no model is
// configured in production, so the classifier reports itself unavailable
// instead of inventing a probability.
type DisabledModelClient struct{}

// NewDisabledModelClient creates a client with no model behind it.
func NewDisabledModelClient() *DisabledModelClient {
	return &DisabledModelClient{}
}

// Predict always fails with ErrModelUnavailable.
func (c *DisabledModelClient) Predict(ctx context.Context, features []float64) (float64, error) {
	return 0, ErrModelUnavailable
}
