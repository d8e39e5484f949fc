package port

import (
	"context"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/valueobject"
)

// SignalSource defines the port every leaf risk signal implements, whether it
// is a pure in-process analyzer or an adapter over network I/O.
//
// Inspect never returns an error: transport failures, timeouts and malformed
// input are folded into the result's Status so that one broken signal can
// never abort an assessment.
type SignalSource interface {
	// Name returns the stable signal name used in evidence tags and cache keys.
	Name() string

	// Inspect examines the target and reports a self-contained result.
	// Implementations must honor ctx cancellation and deadlines.
	Inspect(ctx context.Context, target valueobject.Target) valueobject.SignalResult
}

// ModelClient defines the port for the trained phishing classifier. The wire
// contract is a fixed-width feature vector in, a phishing probability out.
type ModelClient interface {
	// Predict returns the probability in [0, 1] that the feature vector
	// describes a phishing target.
	Predict(ctx context.Context, features []float64) (probability float64, err error)
}
