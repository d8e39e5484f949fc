package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/AyushPandey510/Phis-Shield/internal/application/dto"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
)

// GetAssessment is the use case for retrieving a previously computed
// assessment by target digest. The cache is the system of record for
// assessments; once an entry is evicted the target has to be re-assessed.
type GetAssessment struct {
	cache  port.AssessmentCache
	logger *slog.Logger
}

// NewGetAssessment creates a new GetAssessment use case.
func NewGetAssessment(cache port.AssessmentCache, logger *slog.Logger) *GetAssessment {
	return &GetAssessment{cache: cache, logger: logger}
}

// Execute returns the cached assessment for a target digest. A fresh entry
// is returned as stored; an expired one is still served, labeled stale, so
// a lookup never silently loses history it could have shown.
func (uc *GetAssessment) Execute(ctx context.Context, req dto.GetAssessmentRequest) (dto.AssessmentResponse, error) {
	if err := req.Validate(); err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	entry, found, err := uc.cache.Get(ctx, req.TargetDigest)
	if err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to read assessment cache: %w", err)
	}
	if found {
		if resp, ok := uc.decode(ctx, entry.Value, req.TargetDigest); ok {
			return resp, nil
		}
	}

	entry, found, err = uc.cache.GetStale(ctx, req.TargetDigest)
	if err != nil {
		return dto.AssessmentResponse{}, fmt.Errorf("failed to read assessment cache: %w", err)
	}
	if found {
		if resp, ok := uc.decode(ctx, entry.Value, req.TargetDigest); ok {
			resp.Status = dto.StatusStale
			resp.Stale = true
			return resp, nil
		}
	}

	return dto.AssessmentResponse{}, fmt.Errorf("%w: %s", ErrAssessmentNotFound, req.TargetDigest)
}

func (uc *GetAssessment) decode(ctx context.Context, data []byte, digest string) (dto.AssessmentResponse, bool) {
	var resp dto.AssessmentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		uc.logger.WarnContext(ctx, "cached assessment unreadable",
			"target_digest", digest, "error", err)
		return dto.AssessmentResponse{}, false
	}
	return resp, true
}
