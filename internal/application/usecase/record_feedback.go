package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AyushPandey510/Phis-Shield/internal/application/dto"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/model"
	"github.com/AyushPandey510/Phis-Shield/internal/domain/port"
)

// RecordFeedback is the use case for accepting a user verdict on an
// assessment the engine produced. Records are append-only labeling input
// for future model training; nothing about the live assessment changes.
type RecordFeedback struct {
	store  port.FeedbackStore
	logger *slog.Logger
}

// NewRecordFeedback creates a new RecordFeedback use case.
func NewRecordFeedback(store port.FeedbackStore, logger *slog.Logger) *RecordFeedback {
	return &RecordFeedback{store: store, logger: logger}
}

// Execute validates and appends one feedback record.
func (uc *RecordFeedback) Execute(ctx context.Context, req dto.RecordFeedbackRequest) (dto.RecordFeedbackResponse, error) {
	record, err := model.NewFeedbackRecord(
		req.TargetKind,
		req.Target,
		req.TargetDigest,
		req.OriginalScore,
		req.OriginalTier,
		req.ClassifierWeight,
		req.UserVerdict,
		req.CorrectedLabel,
		req.Comment,
		req.Source,
	)
	if err != nil {
		return dto.RecordFeedbackResponse{}, fmt.Errorf("%w: %v", ErrInvalidFeedback, err)
	}

	if err := uc.store.Append(ctx, record); err != nil {
		return dto.RecordFeedbackResponse{}, fmt.Errorf("failed to store feedback: %w", err)
	}

	uc.logger.InfoContext(ctx, "feedback recorded",
		"feedback_id", record.ID,
		"user_verdict", record.UserVerdict,
		"target_digest", record.TargetDigest)

	return dto.RecordFeedbackResponse{ID: record.ID, CreatedAt: record.CreatedAt}, nil
}
