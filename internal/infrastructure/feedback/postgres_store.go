package feedback

import (
	"context"
	"fmt"

	"github.com/AyushPandey510/Phis-Shield/internal/domain/model"
	"github.com/AyushPandey510/Phis-Shield/pkg/postgres"
)

// PostgresStore implements port.FeedbackStore on the feedback_records table.
// Rows are insert-only; corrections arrive as new rows.
type PostgresStore struct {
	q postgres.Querier
}

// NewPostgresStore creates a PostgreSQL-backed feedback store.
func NewPostgresStore(q postgres.Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

// Append implements port.FeedbackStore.
func (s *PostgresStore) Append(ctx context.Context, record *model.FeedbackRecord) error {
	query := `
		INSERT INTO feedback_records (
			id, target_kind, target, target_digest,
			original_score, original_tier, classifier_weight_used,
			user_verdict, corrected_label, comment, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.q.Exec(ctx, query,
		record.ID,
		record.TargetKind,
		record.TargetRaw,
		record.TargetDigest,
		record.OriginalScore,
		record.OriginalTier,
		record.ClassifierWeightUsed,
		record.UserVerdict,
		record.CorrectedLabel,
		record.Comment,
		record.Source,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append feedback record: %w", err)
	}
	return nil
}

// Recent implements port.FeedbackStore, returning up to limit records newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*model.FeedbackRecord, error) {
	if limit <= 0 {
		return []*model.FeedbackRecord{}, nil
	}

	query := `
		SELECT id, target_kind, target, target_digest,
			original_score, original_tier, classifier_weight_used,
			user_verdict, corrected_label, comment, source, created_at
		FROM feedback_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback records: %w", err)
	}
	defer rows.Close()

	records := make([]*model.FeedbackRecord, 0, limit)
	for rows.Next() {
		var record model.FeedbackRecord
		err := rows.Scan(
			&record.ID,
			&record.TargetKind,
			&record.TargetRaw,
			&record.TargetDigest,
			&record.OriginalScore,
			&record.OriginalTier,
			&record.ClassifierWeightUsed,
			&record.UserVerdict,
			&record.CorrectedLabel,
			&record.Comment,
			&record.Source,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback records: %w", err)
	}

	return records, nil
}
