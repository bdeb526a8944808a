package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// AttemptRepository persists the append-only audit trail of matching
// decisions.
type AttemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates an AttemptRepository.
func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create appends one attempt record. Attempts are never updated afterwards
// except through Annotate.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.MatchAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to log match attempt: %w", err)
	}
	return nil
}

// List returns attempts, optionally filtered by payment or email id, newest
// first.
func (r *AttemptRepository) List(ctx context.Context, paymentID, emailID *uint, limit int) ([]model.MatchAttempt, error) {
	query := r.db.WithContext(ctx).Order("id DESC")
	if paymentID != nil {
		query = query.Where("payment_id = ?", *paymentID)
	}
	if emailID != nil {
		query = query.Where("email_id = ?", *emailID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var attempts []model.MatchAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list match attempts: %w", err)
	}
	return attempts, nil
}

// Annotate records a manual review on an attempt. It writes only the
// reviewed_* columns; the original decision fields stay immutable.
func (r *AttemptRepository) Annotate(ctx context.Context, attemptID uint, reviewedBy, note string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.MatchAttempt{}).
		Where("id = ?", attemptID).
		Updates(map[string]interface{}{
			"reviewed_by": reviewedBy,
			"review_note": note,
			"reviewed_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to annotate attempt %d: %w", attemptID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
