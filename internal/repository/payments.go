package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// PaymentRepository persists payment requests.
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a PaymentRepository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment request. tx may be an open transaction so the
// insert can ride inside a slot claim.
func (r *PaymentRepository) Create(ctx context.Context, tx *gorm.DB, payment *model.PaymentRequest) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	if err := db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment request: %w", err)
	}
	return nil
}

// PendingPayments returns the matching candidate set: pending requests whose
// expiry has not passed. Callers re-read this before every match rather than
// holding a snapshot.
func (r *PaymentRepository) PendingPayments(ctx context.Context, now time.Time) ([]model.PaymentRequest, error) {
	var payments []model.PaymentRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ?", model.PaymentPending, now).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending payments: %w", err)
	}
	return payments, nil
}

// Settle transitions a payment from pending to approved as a compare-and-
// swap on status. A concurrent settlement of the same payment observes zero
// rows affected and returns false; decision fields are written exactly once.
func (r *PaymentRepository) Settle(ctx context.Context, paymentID uint, received decimal.Decimal, mismatch bool, mismatchReason string, emailID uint) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.PaymentRequest{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":           model.PaymentApproved,
			"received_amount":  received,
			"is_mismatch":      mismatch,
			"mismatch_reason":  mismatchReason,
			"matched_email_id": emailID,
			"settled_at":       now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to settle payment %d: %w", paymentID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Reject transitions a pending payment to rejected under the same CAS guard
// as Settle.
func (r *PaymentRepository) Reject(ctx context.Context, paymentID uint, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentRequest{}).
		Where("id = ? AND status = ?", paymentID, model.PaymentPending).
		Updates(map[string]interface{}{
			"status":          model.PaymentRejected,
			"mismatch_reason": reason,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to reject payment %d: %w", paymentID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Get returns one payment by id.
func (r *PaymentRepository) Get(ctx context.Context, id uint) (*model.PaymentRequest, error) {
	var payment model.PaymentRequest
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load payment %d: %w", id, err)
	}
	return &payment, nil
}

// List returns payments filtered by status when status is non-empty.
func (r *PaymentRepository) List(ctx context.Context, status model.PaymentStatus, limit int) ([]model.PaymentRequest, error) {
	query := r.db.WithContext(ctx).Order("id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var payments []model.PaymentRequest
	if err := query.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
