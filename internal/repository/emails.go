package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"deposit-mail-reconciler/internal/extractor"
	"deposit-mail-reconciler/internal/model"
)

// EmailRepository persists ingested emails. The unique index on message_id
// is the dedupe authority; Store never relies on an application-level
// check-then-insert.
type EmailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates an EmailRepository.
func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Store inserts the email or, when its message_id already exists, returns
// the previously stored record untouched. ON CONFLICT DO NOTHING makes the
// insert-or-fetch atomic at the storage layer, so concurrent deliveries of
// the same physical email from different transports collapse to one row.
func (r *EmailRepository) Store(ctx context.Context, in model.InboundEmail) (bool, *model.IngestedEmail, error) {
	rec := model.IngestedEmail{
		MessageID:   in.MessageID,
		Source:      in.Source,
		Subject:     in.Subject,
		FromAddress: in.From,
		TextBody:    in.TextBody,
		HTMLBody:    in.HTMLBody,
		ReceivedAt:  in.Date,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(&rec)
	if result.Error != nil {
		return false, nil, fmt.Errorf("failed to store email: %w", result.Error)
	}

	created := result.RowsAffected > 0
	if created {
		return true, &rec, nil
	}

	var existing model.IngestedEmail
	if err := r.db.WithContext(ctx).Where("message_id = ?", in.MessageID).First(&existing).Error; err != nil {
		return false, nil, fmt.Errorf("failed to load existing email: %w", err)
	}
	return false, &existing, nil
}

// SaveExtraction fills the extracted_* fields on an email row. Called once,
// right after extraction.
func (r *EmailRepository) SaveExtraction(ctx context.Context, emailID uint, rec extractor.Record) error {
	updates := map[string]interface{}{
		"extracted_sender_name":    rec.SenderName,
		"extracted_account_number": rec.AccountNumber,
		"payer_account_number":     rec.PayerAccountNumber,
		"extraction_method":        string(rec.Method),
	}
	if rec.Amount != nil {
		updates["extracted_amount"] = *rec.Amount
	}
	err := r.db.WithContext(ctx).Model(&model.IngestedEmail{}).
		Where("id = ?", emailID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to save extraction result: %w", err)
	}
	return nil
}

// MarkMatched flips is_matched on the email, guarded so a concurrent match
// (sweep vs real-time) cannot claim the same email twice. Returns false when
// another path already matched it.
func (r *EmailRepository) MarkMatched(ctx context.Context, emailID, paymentID uint) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.IngestedEmail{}).
		Where("id = ? AND is_matched = ?", emailID, false).
		Updates(map[string]interface{}{
			"is_matched":         true,
			"matched_payment_id": paymentID,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark email matched: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RecordAttempt bumps the attempt counter and last reason on the email row.
func (r *EmailRepository) RecordAttempt(ctx context.Context, emailID uint, reason string) error {
	err := r.db.WithContext(ctx).Model(&model.IngestedEmail{}).
		Where("id = ?", emailID).
		Updates(map[string]interface{}{
			"match_attempts_count": gorm.Expr("match_attempts_count + 1"),
			"last_match_reason":    reason,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record attempt on email: %w", err)
	}
	return nil
}

// Unmatched returns emails not yet matched to any payment, oldest first.
func (r *EmailRepository) Unmatched(ctx context.Context) ([]model.IngestedEmail, error) {
	var emails []model.IngestedEmail
	err := r.db.WithContext(ctx).
		Where("is_matched = ?", false).
		Order("id ASC").
		Find(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched emails: %w", err)
	}
	return emails, nil
}

// List returns emails filtered by matched state when matched is non-nil.
func (r *EmailRepository) List(ctx context.Context, matched *bool, limit int) ([]model.IngestedEmail, error) {
	query := r.db.WithContext(ctx).Order("id DESC")
	if matched != nil {
		query = query.Where("is_matched = ?", *matched)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var emails []model.IngestedEmail
	if err := query.Find(&emails).Error; err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}

// Get returns one email by id.
func (r *EmailRepository) Get(ctx context.Context, id uint) (*model.IngestedEmail, error) {
	var email model.IngestedEmail
	if err := r.db.WithContext(ctx).First(&email, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load email %d: %w", id, err)
	}
	return &email, nil
}
