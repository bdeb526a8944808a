package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"deposit-mail-reconciler/internal/model"
	"deposit-mail-reconciler/internal/pool"
)

// SlotRepository persists account slots and implements the atomic pool
// claim.
type SlotRepository struct {
	db *gorm.DB
}

// NewSlotRepository creates a SlotRepository.
func NewSlotRepository(db *gorm.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// ClaimPoolSlot selects one active slot of the given kind not currently held
// by a pending, non-expired payment request, locks its row, and runs bind
// inside the same transaction. The row lock plus the NOT IN derivation over
// live pending requests makes the check-and-claim atomic: a concurrent claim
// blocks on the locked row and, once this transaction commits its payment
// insert, re-evaluates the holder set and picks a different slot.
func (r *SlotRepository) ClaimPoolSlot(ctx context.Context, kind model.PoolKind, now time.Time, bind pool.BindFunc) (*model.AccountSlot, error) {
	var claimed *model.AccountSlot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		held := tx.Model(&model.PaymentRequest{}).
			Select("assigned_account_number").
			Where("status = ? AND expires_at > ? AND assigned_account_number <> ''", model.PaymentPending, now)

		var slot model.AccountSlot
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("pool_kind = ? AND is_active = ?", kind, true).
			Where("account_number NOT IN (?)", held).
			Order("id ASC").
			First(&slot).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pool.ErrNoSlotAvailable
			}
			return fmt.Errorf("failed to select free slot: %w", err)
		}

		if bind != nil {
			if err := bind(tx, &slot); err != nil {
				return err
			}
		}
		claimed = &slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ClaimBusinessSlot returns the active business-specific slot for a
// business and runs bind in a transaction. Business slots carry no pool
// exclusivity; the same account serves all of that business's payments.
func (r *SlotRepository) ClaimBusinessSlot(ctx context.Context, businessID uint, bind pool.BindFunc) (*model.AccountSlot, error) {
	var claimed *model.AccountSlot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slot model.AccountSlot
		err := tx.
			Where("pool_kind = ? AND business_id = ? AND is_active = ?", model.PoolBusinessSpecific, businessID, true).
			First(&slot).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pool.ErrNoSlotAvailable
			}
			return fmt.Errorf("failed to load business slot: %w", err)
		}

		if bind != nil {
			if err := bind(tx, &slot); err != nil {
				return err
			}
		}
		claimed = &slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Create inserts a new account slot.
func (r *SlotRepository) Create(ctx context.Context, slot *model.AccountSlot) error {
	if err := r.db.WithContext(ctx).Create(slot).Error; err != nil {
		return fmt.Errorf("failed to create account slot: %w", err)
	}
	return nil
}

// List returns all slots.
func (r *SlotRepository) List(ctx context.Context) ([]model.AccountSlot, error) {
	var slots []model.AccountSlot
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}
