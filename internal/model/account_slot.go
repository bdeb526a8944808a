package model

import (
	"time"

	"gorm.io/gorm"
)

// PoolKind classifies how an account slot may be handed out.
type PoolKind string

const (
	PoolRegular          PoolKind = "regular_pool"
	PoolInvoice          PoolKind = "invoice_pool"
	PoolBusinessSpecific PoolKind = "business_specific"
)

// Valid reports whether k is one of the known pool kinds.
func (k PoolKind) Valid() bool {
	switch k {
	case PoolRegular, PoolInvoice, PoolBusinessSpecific:
		return true
	}
	return false
}

// AccountSlot is a receiving bank account number available for assignment.
// "In use" is not stored: a slot is in use iff some pending, non-expired
// PaymentRequest currently holds its account number, and that derivation is
// always made under the same transaction that claims the slot.
type AccountSlot struct {
	ID            uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountNumber string         `json:"account_number" gorm:"type:varchar(32);not null;uniqueIndex"`
	BankName      string         `json:"bank_name" gorm:"type:varchar(128)"`
	PoolKind      PoolKind       `json:"pool_kind" gorm:"type:varchar(32);not null;index"`
	BusinessID    *uint          `json:"business_id,omitempty" gorm:"index"`
	IsActive      bool           `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for AccountSlot
func (AccountSlot) TableName() string {
	return "account_slots"
}
