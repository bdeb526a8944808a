package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment request.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// PaymentRequest represents an outstanding expected deposit. A request is
// the target of matching only while pending and not expired; once approved
// or rejected its decision fields are never written again.
type PaymentRequest struct {
	ID                    uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	TransactionID         string           `json:"transaction_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	BusinessID            *uint            `json:"business_id,omitempty" gorm:"index"`
	PayerNameHint         string           `json:"payer_name_hint" gorm:"type:varchar(255)"`
	BusinessName          string           `json:"business_name" gorm:"type:varchar(255)"`
	ExpectedAmount        decimal.Decimal  `json:"expected_amount" gorm:"type:decimal(15,2);not null"`
	ReceivedAmount        *decimal.Decimal `json:"received_amount,omitempty" gorm:"type:decimal(15,2)"`
	AssignedAccountNumber string           `json:"assigned_account_number" gorm:"type:varchar(32);index"`
	PoolKind              PoolKind         `json:"pool_kind" gorm:"type:varchar(32);not null"`
	Status                PaymentStatus    `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	IsMismatch            bool             `json:"is_mismatch" gorm:"default:false"`
	MismatchReason        string           `json:"mismatch_reason" gorm:"type:varchar(255)"`
	MatchedEmailID        *uint            `json:"matched_email_id,omitempty" gorm:"index"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	ExpiresAt             time.Time        `json:"expires_at" gorm:"index"`
	SettledAt             *time.Time       `json:"settled_at,omitempty"`
}

// TableName specifies the table name for PaymentRequest
func (PaymentRequest) TableName() string {
	return "payment_requests"
}

// Expired reports whether the request's window has passed. Expired requests
// are excluded from matching and do not hold their account slot.
func (p *PaymentRequest) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
