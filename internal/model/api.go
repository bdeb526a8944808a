package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse is the standard error envelope for API responses
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// InboundEmailRequest is the payload accepted on the webhook/zapier routes.
type InboundEmailRequest struct {
	MessageID string    `json:"message_id" binding:"required"`
	Subject   string    `json:"subject"`
	From      string    `json:"from" binding:"required"`
	HTML      string    `json:"html"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
}

// ProcessEmailResponse reports the outcome of processing one inbound email.
type ProcessEmailResponse struct {
	Matched   bool            `json:"matched"`
	Duplicate bool            `json:"duplicate"`
	Reason    string          `json:"reason"`
	Payment   *PaymentRequest `json:"payment,omitempty"`
}

// CreatePaymentRequest creates a pending payment and assigns an account slot.
type CreatePaymentRequest struct {
	ExpectedAmount   decimal.Decimal `json:"expected_amount" binding:"required"`
	BusinessID       *uint           `json:"business_id"`
	BusinessName     string          `json:"business_name"`
	PayerNameHint    string          `json:"payer_name_hint"`
	PoolKind         PoolKind        `json:"pool_kind" binding:"required"`
	ExpiresInMinutes int             `json:"expires_in_minutes"`
}

// TemplateRequest is the create/update payload for bank email templates.
type TemplateRequest struct {
	BankName             string `json:"bank_name"`
	SenderEmail          string `json:"sender_email"`
	SenderDomain         string `json:"sender_domain"`
	AmountPattern        string `json:"amount_pattern"`
	SenderNamePattern    string `json:"sender_name_pattern"`
	AccountNumberPattern string `json:"account_number_pattern"`
	Priority             *int   `json:"priority"`
	Enabled              *bool  `json:"enabled"`
}

// SlotRequest is the create payload for account slots.
type SlotRequest struct {
	AccountNumber string   `json:"account_number" binding:"required"`
	BankName      string   `json:"bank_name"`
	PoolKind      PoolKind `json:"pool_kind" binding:"required"`
	BusinessID    *uint    `json:"business_id"`
	IsActive      *bool    `json:"is_active"`
}

// ReviewRequest annotates a match attempt during manual review.
type ReviewRequest struct {
	ReviewedBy string `json:"reviewed_by" binding:"required"`
	Note       string `json:"note"`
}
