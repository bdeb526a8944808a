package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmailSource identifies the transport that delivered an email.
type EmailSource string

const (
	SourceIMAP     EmailSource = "imap"
	SourceGmailAPI EmailSource = "gmail_api"
	SourceWebhook  EmailSource = "webhook"
	SourceZapier   EmailSource = "zapier"
)

// InboundEmail is a raw email payload as handed over by a transport adapter,
// before ingestion. MessageID is the dedupe key across all transports.
type InboundEmail struct {
	MessageID string      `json:"message_id"`
	Subject   string      `json:"subject"`
	From      string      `json:"from"`
	TextBody  string      `json:"text,omitempty"`
	HTMLBody  string      `json:"html,omitempty"`
	Date      time.Time   `json:"date"`
	Source    EmailSource `json:"source"`
}

// IngestedEmail is one uniquely-identified inbound email with its extraction
// result. The unique index on message_id is the system's sole exactly-once
// boundary: a second insert with the same id is a no-op. Rows are never
// deleted; the Extractor fills the extracted_* fields once and the matcher
// path updates only is_matched, matched_payment_id and the attempt counters.
type IngestedEmail struct {
	ID                     uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID              string           `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Source                 EmailSource      `json:"source" gorm:"type:varchar(20);not null"`
	Subject                string           `json:"subject" gorm:"type:varchar(512)"`
	FromAddress            string           `json:"from_address" gorm:"type:varchar(255);index"`
	TextBody               string           `json:"text_body" gorm:"type:text"`
	HTMLBody               string           `json:"html_body" gorm:"type:mediumtext"`
	ReceivedAt             time.Time        `json:"received_at"`
	ExtractedAmount        *decimal.Decimal `json:"extracted_amount,omitempty" gorm:"type:decimal(15,2)"`
	ExtractedSenderName    string           `json:"extracted_sender_name" gorm:"type:varchar(255)"`
	ExtractedAccountNumber string           `json:"extracted_account_number" gorm:"type:varchar(32);index"`
	PayerAccountNumber     string           `json:"payer_account_number" gorm:"type:varchar(32)"`
	ExtractionMethod       string           `json:"extraction_method" gorm:"type:varchar(32)"`
	IsMatched              bool             `json:"is_matched" gorm:"default:false;index"`
	MatchedPaymentID       *uint            `json:"matched_payment_id,omitempty" gorm:"index"`
	MatchAttemptsCount     int              `json:"match_attempts_count" gorm:"default:0"`
	LastMatchReason        string           `json:"last_match_reason" gorm:"type:varchar(512)"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// TableName specifies the table name for IngestedEmail
func (IngestedEmail) TableName() string {
	return "ingested_emails"
}
