package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MatchResult is the outcome of one email-to-payment evaluation.
type MatchResult string

const (
	ResultMatched   MatchResult = "matched"
	ResultUnmatched MatchResult = "unmatched"
	ResultRejected  MatchResult = "rejected"
	ResultPartial   MatchResult = "partial"
)

// MatchAttempt is an append-only audit record of one matching decision.
// Decision fields are never updated after insert; the only later write is the
// manual-review annotation, which touches reviewed_* columns exclusively.
type MatchAttempt struct {
	ID               uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	PaymentID        *uint            `json:"payment_id,omitempty" gorm:"index"`
	EmailID          *uint            `json:"email_id,omitempty" gorm:"index"`
	Result           MatchResult      `json:"result" gorm:"type:varchar(20);not null;index"`
	AmountDiff       *decimal.Decimal `json:"amount_diff,omitempty" gorm:"type:decimal(15,2)"`
	NameSimilarity   *int             `json:"name_similarity_percent,omitempty"`
	TimeDiffMinutes  *int             `json:"time_diff_minutes,omitempty"`
	ExtractionMethod string           `json:"extraction_method" gorm:"type:varchar(32)"`
	Reason           string           `json:"reason" gorm:"type:varchar(512)"`
	Details          datatypes.JSON   `json:"details,omitempty"`
	ReviewedBy       string           `json:"reviewed_by,omitempty" gorm:"type:varchar(128)"`
	ReviewNote       string           `json:"review_note,omitempty" gorm:"type:varchar(512)"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`

	Payment *PaymentRequest `json:"payment,omitempty" gorm:"foreignKey:PaymentID"`
	Email   *IngestedEmail  `json:"email,omitempty" gorm:"foreignKey:EmailID"`
}

// TableName specifies the table name for MatchAttempt
func (MatchAttempt) TableName() string {
	return "match_attempts"
}
