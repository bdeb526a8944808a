package model

import (
	"time"

	"gorm.io/gorm"
)

// ExtractionTemplate holds bank-specific parsing hints. Templates are tried
// in descending priority order; the first one whose sender matches and whose
// amount pattern yields a parseable amount wins. Patterns are regular
// expressions whose first capture group is the extracted value.
type ExtractionTemplate struct {
	ID                   uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	BankName             string         `json:"bank_name" gorm:"type:varchar(128);not null"`
	SenderEmail          string         `json:"sender_email" gorm:"type:varchar(255);index"`
	SenderDomain         string         `json:"sender_domain" gorm:"type:varchar(255);index"`
	AmountPattern        string         `json:"amount_pattern" gorm:"type:varchar(512);not null"`
	SenderNamePattern    string         `json:"sender_name_pattern" gorm:"type:varchar(512)"`
	AccountNumberPattern string         `json:"account_number_pattern" gorm:"type:varchar(512)"`
	Priority             int            `json:"priority" gorm:"default:0;index"`
	Enabled              bool           `json:"enabled" gorm:"default:true"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	DeletedAt            gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for ExtractionTemplate
func (ExtractionTemplate) TableName() string {
	return "bank_email_templates"
}
