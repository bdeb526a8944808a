package extractor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/model"
)

// Method names the strategy that produced an extracted record. The string
// form is what gets persisted on the email row and attempt rows for audit.
type Method string

const (
	MethodTemplate     Method = "template"
	MethodHTMLTable    Method = "html_table"
	MethodRenderedText Method = "rendered_text"
	MethodPlainText    Method = "plain_text"
	MethodFallback     Method = "fallback"
)

// Record is the normalized result of extracting one bank email. A Record is
// always structurally valid: on total extraction failure all fields are zero
// and Method is MethodFallback, so callers never branch on a missing record.
type Record struct {
	Amount             *decimal.Decimal
	SenderName         string
	AccountNumber      string
	PayerAccountNumber string
	Timestamp          time.Time
	Method             Method
	TemplateBank       string
}

// Usable reports whether the record carries an extractable amount, the
// minimum any matching rule needs.
func (r Record) Usable() bool {
	return r.Amount != nil
}

// TemplateSource supplies enabled extraction templates in descending
// priority order.
type TemplateSource interface {
	EnabledTemplates() ([]model.ExtractionTemplate, error)
}

// Extractor turns raw email content into a normalized Record. It tries
// bank-specific templates first, then generic heuristics over the HTML table
// structure, the rendered HTML text, and finally the plain-text body.
type Extractor struct {
	templates TemplateSource
}

// New creates an Extractor backed by the given template source.
func New(templates TemplateSource) *Extractor {
	return &Extractor{templates: templates}
}

// Extract never fails: malformed input degrades to a fallback Record with
// null fields rather than an error.
func (e *Extractor) Extract(email model.InboundEmail) Record {
	htmlBody := sanitize(email.HTMLBody)
	textBody := sanitize(email.TextBody)

	if rec, ok := e.extractByTemplate(email.From, htmlBody, textBody); ok {
		rec.Timestamp = email.Date
		return rec
	}

	if rec, ok := extractFromHTMLTable(htmlBody); ok {
		rec.Timestamp = email.Date
		return rec
	}

	if rendered := renderHTMLText(htmlBody); rendered != "" {
		if rec, ok := extractFromText(rendered, MethodRenderedText); ok {
			rec.Timestamp = email.Date
			return rec
		}
	}

	if rec, ok := extractFromText(textBody, MethodPlainText); ok {
		rec.Timestamp = email.Date
		return rec
	}

	logrus.Debugf("No extractable amount in email from %s", email.From)
	return Record{Method: MethodFallback, Timestamp: email.Date}
}

// sanitize strips invalid UTF-8 sequences and control characters that some
// bank gateways leak into bodies, so downstream regexes see clean text.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
