package extractor

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// currency-formatted number: thousands groups or a plain digit run,
	// optional decimals. The currency marker (or amount label) is what keeps
	// account and phone numbers out, and the trailing \b forces the whole
	// digit run to be consumed so "NGN 5000" can never parse as 500.
	currencyAmountRe = regexp.MustCompile(`(?:NGN|USD|EUR|GBP|₦|\$|€|£)\s*([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)\b`)
	labeledAmountRe  = regexp.MustCompile(`(?i)(?:amount|credit|deposit)[^0-9₦$€£-]{0,20}([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)\b`)

	// trailing 10+ digit run, the shape of NUBAN-style account numbers.
	accountNumberRe = regexp.MustCompile(`\b([0-9]{10,12})\b`)

	labeledSenderRe = regexp.MustCompile(`(?i)(?:sender(?:\s+name)?|from|payer|remitter)\s*[:\-]\s*([A-Za-z][A-Za-z .'-]{1,80})`)

	labeledDescriptionRe = regexp.MustCompile(`(?i)(?:description|narration|remarks)\s*[:\-]\s*(.+)`)

	nonAmountChars = regexp.MustCompile(`[^0-9.,-]`)
)

// ParseAmount normalizes a currency-formatted string to a decimal. It strips
// currency symbols and thousands separators and rejects anything that does
// not survive as a well-formed number; garbage yields nil, never zero.
func ParseAmount(raw string) *decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = nonAmountChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if d.IsNegative() {
		return nil
	}
	return &d
}

// payer account numbers arrive inside a fixed-width narration field on one
// bank's template: a 14-character channel prefix, then the 10-digit payer
// account, then free-form narration. Parsing is positional and best-effort.
const (
	narrationAccountStart = 14
	narrationAccountEnd   = 24
)

// ParsePayerAccount recovers the payer's own account number from a
// fixed-width description field. Malformed input degrades to "" rather than
// an error.
func ParsePayerAccount(desc string) string {
	if len(desc) < narrationAccountEnd {
		return ""
	}
	candidate := strings.TrimSpace(desc[narrationAccountStart:narrationAccountEnd])
	if len(candidate) == 10 && isDigits(candidate) {
		return candidate
	}
	// fall back to the first 10-digit run anywhere in the field
	if m := accountNumberRe.FindStringSubmatch(desc); m != nil && len(m[1]) == 10 {
		return m[1]
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// findAmount scans text for a currency-marked or amount-labeled number.
func findAmount(text string) *decimal.Decimal {
	if m := currencyAmountRe.FindStringSubmatch(text); m != nil {
		if d := ParseAmount(m[1]); d != nil {
			return d
		}
	}
	if m := labeledAmountRe.FindStringSubmatch(text); m != nil {
		if d := ParseAmount(m[1]); d != nil {
			return d
		}
	}
	return nil
}

// findAccountNumber returns the last 10-12 digit run in the text. Deposit
// alerts put the credited account at the tail of the narration, after any
// reference numbers.
func findAccountNumber(text string) string {
	matches := accountNumberRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

func findSenderName(text string) string {
	if m := labeledSenderRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractFromText applies the generic regex heuristics to an already
// rendered or plain-text body.
func extractFromText(text string, method Method) (Record, bool) {
	if strings.TrimSpace(text) == "" {
		return Record{}, false
	}
	amount := findAmount(text)
	if amount == nil {
		return Record{}, false
	}
	payerAccount := ""
	if m := labeledDescriptionRe.FindStringSubmatch(text); m != nil {
		payerAccount = ParsePayerAccount(strings.TrimSpace(m[1]))
	}
	return Record{
		Amount:             amount,
		SenderName:         findSenderName(text),
		AccountNumber:      findAccountNumber(text),
		PayerAccountNumber: payerAccount,
		Method:             method,
	}, true
}
