package extractor

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/model"
)

// extractByTemplate tries bank-specific templates against the email. The
// first template (in the source's priority order) whose sender matches and
// whose amount pattern yields a parseable amount wins.
func (e *Extractor) extractByTemplate(from, htmlBody, textBody string) (Record, bool) {
	if e.templates == nil {
		return Record{}, false
	}
	templates, err := e.templates.EnabledTemplates()
	if err != nil {
		logrus.Warnf("Failed to load extraction templates: %v", err)
		return Record{}, false
	}

	for _, tpl := range templates {
		if !senderMatches(&tpl, from) {
			continue
		}
		if rec, ok := applyTemplate(&tpl, htmlBody, textBody); ok {
			return rec, true
		}
	}
	return Record{}, false
}

// senderMatches checks the email's from address against the template's
// sender email or domain, case-insensitively.
func senderMatches(tpl *model.ExtractionTemplate, from string) bool {
	addr := strings.ToLower(extractAddress(from))
	if tpl.SenderEmail != "" && addr == strings.ToLower(tpl.SenderEmail) {
		return true
	}
	if tpl.SenderDomain != "" {
		domain := ""
		if i := strings.LastIndex(addr, "@"); i >= 0 {
			domain = addr[i+1:]
		}
		want := strings.ToLower(tpl.SenderDomain)
		if domain == want || strings.HasSuffix(domain, "."+want) {
			return true
		}
	}
	return false
}

// extractAddress pulls the bare address out of a "Name <addr>" header value.
func extractAddress(from string) string {
	if i := strings.Index(from, "<"); i >= 0 {
		if j := strings.Index(from[i:], ">"); j > 0 {
			return strings.TrimSpace(from[i+1 : i+j])
		}
	}
	return strings.TrimSpace(from)
}

// applyTemplate runs the template's patterns against the HTML body first,
// then the text body. A template only succeeds when its amount pattern
// captures a usable amount; name and account patterns are best-effort.
func applyTemplate(tpl *model.ExtractionTemplate, htmlBody, textBody string) (Record, bool) {
	amountRe, err := regexp.Compile(tpl.AmountPattern)
	if err != nil {
		logrus.Warnf("Template %q has invalid amount pattern: %v", tpl.BankName, err)
		return Record{}, false
	}

	for _, body := range []string{htmlBody, textBody} {
		if body == "" {
			continue
		}
		m := amountRe.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		amount := ParseAmount(captured(m))
		if amount == nil {
			continue
		}

		rec := Record{
			Amount:       amount,
			Method:       MethodTemplate,
			TemplateBank: tpl.BankName,
		}
		if v := applyPattern(tpl.SenderNamePattern, body, tpl.BankName); v != "" {
			rec.SenderName = strings.TrimSpace(v)
		}
		if v := applyPattern(tpl.AccountNumberPattern, body, tpl.BankName); v != "" {
			rec.AccountNumber = strings.TrimSpace(v)
		}
		if m := labeledDescriptionRe.FindStringSubmatch(body); m != nil {
			rec.PayerAccountNumber = ParsePayerAccount(strings.TrimSpace(m[1]))
		}
		return rec, true
	}
	return Record{}, false
}

func applyPattern(pattern, body, bank string) string {
	if pattern == "" {
		return ""
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logrus.Warnf("Template %q has invalid pattern: %v", bank, err)
		return ""
	}
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return captured(m)
}

// captured returns the first capture group when present, otherwise the full
// match, so templates without explicit groups still work.
func captured(m []string) string {
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}
