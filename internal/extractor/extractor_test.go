package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deposit-mail-reconciler/internal/model"
)

// staticTemplates implements TemplateSource over a fixed slice
type staticTemplates struct {
	templates []model.ExtractionTemplate
}

func (s *staticTemplates) EnabledTemplates() ([]model.ExtractionTemplate, error) {
	return s.templates, nil
}

var bankTemplates = []model.ExtractionTemplate{
	{
		BankName:             "Zenith",
		SenderDomain:         "zenithbank.com",
		AmountPattern:        `Credit Amount\s*:\s*NGN\s*([0-9,.]+)`,
		SenderNamePattern:    `Remitter\s*:\s*([A-Z .'-]+)`,
		AccountNumberPattern: `Account Number\s*:\s*([0-9]{10})`,
		Priority:             10,
	},
	{
		BankName:      "GTBank",
		SenderEmail:   "alerts@gtbank.com",
		AmountPattern: `Amount\s*:\s*NGN([0-9,.]+)`,
		Priority:      5,
	},
}

func TestExtractTemplateRoundTrip(t *testing.T) {
	e := New(&staticTemplates{templates: bankTemplates})

	body := "Dear Customer,\n" +
		"Credit Amount : NGN 1,250,000.00\n" +
		"Remitter : JOHN DOE\n" +
		"Account Number : 0123456789\n"
	rec := e.Extract(model.InboundEmail{
		From:     "Zenith Alerts <noreply@zenithbank.com>",
		TextBody: body,
		Date:     time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC),
	})

	require.Equal(t, MethodTemplate, rec.Method)
	assert.Equal(t, "Zenith", rec.TemplateBank)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "1250000", rec.Amount.String())
	assert.Equal(t, "JOHN DOE", rec.SenderName)
	assert.Equal(t, "0123456789", rec.AccountNumber)
}

func TestExtractTemplatePriorityOrder(t *testing.T) {
	// both templates match the same domain; the higher-priority one must win
	tpls := []model.ExtractionTemplate{
		{BankName: "First", SenderDomain: "bank.com", AmountPattern: `First\s*:\s*([0-9,.]+)`, Priority: 10},
		{BankName: "Second", SenderDomain: "bank.com", AmountPattern: `Second\s*:\s*([0-9,.]+)`, Priority: 1},
	}
	e := New(&staticTemplates{templates: tpls})

	rec := e.Extract(model.InboundEmail{
		From:     "a@bank.com",
		TextBody: "First : 100.00\nSecond : 200.00",
	})
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "First", rec.TemplateBank)
	assert.Equal(t, "100", rec.Amount.String())
}

func TestExtractTemplateSkippedWhenAmountUnusable(t *testing.T) {
	// sender matches but the amount pattern captures garbage; the generic
	// heuristics should pick it up instead of the template returning zero
	tpls := []model.ExtractionTemplate{
		{BankName: "Broken", SenderDomain: "bank.com", AmountPattern: `Ref\s*:\s*([A-Z]+)`, Priority: 10},
	}
	e := New(&staticTemplates{templates: tpls})

	rec := e.Extract(model.InboundEmail{
		From:     "a@bank.com",
		TextBody: "Ref : ABCDEF\nAmount : 500.00",
	})
	require.NotNil(t, rec.Amount)
	assert.Equal(t, MethodPlainText, rec.Method)
	assert.Equal(t, "500", rec.Amount.String())
}

func TestExtractHTMLTable(t *testing.T) {
	e := New(nil)

	htmlBody := `<html><body><table>
		<tr><td>Amount</td><td>&#8358; 5,000.00</td></tr>
		<tr><td>Sender Name</td><td>Jane Roe</td></tr>
		<tr><td>Account Number</td><td>9876543210</td></tr>
		<tr><td>Narration</td><td>TRF-FRM-CHNL-A0123456789 school fees</td></tr>
	</table></body></html>`

	rec := e.Extract(model.InboundEmail{From: "x@unknownbank.com", HTMLBody: htmlBody})

	require.Equal(t, MethodHTMLTable, rec.Method)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "5000", rec.Amount.String())
	assert.Equal(t, "Jane Roe", rec.SenderName)
	assert.Equal(t, "9876543210", rec.AccountNumber)
	assert.Equal(t, "0123456789", rec.PayerAccountNumber)
}

func TestExtractRenderedText(t *testing.T) {
	e := New(nil)

	htmlBody := `<html><body><p>You have received a deposit of NGN 2,000.00</p>
		<p>Sender: Jon Doe</p><p>into account 1234567890</p></body></html>`

	rec := e.Extract(model.InboundEmail{From: "x@bank.com", HTMLBody: htmlBody})

	require.Equal(t, MethodRenderedText, rec.Method)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "2000", rec.Amount.String())
	assert.Equal(t, "Jon Doe", rec.SenderName)
	assert.Equal(t, "1234567890", rec.AccountNumber)
}

func TestExtractPlainTextFallback(t *testing.T) {
	e := New(nil)

	rec := e.Extract(model.InboundEmail{
		From:     "x@bank.com",
		TextBody: "Credit alert: $10,050.00 from ACME LTD to acct 5556667778.",
	})

	require.Equal(t, MethodPlainText, rec.Method)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "10050", rec.Amount.String())
	assert.Equal(t, "5556667778", rec.AccountNumber)
}

func TestExtractTotalFailure(t *testing.T) {
	e := New(nil)

	rec := e.Extract(model.InboundEmail{From: "x@y.com", TextBody: "hello there, no money here"})
	assert.Equal(t, MethodFallback, rec.Method)
	assert.Nil(t, rec.Amount)
	assert.False(t, rec.Usable())
}

func TestFindAmountConsumesWholeDigitRun(t *testing.T) {
	tests := []struct {
		in   string
		want string // "" means nil
	}{
		{"Amount: NGN 5000", "5000"},       // bare integer after marker, no partial match
		{"NGN 5000", "5000"},               // never 500
		{"₦250000 credited", "250000"},     // never 250
		{"Amount: 5000", "5000"},           // labeled bare integer
		{"NGN 5,000.25", "5000.25"},        // grouped form unchanged
		{"Amount: NGN 500.00", "500"},      // decimal form unchanged
		{"call 08012345678 for help", ""},  // unmarked digit run still excluded
	}
	for _, tc := range tests {
		got := findAmount(tc.in)
		if tc.want == "" {
			assert.Nil(t, got, "input %q", tc.in)
		} else {
			require.NotNil(t, got, "input %q", tc.in)
			assert.Equal(t, tc.want, got.String(), "input %q", tc.in)
		}
	}
}

func TestExtractSanitizesCorruptBytes(t *testing.T) {
	e := New(nil)

	body := "Amount: 750.00\x00\x01 from \xff\xfe sender"
	rec := e.Extract(model.InboundEmail{From: "x@bank.com", TextBody: body})
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "750", rec.Amount.String())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string // "" means nil
	}{
		{"1,234.56", "1234.56"},
		{"₦5,000", "5000"},
		{"$ 10,050.00", "10050"},
		{"NGN1000000", "1000000"},
		{"0.01", "0.01"},
		{"", ""},
		{"abc", ""},
		{"N/A", ""},
		{"-500", ""},
		{"..", ""},
	}
	for _, tc := range tests {
		got := ParseAmount(tc.in)
		if tc.want == "" {
			assert.Nil(t, got, "input %q", tc.in)
		} else {
			require.NotNil(t, got, "input %q", tc.in)
			assert.Equal(t, tc.want, got.String(), "input %q", tc.in)
		}
	}
}

func TestParsePayerAccount(t *testing.T) {
	// 14-char channel prefix, then 10-digit payer account, then narration
	desc := "TRF-FRM-CHNL-A0123456789 school fees"
	assert.Equal(t, "0123456789", ParsePayerAccount(desc))

	// too short never panics
	assert.Equal(t, "", ParsePayerAccount("short"))
	assert.Equal(t, "", ParsePayerAccount(""))

	// malformed positional field falls back to a digit-run scan
	assert.Equal(t, "9998887776", ParsePayerAccount("payment from 9998887776 with thanks"))
}
