package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deposit-mail-reconciler/internal/extractor"
	"deposit-mail-reconciler/internal/model"
)

// staticPayments implements PaymentSource over a fixed slice
type staticPayments struct {
	payments []model.PaymentRequest
}

func (s *staticPayments) PendingPayments(ctx context.Context, now time.Time) ([]model.PaymentRequest, error) {
	var out []model.PaymentRequest
	for _, p := range s.payments {
		if p.Status == model.PaymentPending && !p.Expired(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func defaultConfig() Config {
	return Config{
		TimeWindow:      120 * time.Minute,
		EarlyArrival:    5 * time.Minute,
		AmountTolerance: decimal.Zero,
	}
}

func pending(id uint, amount float64, account string, created time.Time) model.PaymentRequest {
	return model.PaymentRequest{
		ID:                    id,
		ExpectedAmount:        decimal.NewFromFloat(amount),
		AssignedAccountNumber: account,
		Status:                model.PaymentPending,
		CreatedAt:             created,
		ExpiresAt:             created.Add(24 * time.Hour),
	}
}

func record(amount float64, account, sender string) extractor.Record {
	d := decimal.NewFromFloat(amount)
	return extractor.Record{Amount: &d, AccountNumber: account, SenderName: sender, Method: extractor.MethodTemplate}
}

func TestMatchExactAccountAndAmount(t *testing.T) {
	source := &staticPayments{payments: []model.PaymentRequest{
		pending(1, 5000, "1234567890", baseTime),
	}}
	m := New(defaultConfig(), source)

	out, err := m.Match(context.Background(), record(5000, "1234567890", ""), baseTime.Add(5*time.Minute), baseTime.Add(5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, model.ResultMatched, out.Result)
	require.NotNil(t, out.Payment)
	assert.Equal(t, uint(1), out.Payment.ID)
	assert.True(t, out.AmountDiff.IsZero())
	assert.Equal(t, 5, *out.TimeDiffMinutes)
}

func TestMatchTimeWindowRejection(t *testing.T) {
	source := &staticPayments{payments: []model.PaymentRequest{
		pending(1, 5000, "1234567890", baseTime),
	}}
	m := New(defaultConfig(), source)

	// email 3 hours after creation with a 120 minute window
	emailDate := baseTime.Add(3 * time.Hour)
	out, err := m.Match(context.Background(), record(5000, "1234567890", ""), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
	assert.Nil(t, out.Payment)
	assert.Contains(t, out.Reason, "time window")
}

func TestMatchToleranceBoundary(t *testing.T) {
	payments := []model.PaymentRequest{pending(1, 10000, "1234567890", baseTime)}
	emailDate := baseTime.Add(10 * time.Minute)

	// tolerance >= diff approves with mismatch flag
	cfg := defaultConfig()
	cfg.AmountTolerance = decimal.NewFromInt(50)
	m := New(cfg, &staticPayments{payments: payments})
	out, err := m.Match(context.Background(), record(10050, "1234567890", ""), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultPartial, out.Result)
	require.NotNil(t, out.Payment)
	assert.Equal(t, "50", out.AmountDiff.String())

	// tolerance < diff leaves it unmatched
	cfg.AmountTolerance = decimal.NewFromInt(49)
	m = New(cfg, &staticPayments{payments: payments})
	out, err = m.Match(context.Background(), record(10050, "1234567890", ""), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
	assert.Nil(t, out.Payment)
	assert.Contains(t, out.Reason, "tolerance")
}

func TestMatchAmbiguousAccountHolders(t *testing.T) {
	// two pending requests share an account number and neither matches the
	// amount exactly; the matcher must refuse to guess
	source := &staticPayments{payments: []model.PaymentRequest{
		pending(1, 1000, "1234567890", baseTime),
		pending(2, 2000, "1234567890", baseTime.Add(time.Minute)),
	}}
	cfg := defaultConfig()
	cfg.AmountTolerance = decimal.NewFromInt(10000)
	m := New(cfg, source)

	emailDate := baseTime.Add(10 * time.Minute)
	out, err := m.Match(context.Background(), record(1500, "1234567890", ""), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
	assert.Contains(t, out.Reason, "ambiguous")
}

func TestMatchUnknownAccount(t *testing.T) {
	source := &staticPayments{payments: []model.PaymentRequest{
		pending(1, 5000, "1234567890", baseTime),
	}}
	m := New(defaultConfig(), source)

	emailDate := baseTime.Add(time.Minute)
	out, err := m.Match(context.Background(), record(5000, "0000000000", ""), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
	assert.Contains(t, out.Reason, "0000000000")
}

func TestMatchFuzzyNameTieBreak(t *testing.T) {
	john := pending(1, 2000, "", baseTime)
	john.PayerNameHint = "John Doe"
	jane := pending(2, 2000, "", baseTime)
	jane.PayerNameHint = "Jane Roe"

	m := New(defaultConfig(), &staticPayments{payments: []model.PaymentRequest{jane, john}})

	emailDate := baseTime.Add(30 * time.Minute)
	out, err := m.Match(context.Background(), record(2000, "", "Jon Doe"), emailDate, emailDate)
	require.NoError(t, err)
	require.Equal(t, model.ResultMatched, out.Result)
	require.NotNil(t, out.Payment)
	assert.Equal(t, uint(1), out.Payment.ID)
	require.NotNil(t, out.NameSimilarity)
	assert.Greater(t, *out.NameSimilarity, 50)
}

func TestMatchAmountRuleRequiresExactDecimalEquality(t *testing.T) {
	source := &staticPayments{payments: []model.PaymentRequest{
		pending(1, 2000.01, "", baseTime),
	}}
	m := New(defaultConfig(), source)

	emailDate := baseTime.Add(time.Minute)
	out, err := m.Match(context.Background(), record(2000, "", "John Doe"), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
}

func TestMatchEarlyArrivalMargin(t *testing.T) {
	// payment created after the email arrived, inside the 5 minute margin
	created := baseTime
	source := &staticPayments{payments: []model.PaymentRequest{
		pending(1, 2000, "", created),
	}}
	m := New(defaultConfig(), source)

	emailDate := created.Add(-4 * time.Minute)
	out, err := m.Match(context.Background(), record(2000, "", "anyone"), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultMatched, out.Result)

	// beyond the margin the candidate is out of window
	emailDate = created.Add(-6 * time.Minute)
	out, err = m.Match(context.Background(), record(2000, "", "anyone"), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
}

func TestMatchTieBrokenByEarliestCreation(t *testing.T) {
	older := pending(1, 2000, "", baseTime)
	older.PayerNameHint = "Completely Different"
	newer := pending(2, 2000, "", baseTime.Add(10*time.Minute))
	newer.PayerNameHint = "Completely Different"

	m := New(defaultConfig(), &staticPayments{payments: []model.PaymentRequest{newer, older}})

	emailDate := baseTime.Add(30 * time.Minute)
	out, err := m.Match(context.Background(), record(2000, "", "Completely Different"), emailDate, emailDate)
	require.NoError(t, err)
	require.Equal(t, model.ResultMatched, out.Result)
	assert.Equal(t, uint(1), out.Payment.ID)
}

func TestMatchNoExtractableAmount(t *testing.T) {
	m := New(defaultConfig(), &staticPayments{})
	out, err := m.Match(context.Background(), extractor.Record{Method: extractor.MethodFallback}, baseTime, baseTime)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
	assert.Equal(t, "no extractable amount", out.Reason)
}

func TestMatchExpiredPaymentsExcluded(t *testing.T) {
	p := pending(1, 5000, "1234567890", baseTime)
	p.ExpiresAt = baseTime.Add(10 * time.Minute)
	m := New(defaultConfig(), &staticPayments{payments: []model.PaymentRequest{p}})

	emailDate := baseTime.Add(30 * time.Minute)
	out, err := m.Match(context.Background(), record(5000, "1234567890", ""), emailDate, emailDate)
	require.NoError(t, err)
	assert.Equal(t, model.ResultUnmatched, out.Result)
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 100, NameSimilarity("John Doe", "John Doe"))
	assert.Equal(t, 100, NameSimilarity("DOE, JOHN", "john doe"))
	assert.Equal(t, 0, NameSimilarity("", "John Doe"))
	assert.Equal(t, 0, NameSimilarity("John Doe", ""))

	jon := NameSimilarity("Jon Doe", "John Doe")
	jane := NameSimilarity("Jon Doe", "Jane Roe")
	assert.Greater(t, jon, jane)
}
