package matcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"deposit-mail-reconciler/internal/extractor"
	"deposit-mail-reconciler/internal/model"
)

// Config holds the matching-rule knobs, passed in at construction.
type Config struct {
	TimeWindow      time.Duration
	EarlyArrival    time.Duration
	AmountTolerance decimal.Decimal
}

// PaymentSource supplies the candidate set: pending, non-expired payment
// requests as of now.
type PaymentSource interface {
	PendingPayments(ctx context.Context, now time.Time) ([]model.PaymentRequest, error)
}

// Outcome is the full result of one matching evaluation. Metric fields are
// nil when the step that computes them never ran.
type Outcome struct {
	Result          model.MatchResult
	Payment         *model.PaymentRequest
	AmountDiff      *decimal.Decimal
	NameSimilarity  *int
	TimeDiffMinutes *int
	Reason          string
}

// Matched reports whether the outcome selects a payment for settlement.
func (o Outcome) Matched() bool {
	return o.Result == model.ResultMatched || o.Result == model.ResultPartial
}

// Matcher decides which pending payment, if any, an extracted record
// satisfies. Ranked rules, first satisfied wins: exact account + amount,
// account + time window with tolerated amount drift, then amount + window +
// name similarity when no account number was extracted.
type Matcher struct {
	cfg      Config
	payments PaymentSource
}

// New creates a Matcher.
func New(cfg Config, payments PaymentSource) *Matcher {
	return &Matcher{cfg: cfg, payments: payments}
}

// Match evaluates one extracted record against the current pending payments.
// It is a pure, bounded computation over the fetched candidate set; the only
// error is a storage failure reading candidates.
func (m *Matcher) Match(ctx context.Context, rec extractor.Record, emailDate time.Time, now time.Time) (Outcome, error) {
	if rec.Amount == nil {
		return Outcome{Result: model.ResultUnmatched, Reason: "no extractable amount"}, nil
	}

	candidates, err := m.payments.PendingPayments(ctx, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load pending payments: %w", err)
	}

	if rec.AccountNumber != "" {
		return m.matchByAccount(rec, candidates, emailDate), nil
	}
	return m.matchByAmountAndName(rec, candidates, emailDate), nil
}

// matchByAccount handles the exact-account rules. Amount is still checked:
// exact equality wins outright; a single in-window holder within tolerance is
// approved as a mismatch; anything else is unmatched with a reason.
func (m *Matcher) matchByAccount(rec extractor.Record, candidates []model.PaymentRequest, emailDate time.Time) Outcome {
	var holders []model.PaymentRequest
	for _, p := range candidates {
		if p.AssignedAccountNumber != "" && p.AssignedAccountNumber == rec.AccountNumber {
			holders = append(holders, p)
		}
	}
	if len(holders) == 0 {
		return Outcome{
			Result: model.ResultUnmatched,
			Reason: fmt.Sprintf("no pending payment holds account %s", rec.AccountNumber),
		}
	}

	inWindow := m.filterWindow(holders, emailDate)
	if len(inWindow) == 0 {
		first := holders[0]
		return Outcome{
			Result:          model.ResultUnmatched,
			TimeDiffMinutes: intPtr(minutesBetween(first.CreatedAt, emailDate)),
			Reason: fmt.Sprintf("time window exceeded: email arrived %d minutes after request creation (window %d minutes)",
				minutesBetween(first.CreatedAt, emailDate), int(m.cfg.TimeWindow.Minutes())),
		}
	}

	// exact amount wins, earliest request on ties
	var exact []model.PaymentRequest
	for _, p := range inWindow {
		if p.ExpectedAmount.Equal(*rec.Amount) {
			exact = append(exact, p)
		}
	}
	if len(exact) > 0 {
		sortByCreation(exact)
		winner := exact[0]
		return Outcome{
			Result:          model.ResultMatched,
			Payment:         &winner,
			AmountDiff:      decimalPtr(decimal.Zero),
			TimeDiffMinutes: intPtr(minutesBetween(winner.CreatedAt, emailDate)),
			Reason:          "exact account and amount match",
		}
	}

	if len(inWindow) > 1 {
		return Outcome{
			Result: model.ResultUnmatched,
			Reason: fmt.Sprintf("ambiguous: %d pending requests hold account %s in window and none matches the amount", len(inWindow), rec.AccountNumber),
		}
	}

	// single in-window holder with a different amount: approve within the
	// configured tolerance band, flagged as mismatch
	winner := inWindow[0]
	diff := rec.Amount.Sub(winner.ExpectedAmount)
	outcome := Outcome{
		Payment:         &winner,
		AmountDiff:      decimalPtr(diff),
		TimeDiffMinutes: intPtr(minutesBetween(winner.CreatedAt, emailDate)),
	}
	if diff.Abs().GreaterThan(m.cfg.AmountTolerance) {
		outcome.Result = model.ResultUnmatched
		outcome.Payment = nil
		outcome.Reason = fmt.Sprintf("amount %s differs from expected %s beyond tolerance %s",
			rec.Amount.String(), winner.ExpectedAmount.String(), m.cfg.AmountTolerance.String())
		return outcome
	}
	outcome.Result = model.ResultPartial
	outcome.Reason = fmt.Sprintf("account match with amount mismatch within tolerance: received %s, expected %s",
		rec.Amount.String(), winner.ExpectedAmount.String())
	return outcome
}

// matchByAmountAndName handles records without an extracted account number:
// exact decimal amount equality inside the window, best name similarity
// against the payer hint, ties broken by earliest creation.
func (m *Matcher) matchByAmountAndName(rec extractor.Record, candidates []model.PaymentRequest, emailDate time.Time) Outcome {
	var inWindow []model.PaymentRequest
	for _, p := range candidates {
		if p.ExpectedAmount.Equal(*rec.Amount) {
			inWindow = append(inWindow, p)
		}
	}
	inWindow = m.filterWindow(inWindow, emailDate)
	if len(inWindow) == 0 {
		return Outcome{
			Result: model.ResultUnmatched,
			Reason: fmt.Sprintf("no pending payment expecting %s inside the time window", rec.Amount.String()),
		}
	}

	sortByCreation(inWindow)
	winner := inWindow[0]
	bestScore := NameSimilarity(rec.SenderName, payerHint(&winner))
	for i := 1; i < len(inWindow); i++ {
		score := NameSimilarity(rec.SenderName, payerHint(&inWindow[i]))
		if score > bestScore {
			winner = inWindow[i]
			bestScore = score
		}
	}

	return Outcome{
		Result:          model.ResultMatched,
		Payment:         &winner,
		AmountDiff:      decimalPtr(decimal.Zero),
		NameSimilarity:  intPtr(bestScore),
		TimeDiffMinutes: intPtr(minutesBetween(winner.CreatedAt, emailDate)),
		Reason:          fmt.Sprintf("amount match with %d%% name similarity", bestScore),
	}
}

// filterWindow keeps candidates whose creation time brackets the email date:
// [created_at - early_arrival, created_at + time_window].
func (m *Matcher) filterWindow(candidates []model.PaymentRequest, emailDate time.Time) []model.PaymentRequest {
	var out []model.PaymentRequest
	for _, p := range candidates {
		if !emailDate.Before(p.CreatedAt.Add(-m.cfg.EarlyArrival)) && !emailDate.After(p.CreatedAt.Add(m.cfg.TimeWindow)) {
			out = append(out, p)
		}
	}
	return out
}

func payerHint(p *model.PaymentRequest) string {
	if p.PayerNameHint != "" {
		return p.PayerNameHint
	}
	return p.BusinessName
}

func sortByCreation(ps []model.PaymentRequest) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}

func minutesBetween(from, to time.Time) int {
	return int(to.Sub(from).Minutes())
}

func intPtr(v int) *int { return &v }

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
