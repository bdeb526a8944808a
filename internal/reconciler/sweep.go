package reconciler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/model"
)

// SweepSummary reports the result of one ReconcileAll run.
type SweepSummary struct {
	EmailsExamined  int `json:"emails_examined"`
	PendingPayments int `json:"pending_payments"`
	Matched         int `json:"matched"`
	Unmatched       int `json:"unmatched"`
	Skipped         int `json:"skipped"`
}

type pairKey struct {
	paymentID uint
	emailID   uint
}

// sweepState dedupes attempt logging within one sweep run so the two
// symmetric passes cannot produce two audit rows for the same
// (payment, email) pair.
type sweepState struct {
	attempted map[pairKey]bool
}

func newSweepState() *sweepState {
	return &sweepState{attempted: make(map[pairKey]bool)}
}

// mark records the pair and reports whether it was new. A nil payment is
// keyed as payment 0, covering no-candidate outcomes per email.
func (s *sweepState) mark(payment *model.PaymentRequest, emailID uint) bool {
	key := pairKey{emailID: emailID}
	if payment != nil {
		key.paymentID = payment.ID
	}
	if s.attempted[key] {
		return false
	}
	s.attempted[key] = true
	return true
}

// ReconcileAll re-runs matching for everything still open: first every
// unmatched email against the current pending payments, then the reverse
// direction so a payment created after its email arrived still finds it.
// Extraction is not repeated; the stored extracted_* fields are reused.
// Emails matched concurrently between listing and evaluation are skipped.
func (r *Reconciler) ReconcileAll(ctx context.Context) (*SweepSummary, error) {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.SweepRuns.Inc()
	}

	state := newSweepState()
	summary := &SweepSummary{}

	if err := r.sweepEmails(ctx, state, summary); err != nil {
		return nil, err
	}
	if err := r.sweepPayments(ctx, state, summary); err != nil {
		return nil, err
	}

	logrus.Infof("Sweep finished in %s: %d emails examined, %d matched, %d unmatched, %d skipped",
		time.Since(start).Round(time.Millisecond), summary.EmailsExamined, summary.Matched, summary.Unmatched, summary.Skipped)
	return summary, nil
}

func (r *Reconciler) sweepEmails(ctx context.Context, state *sweepState, summary *SweepSummary) error {
	emails, err := r.emails.Unmatched(ctx)
	if err != nil {
		return err
	}
	summary.EmailsExamined = len(emails)

	for i := range emails {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.sweepOne(ctx, emails[i].ID, state, summary); err != nil {
			return err
		}
	}
	return nil
}

// sweepPayments is the reverse pass: for each still-pending payment,
// re-evaluate the unmatched emails that plausibly belong to it. The
// evaluation itself is the same as the forward pass, so a pair already
// tried is skipped via the sweep state rather than re-logged.
func (r *Reconciler) sweepPayments(ctx context.Context, state *sweepState, summary *SweepSummary) error {
	pending, err := r.payments.PendingPayments(ctx, time.Now())
	if err != nil {
		return err
	}
	summary.PendingPayments = len(pending)
	if r.metrics != nil {
		r.metrics.PendingPayments.Set(float64(len(pending)))
	}
	if len(pending) == 0 {
		return nil
	}

	emails, err := r.emails.Unmatched(ctx)
	if err != nil {
		return err
	}

	for i := range pending {
		payment := &pending[i]
		for j := range emails {
			if err := ctx.Err(); err != nil {
				return err
			}
			email := &emails[j]
			if !candidatePair(payment, email) {
				continue
			}
			if state.attempted[pairKey{paymentID: payment.ID, emailID: email.ID}] {
				continue
			}
			if err := r.sweepOne(ctx, email.ID, state, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

// sweepOne re-reads the email for a fresh matched flag, then evaluates it
// against the current pending set.
func (r *Reconciler) sweepOne(ctx context.Context, emailID uint, state *sweepState, summary *SweepSummary) error {
	email, err := r.emails.Get(ctx, emailID)
	if err != nil {
		return err
	}
	if email.IsMatched {
		summary.Skipped++
		return nil
	}

	rec := recordFromStored(email)
	result, err := r.evaluate(ctx, email, rec, email.ReceivedAt, state)
	if err != nil {
		return err
	}
	if result.Matched {
		summary.Matched++
	} else {
		summary.Unmatched++
	}
	return nil
}

// candidatePair is a cheap pre-filter for the reverse pass: the email must
// at least share the payment's assigned account or its exact expected
// amount to be worth a full evaluation.
func candidatePair(payment *model.PaymentRequest, email *model.IngestedEmail) bool {
	if email.ExtractedAccountNumber != "" && email.ExtractedAccountNumber == payment.AssignedAccountNumber {
		return true
	}
	if email.ExtractedAmount != nil && email.ExtractedAmount.Equal(payment.ExpectedAmount) {
		return true
	}
	return false
}
