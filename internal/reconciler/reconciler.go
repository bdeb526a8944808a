package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/extractor"
	"deposit-mail-reconciler/internal/matcher"
	"deposit-mail-reconciler/internal/metrics"
	"deposit-mail-reconciler/internal/model"
	"deposit-mail-reconciler/internal/notifier"
)

// EmailStore is the ingestion store: deduplicated, idempotent persistence of
// every email with its extraction result.
type EmailStore interface {
	Store(ctx context.Context, in model.InboundEmail) (created bool, email *model.IngestedEmail, err error)
	Get(ctx context.Context, id uint) (*model.IngestedEmail, error)
	SaveExtraction(ctx context.Context, emailID uint, rec extractor.Record) error
	MarkMatched(ctx context.Context, emailID, paymentID uint) (bool, error)
	RecordAttempt(ctx context.Context, emailID uint, reason string) error
	Unmatched(ctx context.Context) ([]model.IngestedEmail, error)
}

// PaymentStore supplies match candidates and performs the settlement CAS.
type PaymentStore interface {
	PendingPayments(ctx context.Context, now time.Time) ([]model.PaymentRequest, error)
	Settle(ctx context.Context, paymentID uint, received decimal.Decimal, mismatch bool, mismatchReason string, emailID uint) (bool, error)
}

// AttemptStore appends audit records.
type AttemptStore interface {
	Create(ctx context.Context, attempt *model.MatchAttempt) error
}

// Notifier receives settlement events for external delivery.
type Notifier interface {
	PaymentSettled(ctx context.Context, event notifier.SettlementEvent)
}

// ProcessResult reports the outcome of processing one inbound email.
type ProcessResult struct {
	Matched   bool
	Duplicate bool
	Reason    string
	Payment   *model.PaymentRequest
}

// Reconciler drives the pipeline end to end: dedupe, extract, match,
// settle or log. Both the per-email path and the global sweep funnel
// through the same evaluation so behavior is identical regardless of entry
// point.
type Reconciler struct {
	emails    EmailStore
	payments  PaymentStore
	attempts  AttemptStore
	extractor *extractor.Extractor
	matcher   *matcher.Matcher
	notifier  Notifier
	metrics   *metrics.Metrics
}

// New creates a Reconciler. notif and m may be nil.
func New(emails EmailStore, payments PaymentStore, attempts AttemptStore, ex *extractor.Extractor, ma *matcher.Matcher, notif Notifier, m *metrics.Metrics) *Reconciler {
	if notif == nil {
		notif = notifier.NoopNotifier{}
	}
	return &Reconciler{
		emails:    emails,
		payments:  payments,
		attempts:  attempts,
		extractor: ex,
		matcher:   ma,
		notifier:  notif,
		metrics:   m,
	}
}

// ProcessEmail ingests one raw email and runs the full pipeline. Duplicate
// deliveries are a no-op success: the stored record is returned and no
// re-extraction or re-match happens. Only storage failures return an error;
// extraction and matching failures are absorbed into attempt records.
func (r *Reconciler) ProcessEmail(ctx context.Context, in model.InboundEmail) (*ProcessResult, error) {
	start := time.Now()

	created, email, err := r.emails.Store(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}
	if !created {
		logrus.Debugf("Email %s already ingested, skipping", in.MessageID)
		if r.metrics != nil {
			r.metrics.DuplicatesSkipped.Inc()
		}
		return &ProcessResult{
			Matched:   email.IsMatched,
			Duplicate: true,
			Reason:    "duplicate ingestion",
		}, nil
	}
	if r.metrics != nil {
		r.metrics.EmailsIngested.Inc()
	}

	rec := r.extractor.Extract(in)
	if err := r.emails.SaveExtraction(ctx, email.ID, rec); err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.ExtractionsByMethod.WithLabelValues(string(rec.Method)).Inc()
	}

	result, err := r.evaluate(ctx, email, rec, in.Date, nil)
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
	}
	return result, nil
}

// evaluate runs one match-and-settle cycle for an already ingested email.
// state is non-nil only during a sweep, where it dedupes attempt logging
// per (payment, email) pair.
func (r *Reconciler) evaluate(ctx context.Context, email *model.IngestedEmail, rec extractor.Record, emailDate time.Time, state *sweepState) (*ProcessResult, error) {
	outcome, err := r.matcher.Match(ctx, rec, emailDate, time.Now())
	if err != nil {
		return nil, err
	}

	settled := false
	if outcome.Matched() {
		settled, outcome, err = r.settle(ctx, email, rec, outcome)
		if err != nil {
			return nil, err
		}
	} else if r.metrics != nil {
		r.metrics.Unmatched.Inc()
	}

	if err := r.logAttempt(ctx, email, rec, outcome, state); err != nil {
		return nil, err
	}

	// a race-loser outcome keeps its payment for the attempt log above;
	// the caller-facing result only carries a payment that was settled.
	var settledPayment *model.PaymentRequest
	if settled {
		settledPayment = outcome.Payment
	}
	return &ProcessResult{
		Matched: settled,
		Reason:  outcome.Reason,
		Payment: settledPayment,
	}, nil
}

// settle transitions the matched payment to approved. The CAS on status is
// the authority: a concurrent settlement of the same payment leaves this
// caller with zero rows affected, which is logged as a rejected attempt,
// not treated as a fault. Slot release is implicit in the status change.
func (r *Reconciler) settle(ctx context.Context, email *model.IngestedEmail, rec extractor.Record, outcome matcher.Outcome) (bool, matcher.Outcome, error) {
	payment := outcome.Payment
	received := *rec.Amount
	mismatch := outcome.Result == model.ResultPartial
	mismatchReason := ""
	if mismatch {
		mismatchReason = outcome.Reason
	}

	ok, err := r.payments.Settle(ctx, payment.ID, received, mismatch, mismatchReason, email.ID)
	if err != nil {
		return false, outcome, err
	}
	if !ok {
		logrus.Infof("Lost settlement race for payment %d (email %s)", payment.ID, email.MessageID)
		if r.metrics != nil {
			r.metrics.SettlementConflicts.Inc()
		}
		// keep outcome.Payment: the attempt row still references the
		// contested payment even though this caller did not settle it.
		outcome.Result = model.ResultRejected
		outcome.Reason = "payment already settled"
		return false, outcome, nil
	}

	claimed, err := r.emails.MarkMatched(ctx, email.ID, payment.ID)
	if err != nil {
		return false, outcome, err
	}
	if !claimed {
		logrus.Warnf("Email %s was flagged matched concurrently with settling payment %d", email.MessageID, payment.ID)
	}

	if r.metrics != nil {
		r.metrics.Matches.Inc()
		if mismatch {
			r.metrics.MismatchApprovals.Inc()
		}
	}

	now := time.Now()
	r.notifier.PaymentSettled(ctx, notifier.SettlementEvent{
		TransactionID:  payment.TransactionID,
		PaymentID:      payment.ID,
		BusinessID:     payment.BusinessID,
		ExpectedAmount: payment.ExpectedAmount,
		ReceivedAmount: received,
		IsMismatch:     mismatch,
		AccountNumber:  payment.AssignedAccountNumber,
		EmailMessageID: email.MessageID,
		SettledAt:      now,
	})

	logrus.Infof("Settled payment %d with %s from email %s (mismatch=%v)",
		payment.ID, received.String(), email.MessageID, mismatch)
	return true, outcome, nil
}

// logAttempt appends the audit record and updates the email's attempt
// counters. During a sweep, a (payment, email) pair already logged in this
// run is skipped so the symmetric double pass cannot double-log.
func (r *Reconciler) logAttempt(ctx context.Context, email *model.IngestedEmail, rec extractor.Record, outcome matcher.Outcome, state *sweepState) error {
	if state != nil && !state.mark(outcome.Payment, email.ID) {
		return nil
	}

	attempt := buildAttempt(email, rec, outcome)
	if err := r.attempts.Create(ctx, attempt); err != nil {
		return err
	}
	return r.emails.RecordAttempt(ctx, email.ID, outcome.Reason)
}

func buildAttempt(email *model.IngestedEmail, rec extractor.Record, outcome matcher.Outcome) *model.MatchAttempt {
	attempt := &model.MatchAttempt{
		EmailID:          &email.ID,
		Result:           outcome.Result,
		AmountDiff:       outcome.AmountDiff,
		NameSimilarity:   outcome.NameSimilarity,
		TimeDiffMinutes:  outcome.TimeDiffMinutes,
		ExtractionMethod: string(rec.Method),
		Reason:           outcome.Reason,
	}
	if outcome.Payment != nil {
		attempt.PaymentID = &outcome.Payment.ID
	}

	details := map[string]interface{}{
		"message_id":        email.MessageID,
		"source":            email.Source,
		"extraction_method": rec.Method,
		"sender_name":       rec.SenderName,
		"account_number":    rec.AccountNumber,
		"result":            outcome.Result,
	}
	if rec.Amount != nil {
		details["amount"] = rec.Amount.String()
	}
	if rec.TemplateBank != "" {
		details["template_bank"] = rec.TemplateBank
	}
	if raw, err := json.Marshal(details); err == nil {
		attempt.Details = raw
	}
	return attempt
}

// recordFromStored rebuilds an extraction record from the persisted
// extracted_* fields, so sweep re-matching skips re-extraction.
func recordFromStored(email *model.IngestedEmail) extractor.Record {
	method := extractor.Method(email.ExtractionMethod)
	if method == "" {
		method = extractor.MethodFallback
	}
	return extractor.Record{
		Amount:             email.ExtractedAmount,
		SenderName:         email.ExtractedSenderName,
		AccountNumber:      email.ExtractedAccountNumber,
		PayerAccountNumber: email.PayerAccountNumber,
		Timestamp:          email.ReceivedAt,
		Method:             method,
	}
}
