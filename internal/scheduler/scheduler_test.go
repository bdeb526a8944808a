package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deposit-mail-reconciler/internal/config"
	"deposit-mail-reconciler/internal/extractor"
	"deposit-mail-reconciler/internal/fetcher"
	"deposit-mail-reconciler/internal/matcher"
	"deposit-mail-reconciler/internal/model"
	"deposit-mail-reconciler/internal/reconciler"

	"github.com/shopspring/decimal"
)

// dummyFetcher implements fetcher.Fetcher with a canned batch.
type dummyFetcher struct {
	emails []model.InboundEmail
}

func (d *dummyFetcher) Fetch(ctx context.Context) ([]model.InboundEmail, error) {
	return d.emails, nil
}
func (d *dummyFetcher) Close() error { return nil }

type stubEmailStore struct {
	mu     sync.Mutex
	stored []model.IngestedEmail
}

func (s *stubEmailStore) Store(_ context.Context, in model.InboundEmail) (bool, *model.IngestedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := model.IngestedEmail{ID: uint(len(s.stored) + 1), MessageID: in.MessageID, ReceivedAt: in.Date}
	s.stored = append(s.stored, email)
	return true, &email, nil
}

func (s *stubEmailStore) Get(_ context.Context, id uint) (*model.IngestedEmail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.stored[id-1]
	return &cp, nil
}

func (s *stubEmailStore) SaveExtraction(context.Context, uint, extractor.Record) error { return nil }
func (s *stubEmailStore) MarkMatched(context.Context, uint, uint) (bool, error)        { return true, nil }
func (s *stubEmailStore) RecordAttempt(context.Context, uint, string) error            { return nil }
func (s *stubEmailStore) Unmatched(context.Context) ([]model.IngestedEmail, error)     { return nil, nil }

func (s *stubEmailStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stored)
}

type stubPaymentStore struct{}

func (stubPaymentStore) PendingPayments(context.Context, time.Time) ([]model.PaymentRequest, error) {
	return nil, nil
}
func (stubPaymentStore) Settle(context.Context, uint, decimal.Decimal, bool, string, uint) (bool, error) {
	return true, nil
}

type stubAttemptStore struct {
	mu    sync.Mutex
	count int
}

func (s *stubAttemptStore) Create(context.Context, *model.MatchAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

type noTemplates struct{}

func (noTemplates) EnabledTemplates() ([]model.ExtractionTemplate, error) { return nil, nil }

func newTestScheduler(fetchers []fetcher.Fetcher, emails *stubEmailStore, attempts *stubAttemptStore) *Scheduler {
	rec := reconciler.New(emails, stubPaymentStore{}, attempts,
		extractor.New(noTemplates{}),
		matcher.New(matcher.Config{TimeWindow: 2 * time.Hour, EarlyArrival: 5 * time.Minute, AmountTolerance: decimal.Zero}, stubPaymentStore{}),
		nil, nil)
	cfg := &config.SchedulerConfig{FetchIntervalMinutes: 60, SweepIntervalMinutes: 60}
	return NewScheduler(cfg, fetchers, rec, nil)
}

func TestSchedulerRestart(t *testing.T) {
	sched := newTestScheduler([]fetcher.Fetcher{&dummyFetcher{}}, &stubEmailStore{}, &stubAttemptStore{})

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())

	assert.Error(t, sched.Start(), "double start must be rejected")

	require.NoError(t, sched.Stop())
	assert.False(t, sched.IsRunning())

	require.NoError(t, sched.Start())
	assert.True(t, sched.IsRunning())
	require.NoError(t, sched.Stop())
}

func TestRunOnceProcessesFetchedEmails(t *testing.T) {
	emails := &stubEmailStore{}
	attempts := &stubAttemptStore{}
	f := &dummyFetcher{emails: []model.InboundEmail{
		{
			MessageID: "<cycle-1@bank>",
			From:      "alerts@zenithbank.com",
			TextBody:  "Credit Alert\nAmount: NGN 250.00\nAccount: 0123456789\n",
			Date:      time.Now(),
			Source:    model.SourceIMAP,
		},
	}}

	sched := newTestScheduler([]fetcher.Fetcher{f}, emails, attempts)
	require.NoError(t, sched.Start())
	defer sched.Stop()

	require.NoError(t, sched.RunOnce())

	assert.Equal(t, 1, emails.count())
	attempts.mu.Lock()
	assert.Equal(t, 1, attempts.count)
	attempts.mu.Unlock()
}
