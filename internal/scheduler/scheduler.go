package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/config"
	"deposit-mail-reconciler/internal/fetcher"
	"deposit-mail-reconciler/internal/metrics"
	"deposit-mail-reconciler/internal/reconciler"
)

// Scheduler drives the periodic work: the mailbox fetch cycle feeding
// ingestion, and the reconciliation sweep that retries everything still
// open.
type Scheduler struct {
	cron       *cron.Cron
	config     *config.SchedulerConfig
	fetchers   []fetcher.Fetcher
	reconciler *reconciler.Reconciler
	metrics    *metrics.Metrics
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	isRunning  bool
	mu         sync.RWMutex
}

// NewScheduler creates a scheduler. fetchers may be empty when all mail
// arrives via the inbound webhook instead of polling.
func NewScheduler(cfg *config.SchedulerConfig, fetchers []fetcher.Fetcher, rec *reconciler.Reconciler, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		config:     cfg,
		fetchers:   fetchers,
		reconciler: rec,
		metrics:    m,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start registers the cron entries and begins ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	// fresh cron and context so a stopped scheduler can be started again
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(cron.WithSeconds())

	if len(s.fetchers) > 0 {
		fetchSchedule := fmt.Sprintf("0 */%d * * * *", s.config.FetchIntervalMinutes)
		if _, err := s.cron.AddFunc(fetchSchedule, s.fetchCycle); err != nil {
			return fmt.Errorf("failed to add fetch cron job: %w", err)
		}
	}

	sweepSchedule := fmt.Sprintf("0 */%d * * * *", s.config.SweepIntervalMinutes)
	if _, err := s.cron.AddFunc(sweepSchedule, s.sweepCycle); err != nil {
		return fmt.Errorf("failed to add sweep cron job: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started: fetch every %d minutes (%d fetchers), sweep every %d minutes",
		s.config.FetchIntervalMinutes, len(s.fetchers), s.config.SweepIntervalMinutes)
	return nil
}

// Stop cancels in-flight work and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}

	s.isRunning = false
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// fetchCycle pulls new mail from every configured transport and runs each
// message through the pipeline. A failing transport is logged and skipped;
// the remaining transports still run.
func (s *Scheduler) fetchCycle() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.FetchCycles.Inc()
	}

	total := 0
	for _, f := range s.fetchers {
		emails, err := f.Fetch(s.ctx)
		if err != nil {
			logrus.Errorf("Fetch failed: %v", err)
			continue
		}
		for _, email := range emails {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if _, err := s.reconciler.ProcessEmail(s.ctx, email); err != nil {
				logrus.Errorf("Failed to process email %s: %v", email.MessageID, err)
			}
		}
		total += len(emails)
	}

	logrus.Infof("Fetch cycle completed in %v, %d emails", time.Since(start), total)
}

// sweepCycle re-runs matching over everything still unmatched.
func (s *Scheduler) sweepCycle() {
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		return
	}
	s.mu.RUnlock()

	summary, err := s.reconciler.ReconcileAll(s.ctx)
	if err != nil {
		logrus.Errorf("Reconciliation sweep failed: %v", err)
		return
	}
	logrus.Debugf("Sweep summary: %+v", summary)
}

// RunOnce triggers one fetch cycle followed by one sweep (for manual
// triggering).
func (s *Scheduler) RunOnce() error {
	logrus.Info("Running fetch and sweep once")
	s.fetchCycle()
	s.sweepCycle()
	return nil
}

// Wait blocks until all in-flight jobs have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
