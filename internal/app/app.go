package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/config"
	"deposit-mail-reconciler/internal/database"
	"deposit-mail-reconciler/internal/extractor"
	"deposit-mail-reconciler/internal/fetcher"
	"deposit-mail-reconciler/internal/handlers"
	"deposit-mail-reconciler/internal/matcher"
	"deposit-mail-reconciler/internal/metrics"
	"deposit-mail-reconciler/internal/notifier"
	"deposit-mail-reconciler/internal/pool"
	"deposit-mail-reconciler/internal/reconciler"
	"deposit-mail-reconciler/internal/repository"
	"deposit-mail-reconciler/internal/scheduler"
	"deposit-mail-reconciler/internal/server"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Deposit Mail Reconciler")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m := metrics.NewMetrics()

	emailRepo := repository.NewEmailRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	attemptRepo := repository.NewAttemptRepository(dbConn)
	templateRepo := repository.NewTemplateRepository(dbConn)
	slotRepo := repository.NewSlotRepository(dbConn)

	var notif reconciler.Notifier
	if cfg.Webhook.URL != "" {
		notif = notifier.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.MaxRetries, cfg.Webhook.Timeout)
		logrus.Infof("Settlement webhook enabled: %s", cfg.Webhook.URL)
	} else {
		notif = notifier.NoopNotifier{}
	}

	ex := extractor.New(templateRepo)
	ma := matcher.New(matcher.Config{
		TimeWindow:      cfg.Matching.TimeWindow(),
		EarlyArrival:    cfg.Matching.EarlyArrival(),
		AmountTolerance: cfg.Matching.Tolerance(),
	}, paymentRepo)
	rec := reconciler.New(emailRepo, paymentRepo, attemptRepo, ex, ma, notif, m)
	poolMgr := pool.NewManager(slotRepo)

	fetchers, err := buildFetchers(cfg.Mail)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(&cfg.Scheduler, fetchers, rec, m)

	h := handlers.NewHandlers(dbConn, rec, sched, poolMgr,
		paymentRepo, emailRepo, attemptRepo, templateRepo, slotRepo,
		cfg.Matching.PaymentTTLMinutes)
	router := server.New(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	for _, f := range fetchers {
		if err := f.Close(); err != nil {
			logrus.Errorf("Failed to close fetcher: %v", err)
		}
	}

	logrus.Info("Server stopped gracefully")
	return nil
}

// buildFetchers assembles the enabled mailbox transports. Both may run at
// once; ingestion dedupe on message id keeps the overlap harmless.
func buildFetchers(cfg config.MailConfig) ([]fetcher.Fetcher, error) {
	var fetchers []fetcher.Fetcher

	if cfg.IMAPEnabled {
		f, err := fetcher.NewIMAPFetcher(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create IMAP fetcher: %w", err)
		}
		fetchers = append(fetchers, f)
		logrus.Info("IMAP fetching enabled")
	}
	if cfg.GmailEnabled {
		f, err := fetcher.NewGmailFetcher(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gmail API fetcher: %w", err)
		}
		fetchers = append(fetchers, f)
		logrus.Info("Gmail API fetching enabled")
	}
	if len(fetchers) == 0 {
		logrus.Info("No mailbox fetchers enabled, relying on inbound webhooks")
	}
	return fetchers, nil
}
