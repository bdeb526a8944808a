package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/pool"
	"deposit-mail-reconciler/internal/reconciler"
	"deposit-mail-reconciler/internal/repository"
	"deposit-mail-reconciler/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db         *gorm.DB
	reconciler *reconciler.Reconciler
	scheduler  *scheduler.Scheduler
	pool       *pool.Manager
	payments   *repository.PaymentRepository
	emails     *repository.EmailRepository
	attempts   *repository.AttemptRepository
	templates  *repository.TemplateRepository
	slots      *repository.SlotRepository
	paymentTTL int
}

// NewHandlers creates new HTTP handlers. paymentTTLMinutes is the default
// expiry applied when a create-payment request does not set one.
func NewHandlers(db *gorm.DB, rec *reconciler.Reconciler, sched *scheduler.Scheduler, poolMgr *pool.Manager,
	payments *repository.PaymentRepository, emails *repository.EmailRepository,
	attempts *repository.AttemptRepository, templates *repository.TemplateRepository,
	slots *repository.SlotRepository, paymentTTLMinutes int) *Handlers {
	return &Handlers{
		db:         db,
		reconciler: rec,
		scheduler:  sched,
		pool:       poolMgr,
		payments:   payments,
		emails:     emails,
		attempts:   attempts,
		templates:  templates,
		slots:      slots,
		paymentTTL: paymentTTLMinutes,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		// inbound email delivery
		api.POST("/inbound/webhook", h.InboundWebhook)
		api.POST("/inbound/zapier", h.InboundZapier)

		// payment requests
		api.POST("/payments", h.CreatePayment)
		api.GET("/payments", h.ListPayments)
		api.GET("/payments/:id", h.GetPayment)
		api.POST("/payments/:id/reject", h.RejectPayment)

		// ingested emails
		api.GET("/emails", h.ListEmails)
		api.GET("/emails/:id", h.GetEmail)

		// match attempts and manual review
		api.GET("/attempts", h.ListAttempts)
		api.POST("/attempts/:id/review", h.ReviewAttempt)

		// bank extraction templates
		api.GET("/templates", h.ListTemplates)
		api.POST("/templates", h.CreateTemplate)
		api.GET("/templates/:id", h.GetTemplate)
		api.PUT("/templates/:id", h.UpdateTemplate)
		api.DELETE("/templates/:id", h.DeleteTemplate)

		// account slots
		api.GET("/slots", h.ListSlots)
		api.POST("/slots", h.CreateSlot)

		// reconciliation control
		api.POST("/reconcile", h.RunReconciliation)
		api.GET("/scheduler/status", h.SchedulerStatus)
	}
}
