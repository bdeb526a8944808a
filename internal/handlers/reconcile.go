package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/model"
)

// RunReconciliation triggers one sweep over everything still unmatched and
// returns its summary.
func (h *Handlers) RunReconciliation(c *gin.Context) {
	summary, err := h.reconciler.ReconcileAll(c.Request.Context())
	if err != nil {
		logrus.Errorf("Manual reconciliation sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "reconciliation_error",
			Message: "Reconciliation sweep failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SchedulerStatus reports whether the periodic fetch/sweep loop is running.
func (h *Handlers) SchedulerStatus(c *gin.Context) {
	running := h.scheduler != nil && h.scheduler.IsRunning()
	c.JSON(http.StatusOK, gin.H{"running": running})
}
