package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"deposit-mail-reconciler/internal/model"
)

// InboundWebhook accepts a deposit alert pushed by a mail provider webhook.
func (h *Handlers) InboundWebhook(c *gin.Context) {
	h.processInbound(c, model.SourceWebhook)
}

// InboundZapier accepts a deposit alert forwarded by a Zapier integration.
// The payload shape is the same; only the recorded source differs.
func (h *Handlers) InboundZapier(c *gin.Context) {
	h.processInbound(c, model.SourceZapier)
}

func (h *Handlers) processInbound(c *gin.Context, source model.EmailSource) {
	var req model.InboundEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: message_id and from are required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	result, err := h.reconciler.ProcessEmail(c.Request.Context(), model.InboundEmail{
		MessageID: req.MessageID,
		Subject:   req.Subject,
		From:      req.From,
		TextBody:  req.Text,
		HTMLBody:  req.HTML,
		Date:      date,
		Source:    source,
	})
	if err != nil {
		logrus.Errorf("Failed to process inbound email %s: %v", req.MessageID, err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "processing_error",
			Message: "Failed to process email",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, model.ProcessEmailResponse{
		Matched:   result.Matched,
		Duplicate: result.Duplicate,
		Reason:    result.Reason,
		Payment:   result.Payment,
	})
}
