package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// ListAttempts returns match attempts, optionally filtered by payment or
// email id.
func (h *Handlers) ListAttempts(c *gin.Context) {
	paymentID, ok := optionalIDQuery(c, "payment_id")
	if !ok {
		return
	}
	emailID, ok := optionalIDQuery(c, "email_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	attempts, err := h.attempts.List(c.Request.Context(), paymentID, emailID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch match attempts",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// ReviewAttempt annotates a match attempt during manual review. Decision
// fields of the attempt are immutable; only the review columns are written.
func (h *Handlers) ReviewAttempt(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid attempt ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	var req model.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: reviewed_by is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := h.attempts.Annotate(c.Request.Context(), uint(id), req.ReviewedBy, req.Note); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Match attempt not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to annotate attempt",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reviewed"})
}

// optionalIDQuery parses an optional uint query parameter. On a malformed
// value it writes the error response and reports false.
func optionalIDQuery(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: name + " must be a positive integer",
			Code:    http.StatusBadRequest,
		})
		return nil, false
	}
	id := uint(v)
	return &id, true
}
