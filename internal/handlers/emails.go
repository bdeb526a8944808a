package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// ListEmails returns ingested emails, optionally filtered by matched state.
func (h *Handlers) ListEmails(c *gin.Context) {
	var matched *bool
	if raw := c.Query("matched"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Error:   "validation_error",
				Message: "matched must be true or false",
				Code:    http.StatusBadRequest,
			})
			return
		}
		matched = &v
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	emails, err := h.emails.List(c.Request.Context(), matched, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch emails",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, emails)
}

// GetEmail returns one ingested email by id.
func (h *Handlers) GetEmail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid email ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	email, err := h.emails.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Email not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch email",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, email)
}
