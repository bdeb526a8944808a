package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// ListTemplates returns all bank extraction templates.
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch templates",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, templates)
}

// CreateTemplate creates a bank extraction template. Patterns must be valid
// regular expressions; broken patterns are rejected here rather than
// surfacing later as silent extraction misses.
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var req model.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if msg := validateTemplate(&req); msg != "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: msg,
			Code:    http.StatusBadRequest,
		})
		return
	}

	tpl := model.ExtractionTemplate{
		BankName:             req.BankName,
		SenderEmail:          req.SenderEmail,
		SenderDomain:         req.SenderDomain,
		AmountPattern:        req.AmountPattern,
		SenderNamePattern:    req.SenderNamePattern,
		AccountNumberPattern: req.AccountNumberPattern,
		Enabled:              true,
	}
	if req.Priority != nil {
		tpl.Priority = *req.Priority
	}
	if req.Enabled != nil {
		tpl.Enabled = *req.Enabled
	}

	if err := h.templates.Create(c.Request.Context(), &tpl); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create template",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// GetTemplate returns one template by id.
func (h *Handlers) GetTemplate(c *gin.Context) {
	tpl, ok := h.templateByID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// UpdateTemplate replaces the mutable fields of a template.
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	tpl, ok := h.templateByID(c)
	if !ok {
		return
	}

	var req model.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if msg := validateTemplate(&req); msg != "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: msg,
			Code:    http.StatusBadRequest,
		})
		return
	}

	tpl.BankName = req.BankName
	tpl.SenderEmail = req.SenderEmail
	tpl.SenderDomain = req.SenderDomain
	tpl.AmountPattern = req.AmountPattern
	tpl.SenderNamePattern = req.SenderNamePattern
	tpl.AccountNumberPattern = req.AccountNumberPattern
	if req.Priority != nil {
		tpl.Priority = *req.Priority
	}
	if req.Enabled != nil {
		tpl.Enabled = *req.Enabled
	}

	if err := h.templates.Save(c.Request.Context(), tpl); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to update template",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// DeleteTemplate soft-deletes a template.
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid template ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if err := h.templates.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Template not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to delete template",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handlers) templateByID(c *gin.Context) (*model.ExtractionTemplate, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid template ID",
			Code:    http.StatusBadRequest,
		})
		return nil, false
	}

	tpl, err := h.templates.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Template not found",
				Code:    http.StatusNotFound,
			})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch template",
			Code:    http.StatusInternalServerError,
		})
		return nil, false
	}
	return tpl, true
}

func validateTemplate(req *model.TemplateRequest) string {
	if req.SenderEmail == "" && req.SenderDomain == "" {
		return "sender_email or sender_domain is required"
	}
	if req.AmountPattern == "" {
		return "amount_pattern is required"
	}
	for _, p := range []string{req.AmountPattern, req.SenderNamePattern, req.AccountNumberPattern} {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return "invalid pattern: " + err.Error()
		}
	}
	return ""
}
