package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deposit-mail-reconciler/internal/model"
)

// ListSlots returns all account slots.
func (h *Handlers) ListSlots(c *gin.Context) {
	slots, err := h.slots.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch slots",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, slots)
}

// CreateSlot registers a receiving bank account in a pool.
func (h *Handlers) CreateSlot(c *gin.Context) {
	var req model.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: account_number and pool_kind are required",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if !req.PoolKind.Valid() {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "unknown pool_kind",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if req.PoolKind == model.PoolBusinessSpecific && req.BusinessID == nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "business_id is required for business-specific slots",
			Code:    http.StatusBadRequest,
		})
		return
	}

	slot := model.AccountSlot{
		AccountNumber: req.AccountNumber,
		BankName:      req.BankName,
		PoolKind:      req.PoolKind,
		BusinessID:    req.BusinessID,
		IsActive:      true,
	}
	if req.IsActive != nil {
		slot.IsActive = *req.IsActive
	}

	if err := h.slots.Create(c.Request.Context(), &slot); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create slot",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusCreated, slot)
}
