package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
	"deposit-mail-reconciler/internal/pool"
)

// CreatePayment registers an expected deposit and assigns a receiving
// account from the requested pool. Slot assignment and payment creation
// happen in one transaction, so there is no window where an account is
// handed out without a request holding it.
func (h *Handlers) CreatePayment(c *gin.Context) {
	var req model.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: expected_amount and pool_kind are required",
			Code:    http.StatusBadRequest,
		})
		return
	}
	if !req.ExpectedAmount.IsPositive() {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "expected_amount must be positive",
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

	ttl := req.ExpiresInMinutes
	if ttl <= 0 {
		ttl = h.paymentTTL
	}

	payment := &model.PaymentRequest{
		TransactionID:  uuid.New().String(),
		BusinessID:     req.BusinessID,
		BusinessName:   req.BusinessName,
		PayerNameHint:  req.PayerNameHint,
		ExpectedAmount: req.ExpectedAmount,
		PoolKind:       req.PoolKind,
		Status:         model.PaymentPending,
		ExpiresAt:      time.Now().Add(time.Duration(ttl) * time.Minute),
	}

	ctx := c.Request.Context()
	_, err := h.pool.Assign(ctx, req.PoolKind, req.BusinessID, func(tx *gorm.DB, slot *model.AccountSlot) error {
		payment.AssignedAccountNumber = slot.AccountNumber
		return h.payments.Create(ctx, tx, payment)
	})
	if err != nil {
		if errors.Is(err, pool.ErrNoSlotAvailable) {
			c.JSON(http.StatusConflict, model.ErrorResponse{
				Error:   "pool_exhausted",
				Message: "No account slot available, retry later",
				Code:    http.StatusConflict,
			})
			return
		}
		logrus.Errorf("Failed to create payment: %v", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to create payment request",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// ListPayments returns payment requests, optionally filtered by status.
func (h *Handlers) ListPayments(c *gin.Context) {
	status := model.PaymentStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	payments, err := h.payments.List(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch payments",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetPayment returns one payment request by id.
func (h *Handlers) GetPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid payment ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	payment, err := h.payments.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error:   "not_found",
				Message: "Payment not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch payment",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	c.JSON(http.StatusOK, payment)
}

// RejectPayment manually rejects a pending payment, releasing its slot. A
// payment that already left pending is reported as a conflict.
func (h *Handlers) RejectPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid payment ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "manually rejected"
	}

	ok, err := h.payments.Reject(c.Request.Context(), uint(id), body.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to reject payment",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, model.ErrorResponse{
			Error:   "already_settled",
			Message: "Payment is no longer pending",
			Code:    http.StatusConflict,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}
