package handler

import (
	"net/http"

	appbilling "github.com/agentchat/backend/internal/application/billing"
	"github.com/agentchat/backend/internal/domain/billing"
	"github.com/agentchat/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BillingHandler exposes the billing summary and the billing action
// endpoint
type BillingHandler struct {
	BaseHandler
	service *appbilling.BillingService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(service *appbilling.BillingService) *BillingHandler {
	return &BillingHandler{service: service}
}

// RegisterRoutes registers billing routes
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/billing")
	{
		group.GET("", h.GetSummary)
		group.POST("", h.HandleAction)
	}
}

// GetSummary returns the caller's billing and usage summary
func (h *BillingHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), userID)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, dto.ToBillingSummaryResponse(summary))
}

// HandleAction dispatches a billing action by its discriminator
func (h *BillingHandler) HandleAction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var req dto.BillingActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	switch req.Action {
	case dto.ActionUpgradeTier:
		h.upgradeTier(c, userID, req)
	case dto.ActionCancelSubscription:
		h.cancelSubscription(c, userID)
	case dto.ActionGenerateInvoice:
		h.generateInvoice(c, userID)
	case dto.ActionProcessPayment:
		h.processPayment(c, userID, req)
	default:
		h.BadRequest(c, "Unknown billing action")
	}
}

func (h *BillingHandler) upgradeTier(c *gin.Context, userID uuid.UUID, req dto.BillingActionRequest) {
	if req.Tier == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "tier is required for upgrade_tier")
		return
	}

	profile, err := h.service.UpgradeTier(c.Request.Context(), userID, billing.Tier(req.Tier))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.ToProfileResponse(profile))
}

func (h *BillingHandler) cancelSubscription(c *gin.Context, userID uuid.UUID) {
	profile, err := h.service.CancelSubscription(c.Request.Context(), userID)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.ToProfileResponse(profile))
}

func (h *BillingHandler) generateInvoice(c *gin.Context, userID uuid.UUID) {
	invoice, err := h.service.GenerateInvoice(c.Request.Context(), userID)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, dto.ToInvoiceResponse(invoice))
}

func (h *BillingHandler) processPayment(c *gin.Context, userID uuid.UUID, req dto.BillingActionRequest) {
	if req.InvoiceID == "" || req.PaymentMethod == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "invoice_id and payment_method are required for process_payment")
		return
	}
	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "invoice_id is not a valid UUID")
		return
	}

	payment, err := h.service.ProcessPayment(c.Request.Context(), userID, invoiceID, billing.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.ToPaymentResponse(payment))
}
