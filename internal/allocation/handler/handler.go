package handler

import (
	"context"
	"io"
	"net/http"

	"leadmarket_backend/internal/allocation/payment"
	"leadmarket_backend/internal/allocation/transport"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest    = "invalid request"
	msgValidationFailed  = "validation failed"
	msgInvalidLeadID     = "invalid lead id"
	msgInvalidPurchaseID = "invalid purchase id"
	msgInvalidSignature  = "invalid signature"
	maxWebhookBodyBytes  = 64 << 10
	signatureHeader      = "Stripe-Signature"
)

// Purchaser is the allocation service as seen by HTTP.
type Purchaser interface {
	Purchase(ctx context.Context, leadID, userID uuid.UUID) (transport.PurchaseResult, error)
	ListPurchases(ctx context.Context, userID uuid.UUID) (transport.PurchaseListResponse, error)
	ReportOutcome(ctx context.Context, userID, purchaseID uuid.UUID, outcome string) (transport.PurchaseResponse, error)
	ConfirmCheckout(ctx context.Context, sessionID string) error
	ExpireCheckout(ctx context.Context, sessionID string) error
}

// WebhookParser verifies and decodes payment provider callbacks.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error)
}

// Handler serves purchase, purchase history and payment webhook routes.
type Handler struct {
	svc     Purchaser
	webhook WebhookParser
	val     *validator.Validator
	log     *logger.Logger
}

// New creates a new allocation handler. webhook may be nil when payments are disabled.
func New(svc Purchaser, webhook WebhookParser, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{svc: svc, webhook: webhook, val: val, log: log}
}

// RegisterPurchaseRoutes mounts POST /leads/:id/purchase behind the given middleware.
func (h *Handler) RegisterPurchaseRoutes(rg *gin.RouterGroup, middleware ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, middleware...), h.Purchase)
	rg.POST("/leads/:id/purchase", handlers...)
}

// RegisterVendorRoutes mounts the vendor purchase history routes.
func (h *Handler) RegisterVendorRoutes(rg *gin.RouterGroup) {
	rg.GET("/purchases", h.ListPurchases)
	rg.PATCH("/purchases/:id/outcome", h.ReportOutcome)
}

// RegisterWebhookRoutes mounts the payment webhook when payments are enabled.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	if h.webhook == nil {
		return
	}
	rg.POST("/payments", h.PaymentWebhook)
}

// Purchase buys a lead for the calling vendor.
func (h *Handler) Purchase(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	result, err := h.svc.Purchase(c.Request.Context(), leadID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// ListPurchases returns the calling vendor's purchases.
func (h *Handler) ListPurchases(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	resp, err := h.svc.ListPurchases(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// ReportOutcome records how a purchased lead ended.
func (h *Handler) ReportOutcome(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	purchaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPurchaseID, nil)
		return
	}

	var req transport.ReportOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	resp, err := h.svc.ReportOutcome(c.Request.Context(), id.UserID(), purchaseID, req.Outcome)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// PaymentWebhook applies checkout completions and expirations, including the
// late result of a delayed payment method. Once the
// signature checks out, unknown sessions and events are acknowledged so the
// provider stops retrying; storage failures return 500 so it retries.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	event, err := h.webhook.ParseWebhook(payload, c.GetHeader(signatureHeader))
	if err != nil {
		h.log.WithContext(c.Request.Context()).Warn("rejected payment webhook", "error", err)
		httpkit.Error(c, http.StatusBadRequest, msgInvalidSignature, nil)
		return
	}

	ctx := c.Request.Context()
	log := h.log.WithContext(ctx).With("eventId", event.ID, "eventType", string(event.Type), "sessionId", event.SessionID)

	switch event.Type {
	case payment.EventCheckoutCompleted, payment.EventAsyncPaymentSucceeded:
		if !event.Paid {
			log.Info("checkout completed without payment, waiting")
			break
		}
		err = h.svc.ConfirmCheckout(ctx, event.SessionID)
	case payment.EventCheckoutExpired, payment.EventAsyncPaymentFailed:
		err = h.svc.ExpireCheckout(ctx, event.SessionID)
	default:
		log.Debug("ignoring payment event")
	}

	if err != nil {
		if kind := apperr.GetKind(err); kind == apperr.KindNotFound || kind == apperr.KindValidation {
			log.Warn("payment webhook for unknown checkout", "error", err)
		} else {
			httpkit.HandleError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
