package handler

import (
	"context"
	"net/http"

	"leadmarket_backend/internal/pricing/service"
	"leadmarket_backend/internal/pricing/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/sanitize"
	"leadmarket_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Quoter prices a job, falling back to constants when rules fail.
type Quoter interface {
	QuoteWithFallback(ctx context.Context, in service.QuoteInput) (service.Quote, error)
}

// Handler serves the public quote estimate.
type Handler struct {
	quoter Quoter
	val    *validator.Validator
}

// New creates a new pricing handler.
func New(quoter Quoter, val *validator.Validator) *Handler {
	return &Handler{quoter: quoter, val: val}
}

// RegisterPublicRoutes mounts the unauthenticated routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/estimate", h.Estimate)
}

// Estimate prices a job without persisting anything.
func (h *Handler) Estimate(c *gin.Context) {
	var req transport.EstimateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	req.JobType = sanitize.Token(req.JobType)
	req.HandlingRequirements = sanitize.Tokens(req.HandlingRequirements)
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	quote, err := h.quoter.QuoteWithFallback(c.Request.Context(), service.InputFromRequest(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, service.ToResponse(quote))
}
