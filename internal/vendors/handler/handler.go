package handler

import (
	"leadmarket_backend/internal/vendors/service"
	"leadmarket_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves vendor self-service routes.
type Handler struct {
	svc *service.Service
}

// New creates a new vendors handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts routes on the authenticated /vendor group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}

// Me returns the caller's vendor profile.
func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	vendor, err := h.svc.GetByUserID(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, vendor)
}
