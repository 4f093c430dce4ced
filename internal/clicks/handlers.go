package clicks

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/earnlink/earnlink/internal/auth"
	"github.com/earnlink/earnlink/internal/links"
)

// Handler provides HTTP endpoints for the click flow.
type Handler struct {
	coordinator *Coordinator
}

// NewHandler creates a clicks handler.
func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// RegisterRoutes sets up click routes (auth required).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/links/:id/click", h.Click)
	r.GET("/links/:id/cooldown", h.Cooldown)
}

// Click handles POST /v1/links/:id/click. A 409 means the link is mid
// cooldown; the client treats it as a silent no-op.
func (h *Handler) Click(c *gin.Context) {
	userID := c.GetString(auth.ContextKeyUserID)
	result, err := h.coordinator.Accept(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoIdentity):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "identity_required",
				"message": "Sign in before clicking links",
			})
		case errors.Is(err, links.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Link not found",
			})
		case errors.Is(err, ErrLinkLocked):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "link_locked",
				"message": "Link is cooling down",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Could not record click",
			})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// Cooldown handles GET /v1/links/:id/cooldown.
func (h *Handler) Cooldown(c *gin.Context) {
	locked, remaining := h.coordinator.CooldownState(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"linkId":    c.Param("id"),
		"locked":    locked,
		"remaining": remaining,
	})
}
