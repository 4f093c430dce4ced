package links

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/earnlink/earnlink/internal/validation"
)

const maxTitleLength = 200

// Handler provides HTTP endpoints for the link catalog.
type Handler struct {
	service *Service
}

// NewHandler creates a links handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up public (read-only) link routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/links", h.ListLinks)
}

// RegisterAdminRoutes sets up back-office catalog management.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/links", h.CreateLink)
	r.PUT("/links/:id", h.UpdateLink)
	r.DELETE("/links/:id", h.DeleteLink)
}

// ListLinks handles GET /v1/links.
func (h *Handler) ListLinks(c *gin.Context) {
	active := h.service.Active()
	c.JSON(http.StatusOK, gin.H{"links": active, "count": len(active)})
}

// CreateLink handles POST /v1/admin/links.
func (h *Handler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}
	req.Title = validation.SanitizeString(req.Title, maxTitleLength)
	req.Icon = validation.SanitizeString(req.Icon, maxTitleLength)

	link, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		status, code := mapError(err)
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"link": link})
}

// UpdateLink handles PUT /v1/admin/links/:id.
func (h *Handler) UpdateLink(c *gin.Context) {
	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}
	if req.Title != nil {
		*req.Title = validation.SanitizeString(*req.Title, maxTitleLength)
	}
	if req.Icon != nil {
		*req.Icon = validation.SanitizeString(*req.Icon, maxTitleLength)
	}

	link, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		status, code := mapError(err)
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"link": link})
}

// DeleteLink handles DELETE /v1/admin/links/:id.
func (h *Handler) DeleteLink(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status, code := mapError(err)
		c.JSON(status, gin.H{"error": code, "message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrEmptyTitle):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
