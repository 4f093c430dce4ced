package abuse

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/earnlink/earnlink/internal/auth"
	"github.com/earnlink/earnlink/internal/pagination"
)

// Handler provides HTTP endpoints for the click-pattern surface.
type Handler struct {
	engine *Engine
	store  Store
}

// NewHandler creates an abuse handler.
func NewHandler(engine *Engine, store Store) *Handler {
	return &Handler{engine: engine, store: store}
}

// RegisterRoutes sets up user-facing security routes (auth required).
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/security/clicks", h.RecordClick)
	r.GET("/security/check", h.Check)
	r.DELETE("/security/session", h.ResetSession)
}

// RegisterAdminRoutes sets up back-office violation routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/violations", h.ListViolations)
}

// RecordClick handles POST /v1/security/clicks.
// The mini-app calls this for every document click while the ban-check
// surface is active.
func (h *Handler) RecordClick(c *gin.Context) {
	userID := c.GetString(auth.ContextKeyUserID)
	h.engine.RecordClick(userID)
	c.Status(http.StatusAccepted)
}

// Check handles GET /v1/security/check.
func (h *Handler) Check(c *gin.Context) {
	userID := c.GetString(auth.ContextKeyUserID)
	assessment := h.engine.Check(c.Request.Context(), userID)
	c.JSON(http.StatusOK, assessment)
}

// ResetSession handles DELETE /v1/security/session. Called when the surface
// closes so stale samples never bleed into a new session.
func (h *Handler) ResetSession(c *gin.Context) {
	userID := c.GetString(auth.ContextKeyUserID)
	h.engine.Reset(userID)
	c.Status(http.StatusNoContent)
}

// ListViolations handles GET /v1/admin/violations.
func (h *Handler) ListViolations(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	// The actor filter is a narrow audit lookup; only the full listing pages.
	if actor := c.Query("actor"); actor != "" {
		violations, err := h.store.ListByActor(c.Request.Context(), actor, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
			return
		}
		if violations == nil {
			violations = []*Violation{}
		}
		c.JSON(http.StatusOK, gin.H{"violations": violations, "count": len(violations)})
		return
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor", "message": "Malformed cursor"})
		return
	}

	violations, err := h.store.ListPage(c.Request.Context(), cursor, limit+1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}

	violations, next, hasMore := pagination.ComputePage(violations, limit, func(v *Violation) (time.Time, string) {
		return v.CreatedAt, v.ID
	})
	if violations == nil {
		violations = []*Violation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"violations": violations,
		"count":      len(violations),
		"nextCursor": next,
		"hasMore":    hasMore,
	})
}
