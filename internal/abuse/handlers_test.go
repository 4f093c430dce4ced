package abuse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnlink/earnlink/internal/auth"
)

func setupHandlerTest(t *testing.T) (*gin.Engine, *Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewMemoryStore()
	engine := NewEngine(store, nil)
	h := NewHandler(engine, store)

	r := gin.New()
	// Stand-in for the auth middleware: trust X-User-Token as a raw user ID.
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-User-Token"); uid != "" {
			c.Set(auth.ContextKeyUserID, uid)
		}
		c.Next()
	})
	v1 := r.Group("/v1", auth.RequireUser())
	h.RegisterRoutes(v1)
	admin := r.Group("/v1/admin")
	h.RegisterAdminRoutes(admin)

	return r, engine, store
}

func TestRecordClickEndpoint(t *testing.T) {
	r, engine, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/security/clicks", nil)
	req.Header.Set("X-User-Token", "usr_1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	win := engine.getWindow("usr_1")
	win.mu.Lock()
	n := win.win.Len()
	win.mu.Unlock()
	assert.Equal(t, 1, n)
}

func TestCheckEndpointReturnsAssessment(t *testing.T) {
	r, _, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/security/check", nil)
	req.Header.Set("X-User-Token", "usr_1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var a Assessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Equal(t, SeverityLow, a.Severity)
	assert.Equal(t, MsgNormal, a.Message)
}

func TestSecurityEndpointsRequireIdentity(t *testing.T) {
	r, _, _ := setupHandlerTest(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/security/clicks"},
		{http.MethodGet, "/v1/security/check"},
		{http.MethodDelete, "/v1/security/session"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestResetSessionEndpoint(t *testing.T) {
	r, engine, _ := setupHandlerTest(t)
	engine.RecordClick("usr_1")

	req := httptest.NewRequest(http.MethodDelete, "/v1/security/session", nil)
	req.Header.Set("X-User-Token", "usr_1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	_, ok := engine.windows.Load("usr_1")
	assert.False(t, ok, "window should be gone after session reset")
}

func TestListViolationsEndpoint(t *testing.T) {
	r, _, store := setupHandlerTest(t)

	require.NoError(t, store.Record(context.Background(), &Violation{
		ID: "vio_1", ActorID: "usr_1", Type: PatternScript, Severity: SeverityMedium,
	}))
	require.NoError(t, store.Record(context.Background(), &Violation{
		ID: "vio_2", ActorID: "usr_2", Type: PatternAutoClicker, Severity: SeverityHigh,
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/violations?actor=usr_2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Violations []*Violation `json:"violations"`
		Count      int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "vio_2", resp.Violations[0].ID)
}

func TestListViolationsEmpty(t *testing.T) {
	r, _, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/violations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"violations":[]`)
}

func TestListViolationsPagination(t *testing.T) {
	r, _, store := setupHandlerTest(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(context.Background(), &Violation{
			ID:        fmt.Sprintf("vio_%d", i),
			ActorID:   "usr_1",
			Type:      PatternScript,
			Severity:  SeverityMedium,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page := func(cursor string) (ids []string, next string, hasMore bool) {
		t.Helper()
		url := "/v1/admin/violations?limit=2"
		if cursor != "" {
			url += "&cursor=" + cursor
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Violations []*Violation `json:"violations"`
			NextCursor string       `json:"nextCursor"`
			HasMore    bool         `json:"hasMore"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		for _, v := range resp.Violations {
			ids = append(ids, v.ID)
		}
		return ids, resp.NextCursor, resp.HasMore
	}

	// Most recent first, two per page, no overlap across pages.
	ids, next, hasMore := page("")
	assert.Equal(t, []string{"vio_4", "vio_3"}, ids)
	assert.True(t, hasMore)
	require.NotEmpty(t, next)

	ids, next, hasMore = page(next)
	assert.Equal(t, []string{"vio_2", "vio_1"}, ids)
	assert.True(t, hasMore)

	ids, _, hasMore = page(next)
	assert.Equal(t, []string{"vio_0"}, ids)
	assert.False(t, hasMore)
}

func TestListViolationsBadCursor(t *testing.T) {
	r, _, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/violations?cursor=%21%21not-base64", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
