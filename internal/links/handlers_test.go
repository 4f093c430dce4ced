package links

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryStore(), testLogger())
	h := NewHandler(svc)

	r := gin.New()
	h.RegisterRoutes(r.Group("/v1"))
	h.RegisterAdminRoutes(r.Group("/v1/admin"))
	return r, svc
}

func TestListLinksEndpoint(t *testing.T) {
	r, svc := setupRouter(t)

	_, err := svc.Create(context.Background(), CreateLinkRequest{Title: "One", URL: "https://one.example.com"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/links", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Links []*Link `json:"links"`
		Count int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "One", body.Links[0].Title)
}

func TestCreateLinkEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/links",
		strings.NewReader(`{"title":"Promo","url":"https://promo.example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Link *Link `json:"link"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Link.Active)
}

func TestCreateLinkEndpointRejectsBadURL(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/links",
		strings.NewReader(`{"title":"Promo","url":"javascript:alert(1)"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLinkEndpointNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/links/lnk_missing",
		strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteLinkEndpoint(t *testing.T) {
	r, svc := setupRouter(t)

	link, err := svc.Create(context.Background(), CreateLinkRequest{Title: "Bye", URL: "https://bye.example.com"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/links/"+link.ID, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, svc.Active())
}
