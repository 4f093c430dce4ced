package clicks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRecorderPayload(t *testing.T) {
	var got recordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	recorder := NewHTTPRecorder(srv.URL)
	err := recorder.RecordClick(context.Background(), &Click{
		ID:        "clk_1",
		LinkID:    "lnk_tg",
		ActorID:   "user-1",
		Token:     "bG5rX3RnMTcwMDAwMHNlY3JldA",
		Timestamp: 1_700_000_000_000,
	})
	require.NoError(t, err)

	// The external tracker keys on the link, not the internal click row.
	assert.Equal(t, "lnk_tg", got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "bG5rX3RnMTcwMDAwMHNlY3JldA", got.Hash)
	assert.Equal(t, int64(1_700_000_000_000), got.Timestamp)
}

func TestHTTPRecorderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPRecorder(srv.URL).RecordClick(context.Background(), &Click{ID: "clk_1"})
	assert.ErrorContains(t, err, "503")
}

func TestHTTPRecorderUnreachable(t *testing.T) {
	err := NewHTTPRecorder("http://127.0.0.1:1").RecordClick(context.Background(), &Click{ID: "clk_1"})
	assert.Error(t, err)
}
