package abuse

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleViolation() *Violation {
	return &Violation{
		ID:            "vio_test",
		ActorID:       "usr_1",
		Type:          PatternAutoClicker,
		Severity:      SeverityHigh,
		ClickInterval: 500,
		PatternMatch:  98,
		ClickCount:    4,
		Timestamp:     1700000000000,
	}
}

func TestHTTPReporterSendsExpectedBody(t *testing.T) {
	var gotBody []byte
	var gotSig string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-EarnLink-Signature")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL, "report-secret")
	err := rep.Report(context.Background(), sampleViolation())
	require.NoError(t, err)

	var payload struct {
		Type     string `json:"type"`
		Severity string `json:"severity"`
		Details  struct {
			ClickInterval float64 `json:"clickInterval"`
			PatternMatch  int     `json:"patternMatch"`
			ClickCount    int     `json:"clickCount"`
			Timestamp     int64   `json:"timestamp"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))

	assert.Equal(t, "AUTO_CLICKER", payload.Type)
	assert.Equal(t, "HIGH", payload.Severity)
	assert.Equal(t, 500.0, payload.Details.ClickInterval)
	assert.Equal(t, 98, payload.Details.PatternMatch)
	assert.Equal(t, 4, payload.Details.ClickCount)
	assert.Equal(t, int64(1700000000000), payload.Details.Timestamp)

	// Signature covers the exact payload bytes.
	mac := hmac.New(sha256.New, []byte("report-secret"))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)
}

func TestHTTPReporterNoSignatureWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-EarnLink-Signature"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL, "")
	assert.NoError(t, rep.Report(context.Background(), sampleViolation()))
}

func TestHTTPReporterNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rep := NewHTTPReporter(srv.URL, "")
	err := rep.Report(context.Background(), sampleViolation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestHTTPReporterUnreachableEndpoint(t *testing.T) {
	rep := NewHTTPReporter("http://127.0.0.1:1", "")
	err := rep.Report(context.Background(), sampleViolation())
	assert.Error(t, err)
}
