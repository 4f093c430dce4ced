package abuse

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// reportPayload is the wire shape expected by the external security endpoint.
type reportPayload struct {
	Type     PatternType   `json:"type"`
	Severity Severity      `json:"severity"`
	Details  reportDetails `json:"details"`
}

type reportDetails struct {
	ClickInterval float64 `json:"clickInterval"`
	PatternMatch  int     `json:"patternMatch"`
	ClickCount    int     `json:"clickCount"`
	Timestamp     int64   `json:"timestamp"`
}

// HTTPReporter posts violation reports to an external endpoint. Delivery is
// at most once: there is no retry, and a failed report is simply lost.
type HTTPReporter struct {
	url    string
	secret string // optional HMAC key for the signature header
	client *http.Client
}

// NewHTTPReporter creates a reporter for the given endpoint. If secret is
// non-empty, each request carries an HMAC-SHA256 signature of the body.
func NewHTTPReporter(url, secret string) *HTTPReporter {
	return &HTTPReporter{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Report delivers one violation. Non-2xx responses are errors.
func (r *HTTPReporter) Report(ctx context.Context, v *Violation) error {
	payload, err := json.Marshal(reportPayload{
		Type:     v.Type,
		Severity: v.Severity,
		Details: reportDetails{
			ClickInterval: v.ClickInterval,
			PatternMatch:  v.PatternMatch,
			ClickCount:    v.ClickCount,
			Timestamp:     v.Timestamp,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal violation report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-EarnLink-Timestamp", fmt.Sprintf("%d", v.Timestamp))
	if r.secret != "" {
		req.Header.Set("X-EarnLink-Signature", sign(payload, r.secret))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("report rejected: status %d", resp.StatusCode)
	}
	return nil
}

func sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
