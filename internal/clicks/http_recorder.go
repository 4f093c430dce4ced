package clicks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// recordPayload is the wire shape expected by the external click tracker.
type recordPayload struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"`
}

// HTTPRecorder posts accepted clicks to the external tracking endpoint.
type HTTPRecorder struct {
	url    string
	client *http.Client
}

// NewHTTPRecorder creates a recorder for the given endpoint.
func NewHTTPRecorder(url string) *HTTPRecorder {
	return &HTTPRecorder{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RecordClick delivers one click. Non-2xx responses are errors.
func (r *HTTPRecorder) RecordClick(ctx context.Context, c *Click) error {
	payload, err := json.Marshal(recordPayload{
		ID:        c.LinkID,
		UserID:    c.ActorID,
		Hash:      c.Token,
		Timestamp: c.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal click record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build click record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post click record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("click record endpoint returned %d", resp.StatusCode)
	}
	return nil
}
