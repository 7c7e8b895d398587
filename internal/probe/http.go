package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/fraudrisk/internal/domain/model"
)

// HTTPClient wraps http.Client with a per-request timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// predict posts one profile to /predict and records the answer.
// Transport failures are kept on the outcome rather than returned.
func predict(ctx context.Context, client *HTTPClient, url string, p Profile) Outcome {
	out := Outcome{Profile: p}
	start := time.Now()
	resp, err := client.Post(ctx, url, p.Input)
	out.Latency = time.Since(start)
	if err != nil {
		out.Problem = "request failed"
		return out
	}
	defer resp.Body.Close()

	out.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		out.Problem = "reading response failed"
		return out
	}
	if resp.StatusCode != http.StatusOK {
		out.Problem = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return out
	}

	var r model.RiskResult
	if err := json.Unmarshal(body, &r); err != nil {
		out.Problem = "malformed response body"
		return out
	}
	out.Result = &r
	return out
}
