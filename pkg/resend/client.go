// Package resend provides a minimal client for the Resend transactional
// email API. The outreach sender only depends on a per-send success or
// failure outcome.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

const defaultBaseURL = "https://api.resend.com"

// Client sends outbound email.
type Client interface {
	// Send delivers one email and returns the provider message id.
	Send(ctx context.Context, email Email) (string, error)
}

// Email is a single outbound message.
type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendError is a non-transient delivery failure.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("resend: status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus exposes the status code to resilience.StatusCodeOf.
func (e *SendError) HTTPStatus() int {
	return e.StatusCode
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Resend client. An empty API key is a configuration
// error raised immediately.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("resend: api key is required")
	}
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *httpClient) Send(ctx context.Context, email Email) (string, error) {
	payload, err := json.Marshal(struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
	}{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
	})
	if err != nil {
		return "", eris.Wrap(err, "resend: marshal email")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "resend: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "resend: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "resend: read response body")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			retryAfter = time.Duration(secs) * time.Second
		}
		return "", resilience.NewRateLimitError(
			eris.Errorf("resend: rate limited: %s", string(body)), retryAfter)
	case resp.StatusCode >= 500:
		return "", resilience.NewTransientError(
			eris.Errorf("resend: server error %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return "", &SendError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "resend: unmarshal response")
	}
	return out.ID, nil
}
