// Package contactout provides a client for the ContactOut enrichment and
// search API. Rate limiting is signaled by the server via HTTP 429 with an
// optional Retry-After header, which this client surfaces as a transient
// error so the shared retry wrapper can honor the requested delay.
package contactout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

const defaultBaseURL = "https://api.contactout.com/v1"

// Client defines the ContactOut operations used by the enrichment handlers.
type Client interface {
	// EnrichProfile looks up contact details for a LinkedIn profile URL.
	EnrichProfile(ctx context.Context, profileURL string) (*Profile, error)
	// EnrichDomain looks up a company by its website domain.
	EnrichDomain(ctx context.Context, domain string) (*Company, error)
	// SearchPeople runs a structured people search.
	SearchPeople(ctx context.Context, q PeopleQuery) ([]Profile, error)
	// SearchCompanies runs a structured company search.
	SearchCompanies(ctx context.Context, q CompanyQuery) ([]Company, error)
}

// Profile is the provider's documented person shape.
type Profile struct {
	URL            string   `json:"url"`
	FullName       string   `json:"full_name"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	WorkEmails     []string `json:"work_emails"`
	PersonalEmails []string `json:"personal_emails"`
	Phones         []string `json:"phones"`
	Country        string   `json:"country"`
	Confidence     int      `json:"confidence"`
}

// Company is the provider's documented company shape.
type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Industry string `json:"industry"`
	Size     string `json:"size"`
}

// PeopleQuery is the request body for POST /people/search.
type PeopleQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// CompanyQuery is the request body for POST /company/search.
type CompanyQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// APIError is a non-transient provider failure carrying the HTTP status so
// the dispatcher can key friendly messages off it (403 credits, 404 no match).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("contactout: status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus exposes the status code to resilience.StatusCodeOf.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a ContactOut client. An empty API key is a configuration
// error raised immediately rather than on first call.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("contactout: api key is required")
	}
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *httpClient) EnrichProfile(ctx context.Context, profileURL string) (*Profile, error) {
	var out struct {
		Profile Profile `json:"profile"`
	}
	endpoint := "/people/enrich?profile=" + url.QueryEscape(profileURL)
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, eris.Wrapf(err, "contactout: enrich profile %s", profileURL)
	}
	return &out.Profile, nil
}

func (c *httpClient) EnrichDomain(ctx context.Context, domain string) (*Company, error) {
	var out struct {
		Company Company `json:"company"`
	}
	endpoint := "/domain/enrich?domain=" + url.QueryEscape(domain)
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, eris.Wrapf(err, "contactout: enrich domain %s", domain)
	}
	return &out.Company, nil
}

func (c *httpClient) SearchPeople(ctx context.Context, q PeopleQuery) ([]Profile, error) {
	var out struct {
		Profiles []Profile `json:"profiles"`
	}
	if err := c.post(ctx, "/people/search", q, &out); err != nil {
		return nil, eris.Wrap(err, "contactout: people search")
	}
	return out.Profiles, nil
}

func (c *httpClient) SearchCompanies(ctx context.Context, q CompanyQuery) ([]Company, error) {
	var out struct {
		Companies []Company `json:"companies"`
	}
	if err := c.post(ctx, "/company/search", q, &out); err != nil {
		return nil, eris.Wrap(err, "contactout: company search")
	}
	return out.Companies, nil
}

func (c *httpClient) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	return c.do(req, out)
}

func (c *httpClient) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do sends one request and maps the response to the error taxonomy: 429 and
// 5xx become transient errors (retried by the caller's resilience wrapper),
// other non-2xx become APIError. No retry happens here.
func (c *httpClient) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return eris.Wrap(err, "rate limiter")
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resilience.NewRateLimitError(
			eris.Errorf("rate limited: %s", string(body)),
			parseRetryAfter(resp.Header.Get("Retry-After")),
		)
	case resp.StatusCode >= 500:
		return resilience.NewTransientError(
			eris.Errorf("server error %d: %s", resp.StatusCode, string(body)),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

// parseRetryAfter handles the delta-seconds form of the Retry-After header.
// The HTTP-date form is rare on API rate limiters and falls back to 0.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
