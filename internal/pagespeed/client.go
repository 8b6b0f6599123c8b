package pagespeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public PageSpeed Insights endpoint.
const DefaultBaseURL = "https://www.googleapis.com"

const runPath = "/pagespeedonline/v5/runPagespeed"

// ErrNoLighthouseResult is returned when a 200 response carries no lab data.
var ErrNoLighthouseResult = errors.New("response has no lighthouseResult")

type Client struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	apiCallCount int64
	apiCallMutex sync.Mutex
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a PageSpeed Insights client. apiKey may be empty.
// Requests have no timeout of their own; bound them through ctx.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IncrementAPICall safely increments the API call counter
func (c *Client) IncrementAPICall() {
	c.apiCallMutex.Lock()
	c.apiCallCount++
	c.apiCallMutex.Unlock()
}

// GetAPICallCount returns the current API call count
func (c *Client) GetAPICallCount() int64 {
	c.apiCallMutex.Lock()
	defer c.apiCallMutex.Unlock()
	return c.apiCallCount
}

// ResetAPICallCount resets the API call counter to zero
func (c *Client) ResetAPICallCount() {
	c.apiCallMutex.Lock()
	c.apiCallCount = 0
	c.apiCallMutex.Unlock()
}

// RequestURL builds the runPagespeed URL for a target and strategy.
func (c *Client) RequestURL(target string, strategy Strategy) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", string(strategy))
	for _, cat := range categories {
		q.Add("category", cat)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return c.baseURL + runPath + "?" + q.Encode()
}

// Run performs one PageSpeed analysis. Any non-200 status, transport error or
// undecodable body is returned as an error; callers treat it as "no data".
func (c *Client) Run(ctx context.Context, target string, strategy Strategy) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(target, strategy), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.IncrementAPICall()

	log.Info().
		Str("url", target).
		Str("strategy", string(strategy)).
		Msg("Running PageSpeed analysis")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Debug().
			Int("status_code", resp.StatusCode).
			Str("response_body", string(body)).
			Msg("Non-200 response from PageSpeed API")
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var psr Response
	if err := json.NewDecoder(resp.Body).Decode(&psr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if psr.LighthouseResult == nil {
		return nil, ErrNoLighthouseResult
	}

	report := &Report{
		URL:      target,
		Strategy: strategy,
		Scores:   psr.LighthouseResult.scores(),
		Audits:   psr.LighthouseResult.Audits,
	}

	log.Debug().
		Str("url", target).
		Str("strategy", string(strategy)).
		Int("audits", len(report.Audits)).
		Msg("Decoded PageSpeed response")

	return report, nil
}
