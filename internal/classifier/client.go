package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout       = 15 * time.Second
	DefaultHealthTimeout = 3 * time.Second
	DefaultMaxConcurrent = 2
)

// Client posts extracted text to the classification service.
type Client struct {
	Endpoint      string
	Timeout       time.Duration
	HealthTimeout time.Duration
	MaxConcurrent int
	// Origin, when set, is sent on every request and the response must echo
	// it (or "*") in Access-Control-Allow-Origin.
	Origin string

	client *http.Client
	logger zerolog.Logger

	mu     sync.Mutex
	active int
}

// NewClient creates a classification client for endpoint, which is the full
// URL of the analyze route.
func NewClient(endpoint string, timeout time.Duration, maxConcurrent int, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Client{
		Endpoint:      endpoint,
		Timeout:       timeout,
		HealthTimeout: DefaultHealthTimeout,
		MaxConcurrent: maxConcurrent,
		client:        &http.Client{},
		logger:        logger,
	}
}

// Active returns the number of outstanding classification calls.
func (c *Client) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Client) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active >= c.MaxConcurrent {
		return false
	}
	c.active++
	return true
}

func (c *Client) release() {
	c.mu.Lock()
	c.active--
	c.mu.Unlock()
}

// Classify sends req to the service. Failures are *Error values carrying a
// Kind, or ErrInProgress when MaxConcurrent calls are already outstanding.
func (c *Client) Classify(ctx context.Context, req Request) (*Result, error) {
	if !c.acquire() {
		return nil, ErrInProgress
	}
	defer c.release()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("classifier: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("classifier: failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.Origin != "" {
		httpReq.Header.Set("Origin", c.Origin)
	}

	log := c.logger.With().Str("request_id", requestID).Logger()
	log.Debug().
		Str("endpoint", c.Endpoint).
		Int("text_length", len(req.Text)).
		Str("page_type", req.PageType).
		Str("language", req.Language).
		Msg("sending classification request")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}
	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("classification response received")

	if c.Origin != "" && !allowsOrigin(resp.Header.Get("Access-Control-Allow-Origin"), c.Origin) {
		return nil, &Error{Kind: KindCORS, Status: resp.StatusCode, Message: "origin " + c.Origin + " not allowed"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, string(respBody))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &Error{Kind: KindUnknown, Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return &result, nil
}

func allowsOrigin(header, origin string) bool {
	header = strings.TrimSpace(header)
	return header == "*" || strings.EqualFold(header, origin)
}

// BaseURL strips the trailing analyze route from endpoint.
func BaseURL(endpoint string) string {
	base := strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(base, "/analyze")
}

// HealthURL derives the health route that sits next to the analyze route.
func HealthURL(endpoint string) string {
	return BaseURL(endpoint) + "/health"
}

// Health probes the service. Any 2xx response is healthy.
func (c *Client) Health(ctx context.Context) error {
	timeout := c.HealthTimeout
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, HealthURL(c.Endpoint), nil)
	if err != nil {
		return fmt.Errorf("classifier: failed to create health request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, resp.Status)
	}
	return nil
}

// SubmitFeedback posts a user report next to the analyze route.
func (c *Client) SubmitFeedback(ctx context.Context, fb Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("classifier: failed to encode feedback: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, BaseURL(c.Endpoint)+"/feedback", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("classifier: failed to create feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, string(respBody))
	}
	return nil
}
