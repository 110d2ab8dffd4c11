// Package relay is the HTTP client for the proof-verification relay.
//
// The client is stateless: every method is a single round trip bounded by
// the configured timeout. Non-2xx responses surface as *HTTPError with the
// status code and body preserved; only 503 is marked retryable, and
// retrying is left to the caller.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	opRegisterVK  = "register-vk"
	opSubmitProof = "submit-proof"
	opJobStatus   = "job-status"
)

// maxBodySize caps how much of a relay response is read.
const maxBodySize = 4 << 20

// Client talks to one relay deployment.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client for baseURL authenticated by apiKey. timeout bounds
// each request; zero means 30s.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterVK registers a verification key and returns the relay's
// identifier for it.
func (c *Client) RegisterVK(ctx context.Context, req RegisterVKRequest) (*RegisterVKResponse, error) {
	if req.ProofType == "" {
		req.ProofType = ProofTypeGroth16
	}
	body, err := c.do(ctx, opRegisterVK, http.MethodPost, c.endpoint(opRegisterVK), req)
	if err != nil {
		return nil, err
	}
	hash, err := parseVKHash(body)
	if err != nil {
		return nil, err
	}
	return &RegisterVKResponse{VKHash: hash, Raw: json.RawMessage(body)}, nil
}

// SubmitProof submits a proof against a registered key. A response whose
// OptimisticVerify is not "success" is returned without error; callers
// decide via Accepted.
func (c *Client) SubmitProof(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.ProofType == "" {
		req.ProofType = ProofTypeGroth16
	}
	req.VKRegistered = true

	body, err := c.do(ctx, opSubmitProof, http.MethodPost, c.endpoint(opSubmitProof), req)
	if err != nil {
		return nil, err
	}
	var resp SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ShapeError{Op: opSubmitProof, Body: string(body)}
	}
	resp.Raw = json.RawMessage(body)
	return &resp, nil
}

// JobStatus fetches the current status of a submitted job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, fmt.Errorf("relay %s: empty job id", opJobStatus)
	}
	body, err := c.do(ctx, opJobStatus, http.MethodGet, c.endpoint(opJobStatus, jobID), nil)
	if err != nil {
		return nil, err
	}
	st, err := parseJobStatus(body)
	if err != nil {
		return nil, err
	}
	if st.JobID == "" {
		st.JobID = jobID
	}
	return st, nil
}

// endpoint builds {base}/{op}/{apiKey}[/{extra}...].
func (c *Client) endpoint(op string, extra ...string) string {
	parts := []string{c.baseURL, op, url.PathEscape(c.apiKey)}
	for _, e := range extra {
		parts = append(parts, url.PathEscape(e))
	}
	return strings.Join(parts, "/")
}

// redact hides the API key in a URL before logging.
func (c *Client) redact(u string) string {
	if c.apiKey == "" {
		return u
	}
	return strings.ReplaceAll(u, url.PathEscape(c.apiKey), "***")
}

func (c *Client) do(ctx context.Context, op, method, u string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("relay %s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("relay %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("relay request failed",
			zap.String("op", op),
			zap.String("url", c.redact(u)),
			zap.Error(err))
		return nil, fmt.Errorf("relay %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("relay %s: read response: %w", op, err)
	}

	c.log.Debug("relay request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", c.redact(u)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
