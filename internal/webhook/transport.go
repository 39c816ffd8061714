package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	userAgent          = "paywall-webhooks/1"
	defaultMaxResponse = 64 << 10
	bodySnippet        = 256
)

// Target is where one attempt goes and how long it may take.
type Target struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// Deliverer performs one signed delivery attempt.
type Deliverer interface {
	Deliver(ctx context.Context, target Target, env Envelope) error
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Transport POSTs envelopes over HTTP. It is stateless apart from the client
// and safe for concurrent use.
type Transport struct {
	client      *http.Client
	maxResponse int64
}

var _ Deliverer = (*Transport)(nil)

func NewTransport(maxResponseBytes int64) *Transport {
	if maxResponseBytes <= 0 {
		maxResponseBytes = defaultMaxResponse
	}
	return &Transport{
		client: &http.Client{
			// redirects are reported as failures
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxResponse: maxResponseBytes,
	}
}

func (t *Transport) Deliver(ctx context.Context, target Target, env Envelope) error {
	body, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	if target.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, target.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(SignatureHeader, Sign(target.Secret, body))

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("webhook timed out after %s: %w", target.Timeout, err)
		}
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, t.maxResponse))
	if resp.StatusCode/100 != 2 {
		return &StatusError{StatusCode: resp.StatusCode, Body: snippet(raw)}
	}
	return nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > bodySnippet {
		s = s[:bodySnippet] + "..."
	}
	return s
}
