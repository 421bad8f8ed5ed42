package exchangehttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradeGate/internal/ports"
)

// maxReplyBytes bounds how much of an exchange reply is read.
const maxReplyBytes = 1 << 20

// Transport posts encoded orders to the exchange order endpoint.
// It never retries: an order whose reply was lost may already be live.
type Transport struct {
	url    string
	client *http.Client
	logger ports.Logger
	header http.Header
}

// Config holds configuration for the HTTP transport.
type Config struct {
	OrderURL string
	Logger   ports.Logger
	Timeout  time.Duration     // Client-level ceiling; the caller's context deadline usually fires first
	Headers  map[string]string // Extra headers, e.g. an API key for the signing gateway
	Client   *http.Client
}

// New creates a Transport.
func New(cfg Config) (*Transport, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for exchange transport: %w", ports.ErrConfigurationError)
	}
	if !strings.HasPrefix(cfg.OrderURL, "http://") && !strings.HasPrefix(cfg.OrderURL, "https://") {
		return nil, fmt.Errorf("order URL %q must be http(s): %w", cfg.OrderURL, ports.ErrConfigurationError)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	return &Transport{url: cfg.OrderURL, client: client, logger: cfg.Logger, header: header}, nil
}

// Submit sends payload and returns the raw reply body.
// Non-2xx replies that carry a body are returned for classification; only
// failures that leave no reply at all are returned as errors.
func (t *Transport) Submit(ctx context.Context, payload []byte) ([]byte, error) {
	op := "SubmitOrder"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w: %w", op, ports.ErrInvalidRequest, err)
	}
	req.Header = t.header.Clone()

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.translate(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, t.translate(ctx, op, fmt.Errorf("read reply: %w", err))
	}

	fields := ports.Fields{"status": resp.StatusCode, "latency": time.Since(start).String(), "bytes": len(body)}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		t.logger.Warn(ctx, "Order endpoint rate limited", fields)
		return nil, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ports.ErrRateLimited)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		t.logger.Warn(ctx, "Order endpoint refused credentials", fields)
		return nil, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ports.ErrAuthenticationFailed)
	case resp.StatusCode >= 500 && len(bytes.TrimSpace(body)) == 0:
		t.logger.Warn(ctx, "Order endpoint unavailable", fields)
		return nil, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, ports.ErrExchangeUnavailable)
	}

	t.logger.Debug(ctx, "Order endpoint replied", fields)
	return body, nil
}

func (t *Transport) translate(ctx context.Context, op string, err error) error {
	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", op, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s canceled: %w: %w", op, ports.ErrContextCanceled, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", op, ports.ErrConnectionFailed, err)
	}
	t.logger.Error(ctx, err, "Order submission failed in transit", ports.Fields{"url": t.url})
	return finalErr
}
