package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tablero/internal/errors"
	"tablero/internal/logger"
)

// DefaultTimeout is the standard timeout for HTTP requests
const DefaultTimeout = 30 * time.Second

// RetryableClient provides HTTP operations with consistent timeout and retry behavior
type RetryableClient struct {
	client  *http.Client
	timeout time.Duration
	retries int
}

// NewRetryableClient creates a new HTTP client with timeout and retry configuration
func NewRetryableClient(timeout time.Duration, retries int) *RetryableClient {
	return &RetryableClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		retries: retries,
	}
}

// NewDefaultClient creates a client with standard timeout and retry settings
func NewDefaultClient() *RetryableClient {
	return NewRetryableClient(DefaultTimeout, 2)
}

// DoWithRetry executes an HTTP request with retry logic for transient errors.
// Only idempotent methods are retried; a POST that timed out may still have
// been applied by the server. When ctx has no deadline the client timeout
// covers the whole exchange and is released when the response body is closed.
func (c *RetryableClient) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return c.doWithRetry(ctx, req)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose ties a request context to the lifetime of its response body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (c *RetryableClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	retries := c.retries
	if !isIdempotent(req.Method) {
		retries = 0
	}

	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		reqWithCtx := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", err)
			}
			reqWithCtx.Body = body
		}

		start := time.Now()
		logger.HTTP(req.Method, req.URL.String())
		resp, err := c.client.Do(reqWithCtx)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed (attempt %d/%d): %w", attempt+1, retries+1, err)
			if attempt < retries {
				waitTime := time.Duration(attempt+1) * 500 * time.Millisecond
				select {
				case <-time.After(waitTime):
					continue
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			continue
		}
		logger.HTTPResponse(resp.StatusCode, time.Since(start))

		if shouldRetry(resp.StatusCode) && attempt < retries {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP request returned retryable status %d (attempt %d/%d)", resp.StatusCode, attempt+1, retries+1)

			waitTime := time.Duration(attempt+1) * 500 * time.Millisecond
			select {
			case <-time.After(waitTime):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return resp, nil
	}

	return nil, lastErr
}

// DoJSONRequest executes a request with retry logic and decodes a JSON
// response into result (which may be nil to discard the body). Any 2xx is
// success; anything else becomes an errors.UserError carrying the status.
func (c *RetryableClient) DoJSONRequest(ctx context.Context, req *http.Request, result interface{}) error {
	resp, err := c.DoWithRetry(ctx, req)
	if err != nil {
		return errors.NewAPIConnectionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewHttpError(resp.StatusCode, string(body))
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

// NewJSONRequest builds a request with an optional JSON body.
func NewJSONRequest(ctx context.Context, method, url string, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// shouldRetry determines if a status code indicates a retryable error
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError, // 500
		http.StatusBadGateway,                    // 502
		http.StatusServiceUnavailable,            // 503
		http.StatusGatewayTimeout,                // 504
		http.StatusInsufficientStorage,           // 507
		http.StatusNetworkAuthenticationRequired: // 511
		return true
	default:
		return false
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
