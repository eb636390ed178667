// Package httpx is the gateway's resilient HTTP transport: per-request
// timeouts composed with external cancellation, typed errors for every
// failure mode, and a retrying variant layered on pkg/retry.
//
// Two independent cancellation sources exist per call: the internal
// timeout and the caller's context. They are composed into one deadline
// but tagged separately in the resulting error, so "you cancelled" stays
// distinguishable from "it took too long". The timeout is absolute from
// request start; streaming reads do not refresh it.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nossamaternidade/nathia/pkg/apperr"
	"github.com/nossamaternidade/nathia/pkg/retry"
	"github.com/nossamaternidade/nathia/pkg/utils"
)

// Timeout presets for different request classes.
const (
	TimeoutShort    = 10 * time.Second
	TimeoutNormal   = 30 * time.Second
	TimeoutLong     = 60 * time.Second
	TimeoutCritical = 45 * time.Second
)

// previewLen bounds the response body excerpt attached to API errors.
const previewLen = 200

// Client wraps an http.Client with timeout composition and typed errors.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client. Timeouts are applied per request via context
// deadlines, not on the underlying http.Client, so streaming bodies stay
// under the same absolute deadline.
func New(logger *slog.Logger) *Client {
	return &Client{
		http:   &http.Client{},
		logger: logger,
	}
}

// NewWithHTTPClient creates a Client over a caller-supplied http.Client
// (tests, custom transports).
func NewWithHTTPClient(hc *http.Client, logger *slog.Logger) *Client {
	return &Client{http: hc, logger: logger}
}

// Do issues req under the given timeout. A non-positive timeout uses
// TimeoutNormal. Non-2xx responses become APIError with status, status
// text, and a truncated body preview. The returned response body remains
// subject to the absolute deadline; closing it releases the timer.
func (c *Client) Do(ctx context.Context, req *http.Request, timeout time.Duration) (*http.Response, error) {
	if timeout <= 0 {
		timeout = TimeoutNormal
	}

	// A context already cancelled by the user never reaches the wire.
	if ctx.Err() != nil {
		return nil, apperr.New(apperr.RequestCancelled, "request cancelled before dispatch", "").
			WithCause(ctx.Err()).
			WithContext(map[string]any{"url": req.URL.String()})
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := c.http.Do(req.WithContext(tctx))
	if err != nil {
		cancel()
		return nil, c.classify(ctx, tctx, err, req, timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()

		preview := string(body)
		if readErr != nil || preview == "" {
			preview = "(empty response)"
		}

		return nil, apperr.New(
			apperr.APIError,
			fmt.Sprintf("HTTP %d from %s", resp.StatusCode, req.URL),
			"",
		).WithContext(map[string]any{
			"status":           resp.StatusCode,
			"status_text":      http.StatusText(resp.StatusCode),
			"url":              req.URL.String(),
			"response_preview": utils.Truncate(preview, previewLen),
		})
	}

	resp.Body = &deadlineBody{rc: resp.Body, cancel: cancel}
	return resp, nil
}

// RetryOptions tunes DoWithRetry. Zero values take the transport defaults
// (3 attempts, 1s initial delay, 5s cap).
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DoWithRetry layers the retry policy over Do. Because request bodies are
// consumed on each attempt, the caller supplies a factory that rebuilds
// the request. The transport retryability rule applies: timeouts and
// network-class failures retry; HTTP 400/401/403 and other API errors
// never do; user cancellation aborts immediately.
func (c *Client) DoWithRetry(ctx context.Context, build func() (*http.Request, error), timeout time.Duration, opts RetryOptions) (*http.Response, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 5 * time.Second
	}

	resp, err := retry.Do(ctx, func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, apperr.Wrap(err, apperr.InvalidInput, "", nil)
		}
		return c.Do(ctx, req, timeout)
	}, retry.Options{
		MaxAttempts:  opts.MaxAttempts,
		InitialDelay: opts.InitialDelay,
		MaxDelay:     opts.MaxDelay,
		Retryable:    Retryable,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, typeRetryError(err)
	}
	return resp, nil
}

// typeRetryError catches the raw context error the backoff sleep returns
// when ctx fires between attempts, so cancellation keeps its taxonomy code
// outside attempts too.
func typeRetryError(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return apperr.New(apperr.RequestCancelled, "request cancelled during retry backoff", "").
			WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.New(apperr.RequestTimeout, "deadline exceeded during retry backoff", "").
			WithCause(err)
	default:
		return err
	}
}

// Retryable is the transport-specific retryability predicate.
func Retryable(err error) bool {
	appErr, ok := apperr.As(err)
	if !ok {
		return true
	}

	switch appErr.Code {
	case apperr.RequestTimeout, apperr.NetworkError, apperr.ConnectionFailed:
		return true
	default:
		// Client errors (400/401/403) cannot succeed on retry, and other
		// API errors are not retried either: the server answered.
		return false
	}
}

// classify converts a transport error into the taxonomy, separating the
// two abort sources: the caller's context (user cancellation) fired, or
// the internal deadline did.
func (c *Client) classify(ctx, tctx context.Context, err error, req *http.Request, timeout time.Duration) error {
	url := req.URL.String()

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return apperr.New(apperr.RequestCancelled, "request cancelled by user", "").
			WithCause(err).
			WithContext(map[string]any{"url": url})
	}

	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return apperr.New(
			apperr.RequestTimeout,
			fmt.Sprintf("request timeout after %s", timeout),
			"",
		).WithCause(err).WithContext(map[string]any{"url": url, "timeout": timeout.String()})
	}

	code := apperr.Classify(err)
	if code == apperr.Unknown {
		code = apperr.NetworkError
	}
	return apperr.Wrap(err, code, "", map[string]any{"url": url})
}

// deadlineBody ties the per-request timeout timer to the body lifecycle:
// the deadline stays armed while the body streams and is released on
// Close.
type deadlineBody struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (b *deadlineBody) Read(p []byte) (int, error) {
	return b.rc.Read(p)
}

func (b *deadlineBody) Close() error {
	err := b.rc.Close()
	b.cancel()
	return err
}
