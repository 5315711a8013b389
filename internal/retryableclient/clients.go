// Package retryableclient builds the HTTP client shared by all uploads.
package retryableclient

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/wandb/multiupload/internal/observability"
)

type userAgentTransport struct {
	userAgent string
	wrapped   http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)
	return t.wrapped.RoundTrip(req)
}

// NoRetryPolicy never asks for another attempt.
//
// A non-2xx response is handed back to the caller untouched, so that its
// status and body can be reported.
func NoRetryPolicy(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// NewRetryClient returns a client that makes exactly one attempt per request.
//
// Options may adjust the transport or timeout; they are applied after the
// single-attempt defaults.
func NewRetryClient(opts ...RetryClientOption) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.CheckRetry = NoRetryPolicy
	retryClient.Logger = nil

	for _, opt := range opts {
		opt(retryClient)
	}
	return retryClient
}

type RetryClientOption func(rc *retryablehttp.Client)

func WithRetryClientLogger(logger *observability.CoreLogger) RetryClientOption {
	return func(rc *retryablehttp.Client) {
		rc.Logger = slog.New(logger.Handler())
	}
}

func WithRetryClientHttpTransport(transport http.RoundTripper) RetryClientOption {
	return func(rc *retryablehttp.Client) {
		rc.HTTPClient.Transport = transport
	}
}

func WithRetryClientUserAgent(userAgent string) RetryClientOption {
	return func(rc *retryablehttp.Client) {
		wrapped := rc.HTTPClient.Transport
		if wrapped == nil {
			wrapped = http.DefaultTransport
		}
		rc.HTTPClient.Transport = &userAgentTransport{
			userAgent: userAgent,
			wrapped:   wrapped,
		}
	}
}

// WithRetryClientHttpTimeout sets the per-request timeout; zero means none.
func WithRetryClientHttpTimeout(timeout time.Duration) RetryClientOption {
	return func(rc *retryablehttp.Client) {
		rc.HTTPClient.Timeout = timeout
	}
}
