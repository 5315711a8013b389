// Package sentry_ext reports upload errors and task panics to Sentry.
package sentry_ext

import (
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type Params struct {
	// DSN is the Data Source Name for the sentry client.
	//
	// An empty DSN disables sending.
	DSN string

	// Release is the version of the CLI.
	Release string

	// Commit is the git commit the CLI was built from.
	Commit string

	// Environment is reported as the sentry environment.
	Environment string

	// LRUSize bounds the cache used to drop repeated errors.
	LRUSize int
}

type Client struct {
	// recent is the cache of errors sent recently, to avoid sending
	// the same error for every file in a batch.
	recent *cache

	enabled bool
}

// New initializes the global sentry hub and returns a client for it.
//
// Returns nil if the de-duplication cache cannot be created.
func New(params Params) *Client {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              params.DSN,
		AttachStacktrace: true,
		Release:          params.Release,
		Dist:             params.Commit,
		Environment:      params.Environment,
	}); err != nil {
		slog.Error("sentry_ext: New: failed to initialize sentry", "err", err)
	}

	if params.DSN == "" {
		slog.Debug("sentry_ext: New: sentry is disabled, no DSN provided")
	}

	recent, err := newCache(params.LRUSize)
	if err != nil {
		slog.Error("sentry_ext: New: failed to create cache", "err", err)
		return nil
	}

	return &Client{
		recent:  recent,
		enabled: params.DSN != "",
	}
}

// Enabled reports whether events are actually sent anywhere.
func (s *Client) Enabled() bool {
	return s != nil && s.enabled
}

// CaptureException sends err to sentry as an error event tagged with tags.
func (s *Client) CaptureException(err error, tags map[string]string) {
	if err == nil || !s.recent.shouldCapture(err) {
		return
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
	hub.CaptureException(err)
}

// CaptureMessage sends msg to sentry as an info event tagged with tags.
func (s *Client) CaptureMessage(msg string, tags map[string]string) {
	if !s.recent.shouldCapture(errors.New(msg)) {
		return
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
	hub.CaptureMessage(msg)
}

// Flush waits for buffered events to be sent, up to timeout.
func (s *Client) Flush(timeout time.Duration) bool {
	return sentry.CurrentHub().Flush(timeout)
}
