// Package source implements one client per external data provider. Each
// client fetches raw provider data and returns normalized events. Failures
// come back as *Error carrying the connection status the caller should record
// for the provider.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/chainsignal-io/chainsignal/internal/session"
)

const userAgent = "chainsignal/1.0"

// Error is a provider fetch failure annotated with the status string to
// report for that provider.
type Error struct {
	Provider string
	Status   string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(provider, status string, err error) *Error {
	return &Error{Provider: provider, Status: status, Err: err}
}

// StatusOf returns the connection status an error implies. Typed provider
// errors carry their own status; anything else reports as a plain error.
func StatusOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Status
	}
	return session.StatusError
}

// transportError classifies a round-trip failure. Timeouts get their own
// status so the collector can distinguish slow providers from broken ones.
func transportError(provider string, err error) *Error {
	if ue, ok := err.(*url.Error); ok && ue.Timeout() {
		return newError(provider, session.StatusTimeout, err)
	}
	return newError(provider, session.StatusError, err)
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// sleepCtx pauses between paced requests without outliving the context.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
