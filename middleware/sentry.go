// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/danielhkuo/cauda/models"
)

// InitSentry configures error reporting. An empty DSN leaves Sentry
// disabled and every report becomes a no-op.
func InitSentry(dsn, environment string) (flush func(), err error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	}); err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// ReportError sends an unexpected failure to Sentry, tagged with the request.
func ReportError(r *http.Request, err error) {
	hub := sentry.CurrentHub().Clone()
	if r != nil {
		hub.Scope().SetRequest(r)
		if id := r.Header.Get("X-Request-ID"); id != "" {
			hub.Scope().SetTag("request_id", id)
		}
	}
	hub.CaptureException(err)
}

// Recover turns handler panics into a 500 and reports them.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("panic in handler", "panic", rec, "method", r.Method, "path", r.URL.Path)
			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			hub.Recover(rec)

			ErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, "Internal error")
		}()

		next.ServeHTTP(w, r)
	})
}
