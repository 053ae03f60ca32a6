// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/cauda/auth"
	"github.com/danielhkuo/cauda/captcha"
	"github.com/danielhkuo/cauda/metrics"
	"github.com/danielhkuo/cauda/middleware"
	"github.com/danielhkuo/cauda/models"
	"github.com/danielhkuo/cauda/phone"
)

// Services are the collaborators shared by every handler.
type Services struct {
	IDs     *auth.IDCodec
	Captcha captcha.Verifier
	SMS     phone.Sender
	Metrics *metrics.Metrics
}

// requireSession writes a 401 with code and returns false when the request
// carries no valid session.
func requireSession(w http.ResponseWriter, r *http.Request, secret, code string) (*auth.Session, bool) {
	sess, err := auth.SessionFromRequest(r, secret)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, code, "Invalid or missing session")
		return nil, false
	}
	return sess, true
}

// startOfDay is local midnight of now in loc.
func startOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// opError logs and reports an unexpected storage failure and answers 500.
func opError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "error", err)
	middleware.ReportError(r, fmt.Errorf("%s: %w", msg, err))
	middleware.ErrorResponse(w, http.StatusInternalServerError, models.CodeOpError, "Operation failed")
}
