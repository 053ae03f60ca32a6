// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms). Every request carries an X-Request-ID, generated with
google/uuid when the caller did not send one.

# Metrics

Instrument records request counts and latency under the matched route
pattern:

	mux.HandleFunc("GET /turns/{turnId}", middleware.WithLogging(middleware.Instrument(m, h)))

# Rate Limiting

RateLimiter keeps a token bucket per client IP and answers 429 with a
Retry-After header once it is empty:

	rl := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.TrustProxy)
	mux.HandleFunc("POST /auth/verify-phone", rl.Wrap(h.VerifyPhone))

# Error Reporting

InitSentry configures Sentry; ReportError sends unexpected failures and
Recover turns panics into 500 INTERNAL_ERROR responses.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Request-ID.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidJSON, "Invalid JSON")

Parse JSON request bodies:

	var req models.ShopRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidJSON, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the client IP. X-Forwarded-For and X-Real-IP are only read when the
server runs behind a proxy that sets them (TRUST_PROXY=1); otherwise the
connection's peer address is used:

	ip := middleware.ClientIP(r, cfg.TrustProxy)

Used for rate limiting and for hashing the IP stored with each
verification code.
*/
package middleware
