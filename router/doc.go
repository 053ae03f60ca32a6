// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Cauda API.

# Route Registration

NewRouter returns the full handler tree, already wrapped in panic recovery
and CORS:

	handler := router.NewRouter(db, cfg, svc)

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Phone sign-in (rate limited per IP):

	POST /auth/verify-phone  - Send a verification code
	POST /auth/verify-code   - Exchange the code for a session
	POST /auth/logout        - Clear the session cookie
	GET  /auth/registration  - Which sign-ups are open

Clients (session required):

	GET  /clients/me
	POST /shops/{shopId}/turns     - Take a number
	GET  /turns/mine               - Pending turns
	GET  /turns/mine/past          - Recent finished turns
	GET  /turns/{turnId}
	POST /turns/{turnId}/cancel

Shop owners (session required):

	POST /shops
	GET  /shops/mine
	PUT  /shops/mine
	POST /shops/mine/attend-next
	POST /shops/mine/skip
	POST /shops/mine/cancel-pending

Public:

	GET /shops/{shopId}

Every route except health and metrics is logged and counted under its
pattern.
*/
package router
