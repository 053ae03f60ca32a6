// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Cauda API server.

Cauda is a virtual queue for small shops. A customer signs in with a phone
number, takes a number in a shop's line, and gets a text message when it is
almost their turn. The shop owner calls the next number from their phone.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=cauda.db SESSION_SECRET=... HASHIDS_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

Variables can also come from a .env file (-env, CAUDA_ENV_FILE, or ./.env).

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - SESSION_SECRET (--session-secret): Session token and code hash secret
  - HASHIDS_SALT (--id-salt): Salt for public shop and turn ids

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - RECAPTCHA_SECRET, SMS_GATEWAY_URL, SMS_GATEWAY_TOKEN, SENTRY_DSN:
    third-party services, each disabled when empty
  - CAUDA_CLIENT_REGISTRATION_ENABLED, CAUDA_SHOP_REGISTRATION_ENABLED: "1" to allow sign-ups
  - GO_TO_SHOP_THRESHOLD, MAX_PENDING_TURNS, MAX_DAILY_TURNS: queue rules
  - TRUST_PROXY=1: take client IPs from X-Forwarded-For behind a proxy
  - LOG_FORMAT=json: JSON logs

# Architecture

  - handlers: HTTP request handlers (phone sign-in, clients, turns, shops)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, metrics, rate limiting, Sentry, JSON helpers
  - models: Request/response types and error codes
  - auth: Verification codes, session tokens, public ids
  - phone, captcha: Phone numbers, SMS delivery, reCAPTCHA
  - metrics: Prometheus collectors
  - db: Connections, schema, and the shop counter
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
