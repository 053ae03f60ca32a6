// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type (sqlite or postgres)
	-env             Path to a .env file (default .env, missing file is ignored)
	-session-secret  Session token secret
	-id-salt         Salt for public shop and turn ids

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p (default 3318)
	DATABASE_URL   → -d (required)
	DATABASE_TYPE  → -t (default sqlite)
	SESSION_SECRET → -session-secret (required)
	HASHIDS_SALT   → -id-salt (required)

Everything else is environment only:

	BASE_URL                           public site URL used in share links
	RECAPTCHA_SECRET                   empty disables captcha checks
	RECAPTCHA_MIN_SCORE                default 0.5
	SMS_GATEWAY_URL, SMS_GATEWAY_TOKEN empty logs codes instead of sending them
	SENTRY_DSN                         empty disables error reporting
	PHONE_REGION                       default AR
	TZ_NAME                            timezone for daily quotas
	CAUDA_CLIENT_REGISTRATION_ENABLED  "1" enables client sign-up
	CAUDA_SHOP_REGISTRATION_ENABLED    "1" enables shop sign-up
	GO_TO_SHOP_THRESHOLD               default 3
	MAX_PENDING_TURNS                  default 3
	MAX_DAILY_TURNS                    default 5
	CODE_TTL                           default 5m
	MAX_CODES_PER_DAY                  default 3
	MAX_CODE_ATTEMPTS                  default 5
	SESSION_TTL                        default 720h
	RATE_LIMIT_PER_MINUTE              default 10

Values loaded from the .env file never override variables that are already
set in the process environment. CLI flags take precedence over both.
*/
package cliparse
