// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides sessions, public ids and verification code helpers.

# Session Tokens

Sessions are HS256 JWTs whose subject is the client id:

	token, err := auth.IssueToken(clientID, phone, secret, ttl)
	session, err := auth.ParseToken(token, secret)

Handlers read the caller's session from the request:

	session, err := auth.SessionFromRequest(r, cfg.TokenSecret)

The token is taken from "Authorization: Bearer <token>" or, for the web
client, from the "token" cookie set by SetSessionCookie. Missing tokens
return ErrMissingToken; anything else that fails returns ErrInvalidToken.

# Public IDs

Shops and turns are addressed by hashids of their integer keys:

	ids, err := auth.NewIDCodec(cfg.IDSalt)
	shopID := ids.Encode(42)        // e.g. "Xk4mWq"
	id, err := ids.Decode(shopID)   // 42

Decode only accepts strings that round-trip to exactly one positive id.

# Verification Codes

Numeric SMS codes are random and never stored in clear:

	code, err := auth.GenerateCode(6)
	hash := auth.HashCode(phone, code, secret)
	ok := auth.CheckCode(phone, code, secret, hash)

# IP Hashing

For privacy-preserving abuse tracking:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
