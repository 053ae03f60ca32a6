// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - VerifyPhoneRequest: phone, token (reCAPTCHA), purpose
  - VerifyCodeRequest: phone, code
  - ShopRequest: name

# Response Types

Types for JSON responses:

  - VerifyPhoneResponse: expires_at, expires_in
  - VerifyCodeResponse: token, client_id, is_new
  - RequestTurnResponse: id, turn, shop_name, go_to_shop, pending_turns_amount
  - TurnView / TurnsResponse: a turn as seen by its client
  - MyShopResponse: the owner's view of their line
  - PublicShopResponse: what customers see before taking a number
  - ErrorResponse: error, code, message, details

All ids on the wire are hashids strings; the integer keys in the domain
types never leave the server.

# Domain Types

Rows as stored:

  - Client: a verified phone number
  - Shop: a line owned by one client, with its counter
  - IssuedNumber: one turn, bound to a shop and a client
  - PhoneVerification: a hashed SMS code with its expiry

# Turn Status

	StatusPending   = 0
	StatusAttended  = 1
	StatusSkipped   = 2
	StatusCancelled = 3

A turn only ever leaves PENDING; the other states are final.

# Error Codes

Every error body carries a stable Code (ACTIVE_TURN, CODE_EXPIRED, ...)
so clients can switch on it instead of the message text.
*/
package models
