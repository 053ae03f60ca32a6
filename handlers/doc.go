// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Cauda API.

# Handler Types

Each handler is a struct with database, config and service dependencies:

  - PhoneHandler: Phone verification and sign-in
  - ClientHandler: The signed-in client
  - TurnHandler: Taking, cancelling and listing turns
  - ShopHandler: Shop registration and running the line

Handlers are created via constructor functions:

	turnHandler := handlers.NewTurnHandler(db, cfg, svc)

Services bundles the third-party clients (id codec, captcha, SMS, metrics)
so tests can swap them for recorders.

# Sessions

Sign-in is by phone. VerifyPhone texts a 6 digit code, VerifyCode trades it
for a session token returned in the body and as a cookie. Every other
client operation reads the session from the Authorization header or the
cookie.

# The Line

Each shop has a counter. RequestTurn increments it inside a transaction,
so two customers never share a number, and stores the new turn as PENDING.
The number is shown as a label:

	NumberToTurn(1)   // "A01"
	NumberToTurn(100) // "B00"

The owner moves the line with AttendNextTurn and SkipTurn, which always
take the oldest PENDING turn. After each move the customer who is now
GoToShopThreshold places from the front gets a text, once.

# Quotas

A client may hold one PENDING turn per shop, MaxPendingTurns across shops,
and take at most MaxDailyTurns per day in the configured time zone.
Cancelled turns count toward none of them.
*/
package handlers
