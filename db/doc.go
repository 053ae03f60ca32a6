// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database, creates the schema and hosts the queue
counter transaction.

# Drivers

Both PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite) are supported:

	conn, err := db.Open(db.DriverPostgres, cfg.DatabaseURL)
	if err := db.CreateSchema(conn, db.DriverPostgres); err != nil {
		log.Fatal(err)
	}

SQLite connections get foreign keys, a busy timeout and a single open
connection. CreateSchema is safe to call multiple times.

# Tables

  - client: verified phones
  - shop: one per owner client, with the line counter
  - issued_number: turns, with status 0..3
  - phone_verification: hashed SMS codes

# Relationships

	client 1──1 shop (owner)
	shop   1──* issued_number
	client 1──* issued_number

All foreign keys use ON DELETE CASCADE.

# Issuing Numbers

IncreaseShopCounter runs inside the caller's transaction:

	tx, _ := conn.BeginTx(ctx, nil)
	defer tx.Rollback()
	turn, err := db.IncreaseShopCounter(ctx, tx, shopID, clientID, threshold, time.Now().UTC())
	...
	tx.Commit()

The counter update takes the row lock on the shop, so concurrent
requests for the same shop receive distinct, increasing numbers.
*/
package db
