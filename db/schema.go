// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, driver string) error {
	var idType string
	switch driver {
	case DriverPostgres:
		idType = "BIGSERIAL PRIMARY KEY"
	case DriverSQLite:
		idType = "INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}

	_, err := db.Exec(fmt.Sprintf(schema, idType))
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// %[1]s is the dialect's auto-increment primary key.
const schema = `
-- Clients (verified phones)
CREATE TABLE IF NOT EXISTS client (
    id %[1]s,
    phone TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

-- Shops
CREATE TABLE IF NOT EXISTS shop (
    id %[1]s,
    owner_client_id BIGINT NOT NULL UNIQUE REFERENCES client(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    counter BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

-- Issued numbers (turns)
CREATE TABLE IF NOT EXISTS issued_number (
    id %[1]s,
    shop_id BIGINT NOT NULL REFERENCES shop(id) ON DELETE CASCADE,
    client_id BIGINT NOT NULL REFERENCES client(id) ON DELETE CASCADE,
    issued_number BIGINT NOT NULL,
    status INTEGER NOT NULL DEFAULT 0 CHECK (status IN (0, 1, 2, 3)),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    notified_at TIMESTAMP,
    UNIQUE (shop_id, issued_number)
);

CREATE INDEX IF NOT EXISTS idx_issued_number_shop_status ON issued_number(shop_id, status);
CREATE INDEX IF NOT EXISTS idx_issued_number_client_status ON issued_number(client_id, status);

-- Phone verifications
CREATE TABLE IF NOT EXISTS phone_verification (
    id %[1]s,
    phone TEXT NOT NULL,
    code_hash TEXT NOT NULL,
    ip_hash TEXT,
    attempts INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    verified_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_phone_verification_phone ON phone_verification(phone);
`
