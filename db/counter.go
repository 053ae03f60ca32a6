// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/cauda/models"
)

var ErrShopNotFound = errors.New("shop not found")

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IncreaseShopCounter bumps the shop counter and issues the new number to
// the client as a pending turn, inside the caller's transaction.
//
// When fewer than threshold pending turns are ahead of the new one the
// turn is marked notified at once: the client should head to the shop
// now and must not get a "go to shop" SMS later.
func IncreaseShopCounter(ctx context.Context, tx *sql.Tx, shopID, clientID int64, threshold int, now time.Time) (models.IssuedNumber, error) {
	turn := models.IssuedNumber{
		ShopID:    shopID,
		ClientID:  clientID,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := tx.QueryRowContext(ctx, `
		UPDATE shop
		SET counter = counter + 1, updated_at = $1
		WHERE id = $2
		RETURNING counter
	`, now, shopID).Scan(&turn.IssuedNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IssuedNumber{}, ErrShopNotFound
	}
	if err != nil {
		return models.IssuedNumber{}, fmt.Errorf("failed to increase counter: %w", err)
	}

	var ahead int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM issued_number
		WHERE shop_id = $1 AND status = $2
	`, shopID, int(models.StatusPending)).Scan(&ahead)
	if err != nil {
		return models.IssuedNumber{}, fmt.Errorf("failed to count pending turns: %w", err)
	}

	if ahead < threshold {
		turn.NotifiedAt = &now
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO issued_number (shop_id, client_id, issued_number, status, created_at, updated_at, notified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, shopID, clientID, turn.IssuedNumber, int(models.StatusPending), now, now, NullTime(turn.NotifiedAt)).Scan(&turn.ID)
	if err != nil {
		return models.IssuedNumber{}, fmt.Errorf("failed to insert issued number: %w", err)
	}

	return turn, nil
}

// PeopleAhead counts pending turns of the same shop issued before turnID.
func PeopleAhead(ctx context.Context, q Querier, shopID, turnID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM issued_number
		WHERE shop_id = $1 AND status = $2 AND id < $3
	`, shopID, int(models.StatusPending), turnID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count people ahead: %w", err)
	}
	return n, nil
}

// NullTime converts an optional time for use as a query argument.
func NullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
