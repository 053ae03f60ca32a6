// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/cauda/middleware"
	"github.com/danielhkuo/cauda/models"
	"github.com/danielhkuo/cauda/phone"
)

type dueTurn struct {
	id     int64
	number int64
	phone  string
}

// notifyGoToShop texts everyone within threshold places of the front of
// the line who was not told yet. Each turn is claimed by setting
// notified_at before sending, so concurrent calls never text a client
// twice. Failures are logged and reported, never returned: the line has
// already moved.
func notifyGoToShop(ctx context.Context, r *http.Request, conn *sql.DB, sms phone.Sender, shopID int64, shopName string, threshold int) {
	if threshold < 1 {
		return
	}

	due, err := dueTurns(ctx, conn, shopID, threshold)
	if err != nil {
		slog.Error("failed to find turns to notify", "error", err, "shop_id", shopID)
		middleware.ReportError(r, err)
		return
	}

	for _, turn := range due {
		res, err := conn.ExecContext(ctx, `
			UPDATE issued_number SET notified_at = $1
			WHERE id = $2 AND status = $3 AND notified_at IS NULL
		`, time.Now().UTC(), turn.id, int(models.StatusPending))
		if err != nil {
			slog.Error("failed to claim turn for notification", "error", err, "turn_id", turn.id)
			middleware.ReportError(r, err)
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}

		body := fmt.Sprintf("%s: your turn %s is coming up. Please head to the shop now.", shopName, NumberToTurn(turn.number))
		if err := sms.Send(ctx, turn.phone, body); err != nil {
			slog.Error("failed to send go-to-shop sms", "error", err, "shop_id", shopID, "turn_id", turn.id)
			middleware.ReportError(r, fmt.Errorf("go-to-shop sms: %w", err))

			// Give the turn back so the next move of the line retries it
			if _, err := conn.ExecContext(ctx, `UPDATE issued_number SET notified_at = NULL WHERE id = $1`, turn.id); err != nil {
				slog.Error("failed to release turn notification", "error", err, "turn_id", turn.id)
			}
			continue
		}

		slog.Info("go-to-shop sms sent", "shop_id", shopID, "turn_id", turn.id)
	}
}

// dueTurns lists the un-notified turns among the first threshold pending ones.
func dueTurns(ctx context.Context, conn *sql.DB, shopID int64, threshold int) ([]dueTurn, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, issued_number, phone FROM (
			SELECT n.id, n.issued_number, c.phone, n.notified_at
			FROM issued_number n
			JOIN client c ON c.id = n.client_id
			WHERE n.shop_id = $1 AND n.status = $2
			ORDER BY n.id
			LIMIT $3
		) front
		WHERE notified_at IS NULL
		ORDER BY id
	`, shopID, int(models.StatusPending), threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []dueTurn
	for rows.Next() {
		var d dueTurn
		if err := rows.Scan(&d.id, &d.number, &d.phone); err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}
