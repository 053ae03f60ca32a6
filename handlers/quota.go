// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/danielhkuo/cauda/db"
	"github.com/danielhkuo/cauda/models"
)

// recentTurn is the slice of an issued number the quota rules look at.
type recentTurn struct {
	ID        int64
	ShopID    int64
	Status    models.TurnStatus
	CreatedAt time.Time
}

type quotaLimits struct {
	MaxPending int
	MaxDaily   int
	DayStart   time.Time
}

// quotaViolation names the rule a turn request broke. ActiveTurnID is set
// for ACTIVE_TURN.
type quotaViolation struct {
	Code         string
	ActiveTurnID int64
}

// loadRecentTurns returns the client's latest limit turns that count
// against quotas (anything but cancelled), newest first.
func loadRecentTurns(ctx context.Context, q db.Querier, clientID int64, limit int) ([]recentTurn, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, shop_id, status, created_at
		FROM issued_number
		WHERE client_id = $1 AND status IN ($2, $3, $4)
		ORDER BY id DESC
		LIMIT $5
	`, clientID, int(models.StatusPending), int(models.StatusAttended), int(models.StatusSkipped), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []recentTurn
	for rows.Next() {
		var t recentTurn
		var status int
		if err := rows.Scan(&t.ID, &t.ShopID, &status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent turn: %w", err)
		}
		t.Status = models.TurnStatus(status)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent turns: %w", err)
	}
	return turns, nil
}

// checkQuota applies the rules in order: one pending turn per shop, then
// the pending cap, then the daily cap. Nil means the request may proceed.
func checkQuota(turns []recentTurn, shopID int64, limits quotaLimits) *quotaViolation {
	if i := slices.IndexFunc(turns, func(t recentTurn) bool {
		return t.ShopID == shopID && t.Status == models.StatusPending
	}); i >= 0 {
		return &quotaViolation{Code: models.CodeActiveTurn, ActiveTurnID: turns[i].ID}
	}

	pending := slices.DeleteFunc(slices.Clone(turns), func(t recentTurn) bool {
		return t.Status != models.StatusPending
	})
	if len(pending) >= limits.MaxPending {
		return &quotaViolation{Code: models.CodePendingQuotaExceeded}
	}

	today := slices.DeleteFunc(slices.Clone(turns), func(t recentTurn) bool {
		return t.CreatedAt.Before(limits.DayStart)
	})
	if len(today) >= limits.MaxDaily {
		return &quotaViolation{Code: models.CodeTodayQuotaExceeded}
	}

	return nil
}
