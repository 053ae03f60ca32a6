// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/db"
	"github.com/danielhkuo/cauda/middleware"
	"github.com/danielhkuo/cauda/models"
)

// pastTurnsLimit caps GET /turns/mine/past.
const pastTurnsLimit = 10

type TurnHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewTurnHandler(db *sql.DB, cfg cliparse.Config, svc Services) *TurnHandler {
	return &TurnHandler{db: db, cfg: cfg, svc: svc}
}

// RequestTurn handles POST /shops/{shopId}/turns
// Takes the next number in the shop's line for the signed-in client
func (h *TurnHandler) RequestTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidClientID)
	if !ok {
		return
	}

	shopID, err := h.svc.IDs.Decode(r.PathValue("shopId"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidShopID, "Invalid shop id")
		return
	}

	var shopName string
	err = h.db.QueryRowContext(ctx, `SELECT name FROM shop WHERE id = $1`, shopID).Scan(&shopName)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeShopNotFound, "Shop not found")
		return
	}
	if err != nil {
		opError(w, r, "failed to query shop", err)
		return
	}

	now := time.Now().UTC()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		opError(w, r, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	// Locks the client row so one client's requests are checked one at a time.
	res, err := tx.ExecContext(ctx, `UPDATE client SET last_seen_at = $1 WHERE id = $2`, now, sess.ClientID)
	if err != nil {
		opError(w, r, "failed to lock client", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.CodeInvalidClientID, "Unknown client")
		return
	}

	recent, err := loadRecentTurns(ctx, tx, sess.ClientID, h.cfg.MaxDailyTurns)
	if err != nil {
		opError(w, r, "failed to load recent turns", err)
		return
	}

	limits := quotaLimits{
		MaxPending: h.cfg.MaxPendingTurns,
		MaxDaily:   h.cfg.MaxDailyTurns,
		DayStart:   startOfDay(now, h.cfg.Location),
	}
	if v := checkQuota(recent, shopID, limits); v != nil {
		h.svc.Metrics.TurnsRequested.WithLabelValues(v.Code).Inc()
		switch v.Code {
		case models.CodeActiveTurn:
			middleware.ErrorResponseWithDetails(w, http.StatusConflict, v.Code,
				"You already have a pending turn in this shop",
				map[string]any{"turn_id": h.svc.IDs.Encode(v.ActiveTurnID)})
		case models.CodePendingQuotaExceeded:
			middleware.ErrorResponse(w, http.StatusTooManyRequests, v.Code, "Too many pending turns")
		default:
			middleware.ErrorResponse(w, http.StatusTooManyRequests, v.Code, "Too many turns today")
		}
		return
	}

	turn, err := db.IncreaseShopCounter(ctx, tx, shopID, sess.ClientID, h.cfg.GoToShopThreshold, now)
	if errors.Is(err, db.ErrShopNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeShopNotFound, "Shop not found")
		return
	}
	if err != nil {
		opError(w, r, "failed to issue turn", err)
		return
	}

	ahead, err := db.PeopleAhead(ctx, tx, shopID, turn.ID)
	if err != nil {
		opError(w, r, "failed to count pending turns", err)
		return
	}

	if err := tx.Commit(); err != nil {
		opError(w, r, "failed to commit turn", err)
		return
	}

	h.svc.Metrics.TurnsRequested.WithLabelValues("issued").Inc()
	slog.Info("turn issued", "shop_id", shopID, "client_id", sess.ClientID, "number", turn.IssuedNumber)

	middleware.JSONResponse(w, http.StatusCreated, models.RequestTurnResponse{
		ID:                 h.svc.IDs.Encode(turn.ID),
		Turn:               NumberToTurn(turn.IssuedNumber),
		ShopName:           shopName,
		GoToShop:           turn.NotifiedAt != nil,
		PendingTurnsAmount: ahead + 1,
	})
}

// CancelTurn handles POST /turns/{turnId}/cancel
func (h *TurnHandler) CancelTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	turnID, err := h.svc.IDs.Decode(r.PathValue("turnId"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidTurnID, "Invalid turn id")
		return
	}

	var clientID, shopID int64
	var status int
	var shopName string
	err = h.db.QueryRowContext(ctx, `
		SELECT n.client_id, n.status, n.shop_id, s.name
		FROM issued_number n
		JOIN shop s ON s.id = n.shop_id
		WHERE n.id = $1
	`, turnID).Scan(&clientID, &status, &shopID, &shopName)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeTurnNotFound, "Turn not found")
		return
	}
	if err != nil {
		opError(w, r, "failed to query turn", err)
		return
	}

	if clientID != sess.ClientID {
		middleware.ErrorResponse(w, http.StatusForbidden, models.CodeInvalidClientID, "Turn belongs to another client")
		return
	}
	if models.TurnStatus(status) != models.StatusPending {
		middleware.ErrorResponse(w, http.StatusConflict, models.CodeTurnNotPending, "Turn is not pending")
		return
	}

	res, err := h.db.ExecContext(ctx, `
		UPDATE issued_number SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, int(models.StatusCancelled), time.Now().UTC(), turnID, int(models.StatusPending))
	if err != nil {
		opError(w, r, "failed to cancel turn", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The shop moved it first
		middleware.ErrorResponse(w, http.StatusConflict, models.CodeTurnNotPending, "Turn is not pending")
		return
	}

	h.svc.Metrics.TurnsAdvanced.WithLabelValues("cancelled").Inc()
	slog.Info("turn cancelled", "turn_id", turnID, "client_id", sess.ClientID)

	// Everyone behind moved up one place
	notifyGoToShop(ctx, r, h.db, h.svc.SMS, shopID, shopName, h.cfg.GoToShopThreshold)

	middleware.JSONResponse(w, http.StatusOK, models.CancelTurnResponse{Cancelled: true})
}

// GetTurn handles GET /turns/{turnId}
// Other clients' turns are reported as not found
func (h *TurnHandler) GetTurn(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	turnID, err := h.svc.IDs.Decode(r.PathValue("turnId"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidTurnID, "Invalid turn id")
		return
	}

	turns, err := h.listTurns(r.Context(), `n.id = $1 AND n.client_id = $2`, 1, turnID, sess.ClientID)
	if err != nil {
		opError(w, r, "failed to query turn", err)
		return
	}
	if len(turns) == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeTurnNotFound, "Turn not found")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, turns[0])
}

// MyTurns handles GET /turns/mine
// Pending turns, newest first
func (h *TurnHandler) MyTurns(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	turns, err := h.listTurns(r.Context(), `n.client_id = $1 AND n.status = $2`, -1,
		sess.ClientID, int(models.StatusPending))
	if err != nil {
		opError(w, r, "failed to query turns", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TurnsResponse{Turns: turns})
}

// MyPastTurns handles GET /turns/mine/past
func (h *TurnHandler) MyPastTurns(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	turns, err := h.listTurns(r.Context(), `n.client_id = $1 AND n.status <> $2`, pastTurnsLimit,
		sess.ClientID, int(models.StatusPending))
	if err != nil {
		opError(w, r, "failed to query turns", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.TurnsResponse{Turns: turns})
}

// listTurns returns matching turns newest first, with people_ahead filled
// in for pending ones. limit < 0 means no limit.
func (h *TurnHandler) listTurns(ctx context.Context, where string, limit int, args ...any) ([]models.TurnView, error) {
	query := `
		SELECT n.id, n.shop_id, s.name, n.issued_number, n.status, n.created_at
		FROM issued_number n
		JOIN shop s ON s.id = n.shop_id
		WHERE ` + where + `
		ORDER BY n.id DESC`
	if limit >= 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	type row struct {
		id, shopID int64
		view       models.TurnView
	}
	var found []row
	for rows.Next() {
		var rw row
		var number int64
		var status int
		if err := rows.Scan(&rw.id, &rw.shopID, &rw.view.ShopName, &number, &status, &rw.view.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		rw.view.ID = h.svc.IDs.Encode(rw.id)
		rw.view.ShopID = h.svc.IDs.Encode(rw.shopID)
		rw.view.Turn = NumberToTurn(number)
		rw.view.Status = models.TurnStatus(status)
		rw.view.StatusName = rw.view.Status.String()
		found = append(found, rw)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	// Counted after the rows are closed: SQLite runs on one connection.
	turns := make([]models.TurnView, 0, len(found))
	for _, rw := range found {
		if rw.view.Status == models.StatusPending {
			ahead, err := db.PeopleAhead(ctx, h.db, rw.shopID, rw.id)
			if err != nil {
				return nil, err
			}
			rw.view.PeopleAhead = &ahead
		}
		turns = append(turns, rw.view)
	}
	return turns, nil
}

