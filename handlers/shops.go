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
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/middleware"
	"github.com/danielhkuo/cauda/models"
)

const (
	minShopName = 2
	maxShopName = 60

	// lastAttendedLimit caps last_turns_attended in the my-shop view.
	lastAttendedLimit = 5
)

type ShopHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewShopHandler(db *sql.DB, cfg cliparse.Config, svc Services) *ShopHandler {
	return &ShopHandler{db: db, cfg: cfg, svc: svc}
}

// CreateShop handles POST /shops
// One shop per client
func (h *ShopHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	if !h.cfg.ShopRegistrationEnabled {
		middleware.ErrorResponse(w, http.StatusForbidden, models.CodeRegistrationDisabled, "Shop registration is disabled")
		return
	}

	name, ok := h.parseName(w, r)
	if !ok {
		return
	}

	if _, err := h.ownedShop(ctx, sess.ClientID); err == nil {
		middleware.ErrorResponse(w, http.StatusConflict, models.CodeShopExists, "You already have a shop")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		opError(w, r, "failed to query shop", err)
		return
	}

	now := time.Now().UTC()
	var shopID int64
	err := h.db.QueryRowContext(ctx, `
		INSERT INTO shop (owner_client_id, name, counter, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4)
		RETURNING id
	`, sess.ClientID, name, now, now).Scan(&shopID)
	if err != nil {
		// Lost a race against another create for the same owner
		if _, lookupErr := h.ownedShop(ctx, sess.ClientID); lookupErr == nil {
			middleware.ErrorResponse(w, http.StatusConflict, models.CodeShopExists, "You already have a shop")
			return
		}
		opError(w, r, "failed to insert shop", err)
		return
	}

	id := h.svc.IDs.Encode(shopID)
	slog.Info("shop created", "shop_id", shopID, "owner_client_id", sess.ClientID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateShopResponse{
		ShopID:   id,
		ShareURL: strings.TrimRight(h.cfg.BaseURL, "/") + "/shops/" + id,
	})
}

// UpdateShop handles PUT /shops/mine
func (h *ShopHandler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	name, ok := h.parseName(w, r)
	if !ok {
		return
	}

	var shopID int64
	err := h.db.QueryRowContext(r.Context(), `
		UPDATE shop SET name = $1, updated_at = $2
		WHERE owner_client_id = $3
		RETURNING id
	`, name, time.Now().UTC(), sess.ClientID).Scan(&shopID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeShopNotFound, "You have no shop")
		return
	}
	if err != nil {
		opError(w, r, "failed to update shop", err)
		return
	}

	slog.Info("shop renamed", "shop_id", shopID)
	h.respondMyShop(w, r, sess.ClientID, nil)
}

// GetMyShop handles GET /shops/mine
func (h *ShopHandler) GetMyShop(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}
	h.respondMyShop(w, r, sess.ClientID, nil)
}

// AttendNextTurn handles POST /shops/mine/attend-next
func (h *ShopHandler) AttendNextTurn(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, models.StatusAttended)
}

// SkipTurn handles POST /shops/mine/skip
// The person at the front did not show up
func (h *ShopHandler) SkipTurn(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, models.StatusSkipped)
}

// CancelPending handles POST /shops/mine/cancel-pending
// Empties the line, e.g. at closing time
func (h *ShopHandler) CancelPending(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	shop, err := h.ownedShop(r.Context(), sess.ClientID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeShopNotFound, "You have no shop")
		return
	}
	if err != nil {
		opError(w, r, "failed to query shop", err)
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE issued_number SET status = $1, updated_at = $2
		WHERE shop_id = $3 AND status = $4
	`, int(models.StatusCancelled), time.Now().UTC(), shop.ID, int(models.StatusPending))
	if err != nil {
		opError(w, r, "failed to cancel pending turns", err)
		return
	}
	n, err := res.RowsAffected()
	if err != nil {
		opError(w, r, "failed to count cancelled turns", err)
		return
	}
	cancelled := int(n)

	h.svc.Metrics.TurnsAdvanced.WithLabelValues("cancelled").Add(float64(cancelled))
	slog.Info("pending turns cancelled", "shop_id", shop.ID, "count", cancelled)

	h.respondMyShop(w, r, sess.ClientID, &cancelled)
}

// GetShop handles GET /shops/{shopId}
// Public view used by the share link
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := h.svc.IDs.Decode(r.PathValue("shopId"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidShopID, "Invalid shop id")
		return
	}

	var name string
	err = h.db.QueryRowContext(r.Context(), `SELECT name FROM shop WHERE id = $1`, shopID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeShopNotFound, "Shop not found")
		return
	}
	if err != nil {
		opError(w, r, "failed to query shop", err)
		return
	}

	next, pending, err := h.lineState(r.Context(), shopID)
	if err != nil {
		opError(w, r, "failed to query line", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PublicShopResponse{
		ID:                 h.svc.IDs.Encode(shopID),
		Name:               name,
		NextTurn:           next,
		PendingTurnsAmount: pending,
	})
}

// advance moves the front of the line to status and texts whoever is now
// close enough to head over.
func (h *ShopHandler) advance(w http.ResponseWriter, r *http.Request, status models.TurnStatus) {
	ctx := r.Context()

	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	shop, err := h.ownedShop(ctx, sess.ClientID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeShopNotFound, "You have no shop")
		return
	}
	if err != nil {
		opError(w, r, "failed to query shop", err)
		return
	}

	// status = pending is repeated outside the subquery so two concurrent
	// calls cannot both move the same turn.
	var turnID, number int64
	err = h.db.QueryRowContext(ctx, `
		UPDATE issued_number SET status = $1, updated_at = $2
		WHERE status = $3 AND id = (
			SELECT id FROM issued_number
			WHERE shop_id = $4 AND status = $3
			ORDER BY id
			LIMIT 1
		)
		RETURNING id, issued_number
	`, int(status), time.Now().UTC(), int(models.StatusPending), shop.ID).Scan(&turnID, &number)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusConflict, models.CodeNoPendingTurns, "There are no pending turns")
		return
	}
	if err != nil {
		opError(w, r, "failed to advance line", err)
		return
	}

	action := strings.ToLower(status.String())
	h.svc.Metrics.TurnsAdvanced.WithLabelValues(action).Inc()
	slog.Info("line advanced", "shop_id", shop.ID, "turn_id", turnID, "turn", NumberToTurn(number), "action", action)

	notifyGoToShop(ctx, r, h.db, h.svc.SMS, shop.ID, shop.Name, h.cfg.GoToShopThreshold)

	h.respondMyShop(w, r, sess.ClientID, nil)
}

func (h *ShopHandler) respondMyShop(w http.ResponseWriter, r *http.Request, clientID int64, cancelled *int) {
	ctx := r.Context()

	shop, err := h.ownedShop(ctx, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodeShopNotFound, "You have no shop")
		return
	}
	if err != nil {
		opError(w, r, "failed to query shop", err)
		return
	}

	next, pending, err := h.lineState(ctx, shop.ID)
	if err != nil {
		opError(w, r, "failed to query line", err)
		return
	}

	attended, err := h.lastAttended(ctx, shop.ID)
	if err != nil {
		opError(w, r, "failed to query attended turns", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MyShopResponse{
		Details: models.ShopDetails{
			ID:        h.svc.IDs.Encode(shop.ID),
			Name:      shop.Name,
			CreatedAt: shop.CreatedAt,
		},
		NextTurn:           next,
		LastTurnsAttended:  attended,
		PendingTurnsAmount: pending,
		Cancelled:          cancelled,
	})
}

func (h *ShopHandler) ownedShop(ctx context.Context, clientID int64) (models.Shop, error) {
	var s models.Shop
	err := h.db.QueryRowContext(ctx, `
		SELECT id, owner_client_id, name, counter, created_at, updated_at
		FROM shop
		WHERE owner_client_id = $1
	`, clientID).Scan(&s.ID, &s.OwnerClientID, &s.Name, &s.Counter, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// lineState returns the label of the first pending turn ("" when the line
// is empty) and how many turns are pending.
func (h *ShopHandler) lineState(ctx context.Context, shopID int64) (string, int, error) {
	var pending int
	err := h.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM issued_number WHERE shop_id = $1 AND status = $2
	`, shopID, int(models.StatusPending)).Scan(&pending)
	if err != nil {
		return "", 0, fmt.Errorf("count pending: %w", err)
	}
	if pending == 0 {
		return "", 0, nil
	}

	var number int64
	err = h.db.QueryRowContext(ctx, `
		SELECT issued_number FROM issued_number
		WHERE shop_id = $1 AND status = $2
		ORDER BY id
		LIMIT 1
	`, shopID, int(models.StatusPending)).Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		// Emptied between the two queries
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("next turn: %w", err)
	}
	return NumberToTurn(number), pending, nil
}

// lastAttended lists the latest attended turn labels, newest first. The
// line is served in id order, so id order is attendance order.
func (h *ShopHandler) lastAttended(ctx context.Context, shopID int64) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT issued_number FROM issued_number
		WHERE shop_id = $1 AND status = $2
		ORDER BY id DESC
		LIMIT $3
	`, shopID, int(models.StatusAttended), lastAttendedLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var number int64
		if err := rows.Scan(&number); err != nil {
			return nil, err
		}
		labels = append(labels, NumberToTurn(number))
	}
	return labels, rows.Err()
}

// parseName reads {name} and validates its length. It writes the error
// response itself.
func (h *ShopHandler) parseName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.ShopRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidJSON, "Invalid JSON")
		return "", false
	}

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < minShopName || n > maxShopName {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidName,
			fmt.Sprintf("name must be %d to %d characters", minShopName, maxShopName))
		return "", false
	}
	return name, true
}

