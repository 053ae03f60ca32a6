// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/middleware"
	"github.com/danielhkuo/cauda/models"
)

type ClientHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewClientHandler(db *sql.DB, cfg cliparse.Config, svc Services) *ClientHandler {
	return &ClientHandler{db: db, cfg: cfg, svc: svc}
}

// GetMe handles GET /clients/me
// Returns the signed-in client and the shop they own, if any
func (h *ClientHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r, h.cfg.TokenSecret, models.CodeInvalidToken)
	if !ok {
		return
	}

	var client models.Client
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, phone, created_at, last_seen_at
		FROM client
		WHERE id = $1
	`, sess.ClientID).Scan(&client.ID, &client.Phone, &client.CreatedAt, &client.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Token outlived the client
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.CodeInvalidToken, "Invalid or missing session")
		return
	}
	if err != nil {
		opError(w, r, "failed to query client", err)
		return
	}

	info := models.ClientInfo{
		ID:        h.svc.IDs.Encode(client.ID),
		Phone:     client.Phone,
		CreatedAt: client.CreatedAt,
	}

	var shopID int64
	err = h.db.QueryRowContext(r.Context(), `SELECT id FROM shop WHERE owner_client_id = $1`, client.ID).Scan(&shopID)
	if err == nil {
		id := h.svc.IDs.Encode(shopID)
		info.ShopID = &id
	} else if !errors.Is(err, sql.ErrNoRows) {
		opError(w, r, "failed to query client shop", err)
		return
	}

	// Update last_seen_at
	now := time.Now().UTC()
	_, err = h.db.ExecContext(r.Context(), `
		UPDATE client SET last_seen_at = $1 WHERE id = $2
	`, now, client.ID)
	if err != nil {
		slog.Error("failed to update client last_seen_at", "error", err)
		info.LastSeenAt = client.LastSeenAt
	} else {
		info.LastSeenAt = now
	}

	middleware.JSONResponse(w, http.StatusOK, info)
}
