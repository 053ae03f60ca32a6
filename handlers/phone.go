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

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/cauda/auth"
	"github.com/danielhkuo/cauda/captcha"
	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/db"
	"github.com/danielhkuo/cauda/middleware"
	"github.com/danielhkuo/cauda/models"
	"github.com/danielhkuo/cauda/phone"
)

const (
	codeDigits    = 6
	captchaAction = "verify_phone"
)

type PhoneHandler struct {
	db  *sql.DB
	cfg cliparse.Config
	svc Services
}

func NewPhoneHandler(db *sql.DB, cfg cliparse.Config, svc Services) *PhoneHandler {
	return &PhoneHandler{db: db, cfg: cfg, svc: svc}
}

// VerifyPhone handles POST /auth/verify-phone
// Sends a one-time code by SMS to a national phone number
func (h *PhoneHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.VerifyPhoneRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidJSON, "Invalid JSON")
		return
	}

	purpose := req.Purpose
	if purpose == "" {
		purpose = models.PurposeClient
	}
	var enabled bool
	switch purpose {
	case models.PurposeClient:
		enabled = h.cfg.ClientRegistrationEnabled
	case models.PurposeShop:
		enabled = h.cfg.ShopRegistrationEnabled
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidJSON, "purpose must be one of: client, shop")
		return
	}
	if !enabled {
		middleware.ErrorResponse(w, http.StatusForbidden, models.CodeRegistrationDisabled, "Registration is disabled")
		return
	}

	ip := middleware.ClientIP(r, h.cfg.TrustProxy)
	if err := h.svc.Captcha.Verify(ctx, req.Token, captchaAction, ip); err != nil {
		if !errors.Is(err, captcha.ErrCaptchaFailed) {
			slog.Error("captcha verification failed", "error", err)
			middleware.ReportError(r, err)
		}
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidCaptcha, "Invalid captcha")
		return
	}

	number, err := phone.Normalize(req.Phone, h.cfg.PhoneRegion)
	if errors.Is(err, phone.ErrNotNational) {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidNationalPhone, "Phone number must be national")
		return
	}
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidPhone, "Invalid phone number")
		return
	}

	now := time.Now().UTC()

	code, err := auth.GenerateCode(codeDigits)
	if err != nil {
		slog.Error("failed to generate code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, "Failed to generate code")
		return
	}

	// The allowance check and the insert share a transaction so two
	// concurrent requests for one phone cannot both get a code.
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		opError(w, r, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	if err := h.lockPhone(ctx, tx, number); err != nil {
		opError(w, r, "failed to lock phone", err)
		return
	}

	// The latest MaxCodesPerDay codes are enough to tell both whether one is
	// still usable and whether today's allowance is spent.
	recent, err := h.recentVerifications(ctx, tx, number)
	if err != nil {
		opError(w, r, "failed to query phone verifications", err)
		return
	}

	dayStart := startOfDay(now, h.cfg.Location)
	sentToday := 0
	for _, v := range recent {
		if v.VerifiedAt == nil && v.ExpiresAt.After(now) && v.Attempts < h.cfg.MaxCodeAttempts {
			middleware.ErrorResponseWithDetails(w, http.StatusConflict, models.CodeInProgress,
				"A code was already sent to this phone",
				map[string]any{"expires_at": v.ExpiresAt})
			return
		}
		if !v.CreatedAt.Before(dayStart) {
			sentToday++
		}
	}
	if sentToday >= h.cfg.MaxCodesPerDay {
		middleware.ErrorResponse(w, http.StatusTooManyRequests, models.CodeLimitCodeSentExceeded, "Too many codes sent today")
		return
	}

	expiresAt := now.Add(h.cfg.CodeTTL)
	var verificationID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO phone_verification (phone, code_hash, ip_hash, attempts, created_at, expires_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		RETURNING id
	`, number, auth.HashCode(number, code, h.cfg.TokenSecret), auth.HashIP(ip, h.cfg.IDSalt), now, expiresAt).Scan(&verificationID)
	if err != nil {
		opError(w, r, "failed to insert phone verification", err)
		return
	}

	if err := tx.Commit(); err != nil {
		opError(w, r, "failed to commit phone verification", err)
		return
	}

	body := fmt.Sprintf("Your Cauda code is %d. It expires in %d minutes.", code, int(h.cfg.CodeTTL.Minutes()))
	if err := h.svc.SMS.Send(ctx, number, body); err != nil {
		slog.Error("failed to send verification sms", "error", err)
		middleware.ReportError(r, fmt.Errorf("verification sms: %w", err))
		h.svc.Metrics.VerificationCodes.WithLabelValues("failed").Inc()

		// Without the SMS the row would only block the next attempt
		if _, err := h.db.ExecContext(ctx, `DELETE FROM phone_verification WHERE id = $1`, verificationID); err != nil {
			slog.Error("failed to delete phone verification", "error", err)
		}

		middleware.ErrorResponse(w, http.StatusBadGateway, models.CodeSMSError, "Failed to send SMS")
		return
	}

	h.svc.Metrics.VerificationCodes.WithLabelValues("sent").Inc()
	slog.Info("verification code sent", "verification_id", verificationID, "purpose", purpose)

	middleware.JSONResponse(w, http.StatusOK, models.VerifyPhoneResponse{
		ExpiresAt: expiresAt,
		ExpiresIn: humanize.RelTime(expiresAt, now, "ago", "from now"),
	})
}

// VerifyCode handles POST /auth/verify-code
// Exchanges a valid code for a session, creating the client on first login
func (h *PhoneHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.VerifyCodeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidJSON, "Invalid JSON")
		return
	}

	number, err := phone.Normalize(req.Phone, h.cfg.PhoneRegion)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.CodeInvalidPhone, "Invalid phone number")
		return
	}

	var v models.PhoneVerification
	err = h.db.QueryRowContext(ctx, `
		SELECT id, code_hash, expires_at
		FROM phone_verification
		WHERE phone = $1 AND verified_at IS NULL
		ORDER BY id DESC
		LIMIT 1
	`, number).Scan(&v.ID, &v.CodeHash, &v.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, models.CodePhoneNotRegistered, "No code was sent to this phone")
		return
	}
	if err != nil {
		opError(w, r, "failed to query phone verification", err)
		return
	}

	now := time.Now().UTC()
	if !now.Before(v.ExpiresAt) {
		middleware.ErrorResponse(w, http.StatusGone, models.CodeCodeExpired, "Code expired")
		return
	}

	// Every guess takes an attempt before the code is compared, so
	// concurrent guesses cannot get past MaxCodeAttempts.
	err = h.db.QueryRowContext(ctx, `
		UPDATE phone_verification SET attempts = attempts + 1
		WHERE id = $1 AND verified_at IS NULL AND attempts < $2
		RETURNING attempts
	`, v.ID, h.cfg.MaxCodeAttempts).Scan(&v.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusGone, models.CodeCodeExpired, "Code expired")
		return
	}
	if err != nil {
		opError(w, r, "failed to count code attempt", err)
		return
	}

	if !auth.CheckCode(number, req.Code, h.cfg.TokenSecret, v.CodeHash) {
		middleware.ErrorResponseWithDetails(w, http.StatusBadRequest, models.CodeIncorrectCode, "Incorrect code",
			map[string]any{"attempts_left": h.cfg.MaxCodeAttempts - v.Attempts})
		return
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		opError(w, r, "failed to begin transaction", err)
		return
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE phone_verification SET verified_at = $1
		WHERE id = $2 AND verified_at IS NULL
	`, now, v.ID)
	if err != nil {
		opError(w, r, "failed to mark code verified", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Someone else used it first
		middleware.ErrorResponse(w, http.StatusGone, models.CodeCodeExpired, "Code expired")
		return
	}

	var clientID int64
	isNew := false
	err = tx.QueryRowContext(ctx, `SELECT id FROM client WHERE phone = $1`, number).Scan(&clientID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		isNew = true
		err = tx.QueryRowContext(ctx, `
			INSERT INTO client (phone, created_at, last_seen_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`, number, now, now).Scan(&clientID)
	case err == nil:
		_, err = tx.ExecContext(ctx, `UPDATE client SET last_seen_at = $1 WHERE id = $2`, now, clientID)
	}
	if err != nil {
		opError(w, r, "failed to upsert client", err)
		return
	}

	if err := tx.Commit(); err != nil {
		opError(w, r, "failed to commit verification", err)
		return
	}

	token, err := auth.IssueToken(clientID, number, h.cfg.TokenSecret, h.cfg.SessionTTL)
	if err != nil {
		slog.Error("failed to issue session token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.CodeInternal, "Failed to create session")
		return
	}
	auth.SetSessionCookie(w, token, h.cfg.SessionTTL, strings.HasPrefix(h.cfg.BaseURL, "https://"))

	slog.Info("phone verified", "client_id", clientID, "is_new", isNew)

	middleware.JSONResponse(w, http.StatusOK, models.VerifyCodeResponse{
		Token:    token,
		ClientID: h.svc.IDs.Encode(clientID),
		IsNew:    isNew,
	})
}

// Logout handles POST /auth/logout
func (h *PhoneHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Registration handles GET /auth/registration
// Tells the register page which sign-ups are open
func (h *PhoneHandler) Registration(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.RegistrationResponse{
		ClientEnabled: h.cfg.ClientRegistrationEnabled,
		ShopEnabled:   h.cfg.ShopRegistrationEnabled,
	})
}

// lockPhone serializes code requests for one phone until tx ends. SQLite
// needs nothing: its single connection already runs one tx at a time.
func (h *PhoneHandler) lockPhone(ctx context.Context, tx *sql.Tx, number string) error {
	if h.cfg.DatabaseType != db.DriverPostgres {
		return nil
	}
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "phone:"+number)
	return err
}

func (h *PhoneHandler) recentVerifications(ctx context.Context, q db.Querier, number string) ([]models.PhoneVerification, error) {
	limit := h.cfg.MaxCodesPerDay
	if limit < 1 {
		limit = 1
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, attempts, created_at, expires_at, verified_at
		FROM phone_verification
		WHERE phone = $1
		ORDER BY id DESC
		LIMIT $2
	`, number, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PhoneVerification
	for rows.Next() {
		v := models.PhoneVerification{Phone: number}
		var verifiedAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.Attempts, &v.CreatedAt, &v.ExpiresAt, &verifiedAt); err != nil {
			return nil, err
		}
		if verifiedAt.Valid {
			t := verifiedAt.Time
			v.VerifiedAt = &t
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
