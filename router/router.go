// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/handlers"
	"github.com/danielhkuo/cauda/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, svc handlers.Services) http.Handler {
	mux := http.NewServeMux()

	// Initialize handlers
	phoneHandler := handlers.NewPhoneHandler(db, cfg, svc)
	clientHandler := handlers.NewClientHandler(db, cfg, svc)
	turnHandler := handlers.NewTurnHandler(db, cfg, svc)
	shopHandler := handlers.NewShopHandler(db, cfg, svc)

	rl := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.TrustProxy)

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, middleware.WithLogging(middleware.Instrument(svc.Metrics, h)))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", svc.Metrics.Handler())

	// Phone sign-in (rate limited per IP)
	handle("POST /auth/verify-phone", rl.Wrap(phoneHandler.VerifyPhone))
	handle("POST /auth/verify-code", rl.Wrap(phoneHandler.VerifyCode))
	handle("POST /auth/logout", phoneHandler.Logout)
	handle("GET /auth/registration", phoneHandler.Registration)

	handle("GET /clients/me", clientHandler.GetMe)

	// Client side of the line
	handle("POST /shops/{shopId}/turns", turnHandler.RequestTurn)
	handle("GET /turns/mine", turnHandler.MyTurns)
	handle("GET /turns/mine/past", turnHandler.MyPastTurns)
	handle("GET /turns/{turnId}", turnHandler.GetTurn)
	handle("POST /turns/{turnId}/cancel", turnHandler.CancelTurn)

	// Shop owner operations
	handle("POST /shops", shopHandler.CreateShop)
	handle("GET /shops/mine", shopHandler.GetMyShop)
	handle("PUT /shops/mine", shopHandler.UpdateShop)
	handle("POST /shops/mine/attend-next", shopHandler.AttendNextTurn)
	handle("POST /shops/mine/skip", shopHandler.SkipTurn)
	handle("POST /shops/mine/cancel-pending", shopHandler.CancelPending)

	// Public shop page
	handle("GET /shops/{shopId}", shopHandler.GetShop)

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cauda API v1"))
	})

	return middleware.CORS(middleware.Recover(mux))
}
