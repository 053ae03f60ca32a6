package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/cauda/auth"
	"github.com/danielhkuo/cauda/captcha"
	"github.com/danielhkuo/cauda/cliparse"
	"github.com/danielhkuo/cauda/db"
	"github.com/danielhkuo/cauda/handlers"
	"github.com/danielhkuo/cauda/metrics"
	"github.com/danielhkuo/cauda/middleware"
	"github.com/danielhkuo/cauda/phone"
	"github.com/danielhkuo/cauda/router"
)

const (
	smsTimeout      = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	var err error

	if os.Getenv("LOG_FORMAT") == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	flush, err := middleware.InitSentry(cfg.SentryDSN, os.Getenv("CAUDA_ENV"))
	if err != nil {
		slog.Error("sentry init failed", "error", err)
		os.Exit(1)
	}
	defer flush()

	// Connect to the database
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err, "type", cfg.DatabaseType)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	svc, err := buildServices(cfg)
	if err != nil {
		slog.Error("service setup failed", "error", err)
		os.Exit(1)
	}

	// Create server
	server := http.Server{
		Handler:           router.NewRouter(dbConn, cfg, svc),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal, then let in-flight requests finish
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "base_url", cfg.BaseURL)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}
}

// buildServices picks the real third-party clients when they are configured
// and the local stand-ins otherwise.
func buildServices(cfg cliparse.Config) (handlers.Services, error) {
	ids, err := auth.NewIDCodec(cfg.IDSalt)
	if err != nil {
		return handlers.Services{}, err
	}

	var verifier captcha.Verifier = captcha.Disabled{}
	if cfg.RecaptchaSecret != "" {
		verifier = captcha.NewRecaptcha(cfg.RecaptchaSecret, cfg.RecaptchaMinScore, captcha.VerifyURL)
	} else {
		slog.Warn("RECAPTCHA_SECRET not set, captcha checks are disabled")
	}

	var sms phone.Sender = phone.LogSender{}
	if cfg.SMSGatewayURL != "" {
		sms = phone.NewGatewaySender(cfg.SMSGatewayURL, cfg.SMSGatewayToken, smsTimeout)
	} else {
		slog.Warn("SMS_GATEWAY_URL not set, messages are only logged")
	}

	return handlers.Services{
		IDs:     ids,
		Captcha: verifier,
		SMS:     sms,
		Metrics: metrics.New(),
	}, nil
}
