// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
)

// VerifyURL is Google's reCAPTCHA verification endpoint.
const VerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var ErrCaptchaFailed = errors.New("captcha verification failed")

// Verifier checks a client-side captcha token.
type Verifier interface {
	Verify(ctx context.Context, token, action, remoteIP string) error
}

// Disabled accepts every token. Used in development when no secret is set.
type Disabled struct{}

func (Disabled) Verify(ctx context.Context, token, action, remoteIP string) error {
	return nil
}

// Recaptcha verifies reCAPTCHA v3 tokens.
type Recaptcha struct {
	secret   string
	minScore float64
	url      string
	client   *httpclient.Client
}

type siteVerifyResponse struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

// NewRecaptcha builds a verifier; endpoint may be empty to use VerifyURL.
func NewRecaptcha(secret string, minScore float64, endpoint string) *Recaptcha {
	if endpoint == "" {
		endpoint = VerifyURL
	}
	backoff := heimdall.NewConstantBackoff(100*time.Millisecond, 50*time.Millisecond)
	return &Recaptcha{
		secret:   secret,
		minScore: minScore,
		url:      endpoint,
		client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(5*time.Second),
			httpclient.WithRetryCount(1),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		),
	}
}

func (v *Recaptcha) Verify(ctx context.Context, token, action, remoteIP string) error {
	if token == "" {
		return ErrCaptchaFailed
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("captcha request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha endpoint returned %d", resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode captcha response: %w", err)
	}

	if !out.Success {
		slog.Warn("captcha rejected", "error_codes", out.ErrorCodes)
		return ErrCaptchaFailed
	}
	if out.Score < v.minScore {
		slog.Warn("captcha score too low", "score", out.Score, "min", v.minScore)
		return ErrCaptchaFailed
	}
	if action != "" && out.Action != "" && out.Action != action {
		slog.Warn("captcha action mismatch", "got", out.Action, "want", action)
		return ErrCaptchaFailed
	}

	return nil
}
