// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package phone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
)

// Sender delivers a text message to an E.164 number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// LogSender only logs messages. Used when no gateway is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, body string) error {
	slog.Info("sms not sent (no gateway configured)", "to", to, "body", body)
	return nil
}

// GatewaySender posts {"to", "body"} as JSON to an HTTP SMS gateway.
type GatewaySender struct {
	url    string
	token  string
	client *httpclient.Client
}

type gatewayMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func NewGatewaySender(url, token string, timeout time.Duration) *GatewaySender {
	backoff := heimdall.NewConstantBackoff(200*time.Millisecond, 100*time.Millisecond)
	return &GatewaySender{
		url:   url,
		token: token,
		client: httpclient.NewClient(
			httpclient.WithHTTPTimeout(timeout),
			httpclient.WithRetryCount(2),
			httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		),
	}
}

func (s *GatewaySender) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(gatewayMessage{To: to, Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
	}
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}

	return nil
}
