// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package phone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr error
	}{
		{"international AR mobile", "+54 9 11 2345-6789", "AR", "+5491123456789", nil},
		{"surrounding spaces", "  +5491123456789 ", "AR", "+5491123456789", nil},
		{"US number in AR", "+1 201-555-0123", "AR", "", ErrNotNational},
		{"US number in US", "+1 201-555-0123", "US", "+12015550123", nil},
		{"empty", "", "AR", "", ErrInvalidPhone},
		{"letters", "call me", "AR", "", ErrInvalidPhone},
		{"too short", "+54 11", "AR", "", ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.region)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.Send(context.Background(), "+5491123456789", "hi"))
}

func TestGatewaySender(t *testing.T) {
	var got gatewayMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewGatewaySender(srv.URL, "gw-token", time.Second)
	err := s.Send(context.Background(), "+5491123456789", "Your code is 123456")
	require.NoError(t, err)

	assert.Equal(t, "Bearer gw-token", auth)
	assert.Equal(t, "+5491123456789", got.To)
	assert.Equal(t, "Your code is 123456", got.Body)
}

func TestGatewaySenderErrors(t *testing.T) {
	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		err := NewGatewaySender(srv.URL, "", time.Second).Send(context.Background(), "+1", "x")
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server error is retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewGatewaySender(srv.URL, "", time.Second).Send(context.Background(), "+1", "x")
		assert.Error(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})
}
