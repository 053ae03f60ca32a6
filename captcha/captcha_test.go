// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSiteVerify(t *testing.T, resp siteVerifyResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "test-secret", r.PostForm.Get("secret"))
		assert.Equal(t, "client-token", r.PostForm.Get("response"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecaptchaVerify(t *testing.T) {
	tests := []struct {
		name    string
		resp    siteVerifyResponse
		action  string
		wantErr bool
	}{
		{"human", siteVerifyResponse{Success: true, Score: 0.9, Action: "register"}, "register", false},
		{"no action check", siteVerifyResponse{Success: true, Score: 0.9}, "register", false},
		{"rejected", siteVerifyResponse{Success: false, ErrorCodes: []string{"invalid-input-response"}}, "register", true},
		{"low score", siteVerifyResponse{Success: true, Score: 0.1, Action: "register"}, "register", true},
		{"wrong action", siteVerifyResponse{Success: true, Score: 0.9, Action: "login"}, "register", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeSiteVerify(t, tt.resp)
			v := NewRecaptcha("test-secret", 0.5, srv.URL)

			err := v.Verify(context.Background(), "client-token", tt.action, "10.0.0.1")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCaptchaFailed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecaptchaEmptyToken(t *testing.T) {
	v := NewRecaptcha("test-secret", 0.5, "http://127.0.0.1:1")
	assert.ErrorIs(t, v.Verify(context.Background(), "", "register", ""), ErrCaptchaFailed)
}

func TestRecaptchaEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewRecaptcha("test-secret", 0.5, srv.URL).Verify(context.Background(), "client-token", "", "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCaptchaFailed), "transport failures are not captcha rejections")
}

func TestDisabled(t *testing.T) {
	assert.NoError(t, Disabled{}.Verify(context.Background(), "", "register", ""))
}
