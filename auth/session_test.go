// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "session-secret"

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(42, "+5491155550000", testSecret, time.Hour)
	require.NoError(t, err)

	s, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.ClientID)
	assert.Equal(t, "+5491155550000", s.Phone)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := IssueToken(1, "+5491155550000", testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(1, "+5491155550000", testSecret, -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
		want   error
	}{
		{"empty", "", testSecret, ErrMissingToken},
		{"garbage", "not-a-jwt", testSecret, ErrInvalidToken},
		{"wrong secret", valid, "other", ErrInvalidToken},
		{"expired", expired, testSecret, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSessionFromRequest(t *testing.T) {
	token, err := IssueToken(7, "+5491155550000", testSecret, time.Hour)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		s, err := SessionFromRequest(r, testSecret)
		require.NoError(t, err)
		assert.Equal(t, int64(7), s.ClientID)
	})

	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		s, err := SessionFromRequest(r, testSecret)
		require.NoError(t, err)
		assert.Equal(t, int64(7), s.ClientID)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Basic abc")
		_, err := SessionFromRequest(r, testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("nothing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		_, err := SessionFromRequest(r, testSecret)
		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestSessionCookies(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookie(w, "abc", time.Hour, true)
	ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, -1, cookies[1].MaxAge)
}
