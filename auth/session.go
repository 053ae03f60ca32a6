// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// CookieName is the cookie the web client keeps the session token in.
const CookieName = "token"

const issuer = "cauda"

// Session is what a valid token proves about the caller.
type Session struct {
	ClientID  int64
	Phone     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for the client.
func IssueToken(clientID int64, phone, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Phone: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(clientID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseToken validates signature, expiry and issuer.
func ParseToken(token, secret string) (*Session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(issuer, true) || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	clientID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || clientID <= 0 {
		return nil, ErrInvalidToken
	}

	return &Session{
		ClientID:  clientID,
		Phone:     claims.Phone,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SessionFromRequest reads the token from the Authorization header, then
// from the session cookie.
func SessionFromRequest(r *http.Request, secret string) (*Session, error) {
	token := ""
	if h := r.Header.Get("Authorization"); h != "" {
		var ok bool
		token, ok = strings.CutPrefix(h, "Bearer ")
		if !ok {
			return nil, ErrInvalidToken
		}
	} else if c, err := r.Cookie(CookieName); err == nil {
		token = c.Value
	} else if !errors.Is(err, http.ErrNoCookie) {
		return nil, ErrInvalidToken
	}

	return ParseToken(strings.TrimSpace(token), secret)
}

// SetSessionCookie stores the token for browser clients.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
