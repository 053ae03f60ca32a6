// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

var (
	ErrInvalidID    = errors.New("invalid id")
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// GenerateCode returns a uniformly random numeric code with exactly
// digits digits (no leading zero, so it survives being sent as an int).
func GenerateCode(digits int) (int, error) {
	if digits < 1 || digits > 9 {
		return 0, fmt.Errorf("unsupported code length %d", digits)
	}
	low := int64(1)
	for i := 1; i < digits; i++ {
		low *= 10
	}
	span := big.NewInt(low*10 - low)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("failed to generate code: %w", err)
	}
	return int(low + n.Int64()), nil
}

// HashCode binds a verification code to its phone so stored hashes are
// useless for any other number.
func HashCode(phone string, code int, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(phone))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(code)))
	return hex.EncodeToString(h.Sum(nil))
}

// CheckCode compares in constant time.
func CheckCode(phone string, code int, secret, hash string) bool {
	expected := HashCode(phone, code, secret)
	return hmac.Equal([]byte(expected), []byte(hash))
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
