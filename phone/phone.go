// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrNotNational  = errors.New("phone number is not from the service region")
)

// Normalize parses raw as typed by a user (national or international
// format) and returns it in E.164. Numbers valid elsewhere but not in
// region return ErrNotNational.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	if phonenumbers.GetRegionCodeForNumber(num) != region {
		return "", ErrNotNational
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
