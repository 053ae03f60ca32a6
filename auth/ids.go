// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"fmt"

	"github.com/speps/go-hashids/v2"
)

const idMinLength = 6

// IDCodec converts integer primary keys to the short public ids used in
// URLs and back.
type IDCodec struct {
	h *hashids.HashID
}

func NewIDCodec(salt string) (*IDCodec, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = idMinLength

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to create id codec: %w", err)
	}
	return &IDCodec{h: h}, nil
}

func (c *IDCodec) Encode(id int64) string {
	s, err := c.h.EncodeInt64([]int64{id})
	if err != nil {
		// only negative ids fail, and keys are never negative
		panic(fmt.Sprintf("encode id %d: %v", id, err))
	}
	return s
}

// Decode rejects anything that does not round-trip to exactly one
// positive id.
func (c *IDCodec) Decode(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidID
	}
	ids, err := c.h.DecodeInt64WithError(s)
	if err != nil || len(ids) != 1 || ids[0] <= 0 {
		return 0, ErrInvalidID
	}
	if c.Encode(ids[0]) != s {
		return 0, ErrInvalidID
	}
	return ids[0], nil
}
