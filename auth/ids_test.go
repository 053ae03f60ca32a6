// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDCodecRoundTrip(t *testing.T) {
	codec, err := NewIDCodec("test-salt")
	require.NoError(t, err)

	for _, id := range []int64{1, 2, 42, 1000, 1 << 40} {
		s := codec.Encode(id)
		assert.GreaterOrEqual(t, len(s), idMinLength, "id %d", id)

		got, err := codec.Decode(s)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestIDCodecSaltMatters(t *testing.T) {
	a, err := NewIDCodec("salt-a")
	require.NoError(t, err)
	b, err := NewIDCodec("salt-b")
	require.NoError(t, err)

	assert.NotEqual(t, a.Encode(7), b.Encode(7))
}

func TestIDCodecDecodeInvalid(t *testing.T) {
	codec, err := NewIDCodec("test-salt")
	require.NoError(t, err)

	multi, err := codec.h.EncodeInt64([]int64{1, 2})
	require.NoError(t, err)

	for _, s := range []string{"", "!!!", "0", multi} {
		_, err := codec.Decode(s)
		assert.ErrorIs(t, err, ErrInvalidID, "input %q", s)
	}
}
