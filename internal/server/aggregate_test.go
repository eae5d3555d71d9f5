package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_RoundTrip(t *testing.T) {
	pairs := map[string][]byte{
		"block-0": {0x08, 0x00, 0x10, 0x03},
		"binary":  {0x00, 0xff, 0x7f},
		"empty":   {},
	}

	blob, err := encodeAggregate(pairs)
	require.NoError(t, err)

	decoded, err := decodeAggregate(blob)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	assert.Equal(t, pairs["block-0"], decoded["block-0"])
	assert.Equal(t, pairs["binary"], decoded["binary"])
	assert.Empty(t, decoded["empty"])
}

func TestAggregate_EmptyRound(t *testing.T) {
	blob, err := encodeAggregate(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(blob))

	decoded, err := decodeAggregate(blob)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestAggregate_DecodeErrors(t *testing.T) {
	_, err := decodeAggregate([]byte("not json"))
	assert.Error(t, err)

	_, err = decodeAggregate([]byte(`{"k":"%%%"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key k")
}
