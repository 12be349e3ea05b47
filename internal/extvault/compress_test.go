package extvault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareRawBytesLeavesSmallPayloadsUncompressed(t *testing.T) {
	small := []byte("<Foreign>hello</Foreign>")
	stored, compressed := PrepareRawBytes(small)
	assert.False(t, compressed)
	assert.Equal(t, small, stored)
}

func TestPrepareRawBytesCompressesLargePayloads(t *testing.T) {
	large := []byte(strings.Repeat("<Foreign>filler content</Foreign>", 1024))
	require.True(t, len(large) >= CompressionThreshold)

	stored, compressed := PrepareRawBytes(large)
	assert.True(t, compressed)
	assert.Less(t, len(stored), len(large))
}

func TestResolveRawBytesRoundTripsCompressedPayload(t *testing.T) {
	large := []byte(strings.Repeat("<Foreign>filler content</Foreign>", 1024))
	stored, compressed := PrepareRawBytes(large)
	require.True(t, compressed)

	out, err := ResolveRawBytes(stored, compressed)
	require.NoError(t, err)
	assert.Equal(t, large, out)
}

func TestResolveRawBytesPassesThroughUncompressedPayload(t *testing.T) {
	small := []byte("<Foreign>hello</Foreign>")
	out, err := ResolveRawBytes(small, false)
	require.NoError(t, err)
	assert.Equal(t, small, out)
}

func TestResolveRawBytesRejectsCorruptCompressedPayload(t *testing.T) {
	_, err := ResolveRawBytes([]byte("not a valid snappy frame"), true)
	assert.Error(t, err)
}
