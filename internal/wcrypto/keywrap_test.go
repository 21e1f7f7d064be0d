package wcrypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKeyUnwrapRFC3394Vector exercises the RFC 3394 §4.1 "wrap 128 bits of
// key data with a 128-bit KEK" test vector.
func TestKeyUnwrapRFC3394Vector(t *testing.T) {
	kek, err := hex.DecodeString("000102030405060708090A0B0C0D0E0F")
	require.NoError(t, err)

	wrapped, err := hex.DecodeString("1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5")
	require.NoError(t, err)
	require.Len(t, wrapped, 24)

	want, err := hex.DecodeString("00112233445566778899AABBCCDDEEFF")
	require.NoError(t, err)
	require.Len(t, want, 16)

	got, err := KeyUnwrap(kek, wrapped)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestKeyUnwrapBadICV(t *testing.T) {
	kek := make([]byte, 16)
	wrapped := make([]byte, 24)
	_, err := KeyUnwrap(kek, wrapped)
	assert.Equal(t, ErrIntegrityCheck, err)
}

func TestKeyUnwrapRejectsShortInput(t *testing.T) {
	kek := make([]byte, 16)
	_, err := KeyUnwrap(kek, make([]byte, 8))
	assert.Error(t, err)
}

func TestKeyWrapUnwrapRoundTrip(t *testing.T) {
	kek := make([]byte, 16)
	for i := range kek {
		kek[i] = byte(i * 7)
	}
	plain := make([]byte, 32) // a 32-byte TKIP-style GTK value
	for i := range plain {
		plain[i] = byte(255 - i)
	}

	wrapped, err := KeyWrap(kek, plain)
	require.NoError(t, err)
	require.Len(t, wrapped, 40)

	got, err := KeyUnwrap(kek, wrapped)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestKeyWrapMatchesRFC3394Vector(t *testing.T) {
	kek, err := hex.DecodeString("000102030405060708090A0B0C0D0E0F")
	require.NoError(t, err)
	plain, err := hex.DecodeString("00112233445566778899AABBCCDDEEFF")
	require.NoError(t, err)

	wrapped, err := KeyWrap(kek, plain)
	require.NoError(t, err)

	want, err := hex.DecodeString("1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5")
	require.NoError(t, err)
	assert.Equal(t, want, wrapped)
}
