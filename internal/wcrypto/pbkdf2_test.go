package wcrypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDerivePSKKnownVector checks against the widely published WPA2 PSK test
// vector: passphrase "password", SSID "IEEE", expected PMK
// f42c6fc52df0ebef9ebb4b90b38a5f902e83fe1b135a70e23aed762e9710a12e.
func TestDerivePSKKnownVector(t *testing.T) {
	psk, err := DerivePSK("password", []byte("IEEE"))
	require.NoError(t, err)

	want, err := hex.DecodeString("f42c6fc52df0ebef9ebb4b90b38a5f902e83fe1b135a70e23aed762e9710a12e")
	require.NoError(t, err)
	assert.Equal(t, want, psk)
}

func TestDerivePSKRejectsBadLength(t *testing.T) {
	_, err := DerivePSK("short", []byte("ssid"))
	assert.Error(t, err)

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err = DerivePSK(string(long), []byte("ssid"))
	assert.Error(t, err)
}
