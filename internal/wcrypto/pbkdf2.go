package wcrypto

import (
	"crypto/sha1"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// PSKIterations and PSKKeyLen are the fixed PBKDF2 parameters WPA2-PSK uses
// to turn a passphrase plus SSID into a 256-bit pre-shared key.
const (
	PSKIterations = 4096
	PSKKeyLen     = 32

	minPassphraseLen = 8
	maxPassphraseLen = 63
)

// DerivePSK runs PBKDF2-HMAC-SHA1 over a passphrase salted with the target
// SSID, the standard WPA2-Personal key derivation.
func DerivePSK(passphrase string, ssid []byte) ([]byte, error) {
	if len(passphrase) < minPassphraseLen || len(passphrase) > maxPassphraseLen {
		return nil, errors.Errorf("wcrypto: passphrase length %d out of range [%d,%d]",
			len(passphrase), minPassphraseLen, maxPassphraseLen)
	}
	return pbkdf2.Key([]byte(passphrase), ssid, PSKIterations, PSKKeyLen, sha1.New), nil
}
