package wcrypto

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrIntegrityCheck is returned by KeyUnwrap when the RFC 3394 integrity
// check value does not match, meaning either the KEK is wrong or the wrapped
// data was corrupted/tampered with in transit.
var ErrIntegrityCheck = errors.New("wcrypto: key unwrap integrity check failed")

const iv3394 = 0xA6A6A6A6A6A6A6A6

// KeyUnwrap implements the RFC 3394 AES key-unwrap algorithm used to recover
// the GTK (and, for a TKIP group cipher, the MIC keys packed alongside it)
// from the key data field of an EAPOL-Key message 3. cipherText must be a
// multiple of 8 bytes and at least 16 (one 64-bit IV block plus at least one
// 64-bit plaintext block).
func KeyUnwrap(kek, cipherText []byte) ([]byte, error) {
	if len(cipherText) < 16 || len(cipherText)%8 != 0 {
		return nil, errors.Errorf("wcrypto: invalid wrapped length %d", len(cipherText))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.Wrap(err, "wcrypto: aes.NewCipher")
	}

	n := len(cipherText)/8 - 1
	a := make([]byte, 8)
	copy(a, cipherText[:8])
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = make([]byte, 8)
		copy(r[i], cipherText[8*(i+1):8*(i+2)])
	}

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			t := uint64(n*j + i)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			xorInto(a, tb[:])

			copy(buf[:8], a)
			copy(buf[8:], r[i-1])
			block.Decrypt(buf, buf)

			copy(a, buf[:8])
			copy(r[i-1], buf[8:])
		}
	}

	var want [8]byte
	binary.BigEndian.PutUint64(want[:], uint64(iv3394))
	if !constantTimeEqual(a, want[:]) {
		return nil, ErrIntegrityCheck
	}

	out := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		out = append(out, r[i]...)
	}
	return out, nil
}

// KeyWrap implements the RFC 3394 AES key-wrap algorithm, the inverse of
// KeyUnwrap. The daemon only ever unwraps (it is never the 4-way
// handshake's authenticator), but the wrap direction is exercised by tests
// that need to construct a synthetic AP-side message.
func KeyWrap(kek, plainText []byte) ([]byte, error) {
	if len(plainText) == 0 || len(plainText)%8 != 0 {
		return nil, errors.Errorf("wcrypto: invalid plaintext length %d", len(plainText))
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, errors.Wrap(err, "wcrypto: aes.NewCipher")
	}

	n := len(plainText) / 8
	a := make([]byte, 8)
	binary.BigEndian.PutUint64(a, uint64(iv3394))
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = make([]byte, 8)
		copy(r[i], plainText[8*i:8*(i+1)])
	}

	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 1; i <= n; i++ {
			copy(buf[:8], a)
			copy(buf[8:], r[i-1])
			block.Encrypt(buf, buf)

			copy(a, buf[:8])
			t := uint64(n*j + i)
			var tb [8]byte
			binary.BigEndian.PutUint64(tb[:], t)
			xorInto(a, tb[:])

			copy(r[i-1], buf[8:])
		}
	}

	out := make([]byte, 0, (n+1)*8)
	out = append(out, a...)
	for i := 0; i < n; i++ {
		out = append(out, r[i]...)
	}
	return out, nil
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
