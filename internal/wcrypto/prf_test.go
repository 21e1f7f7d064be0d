package wcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePTKLength(t *testing.T) {
	pmk := make([]byte, 32)
	aa := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	spa := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	anonce := make([]byte, 32)
	snonce := make([]byte, 32)
	for i := range anonce {
		anonce[i] = byte(i)
		snonce[i] = byte(255 - i)
	}

	ptk := DerivePTK(pmk, aa, spa, anonce, snonce)
	require.Len(t, ptk, PTKLen)

	kck := ptk[:16]
	kek := ptk[16:32]
	tk := ptk[32:48]
	assert.NotEqual(t, kck, kek)
	assert.NotEqual(t, kek, tk)
}

func TestDerivePTKOrderIndependence(t *testing.T) {
	pmk := make([]byte, 32)
	for i := range pmk {
		pmk[i] = byte(i * 3)
	}
	aa := []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	spa := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	anonce := []byte{1, 2, 3}
	snonce := []byte{4, 5, 6}

	// Deriving with the AA/SPA (and nonce) arguments swapped must yield the
	// identical key material: the PRF input is sorted, not positional.
	ptkFwd := DerivePTK(pmk, aa, spa, anonce, snonce)
	ptkRev := DerivePTK(pmk, spa, aa, snonce, anonce)
	assert.Equal(t, ptkFwd, ptkRev)
}

func TestDeriveMICLength(t *testing.T) {
	kck := make([]byte, 16)
	mic := DeriveMIC(kck, []byte("some eapol frame bytes"))
	assert.Len(t, mic, 16)
}

func TestSortedPair(t *testing.T) {
	lo, hi := SortedPair([]byte{2}, []byte{1})
	assert.Equal(t, []byte{1}, lo)
	assert.Equal(t, []byte{2}, hi)
}
