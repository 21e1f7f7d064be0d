// Package wcrypto implements the small set of cryptographic primitives the
// WPA2-PSK handshake needs: the IEEE 802.11 pseudo-random function used to
// expand the PMK into a PTK, RFC 3394 AES key-unwrap for GTK extraction, and
// the HMAC-SHA1 message integrity check carried on each EAPOL key frame.
package wcrypto

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"sort"
)

const prfLabel = "Pairwise key expansion"

// PTKLen is the number of key-material bytes DerivePTK produces (a
// 384-bit PRF output): KCK(16) + KEK(16) + TK(16) for a CCMP pairwise
// cipher.
const PTKLen = 48

// DeriveMIC computes an HMAC-SHA1 MIC over data and truncates it to 16
// bytes, the form carried in an EAPOL key frame.
func DeriveMIC(kck, data []byte) []byte {
	mac := hmac.New(sha1.New, kck)
	mac.Write(data)
	return mac.Sum(nil)[:16]
}

// DerivePTK runs the 802.11 PRF over the PMK to produce KCK||KEK||TK,
// following the sorted-address/sorted-nonce construction in the standard:
// the smaller of (aa, spa) and the smaller of (anonce, snonce) each sort
// first into the hashed material, regardless of which side is the
// authenticator.
func DerivePTK(pmk, aa, spa, anonce, snonce []byte) []byte {
	var addrs, nonces [][]byte
	if bytes.Compare(aa, spa) < 0 {
		addrs = [][]byte{aa, spa}
	} else {
		addrs = [][]byte{spa, aa}
	}
	if bytes.Compare(anonce, snonce) < 0 {
		nonces = [][]byte{anonce, snonce}
	} else {
		nonces = [][]byte{snonce, anonce}
	}

	data := make([]byte, 0, len(addrs[0])+len(addrs[1])+len(nonces[0])+len(nonces[1]))
	data = append(data, addrs[0]...)
	data = append(data, addrs[1]...)
	data = append(data, nonces[0]...)
	data = append(data, nonces[1]...)

	return prf(pmk, prfLabel, data, PTKLen)
}

// prf is IEEE 802.11's PRF-N: a counter-indexed run of HMAC-SHA1 whose
// output is concatenated until at least n bytes are available.
func prf(key []byte, label string, data []byte, n int) []byte {
	out := make([]byte, 0, n+sha1.Size)
	for i := byte(0); len(out) < n; i++ {
		mac := hmac.New(sha1.New, key)
		mac.Write([]byte(label))
		mac.Write([]byte{0})
		mac.Write(data)
		mac.Write([]byte{i})
		out = mac.Sum(out)
	}
	return out[:n]
}

// SortedPair is exported for callers that need to recompute the
// deterministic address/nonce ordering DerivePTK uses without re-deriving
// a full PTK.
func SortedPair(a, b []byte) (lo, hi []byte) {
	pair := [][]byte{a, b}
	sort.Slice(pair, func(i, j int) bool { return bytes.Compare(pair[i], pair[j]) < 0 })
	return pair[0], pair[1]
}
