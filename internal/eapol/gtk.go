package eapol

import "github.com/pkg/errors"

// storeGTK copies a raw GTK value into its install form, matching
// wsupp_eapol.c's store_gtk including its explen check (16 bytes for
// CCMP, 32 for TKIP — anything else aborts the handshake rather than
// installing a truncated or overlong key). For CCMP the GTK is used
// as-is. For TKIP the 32-byte value carries the 16-byte encryption key
// followed by two 8-byte MIC key halves in transmit order; store_gtk
// unconditionally swaps those two halves before install. The reference's
// own comment calls this inherited from another supplicant with no
// standards citation — preserved here as-is rather than "corrected", per
// the documented open question.
func storeGTK(raw []byte, tkipGroup bool) ([]byte, error) {
	explen := 16
	if tkipGroup {
		explen = 32
	}
	if len(raw) != explen {
		return nil, errors.Errorf("eapol: GTK length %d, want %d", len(raw), explen)
	}
	if !tkipGroup {
		return append([]byte(nil), raw...), nil
	}
	out := make([]byte, 32)
	copy(out[0:16], raw[0:16])
	copy(out[16:24], raw[24:32])
	copy(out[24:32], raw[16:24])
	return out, nil
}
