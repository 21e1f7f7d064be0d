package wcrypto

// Zero overwrites b with zero bytes in place. Key material (PMK, PTK
// components, nonces) is wiped with this whenever a connection attempt is
// abandoned or a handshake completes, the same discipline
// wsupp_eapol.c's cleanup_keys/reset_eapol_state apply.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
