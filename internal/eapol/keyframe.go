// Package eapol implements the RSN 4-way handshake and GTK rekey state
// machine over a raw EtherType-0x888E socket, grounded on wsupp_eapol.c.
package eapol

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EAPOL packet type this daemon only ever sends/expects: EAPOL-Key.
const eapolTypeKey = 3

const eapolVersion = 2

// descriptorTypeRSN is the RSN (802.11i/WPA2) key descriptor type.
const descriptorTypeRSN = 2

// Key Information field bits (IEEE 802.11 Figure 12-34).
const (
	kiDescrVersionMask = 0x0007
	kiDescrVersionSHA1 = 2 // HMAC-SHA1-128 MIC, AES key-wrap — used by both TKIP and CCMP in this profile
	kiKeyTypePairwise  = 1 << 3
	kiInstall          = 1 << 6
	kiKeyAck           = 1 << 7
	kiKeyMIC           = 1 << 8
	kiSecure           = 1 << 9
	kiError            = 1 << 10
	kiRequest          = 1 << 11
	kiEncryptedKeyData = 1 << 12
)

// keyDescHdrLen is the fixed portion of the EAPOL-Key descriptor, up to
// and including the 2-byte key-data-length field, as laid out in
// IEEE 802.11 Figure 12-33.
const keyDescHdrLen = 1 + 2 + 2 + 8 + 32 + 16 + 8 + 8 + 16 + 2

const micOffset = 1 + 2 + 2 + 8 + 32 + 16 + 8 + 8 // offset of the 16-byte MIC field within the descriptor

// KeyFrame is a parsed EAPOL-Key message (the part after the 4-byte EAPOL
// header).
type KeyFrame struct {
	KeyInfo    uint16
	KeyLength  uint16
	ReplayCtr  uint64
	Nonce      [32]byte
	IV         [16]byte
	RSC        [8]byte
	MIC        [16]byte
	KeyData    []byte
}

// Marshal renders the full EAPOL frame body (4-byte EAPOL header + key
// descriptor + key data), ready to be wrapped in an Ethernet frame. The
// MIC field is written as-is from kf.MIC; callers needing a real MIC must
// compute it over this output with the field zeroed first, then call
// Marshal again (see fsm.go's signAndMarshal).
func (kf *KeyFrame) Marshal() []byte {
	return kf.marshalWithLenAdjust(0)
}

// marshalWithLenAdjust is Marshal but adds delta to the EAPOL length field
// actually written on the wire (the body bytes are unaffected). It exists
// to reproduce a quirk in the reference: send_packet_2/send_packet_4 write
// the true body length, while send_group_2 writes a length 4 bytes over
// the body. See fsm.go's signAndMarshal*.
func (kf *KeyFrame) marshalWithLenAdjust(delta int) []byte {
	body := make([]byte, keyDescHdrLen+len(kf.KeyData))
	off := 0
	body[off] = descriptorTypeRSN
	off++
	binary.BigEndian.PutUint16(body[off:], kf.KeyInfo)
	off += 2
	binary.BigEndian.PutUint16(body[off:], kf.KeyLength)
	off += 2
	binary.BigEndian.PutUint64(body[off:], kf.ReplayCtr)
	off += 8
	copy(body[off:], kf.Nonce[:])
	off += 32
	copy(body[off:], kf.IV[:])
	off += 16
	copy(body[off:], kf.RSC[:])
	off += 8
	off += 8 // key ID / reserved, left zero
	copy(body[off:], kf.MIC[:])
	off += 16
	binary.BigEndian.PutUint16(body[off:], uint16(len(kf.KeyData)))
	off += 2
	copy(body[off:], kf.KeyData)

	eapol := make([]byte, 4+len(body))
	eapol[0] = eapolVersion
	eapol[1] = eapolTypeKey
	binary.BigEndian.PutUint16(eapol[2:4], uint16(len(body)+delta))
	copy(eapol[4:], body)
	return eapol
}

// ParseKeyFrame parses an EAPOL frame body (header included) into a
// KeyFrame. It rejects anything that isn't a KEY packet with an RSN
// descriptor and enough bytes for the fixed header, but never reads past
// buf.
func ParseKeyFrame(buf []byte) (*KeyFrame, error) {
	if len(buf) < 4 {
		return nil, errors.New("eapol: frame shorter than EAPOL header")
	}
	if buf[1] != eapolTypeKey {
		return nil, errors.Errorf("eapol: unexpected EAPOL packet type %d", buf[1])
	}
	length := binary.BigEndian.Uint16(buf[2:4])
	if int(length)+4 > len(buf) {
		return nil, errors.New("eapol: length field overruns buffer")
	}
	body := buf[4 : 4+length]
	if len(body) < keyDescHdrLen {
		return nil, errors.New("eapol: key descriptor shorter than fixed header")
	}
	if body[0] != descriptorTypeRSN {
		return nil, errors.Errorf("eapol: unsupported key descriptor type %d", body[0])
	}

	kf := &KeyFrame{}
	off := 1
	kf.KeyInfo = binary.BigEndian.Uint16(body[off:])
	off += 2
	kf.KeyLength = binary.BigEndian.Uint16(body[off:])
	off += 2
	kf.ReplayCtr = binary.BigEndian.Uint64(body[off:])
	off += 8
	copy(kf.Nonce[:], body[off:])
	off += 32
	copy(kf.IV[:], body[off:])
	off += 16
	copy(kf.RSC[:], body[off:])
	off += 8
	off += 8 // key ID / reserved
	copy(kf.MIC[:], body[off:])
	off += 16
	dataLen := binary.BigEndian.Uint16(body[off:])
	off += 2
	if int(dataLen) > len(body)-off {
		return nil, errors.New("eapol: key data length overruns descriptor")
	}
	kf.KeyData = append([]byte(nil), body[off:off+int(dataLen)]...)
	return kf, nil
}

// matchKeyInfo reports whether kf's key-info bits are exactly the pattern
// expected for a given handshake message, ignoring the descriptor-version
// sub-field (a peer may legitimately pick version 2 or 3 depending on
// cipher; this daemon accepts either as long as it can compute the MIC the
// same way, which kiDescrVersionSHA1-era peers always can).
func matchKeyInfo(got, want, mask uint16) bool {
	return got&mask == want
}
