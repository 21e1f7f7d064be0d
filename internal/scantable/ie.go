// Package scantable holds the fixed-capacity table of observed BSSes and
// the information-element parser that populates it, grounded on
// wsupp_sta_ies.c's TLV walk.
package scantable

import "encoding/binary"

// Type is the bitset of cipher/capability flags an entry's IEs advertise.
type Type uint32

const (
	TypeWPA Type = 1 << iota
	TypeWPS
	TypeRSNPairwiseTKIP
	TypeRSNPairwiseCCMP
	TypeRSNGroupTKIP
	TypeRSNGroupCCMP
	TypeRSNPSK
)

var msOUI = [3]byte{0x00, 0x50, 0xf2}

const (
	ieTypeSSID   = 0
	ieTypeRSN    = 48
	ieTypeVendor = 221

	vendorSubtypeWPA = 1
	vendorSubtypeWPS = 4

	suiteTKIP = 0x000FAC02
	suiteCCMP = 0x000FAC04
	akmPSK    = 0x000FAC02
)

// ParsedIEs is the result of walking one station's information elements.
type ParsedIEs struct {
	SSID []byte
	Type Type
}

// ParseIEs walks a standard (type,len,payload) TLV sequence, same shape as
// beacon/probe IEs. It is total: any truncation or length overrun at any
// step stops the walk for that entry without error, never reading past buf.
func ParseIEs(buf []byte) ParsedIEs {
	var out ParsedIEs
	for len(buf) >= 2 {
		typ := buf[0]
		length := int(buf[1])
		if 2+length > len(buf) {
			break
		}
		payload := buf[2 : 2+length]
		switch typ {
		case ieTypeSSID:
			out.SSID = trimTrailingNULs(payload)
		case ieTypeRSN:
			out.Type |= parseRSN(payload)
		case ieTypeVendor:
			out.Type |= parseVendor(payload)
		}
		buf = buf[2+length:]
	}
	return out
}

func trimTrailingNULs(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	out := make([]byte, end)
	copy(out, b[:end])
	return out
}

func parseRSN(body []byte) Type {
	var t Type
	if len(body) < 2 {
		return 0
	}
	version := binary.LittleEndian.Uint16(body[0:2])
	if version != 1 {
		return 0
	}
	off := 2
	if off+4 > len(body) {
		return t
	}
	switch get4be(body[off : off+4]) {
	case suiteTKIP:
		t |= TypeRSNGroupTKIP
	case suiteCCMP:
		t |= TypeRSNGroupCCMP
	}
	off += 4

	if off+2 > len(body) {
		return t
	}
	pairCount := int(binary.LittleEndian.Uint16(body[off : off+2]))
	off += 2
	for i := 0; i < pairCount; i++ {
		if off+4 > len(body) {
			return t
		}
		switch get4be(body[off : off+4]) {
		case suiteTKIP:
			t |= TypeRSNPairwiseTKIP
		case suiteCCMP:
			t |= TypeRSNPairwiseCCMP
		}
		off += 4
	}

	if off+2 > len(body) {
		return t
	}
	akmCount := int(binary.LittleEndian.Uint16(body[off : off+2]))
	off += 2
	for i := 0; i < akmCount; i++ {
		if off+4 > len(body) {
			return t
		}
		if get4be(body[off:off+4]) == akmPSK {
			t |= TypeRSNPSK
		}
		off += 4
	}
	return t
}

func parseVendor(body []byte) Type {
	if len(body) < 4 {
		return 0
	}
	if [3]byte{body[0], body[1], body[2]} != msOUI {
		return 0
	}
	switch body[3] {
	case vendorSubtypeWPA:
		return TypeWPA
	case vendorSubtypeWPS:
		return TypeWPS
	}
	return 0
}

// get4be reads a 4-byte OUI+suite-type field, which the RSN IE (unlike the
// rest of the frame) encodes big-endian: the first three bytes are the OUI.
func get4be(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
