package nlgen

import "encoding/binary"

// Attr is one decoded netlink attribute (nlattr): a 16-bit type and its
// raw value, alignment padding already stripped.
type Attr struct {
	Type  uint16
	Value []byte
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// parseAttrs walks a standard nlattr TLV sequence ({uint16 len, uint16
// type, value, padding to 4 bytes}). Total and bounds-safe: any truncated
// or overrunning header stops the walk without panicking.
func parseAttrs(buf []byte) []Attr {
	var out []Attr
	for len(buf) >= nlaHdrLen {
		length := int(binary.LittleEndian.Uint16(buf[0:2]))
		typ := binary.LittleEndian.Uint16(buf[2:4])
		if length < nlaHdrLen || length > len(buf) {
			break
		}
		out = append(out, Attr{Type: typ &^ 0x4000 &^ 0x8000, Value: buf[nlaHdrLen:length]})
		adv := align4(length)
		if adv > len(buf) {
			break
		}
		buf = buf[adv:]
	}
	return out
}

func packAttr(typ uint16, value []byte) []byte {
	length := nlaHdrLen + len(value)
	buf := make([]byte, align4(length))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(length))
	binary.LittleEndian.PutUint16(buf[2:4], typ)
	copy(buf[4:], value)
	return buf
}

func packAttrString(typ uint16, s string) []byte {
	return packAttr(typ, append([]byte(s), 0))
}

// PackAttrU32 packs a 4-byte little-endian integer attribute, the form
// nl80211 uses for interface index, frequency, and similar scalar
// attributes.
func PackAttrU32(typ uint16, v uint32) []byte {
	val := make([]byte, 4)
	binary.LittleEndian.PutUint32(val, v)
	return packAttr(typ, val)
}

// PackAttrBin packs a raw binary attribute (e.g. a BSSID or an IE blob).
func PackAttrBin(typ uint16, v []byte) []byte {
	return packAttr(typ, v)
}

// PackAttrFlag packs a zero-length flag attribute.
func PackAttrFlag(typ uint16) []byte {
	return packAttr(typ, nil)
}

// ParseAttrs exposes the attribute walk to callers outside the package
// (internal/daemon decoding SCAN_RESULT/CONNECT/DISCONNECT events).
func ParseAttrs(buf []byte) []Attr {
	return parseAttrs(buf)
}

// Find returns the first attribute matching typ.
func Find(attrs []Attr, typ uint16) (Attr, bool) {
	for _, a := range attrs {
		if a.Type == typ {
			return a, true
		}
	}
	return Attr{}, false
}

func trimNUL(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
