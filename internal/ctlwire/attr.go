package ctlwire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Builder accumulates TLV attributes into a payload suitable for Encode.
// Nested attributes are built with a separate Builder and folded in via
// PutNest.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty attribute Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Bytes returns the accumulated payload.
func (b *Builder) Bytes() []byte {
	return b.buf
}

func (b *Builder) put(key uint16, val []byte) {
	hdr := make([]byte, AttrHeaderLen)
	binary.LittleEndian.PutUint16(hdr[0:2], uint16(AttrHeaderLen+len(val)))
	binary.LittleEndian.PutUint16(hdr[2:4], key)
	b.buf = append(b.buf, hdr...)
	b.buf = append(b.buf, val...)
}

// PutInt appends a 4-byte host-order integer attribute.
func (b *Builder) PutInt(key uint16, v int32) {
	val := make([]byte, 4)
	binary.LittleEndian.PutUint32(val, uint32(v))
	b.put(key, val)
}

// PutStr appends a NUL-terminated string attribute.
func (b *Builder) PutStr(key uint16, s string) {
	val := make([]byte, len(s)+1)
	copy(val, s)
	b.put(key, val)
}

// PutBin appends a raw binary attribute.
func (b *Builder) PutBin(key uint16, v []byte) {
	b.put(key, v)
}

// PutFlag appends a zero-payload flag attribute.
func (b *Builder) PutFlag(key uint16) {
	b.put(key, nil)
}

// PutNest appends a nested attribute whose payload is itself a TLV
// sequence, typically built with a separate Builder.
func (b *Builder) PutNest(key uint16, inner *Builder) {
	b.put(key, inner.Bytes())
}

// Attr is one decoded TLV attribute.
type Attr struct {
	Key     uint16
	Payload []byte
}

// ParseAttrs walks a TLV attribute sequence, returning every attribute it
// finds. It is a total function: malformed trailing bytes (too short for a
// header, or a length that would overrun the buffer) stop the walk without
// error, matching the "ignore-other, never read past the buffer" parsing
// discipline the wire formats in this daemon all share.
func ParseAttrs(payload []byte) []Attr {
	var attrs []Attr
	for len(payload) >= AttrHeaderLen {
		length := binary.LittleEndian.Uint16(payload[0:2])
		key := binary.LittleEndian.Uint16(payload[2:4])
		if int(length) < AttrHeaderLen || int(length) > len(payload) {
			break
		}
		attrs = append(attrs, Attr{Key: key, Payload: payload[AttrHeaderLen:length]})
		payload = payload[length:]
	}
	return attrs
}

// Find returns the first attribute matching key, if any.
func Find(attrs []Attr, key uint16) (Attr, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a, true
		}
	}
	return Attr{}, false
}

// Int decodes a as a 4-byte host-order integer.
func Int(a Attr) (int32, error) {
	if len(a.Payload) != 4 {
		return 0, errors.Errorf("ctlwire: attribute %d is not a 4-byte int", a.Key)
	}
	return int32(binary.LittleEndian.Uint32(a.Payload)), nil
}

// Str decodes a as a NUL-terminated string, trimming the terminator (and
// anything after it, defensively) if present.
func Str(a Attr) string {
	for i, c := range a.Payload {
		if c == 0 {
			return string(a.Payload[:i])
		}
	}
	return string(a.Payload)
}
