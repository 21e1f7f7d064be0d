// Package ctlwire implements the length-prefixed TLV wire protocol spoken
// over the daemon's control socket: a 4-byte little-endian length, a 4-byte
// command tag, and a sequence of TLV attributes. It is deliberately small —
// a bespoke framing for one Unix-domain socket, not a general message
// format — mirroring the scope of the reference `nlusctl` header.
package ctlwire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MsgHeaderLen is the fixed size of a message header: uint32 len + int32 cmd.
const MsgHeaderLen = 8

// AttrHeaderLen is the fixed size of an attribute header: uint16 len + uint16 key.
const AttrHeaderLen = 4

// MaxMsgLen bounds a single control message; larger frames are rejected as
// malformed rather than accepted into an unbounded buffer.
const MaxMsgLen = 1 << 16

// tag packs two identifying bytes and a small command index into a single
// int32, the same namespacing the reference control header uses (TAGGED)
// so that command numbers from unrelated services sharing the nlusctl
// framing never collide. This daemon has only one service, but the tag is
// kept for wire compatibility with the documented header layout.
func tag(a, b byte, c int32) int32 {
	return int32(a)<<24 | int32(b)<<16 | c
}

// Commands a client may send.
var (
	CmdStatus  = tag('W', 'I', 0)
	CmdDevice  = tag('W', 'I', 1)
	CmdScan    = tag('W', 'I', 2)
	CmdNeutral = tag('W', 'I', 3)
	CmdConnect = tag('W', 'I', 4)
	CmdForget  = tag('W', 'I', 5)
)

// Asynchronous report tags the daemon may emit after a reply.
var (
	RepNetDown   = tag('W', 'I', 0)
	RepScanning  = tag('W', 'I', 1)
	RepScanDone  = tag('W', 'I', 2)
	RepScanFail  = tag('W', 'I', 3)
	RepDisconect = tag('W', 'I', 4)
	RepNoConnect = tag('W', 'I', 5)
	RepConnected = tag('W', 'I', 6)
)

// Attribute keys, matching the fixed integers in the reference control
// header.
const (
	AttrSSID   = 1
	AttrPSK    = 2
	AttrPrio   = 3
	AttrSignal = 4
	AttrFreq   = 5
	AttrType   = 6
	AttrBSSID  = 7
	AttrScan   = 8
	AttrIFI    = 9
	AttrName   = 10
	AttrState  = 11
	AttrIP     = 12
	AttrMask   = 13
	AttrLink   = 14
	AttrMode   = 15
	AttrFlags  = 16
	AttrAddr   = 17
)

// Reported wifi states (ATTR_STATE values), combining link/auth/rfkill
// status into one enumeration the client can print directly.
const (
	WSIdle       = 0
	WSRFKilled   = 1
	WSNetDown    = 2
	WSExternal   = 3
	WSScanning   = 4
	WSConnecting = 5
	WSConnected  = 6
)

var errTruncated = errors.New("ctlwire: truncated frame")

// Encode serializes a Msg (cmd plus already-built attribute payload) into a
// full wire frame including its header.
func Encode(cmd int32, payload []byte) []byte {
	buf := make([]byte, MsgHeaderLen+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(MsgHeaderLen+len(payload)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(cmd))
	copy(buf[8:], payload)
	return buf
}

// Msg is a decoded control message: its command tag and raw attribute
// payload, ready for attribute iteration via ParseAttrs.
type Msg struct {
	Cmd     int32
	Payload []byte
}

// Decode parses exactly one frame from buf, returning the message and the
// number of bytes consumed. It never reads past len(buf).
func Decode(buf []byte) (Msg, int, error) {
	if len(buf) < MsgHeaderLen {
		return Msg{}, 0, errTruncated
	}
	length := binary.LittleEndian.Uint32(buf[0:4])
	if length < MsgHeaderLen || length > MaxMsgLen {
		return Msg{}, 0, errors.Errorf("ctlwire: invalid frame length %d", length)
	}
	if uint32(len(buf)) < length {
		return Msg{}, 0, errTruncated
	}
	cmd := int32(binary.LittleEndian.Uint32(buf[4:8]))
	payload := make([]byte, length-MsgHeaderLen)
	copy(payload, buf[8:length])
	return Msg{Cmd: cmd, Payload: payload}, int(length), nil
}
