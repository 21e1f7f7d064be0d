package ctlwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.PutStr(AttrSSID, "Test")
	b.PutInt(AttrFreq, 2437)
	b.PutFlag(AttrLink)
	b.PutBin(AttrBSSID, []byte{0x02, 0, 0, 0, 0, 1})

	frame := Encode(CmdStatus, b.Bytes())
	msg, n, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, CmdStatus, msg.Cmd)

	attrs := ParseAttrs(msg.Payload)
	require.Len(t, attrs, 4)

	ssidAttr, ok := Find(attrs, AttrSSID)
	require.True(t, ok)
	assert.Equal(t, "Test", Str(ssidAttr))

	freqAttr, ok := Find(attrs, AttrFreq)
	require.True(t, ok)
	freq, err := Int(freqAttr)
	require.NoError(t, err)
	assert.Equal(t, int32(2437), freq)

	_, ok = Find(attrs, AttrLink)
	assert.True(t, ok)

	bssidAttr, ok := Find(attrs, AttrBSSID)
	require.True(t, ok)
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0, 1}, bssidAttr.Payload)
}

func TestNestedAttrs(t *testing.T) {
	inner := NewBuilder()
	inner.PutStr(AttrSSID, "Home")
	inner.PutInt(AttrSignal, -40)

	outer := NewBuilder()
	outer.PutNest(AttrScan, inner)

	frame := Encode(CmdStatus, outer.Bytes())
	msg, _, err := Decode(frame)
	require.NoError(t, err)

	attrs := ParseAttrs(msg.Payload)
	require.Len(t, attrs, 1)
	nested, ok := Find(attrs, AttrScan)
	require.True(t, ok)

	innerAttrs := ParseAttrs(nested.Payload)
	require.Len(t, innerAttrs, 2)
	ssid, ok := Find(innerAttrs, AttrSSID)
	require.True(t, ok)
	assert.Equal(t, "Home", Str(ssid))
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, _, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeRejectsOversizedLength(t *testing.T) {
	frame := Encode(CmdStatus, nil)
	// corrupt the length field to claim more bytes than are present
	frame[0] = 0xff
	frame[1] = 0xff
	frame[2] = 0xff
	frame[3] = 0x7f
	_, _, err := Decode(frame)
	assert.Error(t, err)
}

func TestParseAttrsNeverOverruns(t *testing.T) {
	// A stream of random-ish bytes must not panic and must stop cleanly at
	// any truncated or self-overrunning attribute header.
	inputs := [][]byte{
		nil,
		{0x01},
		{0xff, 0xff, 0x00, 0x00},
		{0x04, 0x00, 0x01, 0x00},
		{0x03, 0x00, 0x01, 0x00},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			ParseAttrs(in)
		})
	}
}

func TestUnknownAttrKeyIsSkippedNotError(t *testing.T) {
	b := NewBuilder()
	b.PutInt(9999, 1)
	b.PutStr(AttrSSID, "known")
	attrs := ParseAttrs(b.Bytes())
	require.Len(t, attrs, 2)
	ssid, ok := Find(attrs, AttrSSID)
	require.True(t, ok)
	assert.Equal(t, "known", Str(ssid))
}
