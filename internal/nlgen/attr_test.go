package nlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackParseAttrRoundTrip(t *testing.T) {
	var buf []byte
	buf = append(buf, PackAttrU32(AttrIfIndex, 3)...)
	buf = append(buf, PackAttrBin(AttrMAC, []byte{0x02, 0, 0, 0, 0, 1})...)
	buf = append(buf, PackAttrFlag(99)...)

	attrs := parseAttrs(buf)
	require.Len(t, attrs, 3)

	ifi, ok := Find(attrs, AttrIfIndex)
	require.True(t, ok)
	assert.Len(t, ifi.Value, 4)

	mac, ok := Find(attrs, AttrMAC)
	require.True(t, ok)
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0, 1}, mac.Value)

	flag, ok := Find(attrs, 99)
	require.True(t, ok)
	assert.Empty(t, flag.Value)
}

func TestParseAttrsNeverOverruns(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x01, 0x00},
		{0xff, 0xff, 0x00, 0x00},
		{0x03, 0x00, 0x01, 0x00},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			parseAttrs(in)
		})
	}
}

func TestAlign4(t *testing.T) {
	assert.Equal(t, 0, align4(0))
	assert.Equal(t, 4, align4(1))
	assert.Equal(t, 4, align4(4))
	assert.Equal(t, 8, align4(5))
}
