package scantable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildRSNBody(group uint32, pairwise []uint32, akms []uint32) []byte {
	put4be := func(v uint32) []byte {
		return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
	var b []byte
	b = append(b, 1, 0) // version=1, little-endian
	b = append(b, put4be(group)...)
	b = append(b, byte(len(pairwise)), 0)
	for _, p := range pairwise {
		b = append(b, put4be(p)...)
	}
	b = append(b, byte(len(akms)), 0)
	for _, a := range akms {
		b = append(b, put4be(a)...)
	}
	return b
}

func TestParseIEsSSIDAndRSNCCMP(t *testing.T) {
	rsn := buildRSNBody(suiteCCMP, []uint32{suiteCCMP}, []uint32{akmPSK})
	var buf []byte
	buf = append(buf, 0, byte(len("Home")))
	buf = append(buf, []byte("Home")...)
	buf = append(buf, ieTypeRSN, byte(len(rsn)))
	buf = append(buf, rsn...)

	parsed := ParseIEs(buf)
	assert.Equal(t, []byte("Home"), parsed.SSID)
	assert.NotZero(t, parsed.Type&TypeRSNPairwiseCCMP)
	assert.NotZero(t, parsed.Type&TypeRSNGroupCCMP)
	assert.NotZero(t, parsed.Type&TypeRSNPSK)
}

func TestParseIEsVendorWPAAndWPS(t *testing.T) {
	var buf []byte
	wpa := append([]byte{0x00, 0x50, 0xf2, 1}, 0xaa)
	buf = append(buf, 221, byte(len(wpa)))
	buf = append(buf, wpa...)
	wps := append([]byte{0x00, 0x50, 0xf2, 4}, 0xbb)
	buf = append(buf, 221, byte(len(wps)))
	buf = append(buf, wps...)

	parsed := ParseIEs(buf)
	assert.NotZero(t, parsed.Type&TypeWPA)
	assert.NotZero(t, parsed.Type&TypeWPS)
}

func TestParseIEsNeverOverruns(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x00},
		{0x00, 0xff},
		{0x00, 0x02, 'a'},
		{48, 200, 1, 0},
		{221, 4, 0x00, 0x50},
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			ParseIEs(in)
		})
	}
}

func TestSSIDTrimsTrailingNULs(t *testing.T) {
	var buf []byte
	ssid := append([]byte("Test"), 0, 0)
	buf = append(buf, 0, byte(len(ssid)))
	buf = append(buf, ssid...)
	parsed := ParseIEs(buf)
	assert.Equal(t, []byte("Test"), parsed.SSID)
}
