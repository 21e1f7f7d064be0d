package pskstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("Test"),
		[]byte("Home Network"),
		[]byte(`back\slash`),
		{0x00, 0x01, 0x1f, 0x20, 'a', 'b'},
		make([]byte, MaxSSIDLen), // all zero bytes, full length
		[]byte(""),
	}
	for _, ssid := range cases {
		escaped := EscapeSSID(ssid)
		got := UnescapeSSID(escaped)
		assert.Equal(t, ssid, got, "round trip of %q", ssid)
	}
}

func TestEscapeKnownForms(t *testing.T) {
	assert.Equal(t, `a\ b`, EscapeSSID([]byte("a b")))
	assert.Equal(t, `a\\b`, EscapeSSID([]byte(`a\b`)))
	assert.Equal(t, `\x00\x01`, EscapeSSID([]byte{0x00, 0x01}))
	assert.Equal(t, `\ `, EscapeSSID([]byte{0x20})) // 0x20 is space, escaped via the space rule
}
