package pskstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wipsk")
	return New(path), path
}

func fillPSK(b byte) [PSKLen]byte {
	var psk [PSKLen]byte
	for i := range psk {
		psk[i] = b
	}
	return psk
}

func TestSavePSKLoadPSKRoundTrip(t *testing.T) {
	ssids := [][]byte{
		[]byte("Test"),
		[]byte("Has Spaces"),
		[]byte(`back\slash`),
		append([]byte{0x01, 0x02}, 0x1f),
	}
	for _, ssid := range ssids {
		s, _ := tempStore(t)
		psk := fillPSK(0xAB)
		require.NoError(t, s.SavePSK(ssid, psk))
		got, found, err := s.LoadPSK(ssid)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, psk, got)
	}
}

func TestSavePSKTwiceReplacesInPlace(t *testing.T) {
	s, path := tempStore(t)
	ssid := []byte("Test")
	require.NoError(t, s.SavePSK(ssid, fillPSK(0x01)))
	require.NoError(t, s.SavePSK(ssid, fillPSK(0x02)))
	require.NoError(t, s.SaveConfig())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 1)

	got, found, err := s.LoadPSK(ssid)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, fillPSK(0x02), got)
}

func TestDropPSKRemovesLine(t *testing.T) {
	s, path := tempStore(t)
	ssid := []byte("Test")
	require.NoError(t, s.SavePSK(ssid, fillPSK(0x01)))
	require.NoError(t, s.SavePSK([]byte("Other"), fillPSK(0x02)))
	require.NoError(t, s.SaveConfig())

	require.NoError(t, s.DropPSK(ssid))
	require.NoError(t, s.SaveConfig())

	found, err := s.GotPSKFor(ssid)
	require.NoError(t, err)
	assert.False(t, found)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), EscapeSSID(ssid))
	assert.Contains(t, string(data), EscapeSSID([]byte("Other")))
}

func TestDropConfigReleasesBufferAndClearsModified(t *testing.T) {
	s, _ := tempStore(t)
	require.NoError(t, s.SavePSK([]byte("Test"), fillPSK(0x01)))
	assert.True(t, s.modified)
	require.NoError(t, s.DropConfig())
	assert.False(t, s.modified)
	assert.False(t, s.loaded)
	assert.Nil(t, s.lines)
}

func TestMissingFileIsNotAnError(t *testing.T) {
	s, _ := tempStore(t)
	found, err := s.GotPSKFor([]byte("Test"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileAt65535BytesLoads(t *testing.T) {
	s, path := tempStore(t)
	// one PSK line is "<64 hex> <ssid>\n"; pad the SSID so the whole file,
	// final newline included, lands at exactly 65535 bytes.
	psk := fillPSK(0x01)
	ssidLen := 65535 - 1 /*newline*/ - PSKLen*2 - 1 /*space*/
	ssid := make([]byte, ssidLen)
	for i := range ssid {
		ssid[i] = 'a'
	}
	require.NoError(t, s.SavePSK(ssid, psk))
	require.NoError(t, s.SaveConfig())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 65535, info.Size())

	s2 := New(path)
	found, err := s2.GotPSKFor(ssid)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFileOver64KiBFailsE2BIG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wipsk")
	data := make([]byte, MaxConfigSize+1)
	for i := range data {
		data[i] = 'a'
	}
	require.NoError(t, os.WriteFile(path, data, 0600))

	s := New(path)
	_, err := s.GotPSKFor([]byte("Test"))
	assert.Equal(t, ErrTooLarge, err)
}

func TestPinnedSSIDLoadUnlinksFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wiap")
	ssid := []byte("Pinned Net")
	require.NoError(t, SavePinnedSSID(path, ssid))

	got, found, err := LoadPinnedSSID(path)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ssid, got)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadPinnedSSIDMissingIsNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wiap")
	_, found, err := LoadPinnedSSID(path)
	require.NoError(t, err)
	assert.False(t, found)
}
