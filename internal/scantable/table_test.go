package scantable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mac(b byte) [6]byte {
	return [6]byte{0x02, 0, 0, 0, 0, b}
}

func TestUpsertAndFreqZeroMeansFree(t *testing.T) {
	tb := New(4)
	assert.Empty(t, tb.Entries())

	ok := tb.Upsert(mac(1), 2412, -50, ParsedIEs{SSID: []byte("Home")})
	require.True(t, ok)
	entries := tb.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 2412, entries[0].Freq)
}

func TestUpsertUpdatesExistingBSSID(t *testing.T) {
	tb := New(4)
	tb.Upsert(mac(1), 2412, -50, ParsedIEs{SSID: []byte("Home")})
	tb.Upsert(mac(1), 2412, -40, ParsedIEs{SSID: []byte("Home")})
	entries := tb.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, -40, entries[0].Signal)
}

func TestUpsertFailsWhenFull(t *testing.T) {
	tb := New(1)
	require.True(t, tb.Upsert(mac(1), 2412, -50, ParsedIEs{}))
	require.False(t, tb.Upsert(mac(2), 2437, -50, ParsedIEs{}))
}

func TestSelectCandidatePrefersSignalThenFreq(t *testing.T) {
	tb := New(4)
	tb.Upsert(mac(1), 5180, -70, ParsedIEs{SSID: []byte("Home"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb.Upsert(mac(2), 2412, -70, ParsedIEs{SSID: []byte("Home"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb.Upsert(mac(3), 2437, -40, ParsedIEs{SSID: []byte("Home"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb.UpdateFlags(func([]byte) bool { return true })

	best, ok := tb.SelectCandidate(nil)
	require.True(t, ok)
	assert.Equal(t, -40, best.Signal, "strongest signal wins regardless of frequency")

	// Two entries tied on signal: ascending frequency is the tie-break.
	tb2 := New(4)
	tb2.Upsert(mac(1), 5180, -70, ParsedIEs{SSID: []byte("Home"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb2.Upsert(mac(2), 2412, -70, ParsedIEs{SSID: []byte("Home"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb2.UpdateFlags(func([]byte) bool { return true })
	best2, ok := tb2.SelectCandidate(nil)
	require.True(t, ok)
	assert.Equal(t, 2412, best2.Freq)
}

func TestSelectCandidateExcludesTriedAndBadFlags(t *testing.T) {
	tb := New(4)
	tb.Upsert(mac(1), 2412, -40, ParsedIEs{SSID: []byte("Home"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb.UpdateFlags(func([]byte) bool { return true })
	tb.MarkTried(mac(1))

	_, ok := tb.SelectCandidate(nil)
	assert.False(t, ok, "tried entries are excluded from selection")

	tb.ResetTried()
	_, ok = tb.SelectCandidate(nil)
	assert.True(t, ok)
}

func TestUpdateFlagsRequiresPSKAndGoodCiphers(t *testing.T) {
	tb := New(4)
	tb.Upsert(mac(1), 2412, -40, ParsedIEs{SSID: []byte("NoPSKStored"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb.Upsert(mac(2), 2412, -40, ParsedIEs{SSID: []byte("BadCipher"), Type: TypeRSNPairwiseTKIP})
	tb.UpdateFlags(func(ssid []byte) bool { return string(ssid) != "NoPSKStored" })

	entries := tb.Entries()
	for _, e := range entries {
		switch string(e.SSID) {
		case "NoPSKStored":
			assert.Zero(t, e.Flags&FlagPass)
		case "BadCipher":
			assert.Zero(t, e.Flags&FlagGood)
		}
	}
}

func TestClearPassForSSID(t *testing.T) {
	tb := New(4)
	tb.Upsert(mac(1), 2412, -40, ParsedIEs{SSID: []byte("Test"), Type: TypeRSNPairwiseCCMP | TypeRSNGroupCCMP | TypeRSNPSK})
	tb.UpdateFlags(func([]byte) bool { return true })
	require.NotZero(t, tb.Entries()[0].Flags&FlagPass)

	tb.ClearPassForSSID([]byte("Test"))
	assert.Zero(t, tb.Entries()[0].Flags&FlagPass)
}

func TestResetClearsAllSlots(t *testing.T) {
	tb := New(2)
	tb.Upsert(mac(1), 2412, -40, ParsedIEs{SSID: []byte("Test")})
	tb.Reset()
	assert.Empty(t, tb.Entries())
}
