package rfkill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBlocked(t *testing.T) {
	assert.True(t, Event{Soft: 1}.Blocked())
	assert.True(t, Event{Hard: 1}.Blocked())
	assert.False(t, Event{}.Blocked())
}

func TestLeUint32(t *testing.T) {
	assert.Equal(t, uint32(0x04030201), leUint32([]byte{0x01, 0x02, 0x03, 0x04}))
}

func TestMatchesInterfaceIgnoresMissingSysfsEntry(t *testing.T) {
	w := &Watcher{ifname: "wlan-does-not-exist-in-test-env"}
	got := w.MatchesInterface(Event{Type: typeWLAN})
	assert.False(t, got, "no sysfs entry means no match, never an error")
}

func TestMatchesInterfaceRejectsNonWLANType(t *testing.T) {
	w := &Watcher{ifname: "wlan0"}
	got := w.MatchesInterface(Event{Type: 0})
	assert.False(t, got)
}
