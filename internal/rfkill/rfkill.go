// Package rfkill watches /dev/rfkill for soft/hard-block events affecting
// the daemon's managed interface, grounded on wsupp_rfkill.c.
package rfkill

import (
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// eventLen is the fixed size of a struct rfkill_event record.
const eventLen = 8

const typeWLAN = 1 // RFKILL_TYPE_WLAN

// Event is one decoded /dev/rfkill record.
type Event struct {
	Idx  uint32
	Type uint8
	Op   uint8
	Soft uint8
	Hard uint8
}

// Blocked reports whether the event represents the radio being disabled.
func (e Event) Blocked() bool {
	return e.Soft != 0 || e.Hard != 0
}

// Watcher is an open, non-blocking handle on /dev/rfkill.
type Watcher struct {
	fd     int
	ifname string
}

// Open opens /dev/rfkill non-blocking for watching events affecting
// ifname.
func Open(ifname string) (*Watcher, error) {
	fd, err := unix.Open("/dev/rfkill", unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "rfkill: open /dev/rfkill")
	}
	return &Watcher{fd: fd, ifname: ifname}, nil
}

// Fd returns the underlying file descriptor, for the daemon's poll set.
func (w *Watcher) Fd() int { return w.fd }

// Close releases the fd.
func (w *Watcher) Close() error {
	return unix.Close(w.fd)
}

// ReadEvent reads one pending event. Callers should loop until this
// returns an error (EAGAIN when drained), matching the reference's
// one-event-per-read retry_rfkill loop.
func (w *Watcher) ReadEvent() (Event, error) {
	buf := make([]byte, eventLen)
	n, err := unix.Read(w.fd, buf)
	if err != nil {
		return Event{}, err
	}
	if n < eventLen {
		return Event{}, errors.New("rfkill: short event read")
	}
	return Event{
		Idx:  leUint32(buf[0:4]),
		Type: buf[4],
		Op:   buf[5],
		Soft: buf[6],
		Hard: buf[7],
	}, nil
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// MatchesInterface reports whether event e concerns w's interface. It
// ignores the event's numeric index, following the reference's
// match_rfkill, which treats the mere existence of any
// /sys/class/net/<ifname>/phy80211/rfkill* entry as a match — see the
// documented open question about multi-PHY ambiguity, preserved here.
func (w *Watcher) MatchesInterface(e Event) bool {
	if e.Type != typeWLAN {
		return false
	}
	pattern := filepath.Join("/sys/class/net", w.ifname, "phy80211", "rfkill*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return false
	}
	return len(matches) > 0
}
