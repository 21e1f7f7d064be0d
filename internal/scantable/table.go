package scantable

// Flags is the per-entry bitset of selection-relevant state.
type Flags uint32

const (
	FlagPass Flags = 1 << iota // a PSK is stored for this SSID
	FlagGood                   // a cipher pair we implement is advertised
	FlagTried                  // already attempted this connect round
)

// Entry is one observed BSS.
type Entry struct {
	BSSID  [6]byte
	SSID   []byte
	Freq   int // MHz; 0 means the slot is free
	Signal int // mBm
	Type   Type
	Flags  Flags
}

// Table is a fixed-capacity array of scan entries keyed by BSSID, matching
// the reference's static-array scan table.
type Table struct {
	entries []Entry
}

// New returns a Table with room for capacity entries.
func New(capacity int) *Table {
	return &Table{entries: make([]Entry, capacity)}
}

// Reset clears every slot, done at the start of a fresh scan cycle.
func (t *Table) Reset() {
	for i := range t.entries {
		t.entries[i] = Entry{}
	}
}

// Entries returns the occupied slots (freq != 0).
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Freq != 0 {
			out = append(out, e)
		}
	}
	return out
}

// Upsert updates the entry for bssid if present, or allocates a free slot.
// It returns false if the table is full and bssid is new.
func (t *Table) Upsert(bssid [6]byte, freq, signal int, ies ParsedIEs) bool {
	idx := t.indexOf(bssid)
	if idx < 0 {
		idx = t.freeSlot()
		if idx < 0 {
			return false
		}
		t.entries[idx].BSSID = bssid
	}
	e := &t.entries[idx]
	e.Freq = freq
	e.Signal = signal
	e.SSID = ies.SSID
	e.Type = ies.Type
	return true
}

func (t *Table) indexOf(bssid [6]byte) int {
	for i, e := range t.entries {
		if e.Freq != 0 && e.BSSID == bssid {
			return i
		}
	}
	return -1
}

func (t *Table) freeSlot() int {
	for i, e := range t.entries {
		if e.Freq == 0 {
			return i
		}
	}
	return -1
}

// goodCiphers is the set of pairwise/group ciphers this daemon implements:
// CCMP is required as a pairwise cipher; TKIP is acceptable only as the
// group cipher.
func goodCiphers(t Type) bool {
	pairwiseOK := t&TypeRSNPairwiseCCMP != 0
	groupOK := t&(TypeRSNGroupCCMP|TypeRSNGroupTKIP) != 0
	return pairwiseOK && groupOK && t&TypeRSNPSK != 0
}

// UpdateFlags recomputes PASS and GOOD across every occupied entry after a
// scan cycle completes. hasPSK reports whether a PSK is stored for an SSID,
// typically pskstore.Store.GotPSKFor.
func (t *Table) UpdateFlags(hasPSK func(ssid []byte) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Freq == 0 {
			continue
		}
		e.Flags &^= FlagPass | FlagGood
		if hasPSK(e.SSID) {
			e.Flags |= FlagPass
		}
		if goodCiphers(e.Type) {
			e.Flags |= FlagGood
		}
	}
}

// ClearPassForSSID clears the PASS flag on any entry matching ssid, called
// when a PSK is forgotten.
func (t *Table) ClearPassForSSID(ssid []byte) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Freq != 0 && string(e.SSID) == string(ssid) {
			e.Flags &^= FlagPass
		}
	}
}

// ResetTried clears the TRIED flag on every entry, done at the start of a
// new connect round.
func (t *Table) ResetTried() {
	for i := range t.entries {
		t.entries[i].Flags &^= FlagTried
	}
}

// MarkTried sets the TRIED flag on the entry with the given BSSID.
func (t *Table) MarkTried(bssid [6]byte) {
	if idx := t.indexOf(bssid); idx >= 0 {
		t.entries[idx].Flags |= FlagTried
	}
}

// SelectCandidate returns the best untried PASS+GOOD entry matching ssid
// (or any SSID if ssid is nil), ordered by descending signal then
// ascending frequency, matching the reference's auto-connect selection
// rule. ok is false when no candidate remains.
func (t *Table) SelectCandidate(ssid []byte) (Entry, bool) {
	best := -1
	for i, e := range t.entries {
		if e.Freq == 0 {
			continue
		}
		if e.Flags&(FlagPass|FlagGood) != FlagPass|FlagGood {
			continue
		}
		if e.Flags&FlagTried != 0 {
			continue
		}
		if ssid != nil && string(e.SSID) != string(ssid) {
			continue
		}
		if best < 0 || better(e, t.entries[best]) {
			best = i
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return t.entries[best], true
}

func better(a, b Entry) bool {
	if a.Signal != b.Signal {
		return a.Signal > b.Signal
	}
	return a.Freq < b.Freq
}
