package eapol

import (
	"bytes"
	"crypto/rand"

	"github.com/pkg/errors"
	"wsupp/internal/wcrypto"
)

// State is the EAPOL handshake sub-state, matching spec's eapolstate enum.
type State int

const (
	StateIdle State = iota
	StateWaiting1_4
	// StateWaiting2_4 covers the priming race: packet 1/4 has been parsed
	// and the PTK derived, message 2/4 is built and ready, but
	// AllowSends has not yet fired (association hasn't completed), so it
	// sits unsent.
	StateWaiting2_4
	StateWaiting3_4
	StateNegotiated
)

// Result describes the side effects HandleIncoming produced.
type Result struct {
	Send         []byte
	InstallPTK   []byte
	InstallGTK   []byte
	GTKKeyIdx    uint8
	Negotiated   bool
	GroupRekeyed bool
}

// FSM drives one connection attempt's 4-way handshake and any subsequent
// GTK rekeys. It is not safe for concurrent use — the daemon's single
// event loop is its only caller, matching the single-owner model in
// spec §3/§5.
type FSM struct {
	ownMAC [6]byte
	aa     [6]byte
	pmk    []byte
	ssid   []byte // retained only for diagnostics
	ies    []byte // association IEs, echoed as message 2/4's key data

	tkipGroup bool

	state State
	// sendsAllowed gates transmission of a pending 2/4 prepared during
	// priming; set by AllowSends at the CONNECT netlink event.
	sendsAllowed bool
	pending2_4   []byte

	anonce, snonce [32]byte
	replayCtr      uint64
	haveReplay     bool

	ptk []byte // KCK(16) || KEK(16) || TK(16)
}

// NewFSM constructs an FSM primed to begin a handshake against aa. Prime
// must still be called before the ASSOCIATE request is issued.
func NewFSM(ownMAC, aa [6]byte, pmk, ssid, assocIEs []byte, tkipGroup bool) *FSM {
	return &FSM{
		ownMAC:    ownMAC,
		aa:        aa,
		pmk:       append([]byte(nil), pmk...),
		ssid:      ssid,
		ies:       assocIEs,
		tkipGroup: tkipGroup,
	}
}

// Prime arms the FSM to accept packet 1/4, called immediately before the
// ASSOCIATE netlink request is sent so a fast AP's message 1 can't race
// ahead of our own state setup.
func (f *FSM) Prime() {
	f.state = StateWaiting1_4
	f.sendsAllowed = false
}

// AllowSends is invoked at the CONNECT netlink event (association
// complete). If packet 1/4 already arrived and prepared a pending 2/4, it
// is transmitted now; otherwise this only flips the gate for later.
func (f *FSM) AllowSends() []byte {
	f.sendsAllowed = true
	if f.pending2_4 == nil {
		return nil
	}
	out := f.pending2_4
	f.pending2_4 = nil
	f.state = StateWaiting3_4
	return out
}

// State returns the current handshake sub-state.
func (f *FSM) State() State { return f.state }

// Reset zeroizes all derived key material and returns the FSM to Idle,
// called on disconnect, abandoned connection attempts, or daemon
// shutdown.
func (f *FSM) Reset() {
	wcrypto.Zero(f.pmk)
	wcrypto.Zero(f.ptk)
	wcrypto.Zero(f.anonce[:])
	wcrypto.Zero(f.snonce[:])
	f.ptk = nil
	f.pending2_4 = nil
	f.haveReplay = false
	f.state = StateIdle
}

func (f *FSM) kck() []byte { return f.ptk[0:16] }
func (f *FSM) kek() []byte { return f.ptk[16:32] }
func (f *FSM) tk() []byte  { return f.ptk[32:48] }

// HandleIncoming processes one received EAPOL frame body (post-Ethernet
// header, pre-parsed by the caller only as far as EtherType/source MAC
// checks) and returns the resulting Result, or an error for any malformed
// or out-of-sequence frame (the caller logs and discards; it never
// aborts the daemon).
func (f *FSM) HandleIncoming(raw []byte, senderMAC [6]byte) (*Result, error) {
	if senderMAC != f.aa {
		return nil, errors.New("eapol: frame not from associated AP")
	}
	kf, err := ParseKeyFrame(raw)
	if err != nil {
		return nil, err
	}

	switch f.state {
	case StateWaiting1_4:
		return f.handlePacket1(kf)
	case StateWaiting3_4:
		return f.handlePacket3(kf)
	case StateNegotiated:
		return f.handleGroupRekey(kf)
	default:
		return nil, errors.Errorf("eapol: unexpected frame in state %d", f.state)
	}
}

func (f *FSM) handlePacket1(kf *KeyFrame) (*Result, error) {
	want := uint16(kiKeyAck | kiKeyTypePairwise)
	mask := uint16(kiKeyAck | kiKeyMIC | kiKeyTypePairwise | kiInstall | kiSecure)
	if !matchKeyInfo(kf.KeyInfo, want, mask) {
		return nil, errors.New("eapol: packet 1/4 key-info mismatch")
	}

	f.anonce = kf.Nonce
	f.replayCtr = kf.ReplayCtr
	f.haveReplay = true

	if _, err := rand.Read(f.snonce[:]); err != nil {
		return nil, errors.Wrap(err, "eapol: generating SNonce")
	}
	f.ptk = wcrypto.DerivePTK(f.pmk, f.aa[:], f.ownMAC[:], f.anonce[:], f.snonce[:])

	frame := &KeyFrame{
		KeyInfo:   kiDescrVersionSHA1 | kiKeyTypePairwise | kiKeyMIC,
		KeyLength: 16,
		ReplayCtr: f.replayCtr,
		Nonce:     f.snonce,
		KeyData:   f.ies,
	}
	msg := f.signAndMarshal(frame)

	if !f.sendsAllowed {
		f.pending2_4 = msg
		f.state = StateWaiting2_4
		return &Result{}, nil
	}
	f.state = StateWaiting3_4
	return &Result{Send: msg}, nil
}

func (f *FSM) handlePacket3(kf *KeyFrame) (*Result, error) {
	want := uint16(kiKeyAck | kiKeyMIC | kiKeyTypePairwise | kiInstall | kiSecure | kiEncryptedKeyData)
	mask := want
	if !matchKeyInfo(kf.KeyInfo, want, mask) {
		return nil, errors.New("eapol: packet 3/4 key-info mismatch")
	}
	if !f.haveReplay || kf.ReplayCtr <= f.replayCtr {
		return nil, errors.New("eapol: packet 3/4 replay counter not strictly greater")
	}
	if kf.Nonce != f.anonce {
		return nil, errors.New("eapol: packet 3/4 ANonce mismatch")
	}
	if err := f.verifyMIC(kf); err != nil {
		return nil, err
	}

	keyData, err := wcrypto.KeyUnwrap(f.kek(), kf.KeyData)
	if err != nil {
		return nil, errors.Wrap(err, "eapol: unwrapping packet 3/4 key data")
	}
	rawGTK, gtkIdx, found := GTKFromKDEs(keyData)
	if !found {
		return nil, errors.New("eapol: packet 3/4 carries no GTK KDE")
	}
	gtk, err := storeGTK(rawGTK, f.tkipGroup)
	if err != nil {
		return nil, errors.Wrap(err, "eapol: packet 3/4")
	}

	f.replayCtr = kf.ReplayCtr

	frame := &KeyFrame{
		KeyInfo:   kiDescrVersionSHA1 | kiKeyTypePairwise | kiKeyMIC | kiSecure,
		ReplayCtr: f.replayCtr,
		Nonce:     f.snonce,
	}
	msg := f.signAndMarshal(frame)

	f.state = StateNegotiated
	return &Result{
		Send:       msg,
		InstallPTK: append([]byte(nil), f.tk()...),
		InstallGTK: gtk,
		GTKKeyIdx:  gtkIdx,
		Negotiated: true,
	}, nil
}

func (f *FSM) handleGroupRekey(kf *KeyFrame) (*Result, error) {
	want := uint16(kiKeyMIC | kiSecure | kiEncryptedKeyData)
	mask := uint16(kiKeyMIC | kiSecure | kiEncryptedKeyData | kiKeyTypePairwise)
	if !matchKeyInfo(kf.KeyInfo, want, mask) {
		return nil, errors.New("eapol: group rekey key-info mismatch")
	}
	if !f.haveReplay || kf.ReplayCtr <= f.replayCtr {
		return nil, errors.New("eapol: group rekey replay counter not strictly greater")
	}
	if err := f.verifyMIC(kf); err != nil {
		return nil, err
	}

	keyData, err := wcrypto.KeyUnwrap(f.kek(), kf.KeyData)
	if err != nil {
		return nil, errors.Wrap(err, "eapol: unwrapping group rekey key data")
	}
	rawGTK, gtkIdx, found := GTKFromKDEs(keyData)
	if !found {
		return nil, errors.New("eapol: group rekey carries no GTK KDE")
	}
	gtk, err := storeGTK(rawGTK, f.tkipGroup)
	if err != nil {
		return nil, errors.Wrap(err, "eapol: group rekey")
	}

	f.replayCtr = kf.ReplayCtr

	frame := &KeyFrame{
		KeyInfo:   kiDescrVersionSHA1 | kiKeyMIC | kiSecure,
		ReplayCtr: f.replayCtr,
	}
	// send_group_2 in the reference writes the EAPOL length field without
	// the -4 adjustment send_packet_4/send_packet_2 apply elsewhere; kept
	// as-is per the documented open question rather than "corrected".
	msg := f.signAndMarshalGroup2(frame)

	return &Result{
		Send:         msg,
		InstallGTK:   gtk,
		GTKKeyIdx:    gtkIdx,
		GroupRekeyed: true,
	}, nil
}

// groupLenAdjust is the EAPOL-length-field excess of group message 2/2.
// send_packet_2 and send_packet_4 in the reference write the packet length
// minus the 4-byte EAPOL header (the true body length); send_group_2 omits
// that -4, so its length field is 4 bytes over the body. See
// signAndMarshal/signAndMarshalGroup2.
const groupLenAdjust = 4

// signAndMarshal computes the MIC over the frame with the MIC field
// zeroed, fills it in, and re-marshals with the true body length in the
// EAPOL length field, as for messages 2/4 and 4/4.
func (f *FSM) signAndMarshal(frame *KeyFrame) []byte {
	frame.MIC = [16]byte{}
	body := frame.marshalWithLenAdjust(0)
	mic := wcrypto.DeriveMIC(f.kck(), body)
	copy(frame.MIC[:], mic)
	return frame.marshalWithLenAdjust(0)
}

// signAndMarshalGroup2 is signAndMarshal without the -4 length adjustment,
// matching send_group_2 in the reference (see the Open Question preserved
// in handleGroupRekey): the length field is groupLenAdjust bytes over the
// body.
func (f *FSM) signAndMarshalGroup2(frame *KeyFrame) []byte {
	frame.MIC = [16]byte{}
	body := frame.marshalWithLenAdjust(groupLenAdjust)
	mic := wcrypto.DeriveMIC(f.kck(), body)
	copy(frame.MIC[:], mic)
	return frame.marshalWithLenAdjust(groupLenAdjust)
}

func (f *FSM) verifyMIC(kf *KeyFrame) error {
	want := kf.MIC
	check := *kf
	check.MIC = [16]byte{}
	body := check.Marshal()
	got := wcrypto.DeriveMIC(f.kck(), body)
	if !bytes.Equal(got, want[:]) {
		return errors.New("eapol: MIC verification failed")
	}
	return nil
}
