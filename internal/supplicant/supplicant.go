package supplicant

import (
	"go.uber.org/zap"

	"wsupp/internal/dhcpsup"
	"wsupp/internal/eapol"
	"wsupp/internal/pskstore"
	"wsupp/internal/scantable"
)

// Supplicant owns every piece of mutable connection state for the
// managed interface. Per spec §3/§9 it is a single-threaded context
// object — all of its methods are called from the daemon's event loop
// and none of them block beyond the synchronous netlink request/reply
// the Transport performs.
type Supplicant struct {
	Ifname  string
	IfIndex uint32
	OwnMAC  [6]byte
	Family  uint16

	NL    Transport
	Scan  *scantable.Table
	PSK   *pskstore.Store
	DHCP  *dhcpsup.Supervisor
	Log   *zap.SugaredLogger

	OperMode OperMode
	Auth     AuthState
	ScanSt   ScanState
	RFKilled bool

	AP  *CurrentAP
	FSM *eapol.FSM

	// failures counts failed association attempts in the current
	// connect round, reset by ResetRound.
	failures int

	pendingPSK     [32]byte
	havePendingPSK bool
}

// New constructs a Supplicant bound to one interface and its already-open
// collaborators.
func New(ifname string, ifindex uint32, ownMAC [6]byte, family uint16, nl Transport,
	scan *scantable.Table, psk *pskstore.Store, dhcp *dhcpsup.Supervisor, log *zap.SugaredLogger) *Supplicant {
	return &Supplicant{
		Ifname:  ifname,
		IfIndex: ifindex,
		OwnMAC:  ownMAC,
		Family:  family,
		NL:      nl,
		Scan:    scan,
		PSK:     psk,
		DHCP:    dhcp,
		Log:     log,
	}
}

// StartScan issues TRIGGER_SCAN, matching C6's start_scan op. Requires
// ScanSt==Idle.
func (s *Supplicant) StartScan() (*Report, error) {
	if s.ScanSt != ScanIdle {
		return nil, ErrBusy
	}
	if err := s.NL.TriggerScan(s.Family, s.IfIndex); err != nil {
		return nil, err
	}
	s.Scan.Reset()
	s.ScanSt = ScanScanning
	return &Report{Kind: ReportScanning}, nil
}

// OnScanResultsDone is invoked once the kernel's scan-complete multicast
// event lands: the scan table has already been populated by the caller
// via Scan.Upsert for each NEW_SCAN_RESULTS, and this recomputes PASS/GOOD
// flags and returns scanstate to Idle.
func (s *Supplicant) OnScanResultsDone(aborted bool) *Report {
	s.ScanSt = ScanIdle
	if aborted {
		return &Report{Kind: ReportScanFail}
	}
	s.Scan.UpdateFlags(func(ssid []byte) bool {
		ok, err := s.PSK.GotPSKFor(ssid)
		return err == nil && ok
	})
	return &Report{Kind: ReportScanDone}
}

// ConfigureStation validates and applies CONNECT's station-selection
// preconditions without starting an attempt, matching configure_station
// (set_fixed_saved/set_fixed_given): a supplied PSK is saved for ssid
// immediately, and an SSID given without one fails with ErrNoKey unless a
// PSK is already on file. Its error is the command's synchronous reply,
// determined and sent before any reassessment is attempted (see
// ContinueConnect).
func (s *Supplicant) ConfigureStation(ssid []byte, psk *[32]byte) error {
	if s.Auth != AuthIdle || s.ScanSt != ScanIdle {
		return ErrBusy
	}
	if psk != nil {
		if ssid == nil {
			return ErrInvalid
		}
		if err := s.PSK.SavePSK(ssid, *psk); err != nil {
			return err
		}
		s.Scan.UpdateFlags(func(candidate []byte) bool {
			ok, err := s.PSK.GotPSKFor(candidate)
			return err == nil && ok
		})
		return nil
	}
	if ssid == nil {
		return nil
	}
	has, err := s.PSK.GotPSKFor(ssid)
	if err != nil {
		return err
	}
	if !has {
		return ErrNoKey
	}
	return nil
}

// ContinueConnect resumes a connect round after ConfigureStation has
// already validated preconditions (and, for callers with a client
// connection, after that command's own reply has already gone out),
// matching cmd_connect's deferred call to reassess_wifi_situation().
// ssid may be nil for free auto-connect.
func (s *Supplicant) ContinueConnect(ssid []byte) error {
	s.ResetRound()
	return s.tryNextCandidate(ssid)
}

// StartConnect begins a connection attempt, matching C6's start_connect:
// ConfigureStation followed immediately by ContinueConnect. Used by
// callers with no synchronous reply to sequence around (reassessment,
// pinned-SSID reconnect); the control socket's CONNECT handler instead
// calls the two halves separately so its ACK lands first.
func (s *Supplicant) StartConnect(ssid []byte, psk *[32]byte) error {
	if err := s.ConfigureStation(ssid, psk); err != nil {
		return err
	}
	return s.ContinueConnect(ssid)
}

// tryNextCandidate selects the best untried scan entry and issues
// AUTHENTICATE+ASSOCIATE against it. Called both from StartConnect and
// from the failure path when an attempt is abandoned.
func (s *Supplicant) tryNextCandidate(ssid []byte) error {
	entry, ok := s.Scan.SelectCandidate(ssid)
	if !ok {
		return s.exhaustRound(ssid)
	}
	s.Scan.MarkTried(entry.BSSID)

	ap := &CurrentAP{
		BSSID:     entry.BSSID,
		SSID:      entry.SSID,
		Freq:      entry.Freq,
		IEs:       nil,
		Fixed:     ssid != nil,
		TKIPGroup: entry.Type&scantable.TypeRSNGroupTKIP != 0 && entry.Type&scantable.TypeRSNGroupCCMP == 0,
	}
	s.AP = ap

	pmkSSID := ap.SSID
	pskVal, found, err := s.PSK.LoadPSK(pmkSSID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoKey
	}
	pmk := append([]byte(nil), pskVal[:]...)

	s.FSM = eapol.NewFSM(s.OwnMAC, ap.BSSID, pmk, ap.SSID, ap.IEs, ap.TKIPGroup)
	s.FSM.Prime()

	if err := s.NL.Authenticate(s.Family, s.IfIndex, ap.BSSID, ap.SSID, uint32(ap.Freq)); err != nil {
		return s.abandonAttempt(ssid)
	}
	if err := s.NL.Associate(s.Family, s.IfIndex, ap.BSSID, ap.SSID, ap.IEs, uint32(ap.Freq)); err != nil {
		return s.abandonAttempt(ssid)
	}
	s.Auth = AuthConnecting
	return nil
}

// abandonAttempt records a failure for the current round and tries the
// next candidate, matching the CONNECTING --NL:DISCONNECT or
// timeout--> IDLE (failure) transition followed by the round's retry
// policy.
func (s *Supplicant) abandonAttempt(roundSSID []byte) error {
	s.failures++
	if s.FSM != nil {
		s.FSM.Reset()
		s.FSM = nil
	}
	s.AP = nil
	return s.tryNextCandidate(roundSSID)
}

// exhaustRound is reached when the selection rule finds no further
// candidate. It reports NO_CONNECT, distinguishing "tried and failed"
// from "no suitable APs", and applies the opermode policy from spec §4.2.
func (s *Supplicant) exhaustRound(_ []byte) error {
	s.Auth = AuthIdle
	tried := s.failures > 0

	switch s.OperMode {
	case ModeOneShot:
		s.OperMode = ModeNeutral
	case ModeActive:
		// ACTIVE stays ACTIVE; this package only reports the exhaustion,
		// and no retry timer is armed for it.
	}
	return errCandidatesExhausted{tried: tried}
}

// errCandidatesExhausted lets StartConnect/abandonAttempt report NO_CONNECT
// with its Tried distinction through the normal error channel while still
// letting the caller recover the structured Report via AsReport.
type errCandidatesExhausted struct{ tried bool }

func (e errCandidatesExhausted) Error() string {
	if e.tried {
		return "supplicant: no more APs in range"
	}
	return "supplicant: no suitable APs in range"
}

// AsReport converts an error returned by StartConnect into the NO_CONNECT
// report the control protocol should emit, or returns ok=false if err
// isn't a round-exhaustion error.
func AsReport(err error) (Report, bool) {
	if e, ok := err.(errCandidatesExhausted); ok {
		return Report{Kind: ReportNoConnect, Tried: e.tried}, true
	}
	return Report{}, false
}

// ResetRound clears the TRIED flag on every scan entry and the failure
// counter, done at the start of a fresh connect round.
func (s *Supplicant) ResetRound() {
	s.Scan.ResetTried()
	s.failures = 0
}

// OnAssociateComplete is invoked on the kernel's NL80211_CMD_CONNECT
// event (association succeeded): it flushes any 2/4 that was prepared
// during priming.
func (s *Supplicant) OnAssociateComplete(bssid [6]byte) ([]byte, error) {
	if s.FSM == nil || s.AP == nil || s.AP.BSSID != bssid {
		return nil, ErrInvalid
	}
	return s.FSM.AllowSends(), nil
}

// OnEAPOLFrame feeds one received EAPOL frame to the FSM and, on
// successful negotiation, installs keys, starts DHCP, and transitions
// Auth to Connected. groupRekeyed is set when this frame was a group
// rekey rather than part of the initial 4-way handshake, letting the
// caller account for it separately (no Report accompanies a rekey,
// matching spec's "authstate remains CONNECTED" — no new notification).
func (s *Supplicant) OnEAPOLFrame(raw []byte, senderMAC [6]byte) (send []byte, report *Report, groupRekeyed bool, err error) {
	if s.FSM == nil {
		return nil, nil, false, ErrInvalid
	}
	result, err := s.FSM.HandleIncoming(raw, senderMAC)
	if err != nil {
		return nil, nil, false, err
	}
	if result.Negotiated {
		if err := s.NL.InstallKey(s.Family, s.IfIndex, 0, result.InstallPTK, &s.AP.BSSID); err != nil {
			return nil, nil, false, err
		}
		if err := s.NL.InstallKey(s.Family, s.IfIndex, result.GTKKeyIdx, result.InstallGTK, nil); err != nil {
			return nil, nil, false, err
		}
		s.Auth = AuthConnected
		if err := s.DHCP.Start(s.Ifname); err != nil && s.Log != nil {
			s.Log.Warnw("dhcp start failed", "error", err)
		}
		report = &Report{Kind: ReportConnected, BSSID: s.AP.BSSID, SSID: s.AP.SSID, Freq: s.AP.Freq}
	} else if result.GroupRekeyed {
		if err := s.NL.InstallKey(s.Family, s.IfIndex, result.GTKKeyIdx, result.InstallGTK, nil); err != nil {
			return nil, nil, false, err
		}
		groupRekeyed = true
	}
	return result.Send, report, groupRekeyed, nil
}

// StartDisconnect tears down the current attempt or connection, matching
// C6's start_disconnect. Returns ErrAlready if already Idle.
func (s *Supplicant) StartDisconnect() (*Report, error) {
	if s.Auth != AuthConnecting && s.Auth != AuthConnected {
		return nil, ErrAlready
	}
	wasConnected := s.Auth == AuthConnected
	var bssid [6]byte
	var ssid []byte
	var freq int
	if s.AP != nil {
		bssid, ssid, freq = s.AP.BSSID, s.AP.SSID, s.AP.Freq
	}
	if err := s.NL.Disconnect(s.Family, s.IfIndex); err != nil {
		return nil, err
	}
	if wasConnected {
		if err := s.DHCP.Stop(); err != nil && s.Log != nil {
			s.Log.Warnw("dhcp stop failed", "error", err)
		}
	}
	s.teardown()
	return &Report{Kind: ReportDisconnect, BSSID: bssid, SSID: ssid, Freq: freq}, nil
}

func (s *Supplicant) teardown() {
	if s.FSM != nil {
		s.FSM.Reset()
		s.FSM = nil
	}
	s.AP = nil
	s.Auth = AuthIdle
}

// ReassessWifiSituation re-evaluates the current state, matching C6's
// reassess_wifi_situation: if Connected it's a no-op; otherwise it picks
// the highest-priority PASS+GOOD scan entry and starts a connection, or,
// on exhaustion with opermode ONESHOT, reports NO_CONNECT and reverts to
// NEUTRAL.
func (s *Supplicant) ReassessWifiSituation() (*Report, error) {
	if s.Auth == AuthConnected {
		return nil, nil
	}
	if s.OperMode == ModeNeutral || s.OperMode == ModeExitReq || s.OperMode == ModeExit {
		return nil, nil
	}
	err := s.StartConnect(nil, nil)
	if err == nil {
		return nil, nil
	}
	if rep, ok := AsReport(err); ok {
		return &rep, nil
	}
	return nil, err
}

// HandleRFKilled marks the radio blocked and clears any in-flight
// connection, matching C8's "on soft|hard set" handler.
func (s *Supplicant) HandleRFKilled() *Report {
	s.RFKilled = true
	wasConnected := s.Auth == AuthConnected
	s.teardown()
	s.Auth = AuthNetDown
	if wasConnected {
		_ = s.DHCP.Stop()
		return &Report{Kind: ReportNetDown}
	}
	return &Report{Kind: ReportNetDown}
}

// HandleRFRestored clears RFKilled and returns authstate to Idle, matching
// handle_rfrestored() invoked after rfkill clears. Bringing the interface
// back up and starting the scan are left to the caller.
func (s *Supplicant) HandleRFRestored() {
	s.RFKilled = false
	s.Auth = AuthIdle
}
