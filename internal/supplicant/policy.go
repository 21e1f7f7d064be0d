package supplicant

import "time"

// BackoffDuration is the retry delay after a fully exhausted ACTIVE
// connect round, matching spec §4.2's "back-off of several seconds".
const BackoffDuration = 15 * time.Second

// ConnectTimeout is the association-attempt bound. Nothing arms the
// daemon-wide timer with it, so an attempt is not timed out.
const ConnectTimeout = 10 * time.Second

// ScanTimeout is the scan-cycle bound. Nothing arms the daemon-wide timer
// with it, so a scan is not timed out.
const ScanTimeout = 8 * time.Second

// Forget removes any stored PSK for ssid, clears the PASS flag on
// matching scan entries, and disconnects from that SSID if an attempt or
// a connection against it is in progress, matching C11's FORGET handler.
func (s *Supplicant) Forget(ssid []byte) error {
	if err := s.PSK.DropPSK(ssid); err != nil {
		return err
	}
	s.Scan.ClearPassForSSID(ssid)
	if s.AP != nil && string(s.AP.SSID) == string(ssid) {
		_, err := s.StartDisconnect()
		if err != nil && err != ErrAlready {
			return err
		}
	}
	return nil
}

// OnTimerExpiry dispatches the single daemon-wide timer by current
// authstate, matching spec §4.1's timer dispatcher.
func (s *Supplicant) OnTimerExpiry() (*Report, error) {
	switch s.Auth {
	case AuthConnected:
		return s.StartScan()
	case AuthNetDown:
		// Caller decides whether to exit; rfkilled-stay-idle is the
		// default and requires no action here.
		return nil, nil
	case AuthConnecting:
		return nil, s.abandonAttempt(s.roundSSID())
	default: // AuthIdle
		return s.StartScan()
	}
}

// roundSSID returns the SSID the current round is pinned to, or nil for
// free auto-connect.
func (s *Supplicant) roundSSID() []byte {
	if s.AP != nil && s.AP.Fixed {
		return s.AP.SSID
	}
	return nil
}
