package daemon

import (
	"time"

	"wsupp/internal/metrics"
	"wsupp/internal/pskstore"
	"wsupp/internal/supplicant"
)

// clearTimer disarms the single daemon-wide timer, matching wsupp.c's
// clr_timer.
func (d *Daemon) clearTimer() {
	d.timerArmed = false
}

// armTimer arms the single daemon-wide timer to fire after delay, matching
// set_timer.
func (d *Daemon) armTimer(delay time.Duration) {
	d.timerDeadline = time.Now().Add(delay)
	d.timerArmed = true
}

// armRetryTimer arms the backoff delay used after an unsolicited
// disconnect. An exhausted ACTIVE connect round does not arm it.
func (d *Daemon) armRetryTimer() {
	d.armTimer(supplicant.BackoffDuration)
}

// onTimerExpiry dispatches the armed timer by current authstate, matching
// wsupp.c's timer_expired, including its special NETDOWN handling: exit
// if no longer rfkilled at expiry, otherwise (still rfkilled) return to
// IDLE and let the next reassessment pick things back up.
func (d *Daemon) onTimerExpiry() {
	d.clearTimer()

	if d.sup.Auth == supplicant.AuthNetDown {
		if !d.sup.RFKilled {
			d.sup.OperMode = supplicant.ModeExit
		} else {
			d.sup.Auth = supplicant.AuthIdle
		}
		return
	}

	wasConnecting := d.sup.Auth == supplicant.AuthConnecting
	rep, err := d.sup.OnTimerExpiry()
	if wasConnecting {
		metrics.HandshakeFailures.Inc()
	}
	if err != nil {
		if repOut, ok := supplicant.AsReport(err); ok {
			d.ctl.broadcast(reportFrame(repOut))
		}
		return
	}
	if rep != nil {
		d.ctl.broadcast(reportFrame(*rep))
	}
}

// savePinnedSSID persists the currently fixed AP's SSID so a restart can
// reconnect to it, matching wsupp_config.c's save_state.
func (d *Daemon) savePinnedSSID() {
	if d.cfg.PinFile == "" || d.sup.AP == nil {
		return
	}
	if err := pskstore.SavePinnedSSID(d.cfg.PinFile, d.sup.AP.SSID); err != nil && d.log != nil {
		d.log.Warnw("saving pinned ssid", "error", err)
	}
}

// loadPinnedSSID reads back any SSID pinned by a previous run, consuming
// the file exactly once, matching load_state.
func (d *Daemon) loadPinnedSSID() []byte {
	if d.cfg.PinFile == "" {
		return nil
	}
	ssid, ok, err := pskstore.LoadPinnedSSID(d.cfg.PinFile)
	if err != nil && d.log != nil {
		d.log.Warnw("loading pinned ssid", "error", err)
	}
	if !ok {
		return nil
	}
	return ssid
}
