package daemon

import (
	"encoding/binary"

	"wsupp/internal/metrics"
	"wsupp/internal/nlgen"
	"wsupp/internal/rfkill"
	"wsupp/internal/scantable"
	"wsupp/internal/supplicant"
)

// handleNetlink drains every pending nl80211 multicast event, matching
// wsupp.c's check_netlink -> handle_netlink. A quit-worthy read error
// (anything but EAGAIN) is surfaced by the caller via the poll loop's
// revents check, not from in here.
func (d *Daemon) handleNetlink() {
	for {
		payload, err := d.nl.ReceiveEvent()
		if err != nil {
			return
		}
		if len(payload) < 1 {
			continue
		}
		cmd := payload[0]
		attrs := nlgen.ParseAttrs(payload[4:])
		d.handleNetlinkEvent(cmd, attrs)
	}
}

func (d *Daemon) handleNetlinkEvent(cmd uint8, attrs []nlgen.Attr) {
	switch cmd {
	case nlgen.CmdNewScanResult:
		d.applyScanResult(attrs)
	case nlgen.CmdScanAborted:
		d.finishScan(true)
	case nlgen.CmdConnect:
		d.onAssociateComplete(attrs)
	case nlgen.CmdDisconnect, nlgen.CmdDeauthenticate, nlgen.CmdDisassociate:
		d.onUnsolicitedDisconnect()
	}
}

// applyScanResult decodes one NL80211_CMD_NEW_SCAN_RESULTS event's nested
// BSS attribute into the scan table, matching wsupp_sta_ies.c's per-BSS
// handling. A single event carries a single BSS; the caller's
// scan-results-complete boundary is the kernel-driven NEW_SCAN_RESULTS
// vs. SCAN_ABORTED distinction, same as the reference.
func (d *Daemon) applyScanResult(attrs []nlgen.Attr) {
	bssAttr, ok := nlgen.Find(attrs, nlgen.AttrBSS)
	if !ok {
		d.finishScan(false)
		return
	}
	nested := nlgen.ParseAttrs(bssAttr.Value)

	var bssid [6]byte
	if a, ok := nlgen.Find(nested, nlgen.BSSAttrBSSID); ok && len(a.Value) == 6 {
		copy(bssid[:], a.Value)
	} else {
		return
	}
	var freq, signal int
	if a, ok := nlgen.Find(nested, nlgen.BSSAttrFreq); ok && len(a.Value) >= 4 {
		freq = int(binary.LittleEndian.Uint32(a.Value))
	}
	if a, ok := nlgen.Find(nested, nlgen.BSSAttrSignal); ok && len(a.Value) >= 4 {
		signal = int(int32(binary.LittleEndian.Uint32(a.Value)))
	}
	var ies scantable.ParsedIEs
	if a, ok := nlgen.Find(nested, nlgen.BSSAttrIEs); ok {
		ies = scantable.ParseIEs(a.Value)
	}
	d.sup.Scan.Upsert(bssid, freq, signal, ies)
}

// finishScan is reached once the kernel signals the scan cycle's end
// (either NEW_SCAN_RESULTS with no BSS attribute, standing in for this
// daemon's cycle-complete marker, or SCAN_ABORTED).
func (d *Daemon) finishScan(aborted bool) {
	rep := d.sup.OnScanResultsDone(aborted)
	metrics.ScanCycles.Inc()
	if aborted {
		metrics.ScanFailures.Inc()
	}
	if rep != nil {
		d.ctl.broadcast(reportFrame(*rep))
	}

	if pin := d.pendingPin; pin != nil {
		d.pendingPin = nil
		d.sup.OperMode = supplicant.ModeActive
		err := d.sup.StartConnect(pin, nil)
		if repOut, ok := supplicant.AsReport(err); ok {
			d.ctl.broadcast(reportFrame(repOut))
		} else if err != nil && d.log != nil {
			d.log.Debugw("reconnecting to pinned network failed to start", "error", err)
		}
		return
	}

	if out, err := d.sup.ReassessWifiSituation(); err == nil && out != nil {
		d.ctl.broadcast(reportFrame(*out))
	}
}

func (d *Daemon) onAssociateComplete(attrs []nlgen.Attr) {
	a, ok := nlgen.Find(attrs, nlgen.AttrMAC)
	if !ok || len(a.Value) != 6 {
		return
	}
	var bssid [6]byte
	copy(bssid[:], a.Value)

	send, err := d.sup.OnAssociateComplete(bssid)
	if err != nil {
		return
	}
	if len(send) > 0 {
		d.raw.Send(bssid, send)
	}
}

func (d *Daemon) onUnsolicitedDisconnect() {
	wasConnecting := d.sup.Auth == supplicant.AuthConnecting
	if !wasConnecting && d.sup.Auth != supplicant.AuthConnected {
		return
	}
	rep, err := d.sup.StartDisconnect()
	if err != nil {
		return
	}
	if wasConnecting {
		metrics.HandshakeFailures.Inc()
	}
	d.ctl.broadcast(reportFrame(*rep))
	metrics.Connected.Set(0)
	d.armRetryTimer()
}

// handleRawsock drains pending EAPOL frames, feeding each to the FSM via
// the supplicant and transmitting any response, matching
// wsupp_eapol.c's handle_rawsock.
func (d *Daemon) handleRawsock() {
	for {
		payload, sender, err := d.raw.Recv()
		if err != nil {
			return
		}
		if d.sup.AP == nil || sender != d.sup.AP.BSSID {
			continue
		}
		send, rep, groupRekeyed, err := d.sup.OnEAPOLFrame(payload, sender)
		if err != nil {
			if d.log != nil {
				d.log.Debugw("eapol frame rejected", "error", err)
			}
			continue
		}
		if len(send) > 0 {
			d.raw.Send(sender, send)
		}
		if groupRekeyed {
			metrics.GroupRekeys.Inc()
		}
		if rep != nil {
			metrics.HandshakeSuccesses.Inc()
			metrics.Connected.Set(1)
			d.ctl.broadcast(reportFrame(*rep))
			if d.sup.AP != nil && d.sup.AP.Fixed {
				d.savePinnedSSID()
			}
		}
	}
}

// handleRfkill drains pending /dev/rfkill events, matching
// wsupp_rfkill.c's handle_rfkill / check_rfkill.
func (d *Daemon) handleRfkill() {
	for {
		ev, err := d.rfk.ReadEvent()
		if err != nil {
			return
		}
		if !d.rfk.MatchesInterface(ev) {
			continue
		}
		metrics.RFKillEvents.Inc()
		wasBlocked := d.sup.RFKilled
		if ev.Blocked() {
			if !wasBlocked {
				rep := d.sup.HandleRFKilled()
				d.ctl.broadcast(reportFrame(*rep))
				metrics.Connected.Set(0)
			}
		} else if wasBlocked {
			d.sup.HandleRFRestored()
			if err := rfkill.BringUp(d.cfg.Ifname); err != nil && d.log != nil {
				d.log.Warnw("bringing interface back up after rfkill clear", "error", err)
			}
			if rep, err := d.sup.StartScan(); err == nil {
				d.ctl.broadcast(reportFrame(*rep))
			}
		}
	}
}
