package daemon

import (
	"wsupp/internal/ctlwire"
	"wsupp/internal/scantable"
	"wsupp/internal/supplicant"
)

// commonWifiState folds opermode/authstate/scanstate/rfkilled into the
// single ATTR_STATE value STATUS reports, matching
// wsupp_cntrl.c:common_wifi_state.
func (d *Daemon) commonWifiState() int32 {
	s := d.sup
	switch {
	case s.Auth == supplicant.AuthConnected:
		return ctlwire.WSConnected
	case s.Auth == supplicant.AuthNetDown:
		if s.RFKilled {
			return ctlwire.WSRFKilled
		}
		return ctlwire.WSNetDown
	case s.Auth == supplicant.AuthExternal:
		return ctlwire.WSExternal
	case s.Auth != supplicant.AuthIdle:
		return ctlwire.WSConnecting
	case s.ScanSt != supplicant.ScanIdle:
		return ctlwire.WSScanning
	default:
		return ctlwire.WSIdle
	}
}

// buildStatusReply assembles the full CMD_WI_STATUS reply: interface
// identity, folded state, the current/pinned AP (if any), and one nested
// ATTR_SCAN block per occupied scan-table entry, matching
// put_status_wifi/put_status_scans.
func (d *Daemon) buildStatusReply() []byte {
	b := ctlwire.NewBuilder()
	b.PutInt(ctlwire.AttrIFI, int32(d.sup.IfIndex))
	b.PutStr(ctlwire.AttrName, d.sup.Ifname)
	b.PutInt(ctlwire.AttrState, d.commonWifiState())

	ap := d.sup.AP
	if d.sup.Auth != supplicant.AuthIdle || (ap != nil && ap.Fixed) {
		if ap != nil {
			b.PutBin(ctlwire.AttrSSID, ap.SSID)
		}
	}
	if d.sup.Auth != supplicant.AuthIdle && ap != nil {
		b.PutBin(ctlwire.AttrBSSID, ap.BSSID[:])
		b.PutInt(ctlwire.AttrFreq, int32(ap.Freq))
	}

	for _, e := range d.sup.Scan.Entries() {
		nest := ctlwire.NewBuilder()
		nest.PutInt(ctlwire.AttrFreq, int32(e.Freq))
		nest.PutInt(ctlwire.AttrType, int32(e.Type))
		nest.PutInt(ctlwire.AttrSignal, int32(e.Signal))
		nest.PutBin(ctlwire.AttrBSSID, e.BSSID[:])
		nest.PutBin(ctlwire.AttrSSID, e.SSID)
		if e.Flags&(scantable.FlagPass|scantable.FlagGood) == scantable.FlagPass|scantable.FlagGood {
			nest.PutFlag(ctlwire.AttrPrio)
		}
		b.PutNest(ctlwire.AttrScan, nest)
	}

	return ctlwire.Encode(0, b.Bytes())
}

// buildDeviceReply assembles the CMD_WI_DEVICE reply: interface identity
// only, matching cmd_device.
func (d *Daemon) buildDeviceReply() []byte {
	b := ctlwire.NewBuilder()
	b.PutInt(ctlwire.AttrIFI, int32(d.sup.IfIndex))
	b.PutStr(ctlwire.AttrName, d.sup.Ifname)
	return ctlwire.Encode(0, b.Bytes())
}

// reportKindTag maps a supplicant.ReportKind to its wire REP_* tag.
func reportKindTag(k supplicant.ReportKind) int32 {
	switch k {
	case supplicant.ReportNetDown:
		return ctlwire.RepNetDown
	case supplicant.ReportScanning:
		return ctlwire.RepScanning
	case supplicant.ReportScanDone:
		return ctlwire.RepScanDone
	case supplicant.ReportScanFail:
		return ctlwire.RepScanFail
	case supplicant.ReportDisconnect:
		return ctlwire.RepDisconect
	case supplicant.ReportNoConnect:
		return ctlwire.RepNoConnect
	case supplicant.ReportConnected:
		return ctlwire.RepConnected
	default:
		return ctlwire.RepNetDown
	}
}

// reportFrame serializes a Report into a wire frame, carrying BSSID/SSID/
// Freq for the "station" reports (disconnect/connected) and nothing
// beyond the tag for the simple ones, matching report_simple vs
// report_station.
func reportFrame(r supplicant.Report) []byte {
	switch r.Kind {
	case supplicant.ReportDisconnect, supplicant.ReportConnected:
		b := ctlwire.NewBuilder()
		b.PutBin(ctlwire.AttrBSSID, r.BSSID[:])
		b.PutBin(ctlwire.AttrSSID, r.SSID)
		b.PutInt(ctlwire.AttrFreq, int32(r.Freq))
		return ctlwire.Encode(reportKindTag(r.Kind), b.Bytes())
	default:
		return ctlwire.Encode(reportKindTag(r.Kind), nil)
	}
}
