// Package daemon wires together every collaborator (netlink transport,
// raw EAPOL socket, rfkill watcher, control listener, DHCP supervisor,
// connection state machine) into the single-threaded poll loop described
// by wsupp.c's main(): one goroutine owns all mutable state, and every
// file descriptor is multiplexed through one blocking poll call.
package daemon

import (
	"time"

	"go.uber.org/zap"

	"wsupp/internal/dhcpsup"
	"wsupp/internal/eapol"
	"wsupp/internal/metrics"
	"wsupp/internal/nlgen"
	"wsupp/internal/pskstore"
	"wsupp/internal/rfkill"
	"wsupp/internal/scantable"
	"wsupp/internal/supplicant"
)

// Config bundles the startup parameters cmd/wsuppd parses off argv/flags.
type Config struct {
	Ifname       string
	ControlPath  string
	PSKFile      string
	PinFile      string
	DHCPPath     string
	ScanCapacity int
}

// DefaultScanCapacity matches the reference's static scan table size.
const DefaultScanCapacity = 64

// Daemon owns every open resource and the supplicant state machine for
// one managed interface.
type Daemon struct {
	cfg Config
	log *zap.SugaredLogger

	nl  *nlgen.Conn
	raw *eapol.RawSock
	rfk *rfkill.Watcher
	ctl *control

	family       uint16
	scanGroupID  uint32
	mlmeGroupID  uint32

	sup *supplicant.Supplicant

	sigPipeR int
	sigPipeW int
	sigterm  bool

	timerArmed    bool
	timerDeadline time.Time

	// pendingPin holds an SSID loaded from a previous run's pin file
	// until the first scan completes, at which point Run attempts to
	// reconnect to it once and discards it either way.
	pendingPin []byte
}

// New opens every collaborator and constructs the supplicant state
// machine, but performs no I/O beyond that (no scan is triggered here;
// Run issues the first foreground scan, matching wsupp.c's main()
// issuing routine_fg_scan() only after setup completes).
func New(cfg Config, log *zap.SugaredLogger) (*Daemon, error) {
	if cfg.ScanCapacity <= 0 {
		cfg.ScanCapacity = DefaultScanCapacity
	}

	ifindex, mac, err := resolveInterface(cfg.Ifname)
	if err != nil {
		return nil, err
	}

	if err := rfkill.BringUp(cfg.Ifname); err != nil {
		return nil, err
	}

	nl, err := nlgen.Open()
	if err != nil {
		return nil, err
	}
	family, err := nl.ResolveFamily("nl80211")
	if err != nil {
		nl.Close()
		return nil, err
	}
	scanGroup, err := nl.ResolveMcastGroup("nl80211", "scan")
	if err != nil {
		nl.Close()
		return nil, err
	}
	mlmeGroup, err := nl.ResolveMcastGroup("nl80211", "mlme")
	if err != nil {
		nl.Close()
		return nil, err
	}
	if err := nl.JoinGroup(scanGroup); err != nil {
		nl.Close()
		return nil, err
	}
	if err := nl.JoinGroup(mlmeGroup); err != nil {
		nl.Close()
		return nil, err
	}

	raw, err := eapol.OpenRawSock(int(ifindex), mac)
	if err != nil {
		nl.Close()
		return nil, err
	}

	rfk, err := rfkill.Open(cfg.Ifname)
	if err != nil {
		nl.Close()
		raw.Close()
		return nil, err
	}

	ctl, err := newControl(cfg.ControlPath)
	if err != nil {
		nl.Close()
		raw.Close()
		rfk.Close()
		return nil, err
	}

	scan := scantable.New(cfg.ScanCapacity)
	psk := pskstore.New(cfg.PSKFile)
	dhcp := dhcpsup.New(cfg.DHCPPath)

	sup := supplicant.New(cfg.Ifname, ifindex, mac, family, nl, scan, psk, dhcp, log)

	sigR, sigW, err := newSelfPipe()
	if err != nil {
		nl.Close()
		raw.Close()
		rfk.Close()
		ctl.close()
		return nil, err
	}

	d := &Daemon{
		cfg:         cfg,
		log:         log,
		nl:          nl,
		raw:         raw,
		rfk:         rfk,
		ctl:         ctl,
		family:      family,
		scanGroupID: scanGroup,
		mlmeGroupID: mlmeGroup,
		sup:         sup,
		sigPipeR:    sigR,
		sigPipeW:    sigW,
	}
	return d, nil
}

// Close releases every open resource. Called once on shutdown, after the
// run loop exits.
func (d *Daemon) Close() {
	d.nl.Close()
	d.raw.Close()
	d.rfk.Close()
	d.ctl.close()
	closeSelfPipe(d.sigPipeR, d.sigPipeW)
	metrics.Connected.Set(0)
}
