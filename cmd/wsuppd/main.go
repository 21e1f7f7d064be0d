// Command wsuppd is a user-space WPA2-PSK supplicant daemon: it manages
// scanning, association, and the 4-way handshake for one wireless
// interface and exposes a small control socket for wsupp-ctl, following
// wsupp.c's single daemon-per-interface design.
package main

import (
	"flag"
	"fmt"
	"os"

	"wsupp/internal/daemon"
	"wsupp/internal/metrics"
	"wsupp/internal/wsutil"
)

func main() {
	var (
		metricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9110 (disabled if empty)")
		verbosity   = flag.String("v", "info", "log level: debug, info, warn, error")
		ctlPath     = flag.String("ctl", "/run/ctrl/wsupp", "control socket path")
		pskFile     = flag.String("psk-file", "/var/wipsk", "PSK store path")
		pinFile     = flag.String("pin-file", "/var/wiap", "pinned-SSID state file")
		dhcpPath    = flag.String("dhcp", "dhcp", "DHCP client worker to exec on connect")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <ifname>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		quit("exactly one interface name argument is required")
	}
	ifname := flag.Arg(0)

	if err := wsutil.SetLevel(*verbosity); err != nil {
		quit(fmt.Sprintf("invalid -v %q: %s", *verbosity, err))
	}
	log := wsutil.NewLogger("wsuppd")
	defer log.Sync()

	if *metricsAddr != "" {
		metrics.Serve(*metricsAddr)
	}

	cfg := daemon.Config{
		Ifname:      ifname,
		ControlPath: *ctlPath,
		PSKFile:     *pskFile,
		PinFile:     *pinFile,
		DHCPPath:    *dhcpPath,
	}

	d, err := daemon.New(cfg, log)
	if err != nil {
		log.Errorw("starting daemon", "error", err)
		quit(err.Error())
	}
	defer d.Close()

	log.Infow("starting", "ifname", ifname, "ctl", *ctlPath)
	if err := d.Run(); err != nil {
		log.Errorw("event loop exited", "error", err)
		quit(err.Error())
	}
}

// quit matches the reference's quit(): a single "wsuppd: <detail>" line on
// stderr and exit 0xFF, used for every fatal-startup and fatal-runtime error
// per spec (netlink/control-listener loss, ioctl/socket setup failures).
func quit(detail string) {
	fmt.Fprintf(os.Stderr, "wsuppd: %s\n", detail)
	os.Exit(0xFF)
}
