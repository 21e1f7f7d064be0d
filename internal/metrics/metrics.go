// Package metrics defines the daemon's Prometheus counters and exposes
// them over plain HTTP, grounded on Brightgate ap.watchd's metrics.go /
// ap.networkd's promhttp.Handler() wiring.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScanCycles counts completed scan cycles, successful or not.
	ScanCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsupp_scan_cycles_total",
		Help: "Number of scan cycles completed.",
	})
	// ScanFailures counts scan cycles the kernel reported as aborted.
	ScanFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsupp_scan_failures_total",
		Help: "Number of scan cycles that were aborted.",
	})
	// HandshakeSuccesses counts completed 4-way handshakes.
	HandshakeSuccesses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsupp_handshake_successes_total",
		Help: "Number of successful 4-way handshakes.",
	})
	// HandshakeFailures counts abandoned connection attempts.
	HandshakeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsupp_handshake_failures_total",
		Help: "Number of abandoned connection attempts.",
	})
	// GroupRekeys counts completed GTK rekeys.
	GroupRekeys = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsupp_group_rekeys_total",
		Help: "Number of completed GTK rekeys.",
	})
	// RFKillEvents counts rfkill block/unblock transitions observed.
	RFKillEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsupp_rfkill_events_total",
		Help: "Number of rfkill block/unblock transitions observed.",
	})
	// Connected reports 1 while authstate is CONNECTED, 0 otherwise.
	Connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsupp_connected",
		Help: "1 if the managed interface is currently connected.",
	})
)

func init() {
	prometheus.MustRegister(ScanCycles, ScanFailures, HandshakeSuccesses,
		HandshakeFailures, GroupRekeys, RFKillEvents, Connected)
}

// Serve starts a background HTTP server exposing /metrics on addr. Callers
// only invoke this when -metrics-addr is non-empty; it is additive
// instrumentation, not a control surface.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(addr, mux)
}
