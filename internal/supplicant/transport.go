package supplicant

// Transport is the subset of *nlgen.Conn's nl80211 wrappers the state
// machine drives. Satisfied structurally by *nlgen.Conn; any other
// implementation (a fake, for instance) lets the state machine run
// without a real netlink socket.
type Transport interface {
	TriggerScan(family uint16, ifindex uint32) error
	Authenticate(family uint16, ifindex uint32, bssid [6]byte, ssid []byte, freq uint32) error
	Associate(family uint16, ifindex uint32, bssid [6]byte, ssid, ies []byte, freq uint32) error
	Disconnect(family uint16, ifindex uint32) error
	InstallKey(family uint16, ifindex uint32, keyIdx uint8, key []byte, mac *[6]byte) error
}
