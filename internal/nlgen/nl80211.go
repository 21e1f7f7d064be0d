package nlgen

// nl80211 command numbers this daemon issues or receives, named the way
// the kernel header does.
const (
	CmdTriggerScan  = 33
	CmdNewScanResult = 34
	CmdScanAborted   = 35
	CmdAuthenticate  = 37
	CmdAssociate     = 38
	CmdDeauthenticate = 39
	CmdDisassociate   = 40
	CmdConnect        = 46
	CmdDisconnect     = 48
	CmdNewKey         = 11
)

// nl80211 attribute numbers this daemon reads or writes.
const (
	AttrIfIndex  = 3
	AttrMAC      = 6
	AttrKeyData  = 7
	AttrKeyIdx   = 8
	AttrKeySeq   = 10
	AttrSSID     = 52
	AttrFreq     = 38
	AttrBSS      = 47
	AttrBSSIEs   = 42
	AttrStatusCode = 72
	AttrScanSSIDs  = 45
	AttrCipherSuite = 58
)

// Sub-attributes nested within AttrBSS, one scan result per nest, matching
// the kernel's NL80211_BSS_* numbering.
const (
	BSSAttrBSSID  = 1
	BSSAttrFreq   = 2
	BSSAttrIEs    = 6
	BSSAttrSignal = 7
)

// TriggerScan issues NL80211_CMD_TRIGGER_SCAN for ifindex with an
// unrestricted (wildcard) SSID set, matching start_scan()'s broadcast
// probe behavior.
func (c *Conn) TriggerScan(family uint16, ifindex uint32) error {
	attrs := PackAttrU32(AttrIfIndex, ifindex)
	attrs = append(attrs, packAttr(AttrScanSSIDs, nil)...) // empty nest: match-all
	_, err := c.Request(family, CmdTriggerScan, attrs)
	return err
}

// Authenticate issues NL80211_CMD_AUTHENTICATE against bssid on ifindex.
func (c *Conn) Authenticate(family uint16, ifindex uint32, bssid [6]byte, ssid []byte, freq uint32) error {
	attrs := PackAttrU32(AttrIfIndex, ifindex)
	attrs = append(attrs, PackAttrBin(AttrMAC, bssid[:])...)
	attrs = append(attrs, PackAttrBin(AttrSSID, ssid)...)
	attrs = append(attrs, PackAttrU32(AttrFreq, freq)...)
	_, err := c.Request(family, CmdAuthenticate, attrs)
	return err
}

// Associate issues NL80211_CMD_ASSOCIATE, carrying the IEs that were part
// of the scan result (so the kernel/driver can echo them in the
// association request frame).
func (c *Conn) Associate(family uint16, ifindex uint32, bssid [6]byte, ssid, ies []byte, freq uint32) error {
	attrs := PackAttrU32(AttrIfIndex, ifindex)
	attrs = append(attrs, PackAttrBin(AttrMAC, bssid[:])...)
	attrs = append(attrs, PackAttrBin(AttrSSID, ssid)...)
	attrs = append(attrs, PackAttrU32(AttrFreq, freq)...)
	if len(ies) > 0 {
		attrs = append(attrs, PackAttrBin(AttrBSSIEs, ies)...)
	}
	_, err := c.Request(family, CmdAssociate, attrs)
	return err
}

// Disconnect issues NL80211_CMD_DISCONNECT for ifindex.
func (c *Conn) Disconnect(family uint16, ifindex uint32) error {
	attrs := PackAttrU32(AttrIfIndex, ifindex)
	_, err := c.Request(family, CmdDisconnect, attrs)
	return err
}

// InstallKey issues NL80211_CMD_NEW_KEY to install a pairwise (keyIdx==0)
// or group key.
func (c *Conn) InstallKey(family uint16, ifindex uint32, keyIdx uint8, key []byte, mac *[6]byte) error {
	attrs := PackAttrU32(AttrIfIndex, ifindex)
	attrs = append(attrs, PackAttrU32(AttrKeyIdx, uint32(keyIdx))...)
	attrs = append(attrs, PackAttrBin(AttrKeyData, key)...)
	if mac != nil {
		attrs = append(attrs, PackAttrBin(AttrMAC, mac[:])...)
	}
	_, err := c.Request(family, CmdNewKey, attrs)
	return err
}
