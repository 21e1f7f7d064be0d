package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"wsupp/internal/ctlwire"
	"wsupp/internal/wcrypto"
)

// getChannel maps a frequency in MHz to a channel number and band letter,
// following get_channel's piecewise 2.4/5GHz table.
func getChannel(freq int) (chan_ int, band byte) {
	switch {
	case freq == 2484:
		return 14, 'b'
	case inRange(freq, 2412, 2472, 5):
		return 1 + (freq-2412)/5, 'b'
	case inRange(freq, 5035, 5865, 5):
		return 7 + (freq-5035)/5, 'a'
	case inRange(freq, 4915, 4980, 5):
		return 183 + (freq-4915)/5, 'a'
	default:
		return 0, 0
	}
}

func inRange(freq, lo, hi, step int) bool {
	if freq < lo || freq > hi {
		return false
	}
	return (freq-lo)%step == 0
}

func printSSID(ssid []byte) string {
	var b strings.Builder
	for _, c := range ssid {
		if c >= 0x20 {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\x%02X", c)
		}
	}
	return b.String()
}

func printMAC(mac []byte) string {
	if len(mac) != 6 {
		return ""
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

func attrInt(attrs []ctlwire.Attr, key uint16) int32 {
	a, ok := ctlwire.Find(attrs, key)
	if !ok {
		return 0
	}
	v, _ := ctlwire.Int(a)
	return v
}

// printStation renders "<ssid> (<chan><band>/<freq>MHz)", the shared
// tail of both the status line and connect-progress notices.
func printStation(attrs []ctlwire.Attr, showBSS bool) string {
	ssidAttr, _ := ctlwire.Find(attrs, ctlwire.AttrSSID)
	bssidAttr, hasBSSID := ctlwire.Find(attrs, ctlwire.AttrBSSID)
	freq := int(attrInt(attrs, ctlwire.AttrFreq))

	var b strings.Builder
	b.WriteString(printSSID(ssidAttr.Payload))
	if showBSS && hasBSSID {
		b.WriteString(" ")
		b.WriteString(printMAC(bssidAttr.Payload))
	}
	if freq != 0 {
		chanNum, band := getChannel(freq)
		if band != 0 {
			fmt.Fprintf(&b, " (%d%c/%dMHz)", chanNum, band, freq)
		} else {
			fmt.Fprintf(&b, " (%dMHz)", freq)
		}
	}
	return b.String()
}

func warnSta(text string, msg ctlwire.Msg) {
	attrs := ctlwire.ParseAttrs(msg.Payload)
	fmt.Printf("%s AP %s\n", text, printStation(attrs, false))
}

var wifiStates = []struct {
	val  int32
	name string
}{
	{ctlwire.WSIdle, "Idle"},
	{ctlwire.WSRFKilled, "RF-kill"},
	{ctlwire.WSNetDown, "Net down"},
	{ctlwire.WSExternal, "External"},
	{ctlwire.WSScanning, "Scanning"},
	{ctlwire.WSConnecting, "Connecting"},
	{ctlwire.WSConnected, "Connected"},
}

func stateName(state int32) string {
	for _, s := range wifiStates {
		if s.val == state {
			return s.name
		}
	}
	return "??"
}

// dumpScanlist prints one line per scan-table entry, best signal first,
// matching print_scan_results/print_scanline.
func dumpScanlist(msg ctlwire.Msg) {
	attrs := ctlwire.ParseAttrs(msg.Payload)
	printScanResults(attrs, false)
}

// dumpStatus prints the scan list followed by the current connection
// state line, matching dump_status.
func dumpStatus(msg ctlwire.Msg, showBSS bool) {
	attrs := ctlwire.ParseAttrs(msg.Payload)
	if printScanResults(attrs, true) {
		fmt.Println()
	}
	state := attrInt(attrs, ctlwire.AttrState)
	fmt.Printf("%s AP %s\n", stateName(state), printStation(attrs, showBSS))
}

func printScanResults(attrs []ctlwire.Attr, blankLineAfter bool) bool {
	var entries []ctlwire.Attr
	for _, a := range attrs {
		if a.Key == ctlwire.AttrScan {
			entries = append(entries, a)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ai := ctlwire.ParseAttrs(entries[i].Payload)
		aj := ctlwire.ParseAttrs(entries[j].Payload)
		si, sj := attrInt(ai, ctlwire.AttrSignal), attrInt(aj, ctlwire.AttrSignal)
		if si != sj {
			return si > sj
		}
		return attrInt(ai, ctlwire.AttrFreq) < attrInt(aj, ctlwire.AttrFreq)
	})
	for _, e := range entries {
		printScanline(ctlwire.ParseAttrs(e.Payload))
	}
	if blankLineAfter && len(entries) > 0 {
		return true
	}
	return false
}

func printScanline(attrs []ctlwire.Attr) {
	ssidAttr, hasSSID := ctlwire.Find(attrs, ctlwire.AttrSSID)
	bssidAttr, hasBSSID := ctlwire.Find(attrs, ctlwire.AttrBSSID)
	if !hasSSID || !hasBSSID {
		return
	}
	signal := int(attrInt(attrs, ctlwire.AttrSignal))
	freq := int(attrInt(attrs, ctlwire.AttrFreq))
	_, prio := ctlwire.Find(attrs, ctlwire.AttrPrio)

	chanNum, band := getChannel(freq)
	fmt.Printf("AP %d ", signal/100)
	if band != 0 {
		fmt.Printf("%3d%c", chanNum, band)
	} else {
		fmt.Printf("%4d", freq)
	}
	fmt.Printf("  %s", printMAC(bssidAttr.Payload))
	fmt.Printf("  %s", printSSID(ssidAttr.Payload))
	if prio {
		fmt.Print(" *")
	}
	fmt.Println()
}

// putPSKInput prompts for a passphrase on stdin and derives its PSK for
// ssid, appending it to b, matching wifi_pass.c's put_psk_input.
func putPSKInput(b *ctlwire.Builder, ssid string) {
	fmt.Fprint(os.Stdout, "Passphrase: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		fail("empty passphrase rejected\n")
	}
	line = strings.TrimSuffix(line, "\n")
	if line == "" {
		fail("empty passphrase rejected\n")
	}
	psk, err := wcrypto.DerivePSK(line, []byte(ssid))
	if err != nil {
		fail("%s\n", err)
	}
	b.PutBin(ctlwire.AttrPSK, psk)
}
