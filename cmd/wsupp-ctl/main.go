// Command wsupp-ctl is the frontend for wsuppd: it sends one command to
// the daemon's control socket and prints the reply, following wifi.c's
// command dispatch.
package main

import (
	"os"
	"syscall"

	"wsupp/internal/ctlwire"
)

const defaultCtlPath = "/run/ctrl/wsupp"

func main() {
	args := os.Args[1:]
	path := defaultCtlPath
	if v := os.Getenv("WSUPP_CTL"); v != "" {
		path = v
	}

	if len(args) == 0 {
		cmdStatus(path, false)
		return
	}

	switch args[0] {
	case "scan":
		cmdScan(path, args[1:])
	case "ap":
		cmdFixedAP(path, args[1:])
	case "connect":
		cmdConnect(path, args[1:])
	case "dc", "break", "disconnect":
		cmdNeutral(path, args[1:])
	case "forget":
		cmdForget(path, args[1:])
	case "bss":
		cmdStatus(path, true)
	default:
		fail("unknown command %s\n", args[0])
	}
}

func noOtherArgs(args []string) {
	if len(args) > 0 {
		fail("too many arguments\n")
	}
}

func cmdStatus(path string, showBSS bool) {
	c := dial(path)
	defer c.close()

	msg := c.sendRecvMsg(ctlwire.Encode(ctlwire.CmdStatus, nil))
	dumpStatus(msg, showBSS)
}

func cmdScan(path string, args []string) {
	noOtherArgs(args)
	c := dial(path)
	defer c.close()

	c.sendCheck(ctlwire.Encode(ctlwire.CmdScan, nil))
	for {
		msg, ok := c.recv()
		if !ok {
			fail("connection lost\n")
		}
		switch msg.Cmd {
		case ctlwire.RepScanFail:
			fail("scan failed\n")
		case ctlwire.RepScanDone:
			goto done
		case ctlwire.RepNetDown:
			fail("net down\n")
		}
	}
done:
	msg := c.sendRecvMsg(ctlwire.Encode(ctlwire.CmdStatus, nil))
	dumpScanlist(msg)
}

func cmdNeutral(path string, args []string) {
	noOtherArgs(args)
	c := dial(path)
	defer c.close()

	ret := c.sendRecvCmd(ctlwire.Encode(ctlwire.CmdNeutral, nil))
	if ret == -int32(syscall.EALREADY) {
		return
	}
	if ret < 0 {
		fail("%s\n", errnoName(ret))
	}
	for {
		msg, ok := c.recv()
		if !ok {
			return
		}
		if msg.Cmd == ctlwire.RepDisconect || msg.Cmd == ctlwire.RepNetDown {
			return
		}
	}
}

func cmdForget(path string, args []string) {
	if len(args) == 0 {
		fail("SSID required\n")
	}
	ssid := args[0]
	noOtherArgs(args[1:])

	c := dial(path)
	defer c.close()

	b := ctlwire.NewBuilder()
	b.PutBin(ctlwire.AttrSSID, []byte(ssid))
	c.sendCheck(ctlwire.Encode(ctlwire.CmdForget, b.Bytes()))
}

func cmdConnect(path string, args []string) {
	if len(args) > 0 {
		cmdFixedAP(path, args)
		return
	}

	c := dial(path)
	defer c.close()

	c.sendCheck(ctlwire.Encode(ctlwire.CmdConnect, nil))
	waitForConnect(c)
}

func cmdFixedAP(path string, args []string) {
	if len(args) == 0 {
		fail("need AP ssid\n")
	}
	ssid := args[0]
	noOtherArgs(args[1:])

	c := dial(path)
	defer c.close()

	b := ctlwire.NewBuilder()
	b.PutBin(ctlwire.AttrSSID, []byte(ssid))
	ret := c.sendRecvCmd(ctlwire.Encode(ctlwire.CmdConnect, b.Bytes()))
	if ret < 0 && ret != -int32(syscall.ENOKEY) {
		fail("backend error: %s\n", errnoName(ret))
	}
	if ret < 0 {
		b2 := ctlwire.NewBuilder()
		b2.PutBin(ctlwire.AttrSSID, []byte(ssid))
		putPSKInput(b2, ssid)
		c.sendCheck(ctlwire.Encode(ctlwire.CmdConnect, b2.Bytes()))
	}
	waitForConnect(c)
}

// waitForConnect reads reports until the attempt settles, matching
// wait_for_connect's CONNECTED/DISCONNECT/NO_CONNECT handling, including
// the "no suitable APs" vs "no more APs" distinction.
func waitForConnect(c *client) {
	failures := 0
	for {
		msg, ok := c.recv()
		if !ok {
			fail("connection lost\n")
		}
		switch msg.Cmd {
		case ctlwire.RepNetDown:
			fail("network down\n")
		case ctlwire.RepConnected:
			warnSta("connected to", msg)
			return
		case ctlwire.RepDisconect:
			warnSta("cannot connect to", msg)
			failures++
		case ctlwire.RepNoConnect:
			if failures > 0 {
				fail("no more APs in range\n")
			}
			fail("no suitable APs in range\n")
		}
	}
}

func errnoName(ret int32) string {
	return syscall.Errno(-ret).Error()
}
