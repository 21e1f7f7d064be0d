package daemon

import (
	"encoding/binary"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"wsupp/internal/ctlwire"
	"wsupp/internal/supplicant"
)

// maxClientConns bounds the number of simultaneous control connections,
// matching the reference's fixed NCONNS pollfd array.
const maxClientConns = 8

// writeTimeout bounds a single reply/report write, the Go analogue of
// wsupp_cntrl.c's per-write ITIMER_REAL(1) guard against a stuck client.
var writeTimeout = unix.Timeval{Sec: 1, Usec: 0}

type clientConn struct {
	fd  int
	rep bool // subscribed to asynchronous reports, per handle_conn's cn->rep
	buf []byte
}

func (c *clientConn) used() bool { return c.fd > 0 }

// control is the daemon's AF_UNIX control listener plus its accepted
// client connections, built on raw syscalls (rather than net.Listen) so
// every fd stays in the single poll set the event loop owns — no
// goroutine is ever spawned per connection.
type control struct {
	path  string
	fd    int
	conns [maxClientConns]clientConn
}

func newControl(path string) (*control, error) {
	os.Remove(path) // stale socket from a prior unclean exit
	if dir := parentDir(path); dir != "" {
		os.MkdirAll(dir, 0755)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "daemon: socket(AF_UNIX)")
	}
	sa := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "daemon: bind %s", path)
	}
	if err := unix.Listen(fd, maxClientConns); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "daemon: listen %s", path)
	}
	return &control{path: path, fd: fd}, nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

func (c *control) close() {
	for i := range c.conns {
		c.closeConn(i)
	}
	unix.Close(c.fd)
	os.Remove(c.path)
}

func (c *control) closeConn(i int) {
	if c.conns[i].used() {
		unix.Close(c.conns[i].fd)
	}
	c.conns[i] = clientConn{}
}

func (c *control) freeSlot() int {
	for i := range c.conns {
		if !c.conns[i].used() {
			return i
		}
	}
	return -1
}

// accept drains every pending connection, following handle_control's
// accept loop; a connection arriving with no free slot is closed
// immediately rather than left to queue.
func (c *control) accept() {
	for {
		fd, _, err := unix.Accept(c.fd)
		if err != nil {
			return
		}
		unix.SetNonblock(fd, true)
		i := c.freeSlot()
		if i < 0 {
			unix.Close(fd)
			continue
		}
		c.conns[i] = clientConn{fd: fd}
	}
}

// broadcast writes frame to every client subscribed to reports (rep ==
// true), shutting down any connection whose write fails or times out,
// mirroring send_report's per-connection itimer guard and
// shutdown-on-error behavior.
func (c *control) broadcast(frame []byte) {
	for i := range c.conns {
		cn := &c.conns[i]
		if !cn.used() || !cn.rep {
			continue
		}
		unix.SetsockoptTimeval(cn.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &writeTimeout)
		if _, err := unix.Write(cn.fd, frame); err != nil {
			c.closeConn(i)
		}
	}
}

func (c *control) reply(cn *clientConn, frame []byte) {
	unix.SetsockoptTimeval(cn.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &writeTimeout)
	if _, err := unix.Write(cn.fd, frame); err != nil {
		cn.fd = -1 // caller closes the slot once it notices
	}
}

// handleConn reads and dispatches every complete frame currently
// buffered on cn, matching handle_conn's read-dispatch loop. Returns
// false if the connection should be torn down (EOF or protocol error),
// matching the reference's shutdown-on-anything-but-EAGAIN rule.
func (d *Daemon) handleConn(i int) bool {
	cn := &d.ctl.conns[i]
	rbuf := make([]byte, 4096)
	n, err := unix.Read(cn.fd, rbuf)
	if err != nil {
		errno, ok := err.(syscall.Errno)
		return ok && (errno == syscall.EAGAIN || errno == syscall.EWOULDBLOCK)
	}
	if n == 0 {
		return false
	}
	cn.buf = append(cn.buf, rbuf[:n]...)

	for {
		msg, consumed, err := ctlwire.Decode(cn.buf)
		if err != nil {
			if len(cn.buf) < ctlwire.MsgHeaderLen {
				return true // incomplete header, wait for more bytes
			}
			length := binary.LittleEndian.Uint32(cn.buf[0:4])
			if length >= ctlwire.MsgHeaderLen && length <= ctlwire.MaxMsgLen {
				return true // valid header, incomplete body
			}
			return false
		}
		cn.buf = cn.buf[consumed:]
		if !d.dispatch(cn, msg) {
			return false
		}
	}
}

// dispatch executes one decoded command and writes its reply, returning
// false if the connection should be closed afterward.
func (d *Daemon) dispatch(cn *clientConn, msg ctlwire.Msg) bool {
	switch msg.Cmd {
	case ctlwire.CmdStatus:
		d.ctl.reply(cn, d.buildStatusReply())
		cn.rep = false
	case ctlwire.CmdDevice:
		d.ctl.reply(cn, d.buildDeviceReply())
	case ctlwire.CmdScan:
		err := d.startVoidScan()
		d.ctl.reply(cn, errReply(err))
		if err == nil {
			cn.rep = true
		}
	case ctlwire.CmdNeutral:
		d.sup.OperMode = supplicant.ModeNeutral
		_, err := d.sup.StartDisconnect()
		d.ctl.reply(cn, errReply(err))
		cn.rep = true
		d.clearTimer()
	case ctlwire.CmdConnect:
		d.handleConnect(cn, msg)
	case ctlwire.CmdForget:
		attrs := ctlwire.ParseAttrs(msg.Payload)
		ssidAttr, ok := ctlwire.Find(attrs, ctlwire.AttrSSID)
		if !ok {
			d.ctl.reply(cn, errReply(supplicant.ErrInvalid))
			break
		}
		err := d.sup.Forget(ssidAttr.Payload)
		d.ctl.reply(cn, errReply(err))
	default:
		d.ctl.reply(cn, errReply(supplicant.ErrNoSys))
	}
	return cn.fd > 0
}

// handleConnect parses the SSID/PSK attributes and runs configure_station's
// precondition check first, replying with its errno (ENOKEY when an SSID
// is given with no PSK on file, EBUSY when not idle) exactly as
// dispatch_cmd does for a negative cmd_connect return. Only once that
// check passes does it send the ACK and defer to ContinueConnect,
// matching cmd_connect's documented ordering: "ACK to the command should
// precede any notifications caused by the command" — but the
// ENOKEY-determining step itself precedes the ACK, it is not deferred.
func (d *Daemon) handleConnect(cn *clientConn, msg ctlwire.Msg) {
	attrs := ctlwire.ParseAttrs(msg.Payload)
	var ssid []byte
	if a, ok := ctlwire.Find(attrs, ctlwire.AttrSSID); ok {
		ssid = append([]byte(nil), a.Payload...)
	}
	var psk *[32]byte
	if a, ok := ctlwire.Find(attrs, ctlwire.AttrPSK); ok {
		if len(a.Payload) != 32 {
			d.ctl.reply(cn, errReply(supplicant.ErrInvalid))
			return
		}
		var p [32]byte
		copy(p[:], a.Payload)
		psk = &p
	}

	if err := d.sup.ConfigureStation(ssid, psk); err != nil {
		d.ctl.reply(cn, errReply(err))
		return
	}

	d.sup.OperMode = supplicant.ModeOneShot
	cn.rep = true
	d.ctl.reply(cn, errReply(nil))
	d.clearTimer()

	err := d.sup.ContinueConnect(ssid)
	if rep, ok := supplicant.AsReport(err); ok {
		d.ctl.broadcast(reportFrame(rep))
	} else if err != nil && d.log != nil {
		d.log.Warnw("connect attempt failed to start", "error", err)
	}
}

// startVoidScan triggers a foreground scan on behalf of a CMD_WI_SCAN
// request, matching start_void_scan's plain TRIGGER_SCAN with no
// selection SSID.
func (d *Daemon) startVoidScan() error {
	_, err := d.sup.StartScan()
	return err
}

func errReply(err error) []byte {
	return ctlwire.Encode(errnoCmd(err), nil)
}

func errnoCmd(err error) int32 {
	if err == nil {
		return 0
	}
	if errno, ok := err.(syscall.Errno); ok {
		return -int32(errno)
	}
	return -int32(syscall.EIO)
}
