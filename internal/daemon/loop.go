package daemon

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"wsupp/internal/supplicant"
)

// pollSlot indices into the fixed part of the poll set; client
// connections follow starting at numFixedSlots.
const (
	slotSigPipe = iota
	slotNetlink
	slotRawsock
	slotControl
	slotRfkill
	numFixedSlots
)

// Run drives the single-threaded event loop until opermode reaches EXIT,
// matching wsupp.c's main loop. It performs the startup sequence (load
// any pinned SSID, issue the first foreground scan) then blocks in poll
// until a fd is ready or the armed timer expires.
func (d *Daemon) Run() error {
	d.watchSignals()

	d.pendingPin = d.loadPinnedSSID()
	d.sup.OperMode = supplicant.ModeNeutral
	if rep, err := d.sup.StartScan(); err == nil && rep != nil {
		d.ctl.broadcast(reportFrame(*rep))
	}

	for d.sup.OperMode != supplicant.ModeExit {
		timeout := -1
		if d.timerArmed {
			remaining := time.Until(d.timerDeadline)
			if remaining < 0 {
				remaining = 0
			}
			timeout = int(remaining / time.Millisecond)
		}

		fds := d.buildPollFds()
		n, err := unix.Poll(fds, timeout)
		switch {
		case err != nil:
			if err == unix.EINTR {
				continue
			}
			return err
		case n == 0:
			d.onTimerExpiry()
		default:
			if (fds[slotNetlink].Revents|fds[slotControl].Revents)&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
				return errors.New("daemon: netlink or control socket lost")
			}
			d.checkPolledFds(fds)
		}

		if atomic.LoadInt32(&sigtermPending) != 0 {
			atomic.StoreInt32(&sigtermPending, 0)
			d.requestShutdown()
		}
		if atomic.LoadInt32(&sigchldPending) != 0 {
			atomic.StoreInt32(&sigchldPending, 0)
			d.reapDHCP()
		}

		d.savePSKConfig()
	}

	d.savePSKConfig()
	return nil
}

func (d *Daemon) buildPollFds() []unix.PollFd {
	fds := make([]unix.PollFd, numFixedSlots, numFixedSlots+maxClientConns)
	fds[slotSigPipe] = unix.PollFd{Fd: int32(d.sigPipeR), Events: unix.POLLIN}
	fds[slotNetlink] = unix.PollFd{Fd: int32(d.nl.Fd()), Events: unix.POLLIN}
	fds[slotRawsock] = unix.PollFd{Fd: int32(d.raw.Fd()), Events: unix.POLLIN}
	fds[slotControl] = unix.PollFd{Fd: int32(d.ctl.fd), Events: unix.POLLIN}
	fds[slotRfkill] = unix.PollFd{Fd: int32(d.rfk.Fd()), Events: unix.POLLIN}
	for i := range d.ctl.conns {
		cn := &d.ctl.conns[i]
		if cn.used() {
			fds = append(fds, unix.PollFd{Fd: int32(cn.fd), Events: unix.POLLIN})
		} else {
			fds = append(fds, unix.PollFd{Fd: -1})
		}
	}
	return fds
}

func (d *Daemon) checkPolledFds(fds []unix.PollFd) {
	if fds[slotSigPipe].Revents&unix.POLLIN != 0 {
		drainSigPipe(d.sigPipeR)
	}
	if fds[slotNetlink].Revents&unix.POLLIN != 0 {
		d.handleNetlink()
	}
	if fds[slotRawsock].Revents&unix.POLLIN != 0 {
		d.handleRawsock()
	}
	if fds[slotControl].Revents&unix.POLLIN != 0 {
		d.ctl.accept()
	}
	if fds[slotRfkill].Revents&unix.POLLIN != 0 {
		d.handleRfkill()
	}
	for i := range d.ctl.conns {
		pf := fds[numFixedSlots+i]
		if pf.Fd < 0 {
			continue
		}
		if pf.Revents&unix.POLLIN != 0 {
			if !d.handleConn(i) {
				d.ctl.closeConn(i)
				continue
			}
		}
		if pf.Revents&^unix.POLLIN != 0 {
			d.ctl.closeConn(i)
		}
	}
}

// requestShutdown implements xshutdown: a first SIGINT/SIGTERM issues a
// disconnect (if connecting or connected) and sets opermode straight to
// EXIT without waiting for anything further; EXITREQ is never entered
// here, so a second signal finds the daemon already exiting.
func (d *Daemon) requestShutdown() {
	switch d.sup.OperMode {
	case supplicant.ModeExitReq, supplicant.ModeExit:
		d.sup.OperMode = supplicant.ModeExit
		return
	}
	switch d.sup.Auth {
	case supplicant.AuthIdle, supplicant.AuthNetDown:
		d.sup.OperMode = supplicant.ModeExit
		return
	}
	rep, err := d.sup.StartDisconnect()
	if err != nil {
		d.sup.OperMode = supplicant.ModeExit
		return
	}
	d.ctl.broadcast(reportFrame(*rep))
	// Transport.Disconnect is a synchronous netlink request/reply in
	// this daemon (unlike the kernel-driven async teardown the
	// reference's two-phase EXITREQ->EXIT split anticipates), so
	// authstate is already IDLE here and there is nothing further to
	// wait for.
	d.sup.OperMode = supplicant.ModeExit
}

func (d *Daemon) reapDHCP() {
	exited, err := d.sup.DHCP.Reap()
	if exited && err != nil && d.log != nil {
		d.log.Warnw("dhcp worker exited abnormally", "error", err)
	}
}

func (d *Daemon) savePSKConfig() {
	if err := d.sup.PSK.SaveConfig(); err != nil && d.log != nil {
		d.log.Warnw("saving psk store", "error", err)
	}
}
