// Package dhcpsup supervises the external DHCP client binary that
// configures the interface's IP layer once a connection is established,
// grounded on wsupp_ifmon.c's fork/exec/reap of its "dhcp" helper and
// adapted from Brightgate's aputil.Child subprocess pattern.
package dhcpsup

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
)

// DefaultPath is the external worker invoked on connect, matching the
// reference's hardcoded "dhcp" child.
const DefaultPath = "dhcp"

// Supervisor tracks at most one running DHCP child process for the
// daemon's managed interface.
type Supervisor struct {
	path string
	cmd  *exec.Cmd
	pid  int
}

// New returns a Supervisor that will exec path (argv[0]) with the
// interface name as argv[1] on Start.
func New(path string) *Supervisor {
	if path == "" {
		path = DefaultPath
	}
	return &Supervisor{path: path}
}

// Running reports whether a child is currently tracked.
func (s *Supervisor) Running() bool {
	return s.pid != 0
}

// Pid returns the tracked child's pid, or 0 if none is running.
func (s *Supervisor) Pid() int {
	return s.pid
}

// Start forks and execs the DHCP worker for ifname. Called on entry to
// CONNECTED. It is an error to call Start while a child is already
// tracked; callers must Stop first.
func (s *Supervisor) Start(ifname string) error {
	if s.Running() {
		return errors.Errorf("dhcpsup: child already running as pid %d", s.pid)
	}

	cmd := exec.Command(s.path, ifname)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "dhcpsup: starting %s %s", s.path, ifname)
	}

	s.cmd = cmd
	s.pid = cmd.Process.Pid
	return nil
}

// Stop sends SIGTERM to the tracked child, if any. It does not wait for
// the child to exit; that happens via Reap once SIGCHLD arrives. Called
// on disconnect or shutdown.
func (s *Supervisor) Stop() error {
	if !s.Running() {
		return nil
	}
	err := s.cmd.Process.Signal(syscall.SIGTERM)
	if err != nil && err != os.ErrProcessDone {
		return errors.Wrapf(err, "dhcpsup: signaling pid %d", s.pid)
	}
	return nil
}

// Reap performs a non-blocking wait for the tracked child, intended to
// be called once per SIGCHLD delivery. It returns (false, nil) if no
// child is tracked or the tracked child has not yet exited. A non-zero
// exit or death by signal is reported via the returned error but is
// never fatal to the caller.
func (s *Supervisor) Reap() (exited bool, err error) {
	if !s.Running() {
		return false, nil
	}

	var ws syscall.WaitStatus
	wpid, werr := syscall.Wait4(s.pid, &ws, syscall.WNOHANG, nil)
	if werr != nil {
		if werr == syscall.ECHILD {
			s.clear()
			return true, nil
		}
		return false, errors.Wrap(werr, "dhcpsup: wait4")
	}
	if wpid == 0 {
		// Still running.
		return false, nil
	}

	s.clear()
	if ws.Exited() && ws.ExitStatus() != 0 {
		return true, errors.Errorf("dhcpsup: worker exited with status %d", ws.ExitStatus())
	}
	if ws.Signaled() {
		return true, errors.Errorf("dhcpsup: worker killed by signal %v", ws.Signal())
	}
	return true, nil
}

func (s *Supervisor) clear() {
	s.cmd = nil
	s.pid = 0
}
