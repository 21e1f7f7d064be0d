package daemon

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// newSelfPipe opens a non-blocking pipe used to wake the poll loop from
// signal-handling context. Per the design note this daemon follows in
// place of the reference's sigaction-masked ppoll (Go's runtime does not
// expose the same signal-masking primitive to user code): a background
// goroutine registered with signal.Notify only ever sets an atomic flag
// and writes one marker byte here — it never touches daemon state.
func newSelfPipe() (r, w int, err error) {
	fds := make([]int, 2)
	if err := syscall.Pipe2(fds, syscall.O_NONBLOCK|syscall.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func closeSelfPipe(r, w int) {
	unix.Close(r)
	unix.Close(w)
}

// sigchldPending and sigtermPending are set by the signal-forwarding
// goroutine and cleared by the event loop; the self-pipe merely wakes a
// blocked poll, these flags say why.
var sigchldPending int32
var sigtermPending int32

// watchSignals starts the forwarding goroutine. Called once from Run.
func (d *Daemon) watchSignals() {
	ch := make(chan os.Signal, 8)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCHLD)
	go func() {
		for sig := range ch {
			switch sig {
			case syscall.SIGCHLD:
				atomic.StoreInt32(&sigchldPending, 1)
			case syscall.SIGINT, syscall.SIGTERM:
				atomic.StoreInt32(&sigtermPending, 1)
			}
			unix.Write(d.sigPipeW, []byte{0})
		}
	}()
}

// drainSigPipe empties the self-pipe after a wakeup, following the
// standard self-pipe-trick discipline of always reading it dry.
func drainSigPipe(fd int) {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(fd, buf)
		if n <= 0 || err != nil {
			return
		}
	}
}
