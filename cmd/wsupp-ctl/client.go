package main

import (
	"fmt"
	"net"
	"os"

	"wsupp/internal/ctlwire"
)

// client is a short-lived connection to the daemon's control socket. Each
// invocation of this tool opens one connection, sends one command, reads
// zero or more asynchronous reports, then exits — unlike the daemon's own
// poll loop this process has no need to multiplex anything, so it is built
// on net.Dial rather than raw syscalls.
type client struct {
	conn net.Conn
	buf  []byte
}

func dial(path string) *client {
	conn, err := net.Dial("unix", path)
	if err != nil {
		fail("service is not running\n")
	}
	return &client{conn: conn}
}

func (c *client) close() {
	c.conn.Close()
}

func (c *client) send(frame []byte) {
	if _, err := c.conn.Write(frame); err != nil {
		fail("write: %s\n", err)
	}
}

// recv blocks for the next complete frame, matching recv_reply's blocking
// read-until-framed behavior.
func (c *client) recv() (ctlwire.Msg, bool) {
	for {
		if msg, n, err := ctlwire.Decode(c.buf); err == nil {
			c.buf = c.buf[n:]
			return msg, true
		}
		tmp := make([]byte, 4096)
		n, err := c.conn.Read(tmp)
		if err != nil || n == 0 {
			return ctlwire.Msg{}, false
		}
		c.buf = append(c.buf, tmp[:n]...)
	}
}

// sendRecvMsg sends frame and returns the first reply, matching
// send_recv_msg (the daemon always answers its own command before any
// asynchronous report).
func (c *client) sendRecvMsg(frame []byte) ctlwire.Msg {
	c.send(frame)
	msg, ok := c.recv()
	if !ok {
		fail("connection lost\n")
	}
	return msg
}

// sendRecvCmd sends frame and returns the reply's status code (0 success,
// negative errno otherwise), matching send_recv_cmd.
func (c *client) sendRecvCmd(frame []byte) int32 {
	return c.sendRecvMsg(frame).Cmd
}

// sendCheck sends frame and aborts the process on a non-success reply,
// matching send_check.
func (c *client) sendCheck(frame []byte) {
	if ret := c.sendRecvCmd(frame); ret < 0 {
		fail("send: %s\n", errnoName(ret))
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(0xFF)
}
