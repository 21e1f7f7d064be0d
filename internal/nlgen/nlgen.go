// Package nlgen is a thin generic-netlink (nl80211) transport: family-name
// resolution, attribute packing/parsing, and a bounded synchronous
// request/reply plus multicast-event receive. It deliberately stays
// minimal — the daemon's event loop owns framing decisions; this package
// only gets bytes on and off the wire, the same scope the reference's
// netlink/*.c files hold.
package nlgen

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	nlmsgHdrLen  = 16
	genlHdrLen   = 4
	nlaHdrLen    = 4
	ctrlFamilyID = unix.GENL_ID_CTRL

	genlCtrlCmdGetFamily  = 3
	genlCtrlAttrFamilyID  = 1
	genlCtrlAttrFamilyNam = 2
	genlCtrlAttrMcastGrps = 7
	mcastGrpAttrName      = 1
	mcastGrpAttrID        = 2

	recvBufSize = 8192
)

// Conn is a generic-netlink socket bound to the kernel.
type Conn struct {
	fd  int
	seq uint32
	pid uint32
}

// Open creates and binds an AF_NETLINK/NETLINK_GENERIC socket.
func Open() (*Conn, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_GENERIC)
	if err != nil {
		return nil, errors.Wrap(err, "nlgen: socket")
	}
	sa := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "nlgen: bind")
	}
	addr, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "nlgen: getsockname")
	}
	nl, ok := addr.(*unix.SockaddrNetlink)
	if !ok {
		unix.Close(fd)
		return nil, errors.New("nlgen: unexpected sockaddr type")
	}
	return &Conn{fd: fd, pid: nl.Pid}, nil
}

// Fd returns the underlying file descriptor, for inclusion in the daemon's
// poll set.
func (c *Conn) Fd() int { return c.fd }

// Close releases the socket.
func (c *Conn) Close() error {
	return unix.Close(c.fd)
}

func (c *Conn) nextSeq() uint32 {
	c.seq++
	return c.seq
}

// buildMessage assembles one nlmsghdr + genlmsghdr + attribute payload.
func buildMessage(msgType uint16, flags uint16, seq, pid uint32, cmd uint8, attrs []byte) []byte {
	total := nlmsgHdrLen + genlHdrLen + len(attrs)
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(total))
	binary.LittleEndian.PutUint16(buf[4:6], msgType)
	binary.LittleEndian.PutUint16(buf[6:8], flags)
	binary.LittleEndian.PutUint32(buf[8:12], seq)
	binary.LittleEndian.PutUint32(buf[12:16], pid)
	buf[16] = cmd
	buf[17] = 1 // version
	// buf[18:20] reserved, left zero
	copy(buf[20:], attrs)
	return buf
}

// Request sends one generic-netlink request and reads the reply with a
// single recvfrom, bounded by recvBufSize. The socket is non-blocking and
// the read is not retried, so a reply the kernel has not yet queued comes
// back as an EAGAIN error; §5 frames netlink I/O as effectively
// synchronous from the event loop's perspective.
func (c *Conn) Request(family uint16, cmd uint8, attrs []byte) ([]byte, error) {
	req := buildMessage(family, unix.NLM_F_REQUEST|unix.NLM_F_ACK, c.nextSeq(), c.pid, cmd, attrs)
	if err := unix.Sendto(c.fd, req, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		return nil, errors.Wrap(err, "nlgen: sendto")
	}
	return c.recvOne()
}

func (c *Conn) recvOne() ([]byte, error) {
	buf := make([]byte, recvBufSize)
	n, _, err := unix.Recvfrom(c.fd, buf, 0)
	if err != nil {
		return nil, errors.Wrap(err, "nlgen: recvfrom")
	}
	if n < nlmsgHdrLen {
		return nil, errors.New("nlgen: short netlink message")
	}
	msgType := binary.LittleEndian.Uint16(buf[4:6])
	if msgType == unix.NLMSG_ERROR {
		errno := int32(binary.LittleEndian.Uint32(buf[nlmsgHdrLen : nlmsgHdrLen+4]))
		if errno != 0 {
			return nil, errors.Wrapf(unix.Errno(-errno), "nlgen: netlink error reply")
		}
		return nil, nil
	}
	return buf[nlmsgHdrLen+genlHdrLen : n], nil
}

// ReceiveEvent performs one non-blocking read of a multicast event,
// returning the generic-netlink part of the message (the 4-byte genl
// header, command byte first, followed by the attributes) or an error if
// the read would block or failed.
func (c *Conn) ReceiveEvent() ([]byte, error) {
	buf := make([]byte, recvBufSize)
	n, _, err := unix.Recvfrom(c.fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		return nil, err
	}
	if n < nlmsgHdrLen+genlHdrLen {
		return nil, errors.New("nlgen: short event message")
	}
	return buf[nlmsgHdrLen:n], nil
}

// JoinGroup subscribes the socket to a multicast group, the moral
// equivalent of the reference's nl_subscribe.
func (c *Conn) JoinGroup(groupID uint32) error {
	return unix.SetsockoptInt(c.fd, unix.SOL_NETLINK, unix.NETLINK_ADD_MEMBERSHIP, int(groupID))
}

// ResolveFamily asks the kernel's generic-netlink controller for the
// numeric family id of a named family (e.g. "nl80211"), following
// CTRL_CMD_GETFAMILY the way genl_fam.c does.
func (c *Conn) ResolveFamily(name string) (uint16, error) {
	attrs := packAttrString(genlCtrlAttrFamilyNam, name)
	reply, err := c.Request(ctrlFamilyID, genlCtrlCmdGetFamily, attrs)
	if err != nil {
		return 0, errors.Wrapf(err, "nlgen: resolving family %q", name)
	}
	for _, a := range parseAttrs(reply) {
		if a.Type == genlCtrlAttrFamilyID && len(a.Value) >= 2 {
			return binary.LittleEndian.Uint16(a.Value), nil
		}
	}
	return 0, errors.Errorf("nlgen: family %q not found", name)
}

// ResolveMcastGroup looks up a named multicast group's numeric id within a
// family's CTRL_CMD_GETFAMILY reply attributes, e.g. "scan" or "mlme"
// within nl80211.
func (c *Conn) ResolveMcastGroup(familyName, groupName string) (uint32, error) {
	attrs := packAttrString(genlCtrlAttrFamilyNam, familyName)
	reply, err := c.Request(ctrlFamilyID, genlCtrlCmdGetFamily, attrs)
	if err != nil {
		return 0, err
	}
	for _, a := range parseAttrs(reply) {
		if a.Type != genlCtrlAttrMcastGrps {
			continue
		}
		for _, grp := range parseAttrs(a.Value) {
			var id uint32
			var name string
			for _, inner := range parseAttrs(grp.Value) {
				switch inner.Type {
				case mcastGrpAttrID:
					if len(inner.Value) >= 4 {
						id = binary.LittleEndian.Uint32(inner.Value)
					}
				case mcastGrpAttrName:
					name = trimNUL(inner.Value)
				}
			}
			if name == groupName {
				return id, nil
			}
		}
	}
	return 0, errors.Errorf("nlgen: multicast group %q/%q not found", familyName, groupName)
}
