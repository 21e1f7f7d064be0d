package eapol

import (
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// EtherTypePAE is the IEEE 802.1X EtherType EAPOL frames use.
const EtherTypePAE = 0x888E

// RawSock is an AF_PACKET/SOCK_RAW socket bound to a single interface and
// EtherType 0x888E, grounded on wsupp_eapol.c:open_rawsock but carrying
// full Ethernet frames (rather than the reference's SOCK_DGRAM, which lets
// the kernel strip/fill the link header) so frame construction can go
// through gopacket, the same serializer Brightgate's ap_common/network
// package uses for its own link-layer frames.
type RawSock struct {
	fd      int
	ifindex int
	ownMAC  [6]byte
}

// OpenRawSock opens and binds the EAPOL raw socket for ifindex, owned by a
// link with hardware address ownMAC.
func OpenRawSock(ifindex int, ownMAC [6]byte) (*RawSock, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, int(htons(EtherTypePAE)))
	if err != nil {
		return nil, errors.Wrap(err, "eapol: socket(AF_PACKET)")
	}
	sa := &unix.SockaddrLinklayer{
		Protocol: htons(EtherTypePAE),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "eapol: bind(AF_PACKET)")
	}
	return &RawSock{fd: fd, ifindex: ifindex, ownMAC: ownMAC}, nil
}

// Fd returns the underlying file descriptor, for the daemon's poll set.
func (r *RawSock) Fd() int { return r.fd }

// Close releases the socket.
func (r *RawSock) Close() error {
	return unix.Close(r.fd)
}

// Send wraps an EAPOL frame body in an Ethernet header addressed to peer
// (the AP's BSSID) and transmits it.
func (r *RawSock) Send(peer [6]byte, eapolBody []byte) error {
	eth := &layers.Ethernet{
		SrcMAC:       r.ownMAC[:],
		DstMAC:       peer[:],
		EthernetType: layers.EthernetType(EtherTypePAE),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	payload := gopacket.Payload(eapolBody)
	if err := gopacket.SerializeLayers(buf, opts, eth, payload); err != nil {
		return errors.Wrap(err, "eapol: serializing frame")
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(EtherTypePAE),
		Ifindex:  r.ifindex,
		Halen:    6,
	}
	copy(sa.Addr[:6], peer[:])
	return unix.Sendto(r.fd, buf.Bytes(), 0, sa)
}

// Recv reads one pending frame, validates its EtherType, and returns the
// EAPOL body plus the source MAC. Returns an error satisfying
// unix.EAGAIN when nothing is pending, and a plain error for any frame
// whose EtherType isn't 0x888E (the caller discards those silently).
func (r *RawSock) Recv() ([]byte, [6]byte, error) {
	buf := make([]byte, 2048)
	n, _, err := unix.Recvfrom(r.fd, buf, 0)
	if err != nil {
		return nil, [6]byte{}, err
	}
	pkt := gopacket.NewPacket(buf[:n], layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, [6]byte{}, errors.New("eapol: not an Ethernet frame")
	}
	eth := ethLayer.(*layers.Ethernet)
	if eth.EthernetType != layers.EthernetType(EtherTypePAE) {
		return nil, [6]byte{}, errors.New("eapol: unexpected EtherType")
	}
	var sender [6]byte
	copy(sender[:], eth.SrcMAC)
	return append([]byte(nil), eth.Payload...), sender, nil
}

func htons(v uint16) uint16 {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return binary.LittleEndian.Uint16(b)
}
