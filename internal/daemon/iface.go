package daemon

import (
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// resolveInterface looks up ifname's kernel index and hardware address,
// the startup step wsupp.c's setup_iface performs via SIOCGIFINDEX and
// SIOCGIFHWADDR, done here over rtnetlink the way Brightgate's
// ap_common/netctl resolves interfaces.
func resolveInterface(ifname string) (ifindex uint32, mac [6]byte, err error) {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return 0, mac, errors.Wrapf(err, "daemon: resolving interface %s", ifname)
	}
	attrs := link.Attrs()
	if len(attrs.HardwareAddr) != 6 {
		return 0, mac, errors.Errorf("daemon: interface %s has no 6-byte hardware address", ifname)
	}
	copy(mac[:], attrs.HardwareAddr)
	return uint32(attrs.Index), mac, nil
}
