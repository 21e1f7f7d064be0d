package rfkill

import (
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// BringUp sets ifname administratively up via rtnetlink, the equivalent
// of the reference's bring_iface_up ioctl sequence
// (SIOCGIFFLAGS/SIOCSIFFLAGS), done here the way Brightgate's
// ap_common/netctl package brings interfaces up.
func BringUp(ifname string) error {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return errors.Wrapf(err, "rfkill: resolving link %s", ifname)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return errors.Wrapf(err, "rfkill: bringing up %s", ifname)
	}
	return nil
}
