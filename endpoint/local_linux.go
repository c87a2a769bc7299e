package endpoint

import (
	"net/netip"

	"github.com/vishvananda/netlink"
)

func localAddresses() ([]netip.Addr, error) {
	addrList, err := netlink.AddrList(nil, netlink.FAMILY_ALL)
	if err != nil {
		return nil, err
	}
	var addresses []netip.Addr
	for _, addr := range addrList {
		if addr.IPNet == nil {
			continue
		}
		address, loaded := netip.AddrFromSlice(addr.IP)
		if !loaded || address.IsLinkLocalUnicast() {
			continue
		}
		addresses = append(addresses, address.Unmap())
	}
	return addresses, nil
}
