//go:build !linux

package endpoint

import (
	"net"
	"net/netip"
)

func localAddresses() ([]netip.Addr, error) {
	interfaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	var addresses []netip.Addr
	for _, interfaceAddr := range interfaceAddrs {
		ipNet, isIPNet := interfaceAddr.(*net.IPNet)
		if !isIPNet {
			continue
		}
		address, loaded := netip.AddrFromSlice(ipNet.IP)
		if !loaded || address.IsLinkLocalUnicast() {
			continue
		}
		addresses = append(addresses, address.Unmap())
	}
	return addresses, nil
}
