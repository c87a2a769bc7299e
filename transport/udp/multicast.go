package udp

import (
	"net"
	"net/netip"

	E "github.com/sagernet/sing-rpc/common/exceptions"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// multicastInterface finds an interface by name or by one of its addresses.
// An empty name selects the system default.
func multicastInterface(name string) (*net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	netInterface, err := net.InterfaceByName(name)
	if err == nil {
		return netInterface, nil
	}
	address, parseErr := netip.ParseAddr(name)
	if parseErr != nil {
		return nil, E.Cause(err, "find multicast interface ", name)
	}
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, E.Cause(err, "list interfaces")
	}
	for i := range interfaces {
		addrs, err := interfaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, isIPNet := addr.(*net.IPNet)
			if !isIPNet {
				continue
			}
			if current, loaded := netip.AddrFromSlice(ipNet.IP); loaded && current.Unmap() == address.Unmap() {
				return &interfaces[i], nil
			}
		}
	}
	return nil, E.New("no interface with address ", name)
}

func joinGroup(conn *net.UDPConn, group netip.Addr, interfaceName string) error {
	netInterface, err := multicastInterface(interfaceName)
	if err != nil {
		return err
	}
	groupAddr := &net.UDPAddr{IP: group.AsSlice()}
	if group.Is4() {
		return ipv4.NewPacketConn(conn).JoinGroup(netInterface, groupAddr)
	}
	return ipv6.NewPacketConn(conn).JoinGroup(netInterface, groupAddr)
}

// configureSender applies the outgoing interface and TTL. ttl -1 keeps the system default.
func configureSender(conn *net.UDPConn, group netip.Addr, interfaceName string, ttl int) error {
	netInterface, err := multicastInterface(interfaceName)
	if err != nil {
		return err
	}
	if group.Is4() {
		packetConn := ipv4.NewPacketConn(conn)
		if netInterface != nil {
			err = packetConn.SetMulticastInterface(netInterface)
			if err != nil {
				return E.Cause(err, "set multicast interface")
			}
		}
		if ttl != -1 {
			err = packetConn.SetMulticastTTL(ttl)
			if err != nil {
				return E.Cause(err, "set multicast ttl")
			}
		}
		return nil
	}
	packetConn := ipv6.NewPacketConn(conn)
	if netInterface != nil {
		err = packetConn.SetMulticastInterface(netInterface)
		if err != nil {
			return E.Cause(err, "set multicast interface")
		}
	}
	if ttl != -1 {
		err = packetConn.SetMulticastHopLimit(ttl)
		if err != nil {
			return E.Cause(err, "set multicast hop limit")
		}
	}
	return nil
}
