package udp

import (
	"context"
	"net"
	"net/netip"
	"sync"

	"github.com/sagernet/sing-rpc/common"
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/endpoint"

	"github.com/sirupsen/logrus"
)

var ErrNoPeer = E.New("udp: no peer to reply to")

var _ endpoint.Transceiver = (*Transceiver)(nil)

// Transceiver reads and writes datagrams on one socket. A server transceiver replies to
// the latest peer, or only talks to the first peer in connect mode. A client transceiver
// is connected to its remote address.
type Transceiver struct {
	*net.UDPConn
	fd         int
	logger     logrus.FieldLogger
	connected  bool
	connect    bool
	forceAddr6 bool

	access sync.Mutex
	peer   netip.AddrPort
}

func listen(e *Endpoint) (*Transceiver, error) {
	instance := e.Instance()
	bind, err := bindAddress(e)
	if err != nil {
		return nil, err
	}
	group := bind.Addr()
	multicast := group.IsMulticast()
	if multicast {
		// Receive on the group port from any local address, membership filters the traffic.
		bind = netip.AddrPortFrom(unspecified(group), bind.Port())
	}
	udpConn, err := net.ListenUDP(networkOf(bind.Addr()), net.UDPAddrFromAddrPort(bind))
	if err != nil {
		return nil, E.Cause(err, "listen ", e)
	}
	if multicast {
		err = joinGroup(udpConn, group, e.multicastInterface)
		if err != nil {
			udpConn.Close()
			return nil, E.Cause(err, "join multicast group ", group)
		}
	}
	transceiver, err := newTransceiver(udpConn, instance.Log(), false, e.connect)
	if err != nil {
		udpConn.Close()
		return nil, err
	}
	transceiver.forceAddr6 = udpConn.LocalAddr().(*net.UDPAddr).IP.To4() == nil
	return transceiver, nil
}

func bindAddress(e *Endpoint) (netip.AddrPort, error) {
	if e.Host() == "" {
		// The zero address binds every family the host supports.
		return netip.AddrPortFrom(netip.Addr{}, uint16(e.Port())), nil
	}
	if address, err := netip.ParseAddr(e.Host()); err == nil {
		return netip.AddrPortFrom(address.Unmap(), uint16(e.Port())), nil
	}
	addresses, err := e.Resolve(context.Background(), endpoint.SelectionOrdered)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return addresses[0], nil
}

func newTransceiver(udpConn *net.UDPConn, logger logrus.FieldLogger, connected bool, connect bool) (*Transceiver, error) {
	fd, err := common.GetFileDescriptor(udpConn)
	if err != nil {
		return nil, E.Cause(err, "get udp socket descriptor")
	}
	return &Transceiver{
		UDPConn:   udpConn,
		fd:        fd,
		logger:    logger,
		connected: connected,
		connect:   connect,
	}, nil
}

func (t *Transceiver) FD() int {
	return t.fd
}

func (t *Transceiver) Protocol() string {
	return Protocol
}

// Read returns the next datagram. In connect mode a datagram from another peer than the
// first one is dropped and Read returns zero bytes, so a ready socket is read only once.
func (t *Transceiver) Read(p []byte) (int, error) {
	if t.connected {
		return t.UDPConn.Read(p)
	}
	n, addr, err := t.ReadFromUDPAddrPort(p)
	if err != nil {
		return 0, err
	}
	addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
	t.access.Lock()
	defer t.access.Unlock()
	switch {
	case !t.connect || !t.peer.IsValid():
		t.peer = addr
	case t.peer != addr:
		t.logger.Debug("drop datagram from ", addr, ", connected to ", t.peer)
		return 0, nil
	}
	return n, nil
}

func (t *Transceiver) Write(p []byte) (int, error) {
	if t.connected {
		return t.UDPConn.Write(p)
	}
	destination := t.Peer()
	if !destination.IsValid() {
		return 0, ErrNoPeer
	}
	if t.forceAddr6 && destination.Addr().Is4() {
		destination = netip.AddrPortFrom(netip.AddrFrom16(destination.Addr().As16()), destination.Port())
	}
	return t.WriteToUDPAddrPort(p, destination)
}

// Peer returns the address replies are sent to.
func (t *Transceiver) Peer() netip.AddrPort {
	if t.connected {
		return t.RemoteAddr().(*net.UDPAddr).AddrPort()
	}
	t.access.Lock()
	defer t.access.Unlock()
	return t.peer
}

func (t *Transceiver) String() string {
	local := t.LocalAddr().String()
	if peer := t.Peer(); peer.IsValid() {
		return "local address = " + local + "\nremote address = " + peer.String()
	}
	return "local address = " + local + "\nremote address = <not connected>"
}

func networkOf(address netip.Addr) string {
	if address.Is4() {
		return "udp4"
	}
	return "udp"
}

func unspecified(address netip.Addr) netip.Addr {
	if address.Is4() {
		return netip.IPv4Unspecified()
	}
	return netip.IPv6Unspecified()
}
