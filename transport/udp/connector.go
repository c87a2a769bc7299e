package udp

import (
	"context"
	"net"
	"net/netip"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/endpoint"
)

var _ endpoint.Connector = (*Connector)(nil)

type Connector struct {
	instance           *endpoint.Instance
	address            netip.AddrPort
	multicastInterface string
	multicastTTL       int
	connectionID       string
}

func (c *Connector) Connect(ctx context.Context) (endpoint.Transceiver, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, networkOf(c.address.Addr()), c.address.String())
	if err != nil {
		return nil, E.Cause(err, "connect ", c.address)
	}
	udpConn := conn.(*net.UDPConn)
	if c.address.Addr().IsMulticast() {
		err = configureSender(udpConn, c.address.Addr(), c.multicastInterface, c.multicastTTL)
		if err != nil {
			udpConn.Close()
			return nil, E.Cause(err, "configure multicast sender")
		}
	}
	transceiver, err := newTransceiver(udpConn, c.instance.Log(), true, false)
	if err != nil {
		udpConn.Close()
		return nil, err
	}
	return transceiver, nil
}

func (c *Connector) Type() int16 {
	return Type
}

func (c *Connector) Address() netip.AddrPort {
	return c.address
}

func (c *Connector) ConnectionID() string {
	return c.connectionID
}

func (c *Connector) String() string {
	return c.address.String()
}
