package tcp

import (
	"context"
	"net"
	"net/netip"
	"time"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/endpoint"
)

var _ endpoint.Connector = (*Connector)(nil)

type Connector struct {
	instance     *endpoint.Instance
	address      netip.AddrPort
	timeout      int32
	connectionID string
}

// Connect dials the address, bounded by the endpoint timeout unless it is infinite.
func (c *Connector) Connect(ctx context.Context) (endpoint.Transceiver, error) {
	var dialer net.Dialer
	if c.timeout > 0 {
		dialer.Timeout = time.Duration(c.timeout) * time.Millisecond
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.address.String())
	if err != nil {
		return nil, E.Cause(err, "connect ", c.address)
	}
	transceiver, err := newTransceiver(conn.(*net.TCPConn))
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.instance.Log().Debug("connected ", Protocol, " transceiver\n", transceiver)
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
