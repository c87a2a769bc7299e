package udp

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"strings"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/wire"
	"github.com/sagernet/sing-rpc/endpoint"
)

const (
	Type     int16 = 3
	Protocol       = "udp"
)

var _ endpoint.Endpoint = (*Endpoint)(nil)

// Endpoint is a datagram endpoint, optionally bound to a multicast group.
// The connect flag, multicast interface and TTL are local settings and never marshaled.
type Endpoint struct {
	endpoint.IPEndpoint
	multicastInterface string
	multicastTTL       int
	connect            bool
	compress           bool
}

// Info extends the common snapshot with the multicast settings.
type Info struct {
	endpoint.Info
	MulticastInterface string
	MulticastTTL       int
}

func newEndpoint(ip endpoint.IPEndpoint, multicastInterface string, multicastTTL int, connect bool, compress bool) *Endpoint {
	return &Endpoint{
		IPEndpoint:         ip,
		multicastInterface: multicastInterface,
		multicastTTL:       multicastTTL,
		connect:            connect,
		compress:           compress,
	}
}

func (e *Endpoint) String() string {
	return e.Protocol() + e.Options()
}

func (e *Endpoint) Options() string {
	var builder strings.Builder
	builder.WriteString(e.IPEndpoint.Options())
	if e.multicastInterface != "" {
		builder.WriteString(" --interface ")
		builder.WriteString(e.multicastInterface)
	}
	if e.multicastTTL != -1 {
		builder.WriteString(" --ttl ")
		builder.WriteString(strconv.Itoa(e.multicastTTL))
	}
	if e.connect {
		builder.WriteString(" -c")
	}
	if e.compress {
		builder.WriteString(" -z")
	}
	return builder.String()
}

func (e *Endpoint) Encode(s *wire.OutputStream) error {
	err := e.IPEndpoint.Encode(s)
	if err != nil {
		return err
	}
	if s.Encoding() == wire.Encoding_1_0 {
		s.WriteVersion(wire.Protocol_1_0)
		s.WriteVersion(wire.Encoding_1_0)
	}
	s.WriteBool(e.compress)
	return nil
}

// Timeout is always infinite, datagrams have no connection timeout.
func (e *Endpoint) Timeout() int32 {
	return -1
}

func (e *Endpoint) WithTimeout(timeout int32) endpoint.Endpoint {
	return e
}

func (e *Endpoint) Compress() bool {
	return e.compress
}

func (e *Endpoint) WithCompress(compress bool) endpoint.Endpoint {
	if compress == e.compress {
		return e
	}
	return newEndpoint(e.IPEndpoint, e.multicastInterface, e.multicastTTL, e.connect, compress)
}

func (e *Endpoint) WithConnectionID(connectionID string) endpoint.Endpoint {
	if connectionID == e.ConnectionID() {
		return e
	}
	return e.withAddress(e.Host(), e.Port(), connectionID)
}

func (e *Endpoint) withAddress(host string, port int, connectionID string) *Endpoint {
	ip := endpoint.NewIPEndpoint(e.Instance(), host, port, connectionID)
	return newEndpoint(ip, e.multicastInterface, e.multicastTTL, e.connect, e.compress)
}

func (e *Endpoint) Datagram() bool {
	return true
}

func (e *Endpoint) Connect() bool {
	return e.connect
}

func (e *Endpoint) MulticastInterface() string {
	return e.multicastInterface
}

// MulticastTTL returns -1 when unset.
func (e *Endpoint) MulticastTTL() int {
	return e.multicastTTL
}

func (e *Endpoint) Info() endpoint.Info {
	return e.UDPInfo().Info
}

func (e *Endpoint) UDPInfo() Info {
	var info Info
	e.FillInfo(&info.Info)
	info.Datagram = true
	info.Timeout = -1
	info.Compress = e.compress
	info.MulticastInterface = e.multicastInterface
	info.MulticastTTL = e.multicastTTL
	return info
}

// Transceiver binds the local socket. A multicast host joins the group on the
// configured interface. The effective endpoint carries the bound port.
func (e *Endpoint) Transceiver() (endpoint.Transceiver, endpoint.Endpoint, error) {
	transceiver, err := listen(e)
	if err != nil {
		return nil, nil, err
	}
	port := transceiver.LocalAddr().(*net.UDPAddr).Port
	return transceiver, e.withAddress(e.Host(), port, e.ConnectionID()), nil
}

// Acceptor returns no acceptor, datagram endpoints serve through their transceiver.
func (e *Endpoint) Acceptor(adapterName string) (endpoint.Acceptor, endpoint.Endpoint, error) {
	return nil, e, nil
}

func (e *Endpoint) Connectors(ctx context.Context, selection endpoint.SelectionType) ([]endpoint.Connector, error) {
	return e.ResolveConnectors(ctx, selection, e.createConnector)
}

func (e *Endpoint) ConnectorsAsync(ctx context.Context, selection endpoint.SelectionType, callback func([]endpoint.Connector, error)) {
	e.ResolveConnectorsAsync(ctx, selection, e.createConnector, callback)
}

func (e *Endpoint) createConnector(address netip.AddrPort) endpoint.Connector {
	return &Connector{
		instance:           e.Instance(),
		address:            address,
		multicastInterface: e.multicastInterface,
		multicastTTL:       e.multicastTTL,
		connectionID:       e.ConnectionID(),
	}
}

func (e *Endpoint) Expand() ([]endpoint.Endpoint, error) {
	hosts, err := e.ExpandHosts()
	if err != nil {
		return nil, E.Cause(err, "expand ", e)
	}
	if len(hosts) == 0 {
		return []endpoint.Endpoint{e}, nil
	}
	endpoints := make([]endpoint.Endpoint, 0, len(hosts))
	for _, host := range hosts {
		endpoints = append(endpoints, e.withAddress(host, e.Port(), e.ConnectionID()))
	}
	return endpoints, nil
}

func (e *Endpoint) Equivalent(other endpoint.Endpoint) bool {
	udpEndpoint, isUDP := other.(*Endpoint)
	if !isUDP {
		return false
	}
	return e.SameAddress(udpEndpoint.IPEndpoint) && e.multicastInterface == udpEndpoint.multicastInterface
}

// Compare orders by connect flag, compression, TTL, interface, then address.
func (e *Endpoint) Compare(other endpoint.Endpoint) int {
	udpEndpoint, isUDP := other.(*Endpoint)
	if !isUDP {
		return endpoint.CompareType(e, other)
	}
	if e == udpEndpoint {
		return 0
	}
	if c := compareBool(e.connect, udpEndpoint.connect); c != 0 {
		return c
	}
	if c := compareBool(e.compress, udpEndpoint.compress); c != 0 {
		return c
	}
	switch {
	case e.multicastTTL < udpEndpoint.multicastTTL:
		return -1
	case e.multicastTTL > udpEndpoint.multicastTTL:
		return 1
	}
	if c := strings.Compare(e.multicastInterface, udpEndpoint.multicastInterface); c != 0 {
		return c
	}
	return e.CompareIP(udpEndpoint.IPEndpoint)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
