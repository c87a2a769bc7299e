package tcp

import (
	"context"
	"net/netip"
	"strconv"
	"strings"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/wire"
	"github.com/sagernet/sing-rpc/endpoint"
)

const (
	Type     int16 = 1
	Protocol       = "tcp"
)

var _ endpoint.Endpoint = (*Endpoint)(nil)

type Endpoint struct {
	endpoint.IPEndpoint
	timeout  int32
	compress bool
}

func newEndpoint(ip endpoint.IPEndpoint, timeout int32, compress bool) *Endpoint {
	return &Endpoint{
		IPEndpoint: ip,
		timeout:    timeout,
		compress:   compress,
	}
}

func (e *Endpoint) String() string {
	return e.Protocol() + e.Options()
}

func (e *Endpoint) Options() string {
	var builder strings.Builder
	builder.WriteString(e.IPEndpoint.Options())
	if e.timeout == -1 {
		builder.WriteString(" -t infinite")
	} else {
		builder.WriteString(" -t ")
		builder.WriteString(strconv.Itoa(int(e.timeout)))
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
	s.WriteInt(e.timeout)
	s.WriteBool(e.compress)
	return nil
}

func (e *Endpoint) Timeout() int32 {
	return e.timeout
}

func (e *Endpoint) WithTimeout(timeout int32) endpoint.Endpoint {
	if timeout == e.timeout {
		return e
	}
	return newEndpoint(e.IPEndpoint, timeout, e.compress)
}

func (e *Endpoint) Compress() bool {
	return e.compress
}

func (e *Endpoint) WithCompress(compress bool) endpoint.Endpoint {
	if compress == e.compress {
		return e
	}
	return newEndpoint(e.IPEndpoint, e.timeout, compress)
}

func (e *Endpoint) WithConnectionID(connectionID string) endpoint.Endpoint {
	if connectionID == e.ConnectionID() {
		return e
	}
	return e.withAddress(e.Host(), e.Port(), connectionID)
}

func (e *Endpoint) withAddress(host string, port int, connectionID string) *Endpoint {
	return newEndpoint(endpoint.NewIPEndpoint(e.Instance(), host, port, connectionID), e.timeout, e.compress)
}

func (e *Endpoint) Datagram() bool {
	return false
}

func (e *Endpoint) Info() endpoint.Info {
	var info endpoint.Info
	e.FillInfo(&info)
	info.Timeout = e.timeout
	info.Compress = e.compress
	return info
}

// Transceiver returns nil, stream transceivers come from the acceptor.
func (e *Endpoint) Transceiver() (endpoint.Transceiver, endpoint.Endpoint, error) {
	return nil, e, nil
}

// Acceptor listens on the endpoint address. The effective endpoint carries the bound port.
func (e *Endpoint) Acceptor(adapterName string) (endpoint.Acceptor, endpoint.Endpoint, error) {
	acceptor, err := listen(e, adapterName)
	if err != nil {
		return nil, nil, err
	}
	return acceptor, e.withAddress(e.Host(), acceptor.Port(), e.ConnectionID()), nil
}

func (e *Endpoint) Connectors(ctx context.Context, selection endpoint.SelectionType) ([]endpoint.Connector, error) {
	return e.ResolveConnectors(ctx, selection, e.createConnector)
}

func (e *Endpoint) ConnectorsAsync(ctx context.Context, selection endpoint.SelectionType, callback func([]endpoint.Connector, error)) {
	e.ResolveConnectorsAsync(ctx, selection, e.createConnector, callback)
}

func (e *Endpoint) createConnector(address netip.AddrPort) endpoint.Connector {
	return &Connector{
		instance:     e.Instance(),
		address:      address,
		timeout:      e.timeout,
		connectionID: e.ConnectionID(),
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
	tcpEndpoint, isTCP := other.(*Endpoint)
	return isTCP && e.SameAddress(tcpEndpoint.IPEndpoint)
}

// Compare orders by timeout, compression, then address.
func (e *Endpoint) Compare(other endpoint.Endpoint) int {
	tcpEndpoint, isTCP := other.(*Endpoint)
	if !isTCP {
		return endpoint.CompareType(e, other)
	}
	if e == tcpEndpoint {
		return 0
	}
	switch {
	case e.timeout < tcpEndpoint.timeout:
		return -1
	case e.timeout > tcpEndpoint.timeout:
		return 1
	}
	if e.compress != tcpEndpoint.compress {
		if !e.compress {
			return -1
		}
		return 1
	}
	return e.CompareIP(tcpEndpoint.IPEndpoint)
}
