package endpoint

import (
	"context"
	"net/netip"

	"github.com/sagernet/sing-rpc/common/wire"
)

// stubEndpoint is a minimal IP transport used to exercise the shared code.
type stubEndpoint struct {
	IPEndpoint
	compress bool
}

func (e *stubEndpoint) String() string {
	return e.Protocol() + e.Options()
}

func (e *stubEndpoint) Options() string {
	options := e.IPEndpoint.Options()
	if e.compress {
		options += " -z"
	}
	return options
}

func (e *stubEndpoint) Encode(s *wire.OutputStream) error {
	err := e.IPEndpoint.Encode(s)
	if err != nil {
		return err
	}
	s.WriteBool(e.compress)
	return nil
}

func (e *stubEndpoint) Timeout() int32              { return -1 }
func (e *stubEndpoint) WithTimeout(int32) Endpoint  { return e }
func (e *stubEndpoint) Compress() bool              { return e.compress }
func (e *stubEndpoint) Datagram() bool              { return false }
func (e *stubEndpoint) Expand() ([]Endpoint, error) { return []Endpoint{e}, nil }
func (e *stubEndpoint) Transceiver() (Transceiver, Endpoint, error) {
	return nil, e, nil
}

func (e *stubEndpoint) WithCompress(compress bool) Endpoint {
	if compress == e.compress {
		return e
	}
	clone := *e
	clone.compress = compress
	return &clone
}

func (e *stubEndpoint) WithConnectionID(connectionID string) Endpoint {
	if connectionID == e.ConnectionID() {
		return e
	}
	clone := *e
	clone.IPEndpoint = NewIPEndpoint(e.Instance(), e.Host(), e.Port(), connectionID)
	return &clone
}

func (e *stubEndpoint) Info() Info {
	var info Info
	e.FillInfo(&info)
	info.Compress = e.compress
	return info
}

func (e *stubEndpoint) Acceptor(string) (Acceptor, Endpoint, error) {
	return nil, e, nil
}

func (e *stubEndpoint) Connectors(ctx context.Context, selection SelectionType) ([]Connector, error) {
	return e.ResolveConnectors(ctx, selection, newStubConnector)
}

func (e *stubEndpoint) ConnectorsAsync(ctx context.Context, selection SelectionType, callback func([]Connector, error)) {
	e.ResolveConnectorsAsync(ctx, selection, newStubConnector, callback)
}

func (e *stubEndpoint) Equivalent(other Endpoint) bool {
	stub, isStub := other.(*stubEndpoint)
	return isStub && e.SameAddress(stub.IPEndpoint)
}

func (e *stubEndpoint) Compare(other Endpoint) int {
	stub, isStub := other.(*stubEndpoint)
	if !isStub {
		return CompareType(e, other)
	}
	if e.compress != stub.compress {
		if !e.compress {
			return -1
		}
		return 1
	}
	return e.CompareIP(stub.IPEndpoint)
}

type stubConnector struct {
	address netip.AddrPort
}

func newStubConnector(address netip.AddrPort) Connector {
	return &stubConnector{address}
}

func (c *stubConnector) Connect(context.Context) (Transceiver, error) {
	return nil, nil
}

func (c *stubConnector) Type() int16 {
	return 99
}

func (c *stubConnector) String() string {
	return c.address.String()
}

type stubFactory struct {
	instance *Instance
}

func newStubFactory() *stubFactory {
	return &stubFactory{(&Instance{}).Derive(99, "stub", false)}
}

func (f *stubFactory) Type() int16 {
	return f.instance.Type
}

func (f *stubFactory) Protocol() string {
	return f.instance.Protocol
}

func (f *stubFactory) Parse(args []string, server bool) (Endpoint, []string, error) {
	var (
		ipOptions IPOptions
		compress  bool
	)
	unknown, err := ParseOptions(f.instance.Protocol, args, func(option Option, endpoint string) (bool, error) {
		if option.Name == "-z" {
			compress = true
			return true, option.NoArgument(endpoint)
		}
		return ipOptions.CheckOption(option, endpoint)
	})
	if err != nil {
		return nil, nil, err
	}
	ip, err := ipOptions.Build(f.instance, server, Describe(f.instance.Protocol, args))
	if err != nil {
		return nil, nil, err
	}
	return &stubEndpoint{IPEndpoint: ip, compress: compress}, unknown, nil
}

func (f *stubFactory) Decode(s *wire.InputStream) (Endpoint, error) {
	ip, err := ReadIPEndpoint(f.instance, s)
	if err != nil {
		return nil, err
	}
	compress, err := s.ReadBool()
	if err != nil {
		return nil, err
	}
	return &stubEndpoint{IPEndpoint: ip, compress: compress}, nil
}
