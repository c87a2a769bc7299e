package udp

import (
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/wire"
	"github.com/sagernet/sing-rpc/endpoint"
)

var _ endpoint.Factory = (*Factory)(nil)

type Factory struct {
	instance *endpoint.Instance
}

// NewFactory derives the udp instance from the shared settings in template.
func NewFactory(template *endpoint.Instance) *Factory {
	return &Factory{template.Derive(Type, Protocol, false)}
}

func (f *Factory) Type() int16 {
	return Type
}

func (f *Factory) Protocol() string {
	return Protocol
}

func (f *Factory) Instance() *endpoint.Instance {
	return f.instance
}

func (f *Factory) Parse(args []string, server bool) (endpoint.Endpoint, []string, error) {
	builder := options{
		instance:     f.instance,
		multicastTTL: -1,
	}
	unknown, err := endpoint.ParseOptions(Protocol, args, builder.check)
	if err != nil {
		return nil, nil, err
	}
	ip, err := builder.ip.Build(f.instance, server, endpoint.Describe(Protocol, args))
	if err != nil {
		return nil, nil, err
	}
	return newEndpoint(ip, builder.multicastInterface, builder.multicastTTL, builder.connect, builder.compress), unknown, nil
}

// Decode reads host, port, the 1.0 padding and the compression flag.
// The connect flag is not on the wire and decodes as false.
func (f *Factory) Decode(s *wire.InputStream) (endpoint.Endpoint, error) {
	ip, err := endpoint.ReadIPEndpoint(f.instance, s)
	if err != nil {
		return nil, err
	}
	if s.Encoding() == wire.Encoding_1_0 {
		err = s.Skip(4)
		if err != nil {
			return nil, E.Cause(err, "read udp endpoint")
		}
	}
	compress, err := s.ReadBool()
	if err != nil {
		return nil, E.Cause(err, "read udp endpoint")
	}
	return newEndpoint(ip, "", -1, false, compress), nil
}
