package tcp

import (
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/wire"
	"github.com/sagernet/sing-rpc/endpoint"
)

var _ endpoint.Factory = (*Factory)(nil)

type Factory struct {
	instance *endpoint.Instance
}

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
	builder := options{timeout: f.instance.DefaultTimeoutValue()}
	unknown, err := endpoint.ParseOptions(Protocol, args, builder.check)
	if err != nil {
		return nil, nil, err
	}
	ip, err := builder.ip.Build(f.instance, server, endpoint.Describe(Protocol, args))
	if err != nil {
		return nil, nil, err
	}
	return newEndpoint(ip, builder.timeout, builder.compress), unknown, nil
}

func (f *Factory) Decode(s *wire.InputStream) (endpoint.Endpoint, error) {
	ip, err := endpoint.ReadIPEndpoint(f.instance, s)
	if err != nil {
		return nil, err
	}
	timeout, err := s.ReadInt()
	if err != nil {
		return nil, E.Cause(err, "read tcp endpoint")
	}
	compress, err := s.ReadBool()
	if err != nil {
		return nil, E.Cause(err, "read tcp endpoint")
	}
	return newEndpoint(ip, timeout, compress), nil
}
