package endpoint

import (
	"strconv"
	"strings"

	"github.com/sagernet/sing-rpc/common"
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/wire"

	"github.com/google/shlex"
	cmap "github.com/orcaman/concurrent-map/v2"
)

var ErrDuplicateFactory = E.New("duplicate endpoint factory")

// Factory creates endpoints of one transport from text or from the wire.
type Factory interface {
	Type() int16
	Protocol() string
	// Parse consumes the options it recognizes and returns the remaining tokens.
	Parse(args []string, server bool) (Endpoint, []string, error)
	// Decode reads the options payload inside the encapsulation.
	Decode(s *wire.InputStream) (Endpoint, error)
}

// Registry maps type codes and protocol names to factories. It is safe for concurrent use.
type Registry struct {
	DefaultProtocol string
	byType          cmap.ConcurrentMap[int16, Factory]
	byProtocol      cmap.ConcurrentMap[string, Factory]
}

func NewRegistry() *Registry {
	return &Registry{
		DefaultProtocol: "tcp",
		byType: cmap.NewWithCustomShardingFunction[int16, Factory](func(key int16) uint32 {
			return uint32(uint16(key))
		}),
		byProtocol: cmap.New[Factory](),
	}
}

func (r *Registry) Add(factory Factory) error {
	if !r.byType.SetIfAbsent(factory.Type(), factory) {
		return E.Extend(ErrDuplicateFactory, "type ", factory.Type())
	}
	if !r.byProtocol.SetIfAbsent(factory.Protocol(), factory) {
		r.byType.Remove(factory.Type())
		return E.Extend(ErrDuplicateFactory, "protocol ", factory.Protocol())
	}
	return nil
}

func (r *Registry) Get(typ int16) (Factory, bool) {
	return r.byType.Get(typ)
}

func (r *Registry) GetByProtocol(protocol string) (Factory, bool) {
	return r.byProtocol.Get(protocol)
}

// Parse creates an endpoint from its text form, "<protocol> <options...>". Arguments
// may be quoted. The protocol "default" stands for DefaultProtocol.
func (r *Registry) Parse(text string, server bool) (Endpoint, error) {
	if common.IsBlank(text) {
		return nil, NewParseError("", "value has no non-whitespace characters")
	}
	text = strings.TrimSpace(text)
	args, err := shlex.Split(text)
	if err != nil {
		return nil, NewParseError("`"+text+"'", "mismatched quote")
	}
	if len(args) == 0 {
		return nil, NewParseError("`"+text+"'", "value has no non-whitespace characters")
	}
	protocol := args[0]
	if protocol == "default" {
		protocol = r.DefaultProtocol
	}
	factory, loaded := r.GetByProtocol(protocol)
	if !loaded {
		return nil, NewParseError("`"+text+"'", "unknown protocol `", protocol, "'")
	}
	endpoint, unknown, err := factory.Parse(args[1:], server)
	if err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		return nil, NewParseError("`"+text+"'", "unrecognized argument `", unknown[0], "'")
	}
	return endpoint, nil
}

// ParseList parses endpoints separated by ':'. Separators inside quotes are ignored.
func (r *Registry) ParseList(text string, server bool) ([]Endpoint, error) {
	var (
		endpoints []Endpoint
		quote     rune
		start     int
	)
	parseNext := func(end int) error {
		if common.IsBlank(text[start:end]) {
			return NewParseError("`"+text+"'", "empty endpoint at offset ", strconv.Itoa(start))
		}
		endpoint, err := r.Parse(text[start:end], server)
		if err != nil {
			return err
		}
		endpoints = append(endpoints, endpoint)
		return nil
	}
	for index, char := range text {
		switch {
		case quote != 0:
			if char == quote {
				quote = 0
			}
		case char == '"' || char == '\'':
			quote = char
		case char == ':':
			if err := parseNext(index); err != nil {
				return nil, err
			}
			start = index + 1
		}
	}
	if quote != 0 {
		return nil, NewParseError("`"+text+"'", "mismatched quote")
	}
	if err := parseNext(len(text)); err != nil {
		return nil, err
	}
	return endpoints, nil
}

// Read decodes an endpoint written by Write.
func (r *Registry) Read(s *wire.InputStream) (Endpoint, error) {
	typ, err := s.ReadShort()
	if err != nil {
		return nil, E.Cause(err, "read endpoint type")
	}
	factory, loaded := r.Get(typ)
	if !loaded {
		return nil, E.New("unknown endpoint type ", typ)
	}
	_, err = s.StartEncapsulation()
	if err != nil {
		return nil, E.Cause(err, "read ", factory.Protocol(), " endpoint")
	}
	endpoint, err := factory.Decode(s)
	if err != nil {
		return nil, E.Cause(err, "read ", factory.Protocol(), " endpoint")
	}
	err = s.EndEncapsulation()
	if err != nil {
		return nil, E.Cause(err, "read ", factory.Protocol(), " endpoint")
	}
	return endpoint, nil
}
