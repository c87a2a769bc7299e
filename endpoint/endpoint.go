package endpoint

import (
	"context"
	"sort"
	"strings"

	"github.com/sagernet/sing-rpc/common/wire"
)

// Endpoint is an immutable transport address plus transport specific configuration.
// The With* methods return the receiver when nothing changes and a new value otherwise.
type Endpoint interface {
	Protocol() string
	Type() int16
	// String is the canonical text form, "<protocol> <options>". Proxy strings depend on it,
	// option order and spacing must not change.
	String() string
	Options() string
	// Encode writes the options payload. Write adds the type code and encapsulation.
	Encode(s *wire.OutputStream) error

	// Timeout in milliseconds, -1 is infinite and 0 non-blocking.
	Timeout() int32
	WithTimeout(timeout int32) Endpoint
	ConnectionID() string
	WithConnectionID(connectionID string) Endpoint
	Compress() bool
	WithCompress(compress bool) Endpoint

	Datagram() bool
	Secure() bool
	Info() Info

	// Transceiver returns a transceiver when the transport can create one without an
	// acceptor, along with the effective endpoint (a dynamic port is filled in).
	Transceiver() (Transceiver, Endpoint, error)
	// Acceptor returns a listening acceptor when the transport has one, along with the
	// effective endpoint.
	Acceptor(adapterName string) (Acceptor, Endpoint, error)
	Connectors(ctx context.Context, selection SelectionType) ([]Connector, error)
	// ConnectorsAsync resolves without blocking the caller and reports through callback
	// on another goroutine.
	ConnectorsAsync(ctx context.Context, selection SelectionType, callback func([]Connector, error))
	// Expand returns one endpoint per local interface address when bound to a wildcard host.
	Expand() ([]Endpoint, error)

	// Equivalent reports whether both endpoints denote the same network address, ignoring
	// timeout, compression and connection id.
	Equivalent(other Endpoint) bool
	Compare(other Endpoint) int
}

type Transceiver interface {
	FD() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Protocol() string
	String() string
}

type Acceptor interface {
	FD() int
	Accept() (Transceiver, error)
	Close() error
	Protocol() string
	String() string
}

type Connector interface {
	Connect(ctx context.Context) (Transceiver, error)
	Type() int16
	String() string
}

type SelectionType uint8

const (
	SelectionRandom SelectionType = iota
	SelectionOrdered
)

func (t SelectionType) String() string {
	switch t {
	case SelectionOrdered:
		return "Ordered"
	default:
		return "Random"
	}
}

// Info is a read-only snapshot of the endpoint fields.
type Info struct {
	Type         int16
	Datagram     bool
	Secure       bool
	Timeout      int32
	Compress     bool
	Host         string
	Port         int
	ConnectionID string
}

func Equal(a, b Endpoint) bool {
	return a.Compare(b) == 0
}

// CompareType orders endpoints of different kinds by type code.
func CompareType(a, b Endpoint) int {
	switch {
	case a.Type() < b.Type():
		return -1
	case a.Type() > b.Type():
		return 1
	}
	if c := strings.Compare(a.Protocol(), b.Protocol()); c != 0 {
		return c
	}
	return strings.Compare(a.String(), b.String())
}

// Sort sorts endpoints into their canonical order.
func Sort(endpoints []Endpoint) {
	sort.SliceStable(endpoints, func(i, j int) bool {
		return endpoints[i].Compare(endpoints[j]) < 0
	})
}

// Write marshals the type code followed by an encapsulation holding the options.
func Write(s *wire.OutputStream, endpoint Endpoint) error {
	s.WriteShort(endpoint.Type())
	s.StartEncapsulation(s.Encoding())
	err := endpoint.Encode(s)
	s.EndEncapsulation()
	return err
}
