package endpoint

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/sagernet/sing-rpc/common/log"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout        = 60000
	DefaultResolveRetries = 3
)

// Resolver looks up host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Instance holds the settings shared by every endpoint of one protocol.
type Instance struct {
	Type     int16
	Protocol string
	Secure   bool

	Logger   logrus.FieldLogger
	Resolver Resolver

	DefaultHost    string
	DefaultTimeout int32

	// Network is "ip", "ip4" or "ip6".
	Network    string
	PreferIPv6 bool

	ResolveRetries  int
	ResolveInterval time.Duration
}

// Derive copies the shared settings for another protocol.
func (i *Instance) Derive(typ int16, protocol string, secure bool) *Instance {
	instance := &Instance{}
	if i != nil {
		*instance = *i
	}
	instance.Type = typ
	instance.Protocol = protocol
	instance.Secure = secure
	if instance.Logger != nil {
		instance.Logger = log.Tagged(instance.Logger, protocol)
	}
	return instance
}

// Log returns the logger tagged with the protocol name.
func (i *Instance) Log() logrus.FieldLogger {
	if i.Logger == nil {
		return log.NewLogger(i.Protocol)
	}
	return i.Logger
}

func (i *Instance) resolver() Resolver {
	if i.Resolver == nil {
		return net.DefaultResolver
	}
	return i.Resolver
}

func (i *Instance) network() string {
	switch i.Network {
	case "ip4", "ip6":
		return i.Network
	default:
		return "ip"
	}
}

func (i *Instance) defaultTimeout() int32 {
	if i.DefaultTimeout == 0 {
		return DefaultTimeout
	}
	return i.DefaultTimeout
}

// DefaultTimeoutValue is the timeout of endpoints that do not set -t.
func (i *Instance) DefaultTimeoutValue() int32 {
	return i.defaultTimeout()
}

func (i *Instance) resolveRetries() uint64 {
	if i.ResolveRetries < 0 {
		return 0
	}
	if i.ResolveRetries == 0 {
		return DefaultResolveRetries
	}
	return uint64(i.ResolveRetries)
}
