package endpoint

import (
	"context"
	"math/rand"
	"net/netip"
	"sort"
	"time"

	"github.com/sagernet/sing-rpc/common"
	E "github.com/sagernet/sing-rpc/common/exceptions"

	"github.com/cenkalti/backoff/v4"
)

// ConnectorFunc creates a connector for one resolved address.
type ConnectorFunc func(address netip.AddrPort) Connector

// Resolve returns the addresses to connect to, ordered by the IP preference and shuffled
// within each family for random selection. An empty host means the loopback address.
func (e IPEndpoint) Resolve(ctx context.Context, selection SelectionType) ([]netip.AddrPort, error) {
	instance := e.instance
	network := instance.network()
	var addresses []netip.Addr
	if e.host == "" {
		addresses = loopbackAddresses(network)
	} else if address, err := netip.ParseAddr(e.host); err == nil {
		addresses = []netip.Addr{address.Unmap()}
	} else {
		addresses, err = instance.resolver().LookupNetIP(ctx, network, e.host)
		if err != nil {
			return nil, E.Cause(err, "resolve ", e.host)
		}
	}
	addresses = filterFamily(network, addresses)
	if len(addresses) == 0 {
		return nil, E.New("no addresses for ", e.host, " in network ", network)
	}
	if selection == SelectionRandom {
		rand.Shuffle(len(addresses), func(i, j int) {
			addresses[i], addresses[j] = addresses[j], addresses[i]
		})
	}
	if network == "ip" {
		preferIPv6 := instance.PreferIPv6
		sort.SliceStable(addresses, func(i, j int) bool {
			return addresses[i].Is6() == preferIPv6 && addresses[j].Is6() != preferIPv6
		})
	}
	return common.Map(addresses, func(address netip.Addr) netip.AddrPort {
		return netip.AddrPortFrom(address, uint16(e.port))
	}), nil
}

// ResolveConnectors resolves once and creates one connector per address.
func (e IPEndpoint) ResolveConnectors(ctx context.Context, selection SelectionType, create ConnectorFunc) ([]Connector, error) {
	addresses, err := e.Resolve(ctx, selection)
	if err != nil {
		return nil, err
	}
	return common.Map(addresses, func(address netip.AddrPort) Connector {
		return create(address)
	}), nil
}

// ResolveConnectorsAsync resolves on a new goroutine, retrying temporary failures with
// exponential backoff, and reports through callback.
func (e IPEndpoint) ResolveConnectorsAsync(ctx context.Context, selection SelectionType, create ConnectorFunc, callback func([]Connector, error)) {
	go func() {
		var connectors []Connector
		operation := func() error {
			var err error
			connectors, err = e.ResolveConnectors(ctx, selection, create)
			if err != nil && !E.IsTemporary(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		policy := backoff.NewExponentialBackOff()
		if e.instance.ResolveInterval > 0 {
			policy.InitialInterval = e.instance.ResolveInterval
		}
		policy.MaxElapsedTime = time.Minute
		err := backoff.RetryNotify(operation,
			backoff.WithContext(backoff.WithMaxRetries(policy, e.instance.resolveRetries()), ctx),
			func(err error, next time.Duration) {
				e.instance.Log().WithError(err).Debug("retry resolving ", e.host, " in ", next)
			})
		if err != nil {
			connectors = nil
		}
		callback(connectors, err)
	}()
}

// ExpandHosts returns the local interface addresses for a wildcard host, or nil when the
// host is not a wildcard or no address is available.
func (e IPEndpoint) ExpandHosts() ([]string, error) {
	network := e.instance.network()
	switch e.host {
	case "", "::":
	case "0.0.0.0":
		network = "ip4"
	default:
		return nil, nil
	}
	addresses, err := localAddresses()
	if err != nil {
		return nil, E.Cause(err, "list local addresses")
	}
	addresses = common.Filter(filterFamily(network, addresses), func(it netip.Addr) bool {
		return !it.IsLoopback()
	})
	return common.Map(addresses, netip.Addr.String), nil
}

func loopbackAddresses(network string) []netip.Addr {
	switch network {
	case "ip4":
		return []netip.Addr{netip.AddrFrom4([4]byte{127, 0, 0, 1})}
	case "ip6":
		return []netip.Addr{netip.IPv6Loopback()}
	default:
		return []netip.Addr{netip.AddrFrom4([4]byte{127, 0, 0, 1}), netip.IPv6Loopback()}
	}
}

func filterFamily(network string, addresses []netip.Addr) []netip.Addr {
	addresses = common.Map(addresses, netip.Addr.Unmap)
	switch network {
	case "ip4":
		return common.Filter(addresses, netip.Addr.Is4)
	case "ip6":
		return common.Filter(addresses, netip.Addr.Is6)
	default:
		return addresses
	}
}
