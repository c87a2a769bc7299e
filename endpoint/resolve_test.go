package endpoint

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	access    sync.Mutex
	calls     int
	failures  []error
	addresses []netip.Addr
}

func (r *fakeResolver) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	r.access.Lock()
	defer r.access.Unlock()
	r.calls++
	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		return nil, err
	}
	return append([]netip.Addr(nil), r.addresses...), nil
}

func (r *fakeResolver) Calls() int {
	r.access.Lock()
	defer r.access.Unlock()
	return r.calls
}

func newResolveEndpoint(resolver Resolver, network string, preferIPv6 bool, host string) IPEndpoint {
	instance := (&Instance{
		Resolver:        resolver,
		Network:         network,
		PreferIPv6:      preferIPv6,
		ResolveInterval: time.Millisecond,
	}).Derive(99, "stub", false)
	return NewIPEndpoint(instance, host, 4061, "")
}

func addrPorts(addresses ...string) []netip.AddrPort {
	var result []netip.AddrPort
	for _, address := range addresses {
		result = append(result, netip.MustParseAddrPort(address))
	}
	return result
}

func TestResolveOrdered(t *testing.T) {
	t.Parallel()
	resolver := &fakeResolver{addresses: []netip.Addr{
		netip.MustParseAddr("1.1.1.1"),
		netip.MustParseAddr("::2"),
		netip.MustParseAddr("2.2.2.2"),
	}}
	ctx := context.Background()

	addresses, err := newResolveEndpoint(resolver, "", false, "example.com").Resolve(ctx, SelectionOrdered)
	require.NoError(t, err)
	require.Equal(t, addrPorts("1.1.1.1:4061", "2.2.2.2:4061", "[::2]:4061"), addresses)

	addresses, err = newResolveEndpoint(resolver, "", true, "example.com").Resolve(ctx, SelectionOrdered)
	require.NoError(t, err)
	require.Equal(t, addrPorts("[::2]:4061", "1.1.1.1:4061", "2.2.2.2:4061"), addresses)

	addresses, err = newResolveEndpoint(resolver, "ip6", false, "example.com").Resolve(ctx, SelectionRandom)
	require.NoError(t, err)
	require.Equal(t, addrPorts("[::2]:4061"), addresses)
}

func TestResolveRandomKeepsFamilyPreference(t *testing.T) {
	t.Parallel()
	resolver := &fakeResolver{addresses: []netip.Addr{
		netip.MustParseAddr("::1"),
		netip.MustParseAddr("1.1.1.1"),
		netip.MustParseAddr("2.2.2.2"),
		netip.MustParseAddr("3.3.3.3"),
	}}
	for i := 0; i < 20; i++ {
		addresses, err := newResolveEndpoint(resolver, "", false, "example.com").Resolve(context.Background(), SelectionRandom)
		require.NoError(t, err)
		require.Len(t, addresses, 4)
		require.True(t, addresses[3].Addr().Is6())
	}
}

func TestResolveWithoutLookup(t *testing.T) {
	t.Parallel()
	resolver := &fakeResolver{}
	ctx := context.Background()

	addresses, err := newResolveEndpoint(resolver, "", false, "").Resolve(ctx, SelectionOrdered)
	require.NoError(t, err)
	require.Equal(t, addrPorts("127.0.0.1:4061", "[::1]:4061"), addresses)

	addresses, err = newResolveEndpoint(resolver, "ip4", false, "10.0.0.1").Resolve(ctx, SelectionOrdered)
	require.NoError(t, err)
	require.Equal(t, addrPorts("10.0.0.1:4061"), addresses)

	_, err = newResolveEndpoint(resolver, "ip6", false, "10.0.0.1").Resolve(ctx, SelectionOrdered)
	require.Error(t, err)
	require.Zero(t, resolver.Calls())
}

func TestResolveConnectorsAsyncRetriesTemporaryFailures(t *testing.T) {
	t.Parallel()
	resolver := &fakeResolver{
		failures: []error{
			&net.DNSError{Err: "server misbehaving", Name: "example.com", IsTemporary: true},
			&net.DNSError{Err: "i/o timeout", Name: "example.com", IsTimeout: true},
		},
		addresses: []netip.Addr{netip.MustParseAddr("1.1.1.1")},
	}
	type result struct {
		connectors []Connector
		err        error
	}
	done := make(chan result, 1)
	newResolveEndpoint(resolver, "", false, "example.com").ResolveConnectorsAsync(context.Background(), SelectionOrdered, newStubConnector, func(connectors []Connector, err error) {
		done <- result{connectors, err}
	})
	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Len(t, r.connectors, 1)
		require.Equal(t, "1.1.1.1:4061", r.connectors[0].String())
	case <-time.After(5 * time.Second):
		t.Fatal("resolve callback not called")
	}
	require.Equal(t, 3, resolver.Calls())
}

func TestResolveConnectorsAsyncPermanentFailure(t *testing.T) {
	t.Parallel()
	resolver := &fakeResolver{
		failures: []error{&net.DNSError{Err: "no such host", Name: "example.invalid", IsNotFound: true}},
	}
	type result struct {
		connectors []Connector
		err        error
	}
	done := make(chan result, 1)
	newResolveEndpoint(resolver, "", false, "example.invalid").ResolveConnectorsAsync(context.Background(), SelectionOrdered, newStubConnector, func(connectors []Connector, err error) {
		done <- result{connectors, err}
	})
	select {
	case r := <-done:
		require.Nil(t, r.connectors)
		var dnsErr *net.DNSError
		require.ErrorAs(t, r.err, &dnsErr)
	case <-time.After(5 * time.Second):
		t.Fatal("resolve callback not called")
	}
	require.Equal(t, 1, resolver.Calls())
}

func TestExpandHostsIgnoresNamedHost(t *testing.T) {
	t.Parallel()
	hosts, err := newResolveEndpoint(nil, "", false, "example.com").ExpandHosts()
	require.NoError(t, err)
	require.Nil(t, hosts)
}
