package rpc

import (
	"context"
	"sync"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/log"
	"github.com/sagernet/sing-rpc/endpoint"
	"github.com/sagernet/sing-rpc/reactor"
	"github.com/sagernet/sing-rpc/transport/tcp"
	"github.com/sagernet/sing-rpc/transport/udp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Logger logrus.FieldLogger
	// Endpoint holds the settings shared by every transport.
	Endpoint        endpoint.Instance
	DefaultProtocol string
	PoolSize        int
	MaxEvents       int
	// Registerer receives the selector metrics when set.
	Registerer prometheus.Registerer
}

// Instance ties the endpoint registry to one reactor loop and the adapters it serves.
type Instance struct {
	access     sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	logger     logrus.FieldLogger
	registry   *endpoint.Registry
	metrics    *reactor.Metrics
	registerer prometheus.Registerer
	loop       *reactor.Loop
	adapters   map[string]*Adapter
	closed     bool
}

func NewInstance(ctx context.Context, options Options) (*Instance, error) {
	logger := log.Tagged(options.Logger, "rpc")
	template := options.Endpoint
	if template.Logger == nil {
		template.Logger = options.Logger
	}
	registry, err := NewRegistry(&template, options.DefaultProtocol)
	if err != nil {
		return nil, err
	}

	metrics := reactor.NewMetrics("default")
	selector, err := reactor.NewPlatformSelector(
		reactor.WithLogger(options.Logger),
		reactor.WithMetrics(metrics),
		reactor.WithMaxEvents(options.MaxEvents),
	)
	if err != nil {
		return nil, err
	}
	loopOptions := []reactor.LoopOption{reactor.WithLoopLogger(options.Logger)}
	if options.PoolSize > 0 {
		loopOptions = append(loopOptions, reactor.WithPoolSize(options.PoolSize))
	}
	loop, err := reactor.NewLoop(selector, loopOptions...)
	if err != nil {
		selector.Close()
		return nil, err
	}
	if options.Registerer != nil {
		if err = metrics.Register(options.Registerer); err != nil {
			loop.Close()
			return nil, E.Cause(err, "register metrics")
		}
	}
	instance := &Instance{
		logger:     logger,
		registry:   registry,
		metrics:    metrics,
		registerer: options.Registerer,
		loop:       loop,
		adapters:   make(map[string]*Adapter),
	}
	instance.ctx, instance.cancel = context.WithCancel(ctx)
	loop.Start(instance.ctx)
	return instance, nil
}

// NewRegistry creates a registry with the built-in transports.
func NewRegistry(template *endpoint.Instance, defaultProtocol string) (*endpoint.Registry, error) {
	registry := endpoint.NewRegistry()
	if defaultProtocol != "" {
		registry.DefaultProtocol = defaultProtocol
	}
	for _, factory := range []endpoint.Factory{tcp.NewFactory(template), udp.NewFactory(template)} {
		if err := registry.Add(factory); err != nil {
			return nil, err
		}
	}
	if _, loaded := registry.GetByProtocol(registry.DefaultProtocol); !loaded {
		return nil, E.New("unknown default protocol ", registry.DefaultProtocol)
	}
	return registry, nil
}

func (i *Instance) Registry() *endpoint.Registry {
	return i.registry
}

func (i *Instance) Loop() *reactor.Loop {
	return i.loop
}

func (i *Instance) Metrics() *reactor.Metrics {
	return i.metrics
}

// CreateAdapter parses the ':' separated server endpoints, opens a transceiver or an
// acceptor for each and serves them with handler.
func (i *Instance) CreateAdapter(name string, endpoints string, handler Handler) (*Adapter, error) {
	i.access.Lock()
	defer i.access.Unlock()
	if i.closed {
		return nil, E.New("instance closed")
	}
	if _, loaded := i.adapters[name]; loaded {
		return nil, E.New("adapter ", name, " already exists")
	}
	parsed, err := i.registry.ParseList(endpoints, true)
	if err != nil {
		return nil, err
	}
	adapter := newAdapter(i, name, handler)
	err = adapter.open(parsed)
	if err != nil {
		adapter.Close()
		return nil, E.Cause(err, "create adapter ", name)
	}
	i.adapters[name] = adapter
	return adapter, nil
}

func (i *Instance) Adapter(name string) (*Adapter, bool) {
	i.access.Lock()
	defer i.access.Unlock()
	adapter, loaded := i.adapters[name]
	return adapter, loaded
}

func (i *Instance) removeAdapter(adapter *Adapter) {
	i.access.Lock()
	defer i.access.Unlock()
	if i.adapters[adapter.name] == adapter {
		delete(i.adapters, adapter.name)
	}
}

// Connect parses a proxy endpoint, resolves it without blocking the loop and returns
// a transceiver to the first address that accepts the connection.
func (i *Instance) Connect(ctx context.Context, text string, selection endpoint.SelectionType) (endpoint.Transceiver, error) {
	proxy, err := i.registry.Parse(text, false)
	if err != nil {
		return nil, err
	}
	type result struct {
		connectors []endpoint.Connector
		err        error
	}
	done := make(chan result, 1)
	proxy.ConnectorsAsync(ctx, selection, func(connectors []endpoint.Connector, err error) {
		done <- result{connectors, err}
	})
	var resolved result
	select {
	case resolved = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if resolved.err != nil {
		return nil, E.Cause(resolved.err, "resolve ", proxy)
	}
	if len(resolved.connectors) == 0 {
		return nil, E.New("no connectors for ", proxy)
	}
	var failures []error
	for _, connector := range resolved.connectors {
		transceiver, err := connector.Connect(ctx)
		if err == nil {
			return transceiver, nil
		}
		i.logger.WithError(err).Debug("connect to ", connector)
		failures = append(failures, err)
	}
	return nil, E.Cause(E.Errors(failures...), "connect ", proxy)
}

func (i *Instance) Close() error {
	i.access.Lock()
	if i.closed {
		i.access.Unlock()
		return nil
	}
	i.closed = true
	adapters := make([]*Adapter, 0, len(i.adapters))
	for _, adapter := range i.adapters {
		adapters = append(adapters, adapter)
	}
	i.adapters = make(map[string]*Adapter)
	i.access.Unlock()

	var failures []error
	for _, adapter := range adapters {
		failures = append(failures, adapter.Close())
	}
	i.cancel()
	failures = append(failures, i.loop.Close())
	if i.registerer != nil {
		i.metrics.Unregister(i.registerer)
	}
	return E.Errors(failures...)
}
