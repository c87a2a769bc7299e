package rpc

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/log"
	"github.com/sagernet/sing-rpc/endpoint"
	"github.com/sagernet/sing-rpc/reactor"

	"github.com/sirupsen/logrus"
)

const readBufferSize = 64 * 1024

// Handler serves data read by an adapter. A non-nil reply is written back on the same
// transceiver.
type Handler interface {
	Serve(ctx context.Context, transceiver endpoint.Transceiver, data []byte) ([]byte, error)
}

type HandlerFunc func(ctx context.Context, transceiver endpoint.Transceiver, data []byte) ([]byte, error)

func (f HandlerFunc) Serve(ctx context.Context, transceiver endpoint.Transceiver, data []byte) ([]byte, error) {
	return f(ctx, transceiver, data)
}

// Adapter serves a set of server endpoints on the instance loop.
type Adapter struct {
	name     string
	instance *Instance
	handler  Handler
	logger   logrus.FieldLogger

	access    sync.Mutex
	published []endpoint.Endpoint
	handles   map[reactor.Handle]struct{}
	closed    bool
}

func newAdapter(instance *Instance, name string, handler Handler) *Adapter {
	return &Adapter{
		name:     name,
		instance: instance,
		handler:  handler,
		logger:   log.Tagged(instance.logger, "adapter/"+name),
		handles:  make(map[reactor.Handle]struct{}),
	}
}

func (a *Adapter) Name() string {
	return a.name
}

// Endpoints returns the published endpoints in canonical order. Wildcard endpoints are
// expanded to the local interface addresses.
func (a *Adapter) Endpoints() []endpoint.Endpoint {
	a.access.Lock()
	defer a.access.Unlock()
	return append([]endpoint.Endpoint(nil), a.published...)
}

func (a *Adapter) open(endpoints []endpoint.Endpoint) error {
	var published []endpoint.Endpoint
	for _, serverEndpoint := range endpoints {
		effective, err := a.openEndpoint(serverEndpoint)
		if err != nil {
			return err
		}
		expanded, err := effective.Expand()
		if err != nil {
			return err
		}
		published = append(published, expanded...)
	}
	endpoint.Sort(published)
	a.access.Lock()
	a.published = published
	a.access.Unlock()
	return nil
}

func (a *Adapter) openEndpoint(serverEndpoint endpoint.Endpoint) (endpoint.Endpoint, error) {
	transceiver, effective, err := serverEndpoint.Transceiver()
	if err != nil {
		return nil, err
	}
	if transceiver != nil {
		err = a.register(&transceiverHandler{adapter: a, transceiver: transceiver, datagram: true})
		if err != nil {
			transceiver.Close()
			return nil, err
		}
		a.logger.Info("serving ", effective)
		return effective, nil
	}
	acceptor, effective, err := serverEndpoint.Acceptor(a.name)
	if err != nil {
		return nil, err
	}
	if acceptor == nil {
		return nil, E.New("endpoint ", serverEndpoint, " has neither transceiver nor acceptor")
	}
	err = a.register(&acceptorHandler{adapter: a, acceptor: acceptor})
	if err != nil {
		acceptor.Close()
		return nil, err
	}
	a.logger.Info("listening at ", effective)
	return effective, nil
}

type registeredHandler interface {
	reactor.EventHandler
	setHandle(handle reactor.Handle)
}

// register adds the handler with an empty interest set, publishes its handle, then asks
// for Read so Ready never runs before the handle is known.
func (a *Adapter) register(handler registeredHandler) error {
	a.access.Lock()
	if a.closed {
		a.access.Unlock()
		return E.New("adapter ", a.name, " closed")
	}
	loop := a.instance.loop
	handle, err := loop.Register(handler, reactor.OperationNone)
	if err != nil {
		a.access.Unlock()
		return err
	}
	handler.setHandle(handle)
	a.handles[handle] = struct{}{}
	a.access.Unlock()
	err = loop.Selector().Update(handle, reactor.OperationNone, reactor.OperationRead)
	if err != nil {
		a.finish(handle)
		return err
	}
	return nil
}

func (a *Adapter) finish(handle reactor.Handle) {
	a.access.Lock()
	delete(a.handles, handle)
	a.access.Unlock()
	a.instance.loop.Finish(handle)
}

func (a *Adapter) Close() error {
	a.access.Lock()
	if a.closed {
		a.access.Unlock()
		return nil
	}
	a.closed = true
	handles := make([]reactor.Handle, 0, len(a.handles))
	for handle := range a.handles {
		handles = append(handles, handle)
	}
	a.handles = make(map[reactor.Handle]struct{})
	a.access.Unlock()
	for _, handle := range handles {
		a.instance.loop.Finish(handle)
	}
	a.instance.removeAdapter(a)
	return nil
}

type acceptorHandler struct {
	adapter  *Adapter
	acceptor endpoint.Acceptor
	handle   reactor.Handle
}

func (h *acceptorHandler) setHandle(handle reactor.Handle) {
	h.handle = handle
}

func (h *acceptorHandler) FD() int {
	return h.acceptor.FD()
}

func (h *acceptorHandler) Ready(operations reactor.Operation) {
	transceiver, err := h.acceptor.Accept()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			h.adapter.logger.WithError(err).Warn("accept ", h.acceptor.Protocol(), " connection")
		}
		return
	}
	err = h.adapter.register(&transceiverHandler{adapter: h.adapter, transceiver: transceiver})
	if err != nil {
		h.adapter.logger.WithError(err).Warn("register ", transceiver)
		transceiver.Close()
	}
}

func (h *acceptorHandler) Finished() {
	h.acceptor.Close()
}

func (h *acceptorHandler) String() string {
	return h.acceptor.String()
}

type transceiverHandler struct {
	adapter     *Adapter
	transceiver endpoint.Transceiver
	datagram    bool
	handle      reactor.Handle
	buffer      []byte
}

func (h *transceiverHandler) setHandle(handle reactor.Handle) {
	h.handle = handle
}

func (h *transceiverHandler) FD() int {
	return h.transceiver.FD()
}

func (h *transceiverHandler) Ready(operations reactor.Operation) {
	if h.buffer == nil {
		h.buffer = make([]byte, readBufferSize)
	}
	n, err := h.transceiver.Read(h.buffer)
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			h.adapter.logger.WithError(err).Debug("read from ", h.transceiver.Protocol(), " transceiver")
		}
		if !h.datagram {
			h.adapter.finish(h.handle)
		}
		return
	}
	if n == 0 && h.datagram {
		return
	}
	reply, err := h.adapter.handler.Serve(h.adapter.instance.ctx, h.transceiver, h.buffer[:n])
	if err != nil {
		h.adapter.logger.WithError(err).Debug("serve ", h.transceiver.Protocol(), " request")
		if !h.datagram {
			h.adapter.finish(h.handle)
		}
		return
	}
	if reply == nil {
		return
	}
	_, err = h.transceiver.Write(reply)
	if err != nil {
		h.adapter.logger.WithError(err).Debug("write reply")
		if !h.datagram {
			h.adapter.finish(h.handle)
		}
	}
}

func (h *transceiverHandler) Finished() {
	h.transceiver.Close()
}

func (h *transceiverHandler) String() string {
	return h.transceiver.String()
}
