//go:build linux

package reactor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLoopDispatch(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()
	selector := newEpollSelector(t)
	loop, err := NewLoop(selector, WithPoolSize(4), WithIdleTimeout(20*time.Millisecond), WithLoopLogger(logger))
	require.NoError(t, err)
	loop.Start(context.Background())

	handler, peer := newSocketPair(t)
	handle, err := loop.Register(handler, OperationRead)
	require.NoError(t, err)

	_, err = unix.Write(peer, []byte("hello"))
	require.NoError(t, err)
	select {
	case data := <-handler.received:
		require.Equal(t, "hello", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("no readiness dispatched")
	}

	loop.Finish(handle)
	loop.Finish(handle)
	select {
	case <-handler.finished:
	case <-time.After(5 * time.Second):
		t.Fatal("finished not dispatched")
	}
	require.NoError(t, loop.Close())
	require.NoError(t, loop.Close())
}

type finishingHandler struct {
	*socketHandler
	loop   *Loop
	handle atomic.Uint64
}

func (h *finishingHandler) Ready(operations Operation) {
	h.socketHandler.Ready(operations)
	h.loop.Finish(Handle(h.handle.Load()))
}

func TestFinishFromReadyWithSingleWorker(t *testing.T) {
	t.Parallel()
	logger, _ := test.NewNullLogger()
	selector := newEpollSelector(t)
	loop, err := NewLoop(selector, WithPoolSize(1), WithIdleTimeout(20*time.Millisecond), WithLoopLogger(logger))
	require.NoError(t, err)
	loop.Start(context.Background())

	var (
		handlers []*finishingHandler
		peers    []int
	)
	for i := 0; i < 3; i++ {
		socket, peer := newSocketPair(t)
		handler := &finishingHandler{socketHandler: socket, loop: loop}
		handle, err := loop.Register(handler, OperationNone)
		require.NoError(t, err)
		handler.handle.Store(uint64(handle))
		require.NoError(t, selector.Update(handle, OperationNone, OperationRead))
		handlers = append(handlers, handler)
		peers = append(peers, peer)
	}
	for _, peer := range peers {
		_, err = unix.Write(peer, []byte("bye"))
		require.NoError(t, err)
	}
	for _, handler := range handlers {
		select {
		case <-handler.finished:
		case <-time.After(5 * time.Second):
			t.Fatal("finished not delivered")
		}
	}

	alive, peer := newSocketPair(t)
	handle, err := loop.Register(alive, OperationRead)
	require.NoError(t, err)
	_, err = unix.Write(peer, []byte("next"))
	require.NoError(t, err)
	select {
	case data := <-alive.received:
		require.Equal(t, "next", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("loop stopped dispatching")
	}
	loop.Finish(handle)
	<-alive.finished
	require.NoError(t, loop.Close())
}
