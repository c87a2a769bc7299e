package reactor

import (
	"context"
	"errors"
	"sync"
	"time"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/log"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

const defaultIdleTimeout = time.Second

type LoopOption func(loop *Loop)

func WithPoolSize(size int) LoopOption {
	return func(loop *Loop) {
		loop.poolSize = size
	}
}

// WithIdleTimeout bounds each Select so the loop notices cancellation without a wakeup.
func WithIdleTimeout(timeout time.Duration) LoopOption {
	return func(loop *Loop) {
		loop.idleTimeout = timeout
	}
}

func WithLoopLogger(logger logrus.FieldLogger) LoopOption {
	return func(loop *Loop) {
		loop.logger = log.Tagged(logger, "reactor")
	}
}

// Loop drives a Selector on one goroutine and dispatches notifications to a goroutine
// pool. Every notification of a batch is delivered before the next Select, so a handler
// never sees two concurrent Ready calls.
type Loop struct {
	selector    *Selector
	logger      logrus.FieldLogger
	pool        *ants.Pool
	poolSize    int
	idleTimeout time.Duration
	cancel      context.CancelFunc
	done        chan struct{}
	startOnce   sync.Once
	closeOnce   sync.Once
}

func NewLoop(selector *Selector, options ...LoopOption) (*Loop, error) {
	loop := &Loop{
		selector:    selector,
		logger:      log.NewLogger("reactor"),
		poolSize:    ants.DefaultAntsPoolSize,
		idleTimeout: defaultIdleTimeout,
		done:        make(chan struct{}),
	}
	for _, option := range options {
		option(loop)
	}
	// Submit never waits for a worker, handlers call Finish from Ready. Work the pool
	// rejects runs on the submitting goroutine.
	pool, err := ants.NewPool(loop.poolSize, ants.WithNonblocking(true), ants.WithPanicHandler(func(recovered any) {
		loop.logger.Error("handler panic: ", recovered)
	}))
	if err != nil {
		return nil, E.Cause(err, "create dispatch pool")
	}
	loop.pool = pool
	return loop, nil
}

func (l *Loop) Selector() *Selector {
	return l.selector
}

// Register adds handler with an initial interest set.
func (l *Loop) Register(handler EventHandler, interest Operation) (Handle, error) {
	handle, err := l.selector.Register(handler)
	if err != nil {
		return 0, err
	}
	if !interest.IsEmpty() {
		err = l.selector.Update(handle, OperationNone, interest)
		if err != nil {
			return 0, err
		}
	}
	return handle, nil
}

// Finish cancels the registration and schedules Finished once. It is safe to call
// from Ready; when no worker is free Finished runs before Finish returns.
func (l *Loop) Finish(handle Handle) {
	handler, finished := l.selector.Finish(handle)
	if !finished {
		return
	}
	err := l.pool.Submit(handler.Finished)
	if err != nil {
		handler.Finished()
	}
}

func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		ctx, l.cancel = context.WithCancel(ctx)
		go l.run(ctx)
	})
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	var (
		ready []Ready
		batch sync.WaitGroup
		err   error
	)
	for ctx.Err() == nil {
		ready, err = l.selector.Select(ready, l.idleTimeout)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				continue
			}
			if !errors.Is(err, ErrClosed) {
				l.logger.WithError(err).Error("select")
			}
			return
		}
		for _, it := range ready {
			item := it
			batch.Add(1)
			err = l.pool.Submit(func() {
				defer batch.Done()
				item.Handler.Ready(item.Operations)
			})
			if err != nil {
				batch.Done()
				item.Handler.Ready(item.Operations)
			}
		}
		batch.Wait()
	}
}

// Close stops the loop, then releases the pool and the selector.
func (l *Loop) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.cancel != nil {
			l.cancel()
			for stopped := false; !stopped; {
				l.selector.Wakeup()
				select {
				case <-l.done:
					stopped = true
				case <-time.After(10 * time.Millisecond):
				}
			}
		}
		l.pool.Release()
		err = l.selector.Close()
	})
	return err
}
