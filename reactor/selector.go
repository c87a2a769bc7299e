package reactor

import (
	"sync"
	"time"

	"github.com/sagernet/sing-rpc/common/debug"
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/log"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
)

const (
	// Some platforms return from a timed wait slightly before the timeout according to the
	// monotonic clock, so timed waits run a little longer and the elapsed time is checked.
	timeoutGuard = 10 * time.Millisecond

	spuriousWakeUpSleep = time.Millisecond
	spuriousWakeUpLimit = 100

	defaultMaxEvents = 128
)

type registration struct {
	handle     Handle
	handler    EventHandler
	fd         int
	registered Operation
	disabled   Operation
	applied    Operation
	added      bool
	pending    bool
}

func (r *registration) effective() Operation {
	return r.registered.Subtract(r.disabled)
}

// consistent reports whether the platform interest matches registered &^ disabled.
// Registrations waiting in the change set are allowed to lag behind.
func (r *registration) consistent() bool {
	if r.pending {
		return true
	}
	if !r.added {
		return r.effective() == OperationNone
	}
	return r.applied == r.effective()
}

type Option func(selector *Selector)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(selector *Selector) {
		selector.logger = log.Tagged(logger, "selector")
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(selector *Selector) {
		selector.metrics = metrics
	}
}

func WithMaxEvents(maxEvents int) Option {
	return func(selector *Selector) {
		if maxEvents > 0 {
			selector.events = make([]PollEvent, maxEvents)
		}
	}
}

// Selector turns platform readiness into Ready notifications. One goroutine at a time
// calls Select; registration changes may come from any goroutine. Changes requested while
// a wait is in progress are queued and the wait is interrupted so they are applied before
// the next one.
type Selector struct {
	logger  logrus.FieldLogger
	poller  Poller
	metrics *Metrics
	sleep   func(time.Duration)
	events  []PollEvent

	access      sync.Mutex
	entries     map[Handle]*registration
	counter     uint64
	changes     *queue.Queue
	selecting   bool
	interrupted bool
	closed      bool

	spuriousWakeUp int
}

func NewSelector(poller Poller, options ...Option) *Selector {
	selector := &Selector{
		logger:  log.NewLogger("selector"),
		poller:  poller,
		sleep:   time.Sleep,
		events:  make([]PollEvent, defaultMaxEvents),
		entries: make(map[Handle]*registration),
		changes: queue.New(),
	}
	for _, option := range options {
		option(selector)
	}
	return selector
}

// NewPlatformSelector creates a selector on top of the platform poller.
func NewPlatformSelector(options ...Option) (*Selector, error) {
	poller, err := NewPlatformPoller()
	if err != nil {
		return nil, E.Cause(err, "create poller")
	}
	return NewSelector(poller, options...), nil
}

// Register starts tracking handler with an empty interest set.
func (s *Selector) Register(handler EventHandler) (Handle, error) {
	s.access.Lock()
	defer s.access.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.counter++
	entry := &registration{
		handle:  Handle(s.counter),
		handler: handler,
		fd:      handler.FD(),
	}
	s.entries[entry.handle] = entry
	s.metrics.registrations(1)
	s.updateImpl(entry)
	return entry.handle, nil
}

// Update removes then adds interest operations.
func (s *Selector) Update(handle Handle, remove Operation, add Operation) error {
	s.access.Lock()
	defer s.access.Unlock()
	entry, loaded := s.entries[handle]
	if !loaded {
		return ErrUnknownHandle
	}
	previous := entry.registered
	entry.registered = entry.registered.Subtract(remove).Union(add)
	if previous == entry.registered {
		return nil
	}
	s.updateImpl(entry)
	return nil
}

// Enable lifts a suppression set by Disable.
func (s *Selector) Enable(handle Handle, operations Operation) error {
	s.access.Lock()
	defer s.access.Unlock()
	entry, loaded := s.entries[handle]
	if !loaded {
		return ErrUnknownHandle
	}
	if entry.disabled.Intersect(operations).IsEmpty() {
		return nil
	}
	entry.disabled = entry.disabled.Subtract(operations)
	if !entry.registered.Intersect(operations).IsEmpty() {
		s.updateImpl(entry)
	}
	return nil
}

// Disable suppresses operations without forgetting that they are registered.
func (s *Selector) Disable(handle Handle, operations Operation) error {
	s.access.Lock()
	defer s.access.Unlock()
	entry, loaded := s.entries[handle]
	if !loaded {
		return ErrUnknownHandle
	}
	if entry.disabled.Has(operations) {
		return nil
	}
	entry.disabled = entry.disabled.Union(operations)
	if !entry.registered.Intersect(operations).IsEmpty() {
		s.updateImpl(entry)
	}
	return nil
}

// Finish cancels the registration and forgets it. It returns the handler the first time
// and false on every later call, so callers can run Finished exactly once.
func (s *Selector) Finish(handle Handle) (EventHandler, bool) {
	s.access.Lock()
	defer s.access.Unlock()
	entry, loaded := s.entries[handle]
	if !loaded {
		return nil, false
	}
	if entry.added {
		err := s.poller.Remove(entry.fd)
		if err != nil {
			s.logger.WithError(err).Debug("remove ", entry.handler, " from poller")
		}
		entry.added = false
	}
	entry.pending = false
	entry.registered = OperationNone
	entry.disabled = OperationNone
	entry.applied = OperationNone
	delete(s.entries, handle)
	s.metrics.registrations(-1)
	return entry.handler, true
}

func (s *Selector) Registered(handle Handle) Operation {
	s.access.Lock()
	defer s.access.Unlock()
	if entry, loaded := s.entries[handle]; loaded {
		return entry.registered
	}
	return OperationNone
}

func (s *Selector) Disabled(handle Handle) Operation {
	s.access.Lock()
	defer s.access.Unlock()
	if entry, loaded := s.entries[handle]; loaded {
		return entry.disabled
	}
	return OperationNone
}

// Wakeup interrupts an in-progress Select, which then returns no handlers.
func (s *Selector) Wakeup() {
	s.access.Lock()
	defer s.access.Unlock()
	s.interrupt()
}

// Select waits for readiness and appends the ready handlers to ready[:0]. A positive
// timeout bounds the wait and ErrTimeout is returned once it has really elapsed; any
// other timeout blocks until readiness or an interruption.
func (s *Selector) Select(ready []Ready, timeout time.Duration) ([]Ready, error) {
	ready = ready[:0]

	s.access.Lock()
	if s.closed {
		s.access.Unlock()
		return ready, ErrClosed
	}
	if s.interrupted {
		s.interrupted = false
		s.updateSelector()
	}
	s.selecting = true
	s.access.Unlock()

	var n int
	for {
		var err error
		if timeout > 0 {
			before := time.Now()
			n, err = s.poller.Wait(s.events, timeout+timeoutGuard)
			if err == nil && n == 0 && time.Since(before) >= timeout {
				s.finishSelect()
				s.metrics.poll()
				return ready, ErrTimeout
			}
		} else {
			n, err = s.poller.Wait(s.events, -1)
		}
		if err != nil {
			if s.poller.Interrupted(err) {
				continue
			}
			// A broken poller loses readiness for every connection of the process.
			s.logger.WithError(err).Fatal("fatal error: selector failed")
			s.finishSelect()
			return ready, E.Cause(err, "selector failed")
		}
		break
	}
	s.metrics.poll()

	s.access.Lock()
	s.selecting = false
	if s.interrupted {
		s.access.Unlock()
		return ready, nil
	}

	if n == 0 && timeout <= 0 {
		s.access.Unlock()
		s.sleep(spuriousWakeUpSleep)
		s.metrics.spuriousWakeUp()
		s.spuriousWakeUp++
		if s.spuriousWakeUp > spuriousWakeUpLimit {
			s.spuriousWakeUp = 0
			s.logger.Warn("spurious selector wake up")
		}
		return ready, nil
	}
	s.spuriousWakeUp = 0

	for _, event := range s.events[:n] {
		entry, loaded := s.entries[event.Handle]
		if !loaded {
			// Finished while the wait was in progress.
			continue
		}
		if !entry.added {
			if !entry.consistent() {
				s.violation(entry)
			}
			continue
		}
		operations := event.Ready.Intersect(entry.effective())
		if operations.IsEmpty() {
			continue
		}
		ready = append(ready, Ready{
			Handle:     entry.handle,
			Handler:    entry.handler,
			Operations: operations,
		})
	}
	s.access.Unlock()
	s.metrics.ready(len(ready))
	return ready, nil
}

// Close releases the poller. Every registration must have been finished.
func (s *Selector) Close() error {
	s.access.Lock()
	defer s.access.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	var remaining error
	if len(s.entries) > 0 {
		remaining = E.Extend(ErrRegistrationsOpen, len(s.entries), " left")
	}
	return E.Errors(remaining, s.poller.Close())
}

func (s *Selector) finishSelect() {
	s.access.Lock()
	s.selecting = false
	s.access.Unlock()
}

func (s *Selector) updateImpl(entry *registration) {
	if !entry.pending {
		entry.pending = true
		s.changes.Add(entry)
	}
	if s.selecting {
		// Interest must not change under a wait in progress, some pollers block on it.
		s.interrupt()
	} else {
		s.updateSelector()
	}
}

func (s *Selector) interrupt() {
	if !s.selecting || s.interrupted {
		return
	}
	err := s.poller.Wakeup()
	if err != nil {
		s.logger.WithError(err).Error("wake up poller")
	}
	s.interrupted = true
	s.metrics.interrupt()
}

func (s *Selector) updateSelector() {
	for s.changes.Length() > 0 {
		entry := s.changes.Remove().(*registration)
		if !entry.pending {
			continue
		}
		entry.pending = false
		s.apply(entry)
	}
}

func (s *Selector) apply(entry *registration) {
	effective := entry.effective()
	var err error
	switch {
	case effective.IsEmpty():
		// epoll keeps reporting hang-ups for a descriptor with no interest, so an
		// empty interest set leaves the poller entirely.
		if !entry.added {
			entry.applied = OperationNone
			return
		}
		err = s.poller.Remove(entry.fd)
		if err == nil {
			entry.added = false
		}
	case !entry.added:
		err = s.poller.Add(entry.fd, entry.handle, effective)
		if err == nil {
			entry.added = true
		}
	default:
		err = s.poller.Modify(entry.fd, entry.handle, effective)
	}
	if err != nil {
		s.logger.WithError(err).Error("update interest of ", entry.handler, " to ", effective)
		return
	}
	entry.applied = effective
	if debug.Enabled && !entry.consistent() {
		s.violation(entry)
	}
}

func (s *Selector) violation(entry *registration) {
	err := E.New("registration invariant violated for ", entry.handler, ": registered ", entry.registered,
		", disabled ", entry.disabled, ", applied ", entry.applied)
	if debug.Enabled {
		panic(err)
	}
	s.logger.Error(err)
}
