package reactor

import (
	"time"
)

// PollEvent is a readiness report already translated to abstract operations. Listening
// sockets report accept readiness as OperationRead.
type PollEvent struct {
	Handle Handle
	Ready  Operation
}

// Poller is the platform readiness primitive driven by a Selector. Add, Modify and Remove
// are only called while no Wait is in progress, except Remove which must be safe at any time.
type Poller interface {
	Add(fd int, handle Handle, interest Operation) error
	Modify(fd int, handle Handle, interest Operation) error
	Remove(fd int) error
	// Wait blocks until readiness, a wakeup or the timeout. A negative timeout blocks
	// indefinitely. Wakeups are consumed internally and never reported as events.
	Wait(events []PollEvent, timeout time.Duration) (int, error)
	// Wakeup forces a blocked Wait to return early.
	Wakeup() error
	// Interrupted reports whether a Wait failure is a benign interruption worth retrying.
	Interrupted(err error) bool
	Close() error
}

// NewPlatformPoller opens the poller of the running platform.
func NewPlatformPoller() (Poller, error) {
	return newPlatformPoller()
}
