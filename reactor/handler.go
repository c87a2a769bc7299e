package reactor

// EventHandler is the unit scheduled by the selector. Handlers never touch registration
// state directly; they keep the Handle returned by Register and request changes through it.
type EventHandler interface {
	// FD returns the pollable native handle.
	FD() int
	// Ready is called with the operations the handle is ready for.
	Ready(operations Operation)
	// Finished is called exactly once after the registration is finished.
	Finished()
	String() string
}

// Handle identifies a registration inside one selector. Zero is never a valid handle.
type Handle uint64

// Ready is one readiness notification produced by Select.
type Ready struct {
	Handle     Handle
	Handler    EventHandler
	Operations Operation
}
