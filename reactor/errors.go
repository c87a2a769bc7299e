package reactor

import (
	E "github.com/sagernet/sing-rpc/common/exceptions"
)

var (
	ErrClosed            = E.New("selector closed")
	ErrUnknownHandle     = E.New("unknown registration handle")
	ErrRegistrationsOpen = E.New("registrations not finished")
)

// ErrTimeout is returned by Select when the timeout elapsed without readiness.
var ErrTimeout error = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string {
	return "selector timed out"
}

func (timeoutError) Timeout() bool {
	return true
}
