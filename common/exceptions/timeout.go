package exceptions

import (
	"errors"
	"net"
)

type TimeoutError interface {
	Timeout() bool
}

type TemporaryError interface {
	Temporary() bool
}

func IsTimeout(err error) bool {
	if timeoutErr, isTimeout := Cast[TimeoutError](err); isTimeout {
		return timeoutErr.Timeout()
	}
	return false
}

// IsTemporary reports failures worth retrying, such as a DNS server that did not answer.
func IsTemporary(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	if temporaryErr, isTemporary := Cast[TemporaryError](err); isTemporary {
		return temporaryErr.Temporary()
	}
	return IsTimeout(err)
}
