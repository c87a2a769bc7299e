package common

import (
	"syscall"
)

// GetFileDescriptor returns the descriptor the poller watches for conn.
func GetFileDescriptor(conn syscall.Conn) (int, error) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	rawFd := -1
	err = rawConn.Control(func(fd uintptr) {
		rawFd = int(fd)
	})
	return rawFd, err
}
