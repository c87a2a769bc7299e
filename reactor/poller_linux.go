//go:build linux

package reactor

import (
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// wakeupHandle tags the wakeup pipe in epoll data; registrations start at 1.
const wakeupHandle = 0

type epollPoller struct {
	epollFD int
	pipeFDs [2]int
	events  []unix.EpollEvent
}

func newPlatformPoller() (Poller, error) {
	epollFD, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	var pipeFDs [2]int
	err = unix.Pipe2(pipeFDs[:], unix.O_NONBLOCK|unix.O_CLOEXEC)
	if err != nil {
		unix.Close(epollFD)
		return nil, err
	}

	pipeEvent := &unix.EpollEvent{Events: unix.EPOLLIN}
	setEventHandle(pipeEvent, wakeupHandle)
	err = unix.EpollCtl(epollFD, unix.EPOLL_CTL_ADD, pipeFDs[0], pipeEvent)
	if err != nil {
		unix.Close(pipeFDs[0])
		unix.Close(pipeFDs[1])
		unix.Close(epollFD)
		return nil, err
	}

	return &epollPoller{
		epollFD: epollFD,
		pipeFDs: pipeFDs,
	}, nil
}

func setEventHandle(event *unix.EpollEvent, handle Handle) {
	*(*uint64)(unsafe.Pointer(&event.Fd)) = uint64(handle)
}

func eventHandle(event *unix.EpollEvent) Handle {
	return Handle(*(*uint64)(unsafe.Pointer(&event.Fd)))
}

func toEpollEvents(interest Operation) uint32 {
	var events uint32
	if interest.Has(OperationRead) {
		events |= unix.EPOLLIN
	}
	if !interest.Intersect(OperationWrite | OperationConnect).IsEmpty() {
		events |= unix.EPOLLOUT
	}
	return events
}

// fromEpollEvents maps readiness back to operations. Connect completion and accept
// readiness have no events of their own on epoll: they show up as EPOLLOUT and EPOLLIN.
func fromEpollEvents(events uint32) Operation {
	var ready Operation
	if events&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		ready = ready.Union(OperationRead)
	}
	if events&unix.EPOLLOUT != 0 {
		ready = ready.Union(OperationWrite | OperationConnect)
	}
	if events&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		ready = ready.Union(OperationAll)
	}
	return ready
}

func (p *epollPoller) Add(fd int, handle Handle, interest Operation) error {
	event := &unix.EpollEvent{Events: toEpollEvents(interest)}
	setEventHandle(event, handle)
	return unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_ADD, fd, event)
}

func (p *epollPoller) Modify(fd int, handle Handle, interest Operation) error {
	event := &unix.EpollEvent{Events: toEpollEvents(interest)}
	setEventHandle(event, handle)
	return unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_MOD, fd, event)
}

func (p *epollPoller) Remove(fd int) error {
	err := unix.EpollCtl(p.epollFD, unix.EPOLL_CTL_DEL, fd, nil)
	if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.EBADF) {
		return nil
	}
	return err
}

func (p *epollPoller) Wait(events []PollEvent, timeout time.Duration) (int, error) {
	if cap(p.events) < len(events)+1 {
		p.events = make([]unix.EpollEvent, len(events)+1)
	}
	msec := -1
	if timeout >= 0 {
		msec = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, err := unix.EpollWait(p.epollFD, p.events[:len(events)+1], msec)
	if err != nil {
		return 0, err
	}
	var count int
	for i := 0; i < n; i++ {
		event := &p.events[i]
		handle := eventHandle(event)
		if handle == wakeupHandle {
			p.drain()
			continue
		}
		if count == len(events) {
			break
		}
		events[count] = PollEvent{Handle: handle, Ready: fromEpollEvents(event.Events)}
		count++
	}
	return count, nil
}

func (p *epollPoller) drain() {
	var buffer [64]byte
	for {
		n, err := unix.Read(p.pipeFDs[0], buffer[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (p *epollPoller) Wakeup() error {
	_, err := unix.Write(p.pipeFDs[1], []byte{0})
	if errors.Is(err, unix.EAGAIN) {
		// The pipe is full, a wakeup is already pending.
		return nil
	}
	return err
}

func (p *epollPoller) Interrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

func (p *epollPoller) Close() error {
	var err error
	if p.epollFD != -1 {
		err = unix.Close(p.epollFD)
		p.epollFD = -1
	}
	if p.pipeFDs[0] != -1 {
		unix.Close(p.pipeFDs[0])
		unix.Close(p.pipeFDs[1])
		p.pipeFDs[0] = -1
		p.pipeFDs[1] = -1
	}
	return err
}
