package tcp

import (
	"context"
	"net"
	"net/netip"

	"github.com/sagernet/sing-rpc/common"
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/endpoint"

	"github.com/sirupsen/logrus"
)

var _ endpoint.Acceptor = (*Acceptor)(nil)

// Acceptor is a listening socket. Register its descriptor for Read readiness and call
// Accept when it is ready.
type Acceptor struct {
	*net.TCPListener
	fd          int
	adapterName string
	logger      logrus.FieldLogger
}

func listen(e *Endpoint, adapterName string) (*Acceptor, error) {
	bind, err := bindAddress(e)
	if err != nil {
		return nil, err
	}
	network := "tcp"
	if bind.Addr().Is4() {
		network = "tcp4"
	}
	tcpListener, err := net.ListenTCP(network, net.TCPAddrFromAddrPort(bind))
	if err != nil {
		return nil, E.Cause(err, "listen ", e)
	}
	fd, err := common.GetFileDescriptor(tcpListener)
	if err != nil {
		tcpListener.Close()
		return nil, E.Cause(err, "get listener descriptor")
	}
	acceptor := &Acceptor{
		TCPListener: tcpListener,
		fd:          fd,
		adapterName: adapterName,
		logger:      e.Instance().Log(),
	}
	acceptor.logger.Debug("listening for ", Protocol, " connections at ", tcpListener.Addr(), " for ", adapterName)
	return acceptor, nil
}

func bindAddress(e *Endpoint) (netip.AddrPort, error) {
	if e.Host() == "" {
		return netip.AddrPortFrom(netip.Addr{}, uint16(e.Port())), nil
	}
	if address, err := netip.ParseAddr(e.Host()); err == nil {
		return netip.AddrPortFrom(address.Unmap(), uint16(e.Port())), nil
	}
	addresses, err := e.Resolve(context.Background(), endpoint.SelectionOrdered)
	if err != nil {
		return netip.AddrPort{}, err
	}
	return addresses[0], nil
}

func (a *Acceptor) FD() int {
	return a.fd
}

func (a *Acceptor) Protocol() string {
	return Protocol
}

func (a *Acceptor) Port() int {
	return a.Addr().(*net.TCPAddr).Port
}

func (a *Acceptor) Accept() (endpoint.Transceiver, error) {
	tcpConn, err := a.AcceptTCP()
	if err != nil {
		return nil, err
	}
	transceiver, err := newTransceiver(tcpConn)
	if err != nil {
		tcpConn.Close()
		return nil, err
	}
	a.logger.Debug("accepted ", Protocol, " connection\n", transceiver)
	return transceiver, nil
}

func (a *Acceptor) String() string {
	return "local address = " + a.Addr().String()
}
