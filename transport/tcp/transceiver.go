package tcp

import (
	"net"

	"github.com/sagernet/sing-rpc/common"
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/endpoint"
)

var _ endpoint.Transceiver = (*Transceiver)(nil)

type Transceiver struct {
	*net.TCPConn
	fd int
}

func newTransceiver(tcpConn *net.TCPConn) (*Transceiver, error) {
	fd, err := common.GetFileDescriptor(tcpConn)
	if err != nil {
		return nil, E.Cause(err, "get tcp socket descriptor")
	}
	return &Transceiver{TCPConn: tcpConn, fd: fd}, nil
}

func (t *Transceiver) FD() int {
	return t.fd
}

func (t *Transceiver) Protocol() string {
	return Protocol
}

func (t *Transceiver) String() string {
	return "local address = " + t.LocalAddr().String() + "\nremote address = " + t.RemoteAddr().String()
}
