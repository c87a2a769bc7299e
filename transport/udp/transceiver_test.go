package udp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sagernet/sing-rpc/endpoint"

	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, text string) (*Transceiver, *Endpoint) {
	registry, _ := newTestRegistry(t)
	server, err := registry.Parse(text, true)
	require.NoError(t, err)
	transceiver, effective, err := server.Transceiver()
	require.NoError(t, err)
	t.Cleanup(func() {
		transceiver.Close()
	})
	require.NotZero(t, effective.Info().Port)
	require.Positive(t, transceiver.FD())
	return transceiver.(*Transceiver), effective.(*Endpoint)
}

func dial(t *testing.T, effective *Endpoint) endpoint.Transceiver {
	connectors, err := effective.Connectors(context.Background(), endpoint.SelectionOrdered)
	require.NoError(t, err)
	require.Len(t, connectors, 1)
	require.Equal(t, Type, connectors[0].Type())
	client, err := connectors[0].Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func readString(t *testing.T, transceiver endpoint.Transceiver) string {
	require.NoError(t, transceiver.(interface{ SetReadDeadline(time.Time) error }).SetReadDeadline(time.Now().Add(5*time.Second)))
	buffer := make([]byte, 1500)
	n, err := transceiver.Read(buffer)
	require.NoError(t, err)
	return string(buffer[:n])
}

func TestTransceiverExchange(t *testing.T) {
	t.Parallel()
	server, effective := startServer(t, "udp -h 127.0.0.1 -p 0")
	require.Equal(t, "127.0.0.1", effective.Host())

	_, err := server.Write([]byte("early"))
	require.ErrorIs(t, err, ErrNoPeer)

	client := dial(t, effective)
	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)
	require.Equal(t, "ping", readString(t, server))

	_, err = server.Write([]byte("pong"))
	require.NoError(t, err)
	require.Equal(t, "pong", readString(t, client))
	require.Equal(t, Protocol, client.Protocol())
	require.Contains(t, server.String(), "remote address = 127.0.0.1:")
}

func TestTransceiverRepliesToLatestPeer(t *testing.T) {
	t.Parallel()
	server, effective := startServer(t, "udp -h 127.0.0.1 -p 0")
	first := dial(t, effective)
	second := dial(t, effective)

	_, err := first.Write([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, "a", readString(t, server))
	_, err = second.Write([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, "b", readString(t, server))

	_, err = server.Write([]byte("reply"))
	require.NoError(t, err)
	require.Equal(t, "reply", readString(t, second))
}

func TestConnectModeLocksFirstPeer(t *testing.T) {
	t.Parallel()
	server, effective := startServer(t, "udp -h 127.0.0.1 -p 0 -c")
	first := dial(t, effective)
	second := dial(t, effective)

	_, err := first.Write([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, "a", readString(t, server))
	peer := server.Peer()

	_, err = second.Write([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, "", readString(t, server))
	_, err = first.Write([]byte("c"))
	require.NoError(t, err)
	require.Equal(t, "c", readString(t, server))
	require.Equal(t, peer, server.Peer())

	_, err = server.Write([]byte("reply"))
	require.NoError(t, err)
	require.Equal(t, "reply", readString(t, first))
}

func TestWildcardTransceiver(t *testing.T) {
	t.Parallel()
	server, effective := startServer(t, "udp -h * -p 0")
	require.Equal(t, "", effective.Host())
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: effective.Port()})
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("v4"))
	require.NoError(t, err)
	require.Equal(t, "v4", readString(t, server))
	require.True(t, server.Peer().Addr().Is4())

	_, err = server.Write([]byte("back"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buffer := make([]byte, 16)
	n, err := conn.Read(buffer)
	require.NoError(t, err)
	require.Equal(t, "back", string(buffer[:n]))
}
