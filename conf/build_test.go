//go:build linux

package conf

import (
	"context"
	"testing"

	rpc "github.com/sagernet/sing-rpc"
	"github.com/sagernet/sing-rpc/endpoint"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()
	config, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	handler := rpc.HandlerFunc(func(ctx context.Context, transceiver endpoint.Transceiver, data []byte) ([]byte, error) {
		return data, nil
	})
	instance, err := config.Build(context.Background(), logger, prometheus.NewRegistry(), handler)
	require.NoError(t, err)
	defer instance.Close()

	adapter, loaded := instance.Adapter("echo")
	require.True(t, loaded)
	published := adapter.Endpoints()
	require.Len(t, published, 2)
	require.Equal(t, "127.0.0.1", published[0].Info().Host)
	require.NotZero(t, published[1].Info().Port)

	config.Adapters = append(config.Adapters, &AdapterConfig{Name: "broken", Endpoints: "tcp -p 0 -t 0"})
	_, err = config.Build(context.Background(), logger, nil, handler)
	require.Error(t, err)
}
