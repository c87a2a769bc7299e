package conf

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	rpc "github.com/sagernet/sing-rpc"
	E "github.com/sagernet/sing-rpc/common/exceptions"
	J "github.com/sagernet/sing-rpc/common/json"
	"github.com/sagernet/sing-rpc/endpoint"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Log      LogConfig        `json:"log,omitempty"`
	Endpoint EndpointConfig   `json:"endpoint,omitempty"`
	Reactor  ReactorConfig    `json:"reactor,omitempty"`
	Adapters []*AdapterConfig `json:"adapters,omitempty"`
}

type LogConfig struct {
	Level string `json:"level,omitempty"`
}

type EndpointConfig struct {
	DefaultProtocol string   `json:"default_protocol,omitempty"`
	DefaultHost     string   `json:"default_host,omitempty"`
	DefaultTimeout  int32    `json:"default_timeout,omitempty"`
	Network         string   `json:"network,omitempty"`
	PreferIPv6      bool     `json:"prefer_ipv6,omitempty"`
	ResolveRetries  int      `json:"resolve_retries,omitempty"`
	ResolveInterval Duration `json:"resolve_interval,omitempty"`
}

type ReactorConfig struct {
	PoolSize  int `json:"pool_size,omitempty"`
	MaxEvents int `json:"max_events,omitempty"`
}

type AdapterConfig struct {
	Name      string `json:"name"`
	Endpoints string `json:"endpoints"`
}

// Duration accepts Go duration strings such as "250ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var value string
	err := json.Unmarshal(data, &value)
	if err != nil {
		return err
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// Read loads a configuration file. Comments are allowed.
func Read(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, E.Cause(err, "read config file")
	}
	config, err := Parse(content)
	if err != nil {
		return nil, E.Cause(err, "decode config file ", path)
	}
	return config, nil
}

func Parse(content []byte) (*Config, error) {
	decoder := json.NewDecoder(bytes.NewReader(J.StripComments(content)))
	decoder.DisallowUnknownFields()
	config := new(Config)
	err := decoder.Decode(config)
	if err != nil {
		return nil, err
	}
	return config, config.Validate()
}

func (c *Config) Validate() error {
	switch c.Endpoint.Network {
	case "", "ip", "ip4", "ip6":
	default:
		return E.New("unknown network ", c.Endpoint.Network)
	}
	if c.Endpoint.DefaultTimeout < -1 {
		return E.New("invalid default timeout ", c.Endpoint.DefaultTimeout)
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return E.Cause(err, "log level")
		}
	}
	names := make(map[string]bool)
	for _, adapter := range c.Adapters {
		if adapter.Name == "" {
			return E.New("adapter without name")
		}
		if names[adapter.Name] {
			return E.New("duplicate adapter ", adapter.Name)
		}
		names[adapter.Name] = true
	}
	return nil
}

// EndpointInstance returns the shared transport settings.
func (c *Config) EndpointInstance(logger logrus.FieldLogger) endpoint.Instance {
	return endpoint.Instance{
		Logger:          logger,
		DefaultHost:     c.Endpoint.DefaultHost,
		DefaultTimeout:  c.Endpoint.DefaultTimeout,
		Network:         c.Endpoint.Network,
		PreferIPv6:      c.Endpoint.PreferIPv6,
		ResolveRetries:  c.Endpoint.ResolveRetries,
		ResolveInterval: time.Duration(c.Endpoint.ResolveInterval),
	}
}

// Registry builds an endpoint registry without starting a reactor.
func (c *Config) Registry(logger logrus.FieldLogger) (*endpoint.Registry, error) {
	template := c.EndpointInstance(logger)
	return rpc.NewRegistry(&template, c.Endpoint.DefaultProtocol)
}

func (c *Config) Options(logger logrus.FieldLogger, registerer prometheus.Registerer) rpc.Options {
	return rpc.Options{
		Logger:          logger,
		Endpoint:        c.EndpointInstance(logger),
		DefaultProtocol: c.Endpoint.DefaultProtocol,
		PoolSize:        c.Reactor.PoolSize,
		MaxEvents:       c.Reactor.MaxEvents,
		Registerer:      registerer,
	}
}

// Build starts an instance and creates every configured adapter with handler.
func (c *Config) Build(ctx context.Context, logger logrus.FieldLogger, registerer prometheus.Registerer, handler rpc.Handler) (*rpc.Instance, error) {
	instance, err := rpc.NewInstance(ctx, c.Options(logger, registerer))
	if err != nil {
		return nil, err
	}
	for _, adapter := range c.Adapters {
		_, err = instance.CreateAdapter(adapter.Name, adapter.Endpoints, handler)
		if err != nil {
			instance.Close()
			return nil, err
		}
	}
	return instance, nil
}
