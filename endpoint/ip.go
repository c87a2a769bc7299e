package endpoint

import (
	"strconv"
	"strings"

	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/wire"
)

// IPEndpoint carries the fields shared by IP based transports. Transports embed it by
// value, it is never modified after construction.
type IPEndpoint struct {
	instance     *Instance
	host         string
	port         int
	connectionID string
}

func NewIPEndpoint(instance *Instance, host string, port int, connectionID string) IPEndpoint {
	return IPEndpoint{
		instance:     instance,
		host:         host,
		port:         port,
		connectionID: connectionID,
	}
}

// ReadIPEndpoint decodes the host and port written by Encode.
func ReadIPEndpoint(instance *Instance, s *wire.InputStream) (IPEndpoint, error) {
	host, err := s.ReadString()
	if err != nil {
		return IPEndpoint{}, E.Cause(err, "read host")
	}
	port, err := s.ReadInt()
	if err != nil {
		return IPEndpoint{}, E.Cause(err, "read port")
	}
	if port < 0 || port > 65535 {
		return IPEndpoint{}, E.New("port ", port, " out of range")
	}
	return NewIPEndpoint(instance, host, int(port), ""), nil
}

func (e IPEndpoint) Instance() *Instance {
	return e.instance
}

func (e IPEndpoint) Protocol() string {
	return e.instance.Protocol
}

func (e IPEndpoint) Type() int16 {
	return e.instance.Type
}

func (e IPEndpoint) Secure() bool {
	return e.instance.Secure
}

func (e IPEndpoint) Host() string {
	return e.host
}

func (e IPEndpoint) Port() int {
	return e.port
}

func (e IPEndpoint) ConnectionID() string {
	return e.connectionID
}

// Options renders " -h <host> -p <port>". Hosts containing ':' are quoted.
func (e IPEndpoint) Options() string {
	var builder strings.Builder
	if e.host != "" {
		builder.WriteString(" -h ")
		if strings.Contains(e.host, ":") {
			builder.WriteString("\"" + e.host + "\"")
		} else {
			builder.WriteString(e.host)
		}
	}
	builder.WriteString(" -p ")
	builder.WriteString(strconv.Itoa(e.port))
	return builder.String()
}

func (e IPEndpoint) Encode(s *wire.OutputStream) error {
	err := s.WriteString(e.host)
	if err != nil {
		return err
	}
	s.WriteInt(int32(e.port))
	return nil
}

func (e IPEndpoint) FillInfo(info *Info) {
	info.Type = e.Type()
	info.Secure = e.Secure()
	info.Host = e.host
	info.Port = e.port
	info.ConnectionID = e.connectionID
}

// CompareIP orders by host, port, then connection id.
func (e IPEndpoint) CompareIP(other IPEndpoint) int {
	if c := strings.Compare(e.host, other.host); c != 0 {
		return c
	}
	switch {
	case e.port < other.port:
		return -1
	case e.port > other.port:
		return 1
	}
	return strings.Compare(e.connectionID, other.connectionID)
}

// SameAddress reports whether host and port match.
func (e IPEndpoint) SameAddress(other IPEndpoint) bool {
	return e.host == other.host && e.port == other.port
}

// IPOptions collects -h and -p while an endpoint is parsed.
type IPOptions struct {
	Host string
	Port int
}

func (o *IPOptions) CheckOption(option Option, endpoint string) (bool, error) {
	switch option.Name {
	case "-h":
		if err := option.RequireArgument(endpoint); err != nil {
			return false, err
		}
		o.Host = option.Argument
	case "-p":
		if err := option.RequireArgument(endpoint); err != nil {
			return false, err
		}
		port, err := strconv.Atoi(option.Argument)
		if err != nil {
			return false, NewParseError(endpoint, "invalid port value `", option.Argument, "'")
		}
		if port < 0 || port > 65535 {
			return false, NewParseError(endpoint, "port value `", option.Argument, "' out of range")
		}
		o.Port = port
	default:
		return false, nil
	}
	return true, nil
}

// Build applies the defaults. "-h *" is the wildcard host and only valid for server endpoints.
func (o *IPOptions) Build(instance *Instance, server bool, endpoint string) (IPEndpoint, error) {
	host := o.Host
	switch host {
	case "":
		host = instance.DefaultHost
	case "*":
		if !server {
			return IPEndpoint{}, NewParseError(endpoint, "`-h *' not valid for proxy endpoint")
		}
		host = ""
	}
	return NewIPEndpoint(instance, host, o.Port, ""), nil
}
