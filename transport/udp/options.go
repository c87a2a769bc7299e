package udp

import (
	"strconv"

	"github.com/sagernet/sing-rpc/common/wire"
	"github.com/sagernet/sing-rpc/endpoint"
)

type options struct {
	ip                 endpoint.IPOptions
	instance           *endpoint.Instance
	multicastInterface string
	multicastTTL       int
	connect            bool
	compress           bool
}

func (o *options) check(option endpoint.Option, description string) (bool, error) {
	handled, err := o.ip.CheckOption(option, description)
	if handled || err != nil {
		return handled, err
	}
	switch option.Name {
	case "-c":
		if err = option.NoArgument(description); err != nil {
			return false, err
		}
		o.connect = true
	case "-z":
		if err = option.NoArgument(description); err != nil {
			return false, err
		}
		o.compress = true
	case "-v", "-e":
		if err = option.RequireArgument(description); err != nil {
			return false, err
		}
		version, err := wire.ParseVersion(option.Argument)
		if err != nil {
			return false, endpoint.NewParseError(description, "invalid version `", option.Argument, "': ", err)
		}
		if version != wire.Encoding_1_0 {
			o.instance.Log().Warn("deprecated udp endpoint option: ", option.Name)
		}
	case "--interface":
		if err = option.RequireArgument(description); err != nil {
			return false, err
		}
		o.multicastInterface = option.Argument
	case "--ttl":
		if err = option.RequireArgument(description); err != nil {
			return false, err
		}
		ttl, err := strconv.Atoi(option.Argument)
		if err != nil {
			return false, endpoint.NewParseError(description, "invalid TTL value `", option.Argument, "'")
		}
		if ttl < 0 {
			return false, endpoint.NewParseError(description, "TTL value `", option.Argument, "' out of range")
		}
		o.multicastTTL = ttl
	default:
		return false, nil
	}
	return true, nil
}
