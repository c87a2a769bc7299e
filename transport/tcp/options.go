package tcp

import (
	"strconv"

	"github.com/sagernet/sing-rpc/endpoint"
)

type options struct {
	ip       endpoint.IPOptions
	timeout  int32
	compress bool
}

func (o *options) check(option endpoint.Option, description string) (bool, error) {
	handled, err := o.ip.CheckOption(option, description)
	if handled || err != nil {
		return handled, err
	}
	switch option.Name {
	case "-t":
		if err = option.RequireArgument(description); err != nil {
			return false, err
		}
		if option.Argument == "infinite" {
			o.timeout = -1
			break
		}
		timeout, err := strconv.ParseInt(option.Argument, 10, 32)
		if err != nil || timeout < 1 {
			return false, endpoint.NewParseError(description, "invalid timeout value `", option.Argument, "'")
		}
		o.timeout = int32(timeout)
	case "-z":
		if err = option.NoArgument(description); err != nil {
			return false, err
		}
		o.compress = true
	default:
		return false, nil
	}
	return true, nil
}
