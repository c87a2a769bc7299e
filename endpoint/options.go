package endpoint

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed endpoint option or argument.
type ParseError struct {
	Endpoint string
	Reason   string
}

func NewParseError(endpoint string, message ...any) *ParseError {
	return &ParseError{Endpoint: endpoint, Reason: fmt.Sprint(message...)}
}

func (e *ParseError) Error() string {
	if e.Endpoint == "" {
		return "parse endpoint: " + e.Reason
	}
	return "parse endpoint " + e.Endpoint + ": " + e.Reason
}

// Option is one flag with the argument that followed it, if any.
type Option struct {
	Name        string
	Argument    string
	HasArgument bool
}

func (o Option) String() string {
	if o.HasArgument {
		return o.Name + " " + o.Argument
	}
	return o.Name
}

// NoArgument rejects an argument given to a flag that takes none.
func (o Option) NoArgument(endpoint string) error {
	if o.HasArgument {
		return NewParseError(endpoint, "unexpected argument `", o.Argument, "' provided for ", o.Name, " option")
	}
	return nil
}

// RequireArgument rejects a flag that is missing its argument.
func (o Option) RequireArgument(endpoint string) error {
	if !o.HasArgument {
		return NewParseError(endpoint, "no argument provided for ", o.Name, " option")
	}
	return nil
}

// OptionChecker consumes the options it recognizes and reports the others as unhandled.
// endpoint is a printable form of the whole endpoint for error messages.
type OptionChecker func(option Option, endpoint string) (bool, error)

// ParseOptions walks "-flag [argument]" tokens. A token of at least two characters starting
// with '-' is a flag, and the next token is its argument unless it starts with '-' as well.
// Tokens that are not flags and flags rejected by check, with their argument, are returned.
func ParseOptions(protocol string, args []string, check OptionChecker) ([]string, error) {
	description := Describe(protocol, args)
	var unknown []string
	for n := 0; n < len(args); n++ {
		name := args[n]
		if len(name) < 2 || name[0] != '-' {
			unknown = append(unknown, name)
			continue
		}
		option := Option{Name: name}
		if n+1 < len(args) && !strings.HasPrefix(args[n+1], "-") {
			n++
			option.Argument = args[n]
			option.HasArgument = true
		}
		handled, err := check(option, description)
		if err != nil {
			return nil, err
		}
		if !handled {
			unknown = append(unknown, option.Name)
			if option.HasArgument {
				unknown = append(unknown, option.Argument)
			}
		}
	}
	return unknown, nil
}

// Describe renders protocol and args the way they appear in error messages.
func Describe(protocol string, args []string) string {
	var builder strings.Builder
	builder.WriteString("`")
	builder.WriteString(protocol)
	for _, arg := range args {
		builder.WriteString(" ")
		if strings.ContainsAny(arg, " \t\n\r") {
			builder.WriteString("\"" + arg + "\"")
		} else {
			builder.WriteString(arg)
		}
	}
	builder.WriteString("'")
	return builder.String()
}
