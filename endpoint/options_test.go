package endpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptionsGrammar(t *testing.T) {
	t.Parallel()
	seen := make(map[string]Option)
	unknown, err := ParseOptions("stub", []string{"-h", "host", "plain", "-z", "-x", "value", "-y", "-"}, func(option Option, endpoint string) (bool, error) {
		seen[option.Name] = option
		return option.Name == "-h" || option.Name == "-z", nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"plain", "-x", "value", "-y", "-"}, unknown)
	require.Equal(t, Option{Name: "-h", Argument: "host", HasArgument: true}, seen["-h"])
	require.Equal(t, Option{Name: "-z"}, seen["-z"])
	require.Equal(t, Option{Name: "-x", Argument: "value", HasArgument: true}, seen["-x"])
}

func TestParseOptionsDashArgumentIsFlag(t *testing.T) {
	t.Parallel()
	var ipOptions IPOptions
	_, err := ParseOptions("stub", []string{"-p", "-1"}, ipOptions.CheckOption)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "no argument provided for -p option", parseErr.Reason)
	require.Equal(t, "`stub -p -1'", parseErr.Endpoint)
}

func TestOptionArgumentChecks(t *testing.T) {
	t.Parallel()
	require.NoError(t, Option{Name: "-z"}.NoArgument("e"))
	require.Error(t, Option{Name: "-z", Argument: "1", HasArgument: true}.NoArgument("e"))
	require.NoError(t, Option{Name: "-h", Argument: "x", HasArgument: true}.RequireArgument("e"))
	require.Error(t, Option{Name: "-h"}.RequireArgument("e"))
}

func TestIPOptions(t *testing.T) {
	t.Parallel()
	instance := (&Instance{DefaultHost: "default.example"}).Derive(99, "stub", false)
	for _, testCase := range []struct {
		args []string
		err  string
	}{
		{[]string{"-p", "abc"}, "invalid port value `abc'"},
		{[]string{"-p", "65536"}, "port value `65536' out of range"},
		{[]string{"-h"}, "no argument provided for -h option"},
	} {
		var ipOptions IPOptions
		_, err := ParseOptions("stub", testCase.args, ipOptions.CheckOption)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr, testCase.args)
		require.Equal(t, testCase.err, parseErr.Reason)
	}

	var ipOptions IPOptions
	ip, err := ipOptions.Build(instance, false, "`stub'")
	require.NoError(t, err)
	require.Equal(t, "default.example", ip.Host())

	ipOptions = IPOptions{Host: "*", Port: 10}
	_, err = ipOptions.Build(instance, false, "`stub -h *'")
	require.Error(t, err)
	ip, err = ipOptions.Build(instance, true, "`stub -h *'")
	require.NoError(t, err)
	require.Equal(t, "", ip.Host())
	require.Equal(t, " -p 10", ip.Options())
}

func TestDescribeQuotesWhitespace(t *testing.T) {
	t.Parallel()
	require.Equal(t, "`udp -h \"a b\" -p 1'", Describe("udp", []string{"-h", "a b", "-p", "1"}))
}
