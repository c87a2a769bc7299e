package exceptions

import (
	"errors"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("sentinel")

func TestCause(t *testing.T) {
	t.Parallel()
	require.NoError(t, Cause(nil, "ignored"))
	err := Cause(errSentinel, "open ", 1)
	require.EqualError(t, err, "open 1: sentinel")
	require.ErrorIs(t, err, errSentinel)

	err = Cause1(errSentinel, os.ErrDeadlineExceeded)
	require.ErrorIs(t, err, errSentinel)
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	require.Equal(t, errSentinel, Cause1(errSentinel, nil))

	require.EqualError(t, Extend(errSentinel, 3, " left"), "sentinel: 3 left")
}

func TestErrors(t *testing.T) {
	t.Parallel()
	require.NoError(t, Errors(nil, nil))
	require.Equal(t, errSentinel, Errors(nil, errSentinel))
	err := Errors(errSentinel, New("other"))
	require.EqualError(t, err, "multi error: (sentinel | other)")
	require.ErrorIs(t, err, errSentinel)
}

func TestTemporary(t *testing.T) {
	t.Parallel()
	require.True(t, IsTemporary(Cause(&net.DNSError{IsTemporary: true}, "resolve")))
	require.False(t, IsTemporary(&net.DNSError{IsNotFound: true}))
	require.True(t, IsTimeout(Errors(errSentinel, Cause(os.ErrDeadlineExceeded, "read"))))
	require.False(t, IsTimeout(errSentinel))
}
