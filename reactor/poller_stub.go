//go:build !linux

package reactor

import (
	E "github.com/sagernet/sing-rpc/common/exceptions"
)

func newPlatformPoller() (Poller, error) {
	return nil, E.New("platform poller not supported on this platform")
}
