package wire

import (
	"strconv"
	"strings"

	E "github.com/sagernet/sing-rpc/common/exceptions"
)

var ErrVersionFormat = E.New("invalid version format")

// Version is a protocol or encoding version as it appears on the wire.
type Version struct {
	Major uint8
	Minor uint8
}

var (
	Protocol_1_0 = Version{1, 0}
	Encoding_1_0 = Version{1, 0}
	Encoding_1_1 = Version{1, 1}

	CurrentProtocol = Protocol_1_0
	CurrentEncoding = Encoding_1_1
)

func (v Version) String() string {
	return strconv.Itoa(int(v.Major)) + "." + strconv.Itoa(int(v.Minor))
}

func (v Version) Supported() bool {
	return v.Major == 1 && v.Minor <= CurrentEncoding.Minor
}

// ParseVersion accepts "<major>.<minor>" with both parts in [0, 255].
func ParseVersion(str string) (Version, error) {
	majorStr, minorStr, found := strings.Cut(str, ".")
	if !found {
		return Version{}, E.Cause1(ErrVersionFormat, E.New("malformed version `", str, "'"))
	}
	major, err := parseVersionPart(majorStr)
	if err != nil {
		return Version{}, E.Cause1(ErrVersionFormat, E.New("invalid major version `", str, "'"))
	}
	minor, err := parseVersionPart(minorStr)
	if err != nil {
		return Version{}, E.Cause1(ErrVersionFormat, E.New("invalid minor version `", str, "'"))
	}
	return Version{major, minor}, nil
}

func parseVersionPart(str string) (uint8, error) {
	if str == "" || str[0] == '+' || str[0] == '-' {
		return 0, ErrVersionFormat
	}
	value, err := strconv.ParseUint(str, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(value), nil
}
