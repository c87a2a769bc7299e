package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()
	version, err := ParseVersion("1.0")
	require.NoError(t, err)
	require.Equal(t, Encoding_1_0, version)
	version, err = ParseVersion("255.7")
	require.NoError(t, err)
	require.Equal(t, Version{255, 7}, version)
	require.Equal(t, "255.7", version.String())
	for _, bad := range []string{"", "1", "1.", ".1", "a.b", "1.256", "-1.0", "1.+1", "1.0.0"} {
		_, err = ParseVersion(bad)
		require.ErrorIs(t, err, ErrVersionFormat, bad)
	}
}

func TestPrimitivesLittleEndian(t *testing.T) {
	t.Parallel()
	output := NewOutputStream(CurrentEncoding)
	defer output.Release()
	output.WriteShort(3)
	output.WriteInt(-2)
	output.WriteBool(true)
	require.NoError(t, output.WriteString("ab"))
	require.Equal(t, []byte{3, 0, 0xfe, 0xff, 0xff, 0xff, 1, 2, 'a', 'b'}, output.Bytes())

	input := NewInputStream(CurrentEncoding, output.Bytes())
	short, err := input.ReadShort()
	require.NoError(t, err)
	require.Equal(t, int16(3), short)
	value, err := input.ReadInt()
	require.NoError(t, err)
	require.Equal(t, int32(-2), value)
	flag, err := input.ReadBool()
	require.NoError(t, err)
	require.True(t, flag)
	str, err := input.ReadString()
	require.NoError(t, err)
	require.Equal(t, "ab", str)
	_, err = input.ReadByte()
	require.ErrorIs(t, err, ErrUnmarshalOutOfBounds)
}

func TestLongStringSize(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 300)
	output := NewOutputStream(CurrentEncoding)
	defer output.Release()
	require.NoError(t, output.WriteString(long))
	require.Equal(t, byte(255), output.Bytes()[0])
	require.Equal(t, 1+4+300, output.Len())
	str, err := NewInputStream(CurrentEncoding, output.Bytes()).ReadString()
	require.NoError(t, err)
	require.Equal(t, long, str)
}

func TestEncapsulation(t *testing.T) {
	t.Parallel()
	output := NewOutputStream(Encoding_1_1)
	defer output.Release()
	output.StartEncapsulation(Encoding_1_0)
	require.Equal(t, Encoding_1_0, output.Encoding())
	output.WriteInt(7)
	output.EndEncapsulation()
	require.Equal(t, Encoding_1_1, output.Encoding())
	require.Equal(t, []byte{10, 0, 0, 0, 1, 0, 7, 0, 0, 0}, output.Bytes())

	input := NewInputStream(Encoding_1_1, output.Bytes())
	encoding, err := input.StartEncapsulation()
	require.NoError(t, err)
	require.Equal(t, Encoding_1_0, encoding)
	require.Equal(t, Encoding_1_0, input.Encoding())
	value, err := input.ReadInt()
	require.NoError(t, err)
	require.Equal(t, int32(7), value)
	require.NoError(t, input.EndEncapsulation())
	require.Zero(t, input.Remaining())
}

func TestEncapsulationMismatch(t *testing.T) {
	t.Parallel()
	input := NewInputStream(CurrentEncoding, []byte{12, 0, 0, 0, 1, 1, 7, 0, 0, 0, 0, 0})
	_, err := input.StartEncapsulation()
	require.NoError(t, err)
	_, err = input.ReadByte()
	require.NoError(t, err)
	require.ErrorIs(t, input.EndEncapsulation(), ErrEncapsulation)

	input = NewInputStream(CurrentEncoding, []byte{7, 0, 0, 0, 1, 1, 0})
	_, err = input.StartEncapsulation()
	require.NoError(t, err)
	require.NoError(t, input.EndEncapsulation())

	_, err = NewInputStream(CurrentEncoding, []byte{6, 0, 0, 0, 2, 0}).StartEncapsulation()
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
	_, err = NewInputStream(CurrentEncoding, []byte{60, 0, 0, 0, 1, 1}).StartEncapsulation()
	require.ErrorIs(t, err, ErrEncapsulation)
}
