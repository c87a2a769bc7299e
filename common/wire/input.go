package wire

import (
	"encoding/binary"

	E "github.com/sagernet/sing-rpc/common/exceptions"
)

var (
	ErrUnmarshalOutOfBounds = E.New("unmarshal out of bounds")
	ErrEncapsulation        = E.New("invalid encapsulation")
	ErrUnsupportedEncoding  = E.New("unsupported encoding")
)

// InputStream reads values written by OutputStream.
type InputStream struct {
	data     []byte
	position int
	encoding Version
	encaps   []encapsulation
	sizes    []int
}

func NewInputStream(encoding Version, data []byte) *InputStream {
	return &InputStream{
		data:     data,
		encoding: encoding,
	}
}

func (s *InputStream) Encoding() Version {
	if len(s.encaps) > 0 {
		return s.encaps[len(s.encaps)-1].encoding
	}
	return s.encoding
}

func (s *InputStream) Remaining() int {
	return len(s.data) - s.position
}

func (s *InputStream) next(n int) ([]byte, error) {
	if n < 0 || s.Remaining() < n {
		return nil, ErrUnmarshalOutOfBounds
	}
	b := s.data[s.position : s.position+n]
	s.position += n
	return b, nil
}

func (s *InputStream) Skip(n int) error {
	_, err := s.next(n)
	return err
}

func (s *InputStream) ReadByte() (byte, error) {
	b, err := s.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *InputStream) ReadBool() (bool, error) {
	b, err := s.ReadByte()
	return b != 0, err
}

func (s *InputStream) ReadShort() (int16, error) {
	b, err := s.next(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (s *InputStream) ReadInt() (int32, error) {
	b, err := s.next(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (s *InputStream) ReadSize() (int, error) {
	b, err := s.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 255 {
		return int(b), nil
	}
	size, err := s.ReadInt()
	if err != nil {
		return 0, err
	}
	if size < 0 {
		return 0, ErrUnmarshalOutOfBounds
	}
	return int(size), nil
}

func (s *InputStream) ReadString() (string, error) {
	size, err := s.ReadSize()
	if err != nil {
		return "", err
	}
	b, err := s.next(size)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *InputStream) ReadVersion() (Version, error) {
	b, err := s.next(2)
	if err != nil {
		return Version{}, err
	}
	return Version{b[0], b[1]}, nil
}

func (s *InputStream) StartEncapsulation() (Version, error) {
	start := s.position
	size, err := s.ReadInt()
	if err != nil {
		return Version{}, err
	}
	if size < 6 || int(size) > len(s.data)-start {
		return Version{}, E.Cause1(ErrEncapsulation, E.New("size ", size, " out of bounds"))
	}
	encoding, err := s.ReadVersion()
	if err != nil {
		return Version{}, err
	}
	if !encoding.Supported() {
		return Version{}, E.Cause1(ErrUnsupportedEncoding, E.New("encoding ", encoding))
	}
	s.encaps = append(s.encaps, encapsulation{start: start, encoding: encoding})
	s.sizes = append(s.sizes, int(size))
	return encoding, nil
}

// EndEncapsulation requires the block to be consumed exactly. One trailing byte is
// skipped, old peers padded encapsulations that way.
func (s *InputStream) EndEncapsulation() error {
	if len(s.encaps) == 0 {
		return E.Cause1(ErrEncapsulation, E.New("no open encapsulation"))
	}
	current := s.encaps[len(s.encaps)-1]
	size := s.sizes[len(s.sizes)-1]
	s.encaps = s.encaps[:len(s.encaps)-1]
	s.sizes = s.sizes[:len(s.sizes)-1]
	end := current.start + size
	switch s.position {
	case end:
		return nil
	case end - 1:
		s.position = end
		return nil
	}
	return E.Cause1(ErrEncapsulation, E.New("encapsulation size mismatch"))
}

// SkipEncapsulation skips a whole block and returns its raw payload.
func (s *InputStream) SkipEncapsulation() (Version, []byte, error) {
	encoding, err := s.StartEncapsulation()
	if err != nil {
		return Version{}, nil, err
	}
	size := s.sizes[len(s.sizes)-1]
	payload, err := s.next(size - 6)
	if err != nil {
		return Version{}, nil, err
	}
	return encoding, payload, s.EndEncapsulation()
}
