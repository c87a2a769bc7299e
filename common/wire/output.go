package wire

import (
	"encoding/binary"
	"math"

	E "github.com/sagernet/sing-rpc/common/exceptions"

	"github.com/valyala/bytebufferpool"
)

var ErrStringTooLong = E.New("string exceeds maximum size")

type encapsulation struct {
	start    int
	encoding Version
}

// OutputStream marshals values in little-endian byte order. Buffers come from a pool;
// call Release once the bytes are no longer needed.
type OutputStream struct {
	buffer   *bytebufferpool.ByteBuffer
	encoding Version
	encaps   []encapsulation
}

func NewOutputStream(encoding Version) *OutputStream {
	return &OutputStream{
		buffer:   bytebufferpool.Get(),
		encoding: encoding,
	}
}

// Encoding returns the encoding of the innermost open encapsulation.
func (s *OutputStream) Encoding() Version {
	if len(s.encaps) > 0 {
		return s.encaps[len(s.encaps)-1].encoding
	}
	return s.encoding
}

func (s *OutputStream) Len() int {
	return s.buffer.Len()
}

// Bytes returns the marshaled data. The slice is only valid until Release.
func (s *OutputStream) Bytes() []byte {
	return s.buffer.B
}

func (s *OutputStream) Release() {
	if s.buffer != nil {
		bytebufferpool.Put(s.buffer)
		s.buffer = nil
	}
}

func (s *OutputStream) WriteByte(b byte) error {
	return s.buffer.WriteByte(b)
}

func (s *OutputStream) WriteBool(value bool) {
	if value {
		s.buffer.B = append(s.buffer.B, 1)
	} else {
		s.buffer.B = append(s.buffer.B, 0)
	}
}

func (s *OutputStream) WriteShort(value int16) {
	s.buffer.B = binary.LittleEndian.AppendUint16(s.buffer.B, uint16(value))
}

func (s *OutputStream) WriteInt(value int32) {
	s.buffer.B = binary.LittleEndian.AppendUint32(s.buffer.B, uint32(value))
}

func (s *OutputStream) WriteSize(size int) {
	if size < 255 {
		s.buffer.B = append(s.buffer.B, byte(size))
		return
	}
	s.buffer.B = append(s.buffer.B, 255)
	s.WriteInt(int32(size))
}

func (s *OutputStream) WriteString(value string) error {
	if len(value) > math.MaxInt32 {
		return ErrStringTooLong
	}
	s.WriteSize(len(value))
	s.buffer.B = append(s.buffer.B, value...)
	return nil
}

func (s *OutputStream) WriteVersion(version Version) {
	s.buffer.B = append(s.buffer.B, version.Major, version.Minor)
}

func (s *OutputStream) WriteBytes(data []byte) {
	s.buffer.B = append(s.buffer.B, data...)
}

// StartEncapsulation opens a size-prefixed block. The size is patched by EndEncapsulation
// and covers the 4-byte size and 2-byte encoding header.
func (s *OutputStream) StartEncapsulation(encoding Version) {
	s.encaps = append(s.encaps, encapsulation{start: s.buffer.Len(), encoding: encoding})
	s.WriteInt(0)
	s.WriteVersion(encoding)
}

func (s *OutputStream) EndEncapsulation() {
	if len(s.encaps) == 0 {
		panic("wire: EndEncapsulation without StartEncapsulation")
	}
	current := s.encaps[len(s.encaps)-1]
	s.encaps = s.encaps[:len(s.encaps)-1]
	size := s.buffer.Len() - current.start
	binary.LittleEndian.PutUint32(s.buffer.B[current.start:], uint32(size))
}
