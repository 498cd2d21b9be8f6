package protocol

import (
	"encoding/binary"

	"github.com/vango-dev/listdiff/pkg/listdiff"
)

// Encoder builds one frame payload. Writes cannot fail.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with room for size bytes.
func NewEncoder(size int) *Encoder {
	return &Encoder{buf: make([]byte, 0, size)}
}

// Bytes returns the payload written so far.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.WriteUint8(1)
		return
	}
	e.WriteUint8(0)
}

func (e *Encoder) WriteUint16(v uint16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) WriteUvarint(v uint64) {
	e.buf = binary.AppendUvarint(e.buf, v)
}

// WriteSvarint writes v zigzag encoded, so -1 takes a single byte.
func (e *Encoder) WriteSvarint(v int64) {
	e.buf = binary.AppendVarint(e.buf, v)
}

// WriteLenBytes writes a uvarint length prefix and b.
func (e *Encoder) WriteLenBytes(b []byte) {
	e.WriteUvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WritePath writes a section and element coordinate. NoPath and section
// paths carry -1 elements.
func (e *Encoder) WritePath(p listdiff.Path) {
	e.WriteSvarint(int64(p.Section))
	e.WriteSvarint(int64(p.Element))
}
