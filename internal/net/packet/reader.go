package packet

import (
	"encoding/binary"

	"golang.org/x/text/encoding/traditionalchinese"
)

// Reader decodes a frame built by Writer. Reads past the end return zero
// values instead of failing.
type Reader struct {
	data []byte
	off  int
}

// NewReader wraps a frame. The opcode is consumed up front.
func NewReader(frame []byte) *Reader {
	return &Reader{data: frame, off: 1}
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

func (r *Reader) ReadC() byte {
	if r.off >= len(r.data) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *Reader) ReadD() int32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// ReadS reads a zero-terminated Big5 string and returns it as UTF-8.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) && r.data[r.off] != 0 {
		r.off++
	}
	raw := r.data[start:r.off]
	if r.off < len(r.data) {
		r.off++ // terminator
	}
	return big5ToUTF8(raw)
}

func big5ToUTF8(raw []byte) string {
	ascii := true
	for _, b := range raw {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(raw)
	}
	dec, err := traditionalchinese.Big5.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(dec)
}

// Remaining returns the number of unread bytes, padding included.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
