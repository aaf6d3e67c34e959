package packet

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/traditionalchinese"
)

// Writer builds one notification frame: an opcode byte followed by
// little-endian fields. Bytes() pads the frame to a 4-byte boundary.
type Writer struct {
	buf []byte
}

// NewWriter starts a frame with the given opcode.
func NewWriter(opcode byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 32)}
	w.buf = append(w.buf, opcode)
	return w
}

func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteD(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteStat writes a resource value rounded down to a whole point and
// clamped to the int32 range.
func (w *Writer) WriteStat(v float64) {
	switch {
	case v <= 0 || math.IsNaN(v):
		w.WriteD(0)
	case v >= math.MaxInt32:
		w.WriteD(math.MaxInt32)
	default:
		w.WriteD(int32(v))
	}
}

// WriteLoc writes x, y, z as three D fields.
func (w *Writer) WriteLoc(x, y, z int32) {
	w.WriteD(x)
	w.WriteD(y)
	w.WriteD(z)
}

// WriteS writes a zero-terminated Big5 string. Characters Big5 cannot
// represent fall back to the raw UTF-8 bytes.
func (w *Writer) WriteS(s string) {
	if s != "" {
		enc, err := traditionalchinese.Big5.NewEncoder().Bytes([]byte(s))
		if err != nil {
			enc = []byte(s)
		}
		w.buf = append(w.buf, enc...)
	}
	w.buf = append(w.buf, 0)
}

// Bytes returns the padded frame.
func (w *Writer) Bytes() []byte {
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
	return w.buf
}

// Len returns the unpadded length.
func (w *Writer) Len() int { return len(w.buf) }
