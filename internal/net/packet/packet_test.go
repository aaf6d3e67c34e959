package packet

import (
	"math"
	"testing"
)

func TestWriterReader(t *testing.T) {
	w := NewWriter(S_OPCODE_NPC_HTML)
	w.WriteC(7)
	w.WriteH(0xbeef)
	w.WriteD(-5)
	w.WriteS("次元裂縫")
	w.WriteS("")
	w.WriteStat(math.Inf(1))
	b := w.Bytes()
	if len(b)%4 != 0 {
		t.Fatalf("len=%d not padded", len(b))
	}

	r := NewReader(b)
	if r.Opcode() != S_OPCODE_NPC_HTML || r.ReadC() != 7 || r.ReadH() != 0xbeef || r.ReadD() != -5 {
		t.Fatalf("fixed fields mismatch")
	}
	if s := r.ReadS(); s != "次元裂縫" {
		t.Fatalf("s=%q", s)
	}
	if s := r.ReadS(); s != "" {
		t.Fatalf("empty string=%q", s)
	}
	if v := r.ReadD(); v != math.MaxInt32 {
		t.Fatalf("stat=%d want clamp", v)
	}
	if r.ReadD() != 0 || r.Remaining() != 0 {
		t.Fatalf("read past end should yield zero")
	}
}
