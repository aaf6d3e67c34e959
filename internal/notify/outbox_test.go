package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/gamecore/internal/net/packet"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap/zaptest"
)

type chanSender struct {
	frames chan []byte
	err    error
}

func (s *chanSender) SendFrame(f []byte) error {
	if s.err != nil {
		return s.err
	}
	s.frames <- f
	return nil
}

func next(t *testing.T, s *chanSender) *packet.Reader {
	t.Helper()
	select {
	case f := <-s.frames:
		if len(f)%4 != 0 {
			t.Fatalf("frame len=%d not padded", len(f))
		}
		return packet.NewReader(f)
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame")
		return nil
	}
}

func TestOutbox_Frames(t *testing.T) {
	s := &chanSender{frames: make(chan []byte, 8)}
	o := NewOutbox(1, 8, s, zaptest.NewLogger(t))
	o.Start()
	defer o.Close()

	c := world.NewCreature(world.Spec{ID: 77, Kind: world.KindPlayer, MaxHP: 100}, world.Runtime{}, world.Hooks{})
	c.SetInsideZone(world.ZoneDangerArea, true)

	o.StatusUpdate(c, world.StatusSnapshot{HP: 45.9, MaxHP: 100, MP: -1, MaxMP: 30})
	r := next(t, s)
	if r.Opcode() != packet.S_OPCODE_STATUS_UPDATE || r.ReadD() != 77 {
		t.Fatalf("bad status header")
	}
	if hp, maxHP, mp := r.ReadD(), r.ReadD(), r.ReadD(); hp != 45 || maxHP != 100 || mp != 0 {
		t.Fatalf("hp=%d maxHP=%d mp=%d", hp, maxHP, mp)
	}

	o.EtcStatusUpdate(c)
	r = next(t, s)
	if r.Opcode() != packet.S_OPCODE_ETC_STATUS_UPDATE || r.ReadD() != 77 || r.ReadC() != 1 || r.ReadC() != 0 {
		t.Fatalf("bad etc status frame")
	}

	o.Earthquake(world.Location{X: -1, Y: 2, Z: 3}, 65, 9)
	r = next(t, s)
	if x, y, z, in, d := r.ReadD(), r.ReadD(), r.ReadD(), r.ReadD(), r.ReadD(); x != -1 || y != 2 || z != 3 || in != 65 || d != 9 {
		t.Fatalf("quake=%d,%d,%d %d/%d", x, y, z, in, d)
	}

	o.ShowHTML("seven_signs/rift/次元.htm", 42)
	r = next(t, s)
	if r.ReadD() != 42 {
		t.Fatalf("npc id lost")
	}
	if page := r.ReadS(); page != "seven_signs/rift/次元.htm" {
		t.Fatalf("page=%q", page)
	}

	o.RemoveObject(9)
	r = next(t, s)
	if r.Opcode() != packet.S_OPCODE_REMOVE_OBJECT || r.ReadD() != 9 {
		t.Fatalf("bad remove frame")
	}
	if got := o.Sent(); got != 5 {
		t.Fatalf("sent=%d want=5", got)
	}
}

func TestOutbox_FullQueueDisconnects(t *testing.T) {
	o := NewOutbox(2, 2, &chanSender{}, zaptest.NewLogger(t))
	o.RemoveObject(1)
	o.RemoveObject(2)
	if o.IsClosed() {
		t.Fatalf("closed before the queue filled")
	}
	o.RemoveObject(3)
	if !o.IsClosed() {
		t.Fatalf("slow observer kept")
	}
	select {
	case <-o.Done():
	default:
		t.Fatalf("done not closed")
	}
	o.RemoveObject(4)
}

func TestOutbox_SenderErrorCloses(t *testing.T) {
	o := NewOutbox(3, 4, &chanSender{err: errors.New("broken pipe")}, zaptest.NewLogger(t))
	o.Start()
	o.RemoveObject(1)
	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("outbox survived a sender error")
	}
}
