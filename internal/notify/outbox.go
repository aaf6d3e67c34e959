// Package notify turns world notifications into frames and hands them to
// an observer's transport.
package notify

import (
	"sync"
	"sync/atomic"

	"github.com/l1jgo/gamecore/internal/net/packet"
	"github.com/l1jgo/gamecore/internal/world"
	"go.uber.org/zap"
)

// Sender writes one frame to the observer. It is only called from the
// outbox's writer goroutine.
type Sender interface {
	SendFrame(frame []byte) error
}

// Outbox is a world.Sink backed by a bounded frame queue. Producers never
// block: an observer too slow to drain its queue is disconnected.
type Outbox struct {
	ID     uint64
	sender Sender
	out    chan []byte

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	sent      atomic.Int64

	log *zap.Logger
}

var _ world.Sink = (*Outbox)(nil)

// NewOutbox creates an outbox holding up to size queued frames.
func NewOutbox(id uint64, size int, s Sender, log *zap.Logger) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		ID:      id,
		sender:  s,
		out:     make(chan []byte, size),
		closeCh: make(chan struct{}),
		log:     log.With(zap.Uint64("outbox", id)),
	}
}

// Start launches the writer goroutine.
func (o *Outbox) Start() {
	go o.writeLoop()
}

func (o *Outbox) writeLoop() {
	defer o.Close()
	for {
		select {
		case f := <-o.out:
			if err := o.sender.SendFrame(f); err != nil {
				if !o.closed.Load() {
					o.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
			o.sent.Add(1)
		case <-o.closeCh:
			return
		}
	}
}

// push queues a frame without blocking.
func (o *Outbox) push(frame []byte) {
	if o.closed.Load() {
		return
	}
	select {
	case o.out <- frame:
	default:
		o.log.Warn("輸出佇列已滿，斷開慢速連線")
		o.Close()
	}
}

func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		o.closed.Store(true)
		close(o.closeCh)
	})
}

func (o *Outbox) IsClosed() bool { return o.closed.Load() }

// Done is closed when the outbox shuts down.
func (o *Outbox) Done() <-chan struct{} { return o.closeCh }

// Sent returns the number of frames handed to the sender.
func (o *Outbox) Sent() int64 { return o.sent.Load() }

func (o *Outbox) StatusUpdate(src *world.Creature, s world.StatusSnapshot) {
	w := packet.NewWriter(packet.S_OPCODE_STATUS_UPDATE)
	w.WriteD(src.ID)
	w.WriteStat(s.HP)
	w.WriteStat(s.MaxHP)
	w.WriteStat(s.MP)
	w.WriteStat(s.MaxMP)
	w.WriteStat(s.CP)
	w.WriteStat(s.MaxCP)
	o.push(w.Bytes())
}

// EtcStatusUpdate carries the danger-area icon state.
func (o *Outbox) EtcStatusUpdate(self *world.Creature) {
	w := packet.NewWriter(packet.S_OPCODE_ETC_STATUS_UPDATE)
	w.WriteD(self.ID)
	w.WriteC(flag(self.IsInsideZone(world.ZoneDangerArea)))
	w.WriteC(flag(self.IsInsideZone(world.ZoneAltered)))
	o.push(w.Bytes())
}

func (o *Outbox) Earthquake(at world.Location, intensity, duration int) {
	w := packet.NewWriter(packet.S_OPCODE_EARTHQUAKE)
	w.WriteLoc(at.X, at.Y, at.Z)
	w.WriteD(int32(intensity))
	w.WriteD(int32(duration))
	o.push(w.Bytes())
}

func (o *Outbox) ShowHTML(page string, npcObjID int32) {
	w := packet.NewWriter(packet.S_OPCODE_NPC_HTML)
	w.WriteD(npcObjID)
	w.WriteS(page)
	o.push(w.Bytes())
}

func (o *Outbox) RemoveObject(objectID int32) {
	w := packet.NewWriter(packet.S_OPCODE_REMOVE_OBJECT)
	w.WriteD(objectID)
	o.push(w.Bytes())
}

func flag(v bool) byte {
	if v {
		return 1
	}
	return 0
}
