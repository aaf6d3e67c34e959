package admin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/l1jgo/gamecore/internal/notify"
	"github.com/l1jgo/gamecore/internal/world"
	"github.com/l1jgo/gamecore/internal/zone"
	"go.uber.org/zap"
)

// session is one authenticated console connection.
type session struct {
	id      uint64
	console *Console
	w       *conn
	log     *zap.Logger

	watched  *world.Creature
	prevSink world.Sink
	outbox   *notify.Outbox
}

const helpText = `commands:
  zones
  zone <id> enable|disable
  zone <id> skill add <skill> <level>
  zone <id> skill remove <skill>
  zone <id> skill clear
  rifts
  rift exit <party>
  expiry
  watch <creature>
  unwatch
  quit`

// exec runs one command line and returns the reply text.
func (s *session) exec(line string) string {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]
	s.log.Debug("管理指令", zap.String("cmd", line))

	switch cmd {
	case "help":
		return helpText
	case "zones":
		return s.zones()
	case "zone":
		return s.zone(args)
	case "rifts":
		return s.rifts()
	case "rift":
		return s.rift(args)
	case "expiry":
		return s.expiry()
	case "watch":
		return s.watch(args)
	case "unwatch":
		s.unwatch()
		return "OK"
	default:
		return "ERR unknown command " + cmd
	}
}

func (s *session) zones() string {
	zm := s.console.deps.Zones
	if zm == nil {
		return "ERR no zones"
	}
	var b strings.Builder
	for _, z := range zm.List() {
		fmt.Fprintf(&b, "%d %s enabled=%v active=%v occupants=%d skills=%d ticks=%d\n",
			z.ID, z.Name, z.Enabled(), z.Active(), len(z.Occupants()), len(z.Skills()), z.Ticks())
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *session) zone(args []string) string {
	zm := s.console.deps.Zones
	if zm == nil || len(args) < 2 {
		return "ERR usage: zone <id> ..."
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "ERR bad zone id"
	}
	z := zm.Get(int32(id))
	if z == nil {
		return "ERR no such zone"
	}

	switch args[1] {
	case "enable", "disable":
		z.SetEnabled(args[1] == "enable")
		s.log.Info("管理員切換效果區域", zap.Int32("zone", z.ID), zap.Bool("enabled", z.Enabled()))
		return "OK"
	case "skill":
		return s.zoneSkill(z, args[2:])
	}
	return "ERR unknown zone command"
}

func (s *session) zoneSkill(z *zone.EffectZone, args []string) string {
	if len(args) == 0 {
		return "ERR usage: zone <id> skill add|remove|clear"
	}
	switch args[0] {
	case "add":
		if len(args) != 3 {
			return "ERR usage: zone <id> skill add <skill> <level>"
		}
		sid, err1 := strconv.Atoi(args[1])
		lvl, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return "ERR bad number"
		}
		z.AddSkill(int32(sid), lvl)
	case "remove":
		if len(args) != 2 {
			return "ERR usage: zone <id> skill remove <skill>"
		}
		sid, err := strconv.Atoi(args[1])
		if err != nil {
			return "ERR bad number"
		}
		z.RemoveSkill(int32(sid))
	case "clear":
		z.ClearSkills()
	default:
		return "ERR unknown skill command"
	}
	return "OK"
}

func (s *session) rifts() string {
	rm := s.console.deps.Rifts
	if rm == nil {
		return "ERR no rifts"
	}
	rs := rm.Rifts()
	var b strings.Builder
	fmt.Fprintf(&b, "live=%d", len(rs))
	for _, r := range rs {
		fmt.Fprintf(&b, "\nparty=%d type=%d room=%d jumps=%d dead=%d boss=%v",
			r.PartyID(), r.Type(), r.CurrentRoom(), r.Jumps(), r.DeadCount(), r.IsBossRoom())
	}
	return b.String()
}

func (s *session) rift(args []string) string {
	rm := s.console.deps.Rifts
	if rm == nil || len(args) != 2 || args[0] != "exit" {
		return "ERR usage: rift exit <party>"
	}
	pid, err := strconv.Atoi(args[1])
	if err != nil {
		return "ERR bad party id"
	}
	for _, r := range rm.Rifts() {
		if r.PartyID() == int32(pid) {
			r.Exit()
			s.log.Info("管理員結束次元裂縫", zap.Int("party", pid))
			return "OK"
		}
	}
	return "ERR party not in a rift"
}

func (s *session) expiry() string {
	var b strings.Builder
	for _, r := range s.console.deps.Registry {
		st := r.Stats()
		fmt.Fprintf(&b, "%s tracked=%d expired=%d dropped=%d\n", st.Name, st.Tracked, st.Expired, st.Dropped)
	}
	if b.Len() == 0 {
		return "ERR no registries"
	}
	return strings.TrimRight(b.String(), "\n")
}

// watch mirrors a creature's notifications to this connection as binary
// frames until unwatch or disconnect.
func (s *session) watch(args []string) string {
	w := s.console.deps.World
	if w == nil || len(args) != 1 {
		return "ERR usage: watch <creature>"
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return "ERR bad creature id"
	}
	c := w.Creature(int32(id))
	if c == nil {
		return "ERR no such creature"
	}
	s.unwatch()

	ob := notify.NewOutbox(s.id, watchQueue, s.w, s.log)
	s.watched, s.prevSink, s.outbox = c, c.Sink(), ob
	c.SetSink(ob)
	ob.Start()
	return "OK"
}

func (s *session) unwatch() {
	if s.outbox == nil {
		return
	}
	if s.watched.Sink() == world.Sink(s.outbox) {
		s.watched.SetSink(s.prevSink)
	}
	s.outbox.Close()
	s.watched, s.prevSink, s.outbox = nil, nil, nil
}

func (s *session) close() {
	s.unwatch()
	s.log.Info("管理員離線")
}
