package world

// StatusSnapshot is a point-in-time copy of a creature's resources.
type StatusSnapshot struct {
	HP, MaxHP float64
	MP, MaxMP float64
	CP, MaxCP float64
}

// Sink receives notifications addressed to one player's client. The wire
// encoding is the implementation's business.
type Sink interface {
	StatusUpdate(src *Creature, s StatusSnapshot)
	EtcStatusUpdate(self *Creature)
	Earthquake(at Location, intensity, duration int)
	ShowHTML(page string, npcObjID int32)
	RemoveObject(objectID int32)
}

type nopSink struct{}

func (nopSink) StatusUpdate(*Creature, StatusSnapshot) {}
func (nopSink) EtcStatusUpdate(*Creature)              {}
func (nopSink) Earthquake(Location, int, int)          {}
func (nopSink) ShowHTML(string, int32)                 {}
func (nopSink) RemoveObject(int32)                     {}
