package world

import "github.com/sasha-s/go-deadlock"

const MaxPartySize = 9

// PartyInstance is whatever instanced content a party is currently inside
// (a dimensional rift). Membership changes are forwarded to it.
type PartyInstance interface {
	MemberInvited(p *Party, c *Creature)
	MemberExited(p *Party, c *Creature)
	MemberDead(c *Creature)
	MemberRevived(c *Creature)
}

// Party is a group of players. Members[0] is not necessarily the leader.
type Party struct {
	ID int32

	mu       deadlock.RWMutex
	leaderID int32
	members  []*Creature
	instance PartyInstance
}

// Members returns a copy of the member list.
func (p *Party) Members() []*Creature {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Creature, len(p.members))
	copy(out, p.members)
	return out
}

func (p *Party) MemberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

func (p *Party) LeaderID() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.leaderID
}

// Leader returns the leader creature, or nil if it already left.
func (p *Party) Leader() *Creature {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.members {
		if m.ID == p.leaderID {
			return m
		}
	}
	return nil
}

func (p *Party) IsLeader(c *Creature) bool {
	return c != nil && p.LeaderID() == c.ID
}

func (p *Party) Instance() PartyInstance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.instance
}

// SetInstance attaches or (with nil) detaches instanced content.
func (p *Party) SetInstance(inst PartyInstance) {
	p.mu.Lock()
	p.instance = inst
	p.mu.Unlock()
}

// TrySetInstance attaches inst only if no instance is attached yet.
func (p *Party) TrySetInstance(inst PartyInstance) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.instance != nil {
		return false
	}
	p.instance = inst
	return true
}

// ClearInstance detaches inst if it is still the attached instance.
func (p *Party) ClearInstance(inst PartyInstance) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.instance != inst {
		return false
	}
	p.instance = nil
	return true
}

func (p *Party) indexOf(c *Creature) int {
	for i, m := range p.members {
		if m == c {
			return i
		}
	}
	return -1
}

// PartyManager owns every active party.
type PartyManager struct {
	mu      deadlock.Mutex
	nextID  int32
	parties map[int32]*Party
}

func NewPartyManager() *PartyManager {
	return &PartyManager{parties: make(map[int32]*Party)}
}

// CreateParty creates a party led by leader with one initial member.
func (m *PartyManager) CreateParty(leader, member *Creature) *Party {
	m.mu.Lock()
	m.nextID++
	p := &Party{ID: m.nextID, leaderID: leader.ID, members: []*Creature{leader, member}}
	m.parties[p.ID] = p
	m.mu.Unlock()

	leader.setParty(p)
	member.setParty(p)
	return p
}

// Get returns the party with the given id, or nil.
func (m *PartyManager) Get(id int32) *Party {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parties[id]
}

// AddMember adds c to p. Returns false if p is full or c already belongs
// to a party. An attached instance is told about the newcomer.
func (m *PartyManager) AddMember(p *Party, c *Creature) bool {
	if c.Party() != nil {
		return false
	}
	p.mu.Lock()
	if len(p.members) >= MaxPartySize || p.indexOf(c) >= 0 {
		p.mu.Unlock()
		return false
	}
	p.members = append(p.members, c)
	inst := p.instance
	p.mu.Unlock()

	c.setParty(p)
	if inst != nil {
		inst.MemberInvited(p, c)
	}
	return true
}

// RemoveMember takes c out of its party. Leadership passes to the next
// member; a party left with a single member is dissolved.
func (m *PartyManager) RemoveMember(c *Creature) {
	p := c.Party()
	if p == nil {
		return
	}

	p.mu.Lock()
	i := p.indexOf(c)
	if i < 0 {
		p.mu.Unlock()
		return
	}
	p.members = append(p.members[:i], p.members[i+1:]...)
	if p.leaderID == c.ID && len(p.members) > 0 {
		p.leaderID = p.members[0].ID
	}
	remaining := len(p.members)
	inst := p.instance
	p.mu.Unlock()
	c.setParty(nil)

	// The instance sees the party already shrunk.
	if inst != nil {
		inst.MemberExited(p, c)
	}

	if remaining <= 1 {
		m.Dissolve(p)
	}
}

// Dissolve removes every member and forgets the party.
func (m *PartyManager) Dissolve(p *Party) {
	p.mu.Lock()
	members := p.members
	p.members = nil
	p.instance = nil
	p.mu.Unlock()

	for _, c := range members {
		c.setParty(nil)
	}
	m.mu.Lock()
	delete(m.parties, p.ID)
	m.mu.Unlock()
}

// Count returns the number of live parties.
func (m *PartyManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.parties)
}
