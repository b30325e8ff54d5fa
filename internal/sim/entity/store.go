package entity

import (
	"fmt"
	"sync/atomic"
)

// Store holds the authoritative registries. When more than one registry lock
// is needed they are taken in the order Players, Mobs, Items.
type Store struct {
	Players *Registry[*Player]
	Mobs    *Registry[*Mob]
	Items   *Registry[*WorldItem]

	nextMobNum  atomic.Uint64
	nextItemNum atomic.Uint64
}

func NewStore() *Store {
	return &Store{
		Players: NewRegistry[*Player](),
		Mobs:    NewRegistry[*Mob](),
		Items:   NewRegistry[*WorldItem](),
	}
}

func (s *Store) NewMobID() string  { return fmt.Sprintf("M%d", s.nextMobNum.Add(1)) }
func (s *Store) NewItemID() string { return fmt.Sprintf("I%d", s.nextItemNum.Add(1)) }

// ClaimItem removes the world item if it is still present. Exactly one of any
// number of concurrent claims for the same id succeeds.
func (s *Store) ClaimItem(id string) (*WorldItem, bool) {
	return s.Items.Remove(id)
}

func (s *Store) PlayerSnapshot() []*Player {
	return s.Players.Snapshot(func(p *Player) *Player { return p.Clone() })
}

func (s *Store) MobSnapshot() []*Mob {
	return s.Mobs.Snapshot(func(m *Mob) *Mob {
		cp := *m
		cp.Dealers = nil
		return &cp
	})
}

func (s *Store) ItemSnapshot() []*WorldItem {
	return s.Items.Snapshot(func(w *WorldItem) *WorldItem {
		cp := *w
		return &cp
	})
}

// PlayerByUsername scans for a spawned player with the given username.
func (s *Store) PlayerByUsername(username string) (*Player, bool) {
	var found *Player
	s.Players.View(func(l Locked[*Player]) {
		l.Each(func(_ string, p *Player) bool {
			if p.Username == username {
				found = p.Clone()
				return false
			}
			return true
		})
	})
	return found, found != nil
}
