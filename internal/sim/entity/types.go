package entity

import (
	"math"
	"sort"
)

// DefaultCollisionRadius is used for items that do not carry their own.
const DefaultCollisionRadius = 8.0

// Rarity is an index into the configured rarity table, weakest first.
type Rarity int

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Dist(o Vec2) float64 { return math.Hypot(v.X-o.X, v.Y-o.Y) }

func (v Vec2) Add(dx, dy float64) Vec2 { return Vec2{X: v.X + dx, Y: v.Y + dy} }

// StackKey identifies items that may share an inventory slot.
type StackKey struct {
	Name   string
	Rarity Rarity
}

type Item struct {
	Name            string  `json:"name"`
	Color           string  `json:"color"`
	Rarity          Rarity  `json:"rarity"`
	Damage          int     `json:"damage"`
	Health          int     `json:"health"`
	MaxHealth       int     `json:"max_health"`
	ReloadMs        int64   `json:"reload_ms"`
	ReloadUntil     int64   `json:"reload_until"`
	CollisionRadius float64 `json:"collision_radius,omitempty"`
	Buff            bool    `json:"buff,omitempty"`
}

func (it *Item) Key() StackKey { return StackKey{Name: it.Name, Rarity: it.Rarity} }

// Ready reports whether the item is out of its reload window at now (ms).
func (it *Item) Ready(now int64) bool { return now >= it.ReloadUntil }

func (it *Item) HitRadius() float64 {
	if it.CollisionRadius > 0 {
		return it.CollisionRadius
	}
	return DefaultCollisionRadius
}

// Wear subtracts durability; when it is used up the item enters its reload
// window and comes back at full durability. Reports whether a reload started.
func (it *Item) Wear(amount int, now int64) bool {
	it.Health -= amount
	if it.Health > 0 {
		return false
	}
	it.ReloadUntil = now + it.ReloadMs
	it.Health = it.MaxHealth
	return true
}

// Slot is one inventory stack.
type Slot struct {
	Item  Item `json:"item"`
	Count int  `json:"count"`
}

type WorldItem struct {
	ID        string  `json:"id"`
	Item      Item    `json:"item"`
	Pos       Vec2    `json:"pos"`
	Radius    float64 `json:"radius"`
	ExpiresAt int64   `json:"expires_at,omitempty"`
}

func (w *WorldItem) Expired(now int64) bool { return w.ExpiresAt != 0 && now >= w.ExpiresAt }

type Player struct {
	ID       string
	Username string
	IsAdmin  bool

	Pos    Vec2
	Spawn  Vec2
	Radius float64
	Speed  float64

	OrbitAngle  float64
	OrbitSpeed  float64
	OrbitRadius float64

	Health          int
	MaxHealth       int
	InvincibleUntil int64

	Hotbar    []*Item
	Inventory []*Slot
}

func (p *Player) Dead() bool { return p.Health <= 0 }

func (p *Player) Invincible(now int64) bool { return now < p.InvincibleUntil }

// Equipped returns the non-empty hotbar items in slot order.
func (p *Player) Equipped() []*Item {
	out := make([]*Item, 0, len(p.Hotbar))
	for _, it := range p.Hotbar {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand outside the players lock.
func (p *Player) Clone() *Player {
	cp := *p
	cp.Hotbar = CloneHotbar(p.Hotbar)
	cp.Inventory = CloneInventory(p.Inventory)
	return &cp
}

func CloneHotbar(in []*Item) []*Item {
	if in == nil {
		return nil
	}
	out := make([]*Item, len(in))
	for i, it := range in {
		if it != nil {
			c := *it
			out[i] = &c
		}
	}
	return out
}

func CloneInventory(in []*Slot) []*Slot {
	if in == nil {
		return nil
	}
	out := make([]*Slot, len(in))
	for i, s := range in {
		if s != nil {
			c := *s
			out[i] = &c
		}
	}
	return out
}

type Mob struct {
	ID        string
	Type      string
	Zone      int
	Rarity    Rarity
	Pos       Vec2
	Radius    float64
	Damage    int
	Health    int
	MaxHealth int
	SpawnedAt int64

	// Dealers holds the ids of players credited with damaging this mob.
	Dealers map[string]struct{}
}

func (m *Mob) Dead() bool { return m.Health <= 0 }

func (m *Mob) RecordDealer(playerID string) {
	if m.Dealers == nil {
		m.Dealers = map[string]struct{}{}
	}
	m.Dealers[playerID] = struct{}{}
}

// DealerIDs returns the credited players sorted by id.
func (m *Mob) DealerIDs() []string {
	out := make([]string, 0, len(m.Dealers))
	for id := range m.Dealers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Mob) Expired(now, ttlMs int64) bool {
	return ttlMs > 0 && now-m.SpawnedAt > ttlMs
}
