// Package mobs spawns, expires and loots the arena's creatures. A Manager is
// driven from the tick goroutine only.
package mobs

import (
	"math/rand"

	"petalarena.io/internal/sim/catalogs"
	"petalarena.io/internal/sim/combat"
	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/tuning"
)

// IDSource hands out unique entity ids.
type IDSource interface {
	NewMobID() string
	NewItemID() string
}

type Manager struct {
	cat *catalogs.Catalogs
	ids IDSource
	rng *rand.Rand

	width, height float64
	zones         int
	mt            tuning.MobTuning
	itemRadius    float64
}

func NewManager(cat *catalogs.Catalogs, t tuning.Tuning, ids IDSource, rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Manager{
		cat:        cat,
		ids:        ids,
		rng:        rng,
		width:      t.World.Width,
		height:     t.World.Height,
		zones:      t.ZoneCount(),
		mt:         t.Mobs,
		itemRadius: t.Player.ItemRadius,
	}
}

func (m *Manager) Zones() int { return m.zones }

// ZoneBand returns the [x0, x1) horizontal band of zone z.
func (m *Manager) ZoneBand(z int) (float64, float64) {
	w := m.width / float64(m.zones)
	return float64(z) * w, float64(z+1) * w
}

func (m *Manager) ZoneOf(x float64) int {
	z := int(x / (m.width / float64(m.zones)))
	if z < 0 {
		return 0
	}
	if z >= m.zones {
		return m.zones - 1
	}
	return z
}

// Spawn adds one mob to every zone that is below its cap. The caller holds
// the mobs write lock.
func (m *Manager) Spawn(now int64, mobs entity.Locked[*entity.Mob]) []*entity.Mob {
	if m.mt.CapPerZone <= 0 || m.cat.Mobs.TotalWeight <= 0 {
		return nil
	}
	counts := make([]int, m.zones)
	mobs.Each(func(_ string, mob *entity.Mob) bool {
		if mob != nil && mob.Zone >= 0 && mob.Zone < m.zones {
			counts[mob.Zone]++
		}
		return true
	})

	var spawned []*entity.Mob
	for z := 0; z < m.zones; z++ {
		if counts[z] >= m.mt.CapPerZone {
			continue
		}
		mob := m.newMob(now, z)
		if mob == nil {
			continue
		}
		if mobs.Insert(mob.ID, mob) {
			spawned = append(spawned, mob)
		}
	}
	return spawned
}

func (m *Manager) newMob(now int64, zone int) *entity.Mob {
	def, ok := m.cat.PickMob(m.rng.Intn(m.cat.Mobs.TotalWeight))
	if !ok {
		return nil
	}
	x0, x1 := m.ZoneBand(zone)
	r := m.cat.ClampRarity(entity.Rarity(zone))
	hp := m.cat.Scale(def.Health, r)
	if hp < 1 {
		hp = 1
	}
	return &entity.Mob{
		ID:        m.ids.NewMobID(),
		Type:      def.Type,
		Zone:      zone,
		Rarity:    r,
		Pos:       entity.Vec2{X: x0 + m.rng.Float64()*(x1-x0), Y: m.rng.Float64() * m.height},
		Radius:    m.mt.BaseRadius + float64(zone)*m.mt.RadiusPerZone,
		Damage:    m.cat.Scale(def.Damage, r),
		Health:    hp,
		MaxHealth: hp,
		SpawnedAt: now,
		Dealers:   map[string]struct{}{},
	}
}

// Despawn removes mobs older than the configured time to live.
func (m *Manager) Despawn(now int64, mobs entity.Locked[*entity.Mob]) []string {
	var gone []string
	mobs.Each(func(id string, mob *entity.Mob) bool {
		if mob == nil || mob.Expired(now, m.mt.TTLMs) {
			mobs.Remove(id)
			gone = append(gone, id)
		}
		return true
	})
	return gone
}

// Drop rolls the dead mob's loot table. The item lands where the mob died at
// the mob's rarity.
func (m *Manager) Drop(now int64, kill combat.MobKill) (*entity.WorldItem, bool) {
	if kill.Mob == nil {
		return nil, false
	}
	def, ok := m.cat.Mobs.ByType[kill.Mob.Type]
	if !ok {
		return nil, false
	}
	total := catalogs.LootWeight(def.Loot)
	if total <= 0 {
		return nil, false
	}
	name, ok := catalogs.PickLoot(def.Loot, m.rng.Intn(total))
	if !ok {
		return nil, false
	}
	it, ok := m.cat.NewItem(name, kill.Mob.Rarity)
	if !ok {
		return nil, false
	}
	w := &entity.WorldItem{
		ID:     m.ids.NewItemID(),
		Item:   it,
		Pos:    kill.Mob.Pos,
		Radius: m.itemRadius,
	}
	if m.mt.DropTTLMs > 0 {
		w.ExpiresAt = now + m.mt.DropTTLMs
	}
	return w, true
}

// ExpireDrops removes world items whose drop window has passed.
func (m *Manager) ExpireDrops(now int64, items entity.Locked[*entity.WorldItem]) []string {
	var gone []string
	items.Each(func(id string, w *entity.WorldItem) bool {
		if w == nil || w.Expired(now) {
			items.Remove(id)
			gone = append(gone, id)
		}
		return true
	})
	return gone
}

// Seed scatters n common items across the map. Seeded items never expire.
func (m *Manager) Seed(n int) []*entity.WorldItem {
	names := m.cat.Items.Names
	if len(names) == 0 {
		return nil
	}
	out := make([]*entity.WorldItem, 0, n)
	for i := 0; i < n; i++ {
		it, ok := m.cat.NewItem(names[m.rng.Intn(len(names))], 0)
		if !ok {
			continue
		}
		out = append(out, &entity.WorldItem{
			ID:     m.ids.NewItemID(),
			Item:   it,
			Pos:    entity.Vec2{X: m.rng.Float64() * m.width, Y: m.rng.Float64() * m.height},
			Radius: m.itemRadius,
		})
	}
	return out
}
