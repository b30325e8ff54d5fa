package mobs

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petalarena.io/internal/sim/catalogs"
	"petalarena.io/internal/sim/combat"
	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/tuning"
)

func newManager(t *testing.T, mutate func(*tuning.Tuning)) (*Manager, *entity.Store) {
	t.Helper()
	tu := tuning.Defaults()
	if mutate != nil {
		mutate(&tu)
	}
	cat, err := catalogs.Build(tu)
	require.NoError(t, err)
	store := entity.NewStore()
	return NewManager(cat, tu, store, rand.New(rand.NewSource(42))), store
}

func zoneCounts(s *entity.Store, zones int) []int {
	counts := make([]int, zones)
	for _, m := range s.MobSnapshot() {
		counts[m.Zone]++
	}
	return counts
}

func TestSpawn_NeverExceedsCap(t *testing.T) {
	mgr, store := newManager(t, func(tu *tuning.Tuning) { tu.Mobs.CapPerZone = 3 })

	for i := 0; i < 20; i++ {
		store.Mobs.Update(func(l entity.Locked[*entity.Mob]) { mgr.Spawn(int64(i), l) })
		for z, n := range zoneCounts(store, mgr.Zones()) {
			require.LessOrEqual(t, n, 3, "zone %d after pass %d", z, i)
		}
	}
	for z, n := range zoneCounts(store, mgr.Zones()) {
		assert.Equal(t, 3, n, "zone %d", z)
	}
}

func TestSpawn_OnePerZonePerPass(t *testing.T) {
	mgr, store := newManager(t, nil)
	var spawned []*entity.Mob
	store.Mobs.Update(func(l entity.Locked[*entity.Mob]) { spawned = mgr.Spawn(5, l) })
	require.Len(t, spawned, mgr.Zones())

	for z, mob := range spawned {
		x0, x1 := mgr.ZoneBand(z)
		assert.Equal(t, z, mob.Zone)
		assert.GreaterOrEqual(t, mob.Pos.X, x0)
		assert.Less(t, mob.Pos.X, x1)
		assert.Equal(t, int64(5), mob.SpawnedAt)
		assert.Equal(t, entity.Rarity(z), mob.Rarity)
		assert.Equal(t, 15+5*float64(z), mob.Radius)
		assert.NotNil(t, mob.Dealers)
	}
	// weakest mob type scaled by the ultra multiplier
	assert.GreaterOrEqual(t, spawned[6].MaxHealth, 25*13)
}

func TestSpawn_ZoneCountOverride(t *testing.T) {
	mgr, _ := newManager(t, func(tu *tuning.Tuning) { tu.World.ZoneCount = 10 })
	assert.Equal(t, 10, mgr.Zones())
	assert.Equal(t, 0, mgr.ZoneOf(-5))
	assert.Equal(t, 9, mgr.ZoneOf(7000))
	assert.Equal(t, 1, mgr.ZoneOf(700))
}

func TestDespawn_AfterTTL(t *testing.T) {
	mgr, store := newManager(t, func(tu *tuning.Tuning) { tu.Mobs.TTLMs = 1000 })
	store.Mobs.Update(func(l entity.Locked[*entity.Mob]) { mgr.Spawn(0, l) })
	n := store.Mobs.Len()

	var gone []string
	store.Mobs.Update(func(l entity.Locked[*entity.Mob]) { gone = mgr.Despawn(1000, l) })
	assert.Empty(t, gone)
	store.Mobs.Update(func(l entity.Locked[*entity.Mob]) { gone = mgr.Despawn(1001, l) })
	assert.Len(t, gone, n)
	assert.Equal(t, 0, store.Mobs.Len())
}

func TestDrop_UsesMobRarityAndPosition(t *testing.T) {
	mgr, _ := newManager(t, nil)
	mob := &entity.Mob{ID: "M1", Type: "bee", Rarity: 3, Pos: entity.Vec2{X: 10, Y: 20}}

	w, ok := mgr.Drop(100, combat.MobKill{Mob: mob})
	require.True(t, ok)
	assert.Equal(t, "stinger", w.Item.Name)
	assert.Equal(t, entity.Rarity(3), w.Item.Rarity)
	assert.Equal(t, mob.Pos, w.Pos)
	assert.Equal(t, int64(30_100), w.ExpiresAt)

	_, ok = mgr.Drop(100, combat.MobKill{Mob: &entity.Mob{Type: "ghost"}})
	assert.False(t, ok)
	_, ok = mgr.Drop(100, combat.MobKill{})
	assert.False(t, ok)
}

func TestExpireDropsAndSeed(t *testing.T) {
	mgr, store := newManager(t, nil)
	for _, w := range mgr.Seed(4) {
		store.Items.Insert(w.ID, w)
	}
	drop, ok := mgr.Drop(0, combat.MobKill{Mob: &entity.Mob{Type: "boulder"}})
	require.True(t, ok)
	store.Items.Insert(drop.ID, drop)

	var gone []string
	store.Items.Update(func(l entity.Locked[*entity.WorldItem]) { gone = mgr.ExpireDrops(29_999, l) })
	assert.Empty(t, gone)
	store.Items.Update(func(l entity.Locked[*entity.WorldItem]) { gone = mgr.ExpireDrops(30_000, l) })
	assert.Equal(t, []string{drop.ID}, gone)
	assert.Equal(t, 4, store.Items.Len())
}
