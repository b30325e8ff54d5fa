package loadout

import (
	"math/rand"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petalarena.io/internal/sim/catalogs"
	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/tuning"
)

func newPlayer(t *testing.T, invSize, hotSize int) (*entity.Player, *catalogs.Catalogs) {
	t.Helper()
	cat, err := catalogs.Build(tuning.Defaults())
	require.NoError(t, err)
	return &entity.Player{
		ID:        "p1",
		Radius:    20,
		Health:    100,
		MaxHealth: 100,
		Hotbar:    make([]*entity.Item, hotSize),
		Inventory: make([]*entity.Slot, invSize),
	}, cat
}

func item(t *testing.T, cat *catalogs.Catalogs, name string, r entity.Rarity) entity.Item {
	t.Helper()
	it, ok := cat.NewItem(name, r)
	require.True(t, ok)
	return it
}

// claimOnce mimics the world registry: the first claim wins.
func claimOnce(w *entity.WorldItem) func() (*entity.WorldItem, bool) {
	taken := false
	return func() (*entity.WorldItem, bool) {
		if taken {
			return nil, false
		}
		taken = true
		return w, true
	}
}

func pickup(p *entity.Player, w *entity.WorldItem) error {
	_, err := Pickup(p, w, claimOnce(w))
	return err
}

func TestPickup_StacksAndRange(t *testing.T) {
	p, cat := newPlayer(t, 3, 2)
	w := &entity.WorldItem{ID: "I1", Item: item(t, cat, "basic", 0), Pos: entity.Vec2{X: 32}, Radius: 12}

	require.NoError(t, pickup(p, w))
	require.NoError(t, pickup(p, w))
	require.NotNil(t, p.Inventory[0])
	assert.Equal(t, 2, p.Inventory[0].Count)
	assert.Nil(t, p.Inventory[1])

	far := &entity.WorldItem{ID: "I2", Item: item(t, cat, "basic", 0), Pos: entity.Vec2{X: 32.5}, Radius: 12}
	assert.True(t, eris.Is(pickup(p, far), ErrOutOfRange))
	assert.Equal(t, 2, p.Inventory[0].Count)
}

func TestPickup_FullInventoryIsNoop(t *testing.T) {
	p, cat := newPlayer(t, 2, 2)
	p.Inventory[0] = &entity.Slot{Item: item(t, cat, "rock", 0), Count: 1}
	p.Inventory[1] = &entity.Slot{Item: item(t, cat, "leaf", 0), Count: 1}

	w := &entity.WorldItem{Item: item(t, cat, "basic", 0), Radius: 12}
	err := pickup(p, w)
	assert.True(t, eris.Is(err, ErrFull))
	assert.Equal(t, 1, p.Inventory[0].Count)
	assert.Equal(t, 1, p.Inventory[1].Count)

	// same key still stacks into a full inventory
	w = &entity.WorldItem{Item: item(t, cat, "rock", 0), Radius: 12}
	require.NoError(t, pickup(p, w))
	assert.Equal(t, 2, p.Inventory[0].Count)
}

func TestPickup_DeadPlayer(t *testing.T) {
	p, cat := newPlayer(t, 2, 2)
	p.Health = 0
	w := &entity.WorldItem{Item: item(t, cat, "basic", 0), Radius: 12}
	assert.True(t, eris.Is(pickup(p, w), ErrDead))
}

func TestEquip_DecrementsStack(t *testing.T) {
	p, cat := newPlayer(t, 3, 2)
	p.Inventory[1] = &entity.Slot{Item: item(t, cat, "stinger", 1), Count: 3}

	displaced, err := Equip(p, 1, 0, 0, true)
	require.NoError(t, err)
	assert.Nil(t, displaced)
	assert.Equal(t, 2, p.Inventory[1].Count)
	require.NotNil(t, p.Hotbar[0])
	assert.Equal(t, "stinger", p.Hotbar[0].Name)

	// the hotbar copy is independent of the stack
	p.Hotbar[0].Health = 1
	assert.NotEqual(t, 1, p.Inventory[1].Item.Health)
}

func TestEquip_LastUnitClearsSlot(t *testing.T) {
	p, cat := newPlayer(t, 3, 2)
	p.Inventory[0] = &entity.Slot{Item: item(t, cat, "leaf", 0), Count: 1}
	_, err := Equip(p, 0, 1, 0, true)
	require.NoError(t, err)
	assert.Nil(t, p.Inventory[0])
	assert.Equal(t, "leaf", p.Hotbar[1].Name)
}

func TestEquip_SwapsDisplacedIntoVacatedSlot(t *testing.T) {
	p, cat := newPlayer(t, 3, 2)
	basic := item(t, cat, "basic", 0)
	p.Hotbar[0] = &basic
	p.Inventory[2] = &entity.Slot{Item: item(t, cat, "rock", 0), Count: 1}

	displaced, err := Equip(p, 2, 0, 0, true)
	require.NoError(t, err)
	assert.Nil(t, displaced)
	assert.Equal(t, "rock", p.Hotbar[0].Name)
	require.NotNil(t, p.Inventory[2])
	assert.Equal(t, "basic", p.Inventory[2].Item.Name)
}

func TestEquip_LossyWhenFlagOff(t *testing.T) {
	p, cat := newPlayer(t, 3, 2)
	basic := item(t, cat, "basic", 0)
	p.Hotbar[0] = &basic
	p.Inventory[0] = &entity.Slot{Item: item(t, cat, "rock", 0), Count: 1}

	displaced, err := Equip(p, 0, 0, 0, false)
	require.NoError(t, err)
	require.NotNil(t, displaced)
	assert.Equal(t, "basic", displaced.Name)
	assert.Nil(t, p.Inventory[0])
	assert.Equal(t, 1, CountByKey(p)[entity.StackKey{Name: "rock"}])
	assert.Equal(t, 0, CountByKey(p)[entity.StackKey{Name: "basic"}])
}

func TestEquip_EmptyAndBadIndex(t *testing.T) {
	p, _ := newPlayer(t, 3, 2)
	_, err := Equip(p, 0, 0, 0, true)
	assert.True(t, eris.Is(err, ErrEmptySlot))
	_, err = Equip(p, 3, 0, 0, true)
	assert.True(t, eris.Is(err, ErrBadIndex))
	_, err = Equip(p, 0, -1, 0, true)
	assert.True(t, eris.Is(err, ErrBadIndex))
}

func TestUnequip(t *testing.T) {
	p, cat := newPlayer(t, 1, 2)
	a := item(t, cat, "basic", 0)
	b := item(t, cat, "rock", 0)
	p.Hotbar[0] = &a
	p.Hotbar[1] = &b

	require.NoError(t, Unequip(p, 0, 0))
	assert.Nil(t, p.Hotbar[0])
	assert.Equal(t, "basic", p.Inventory[0].Item.Name)

	// no room for a different key: the item stays equipped
	assert.True(t, eris.Is(Unequip(p, 1, 0), ErrFull))
	assert.NotNil(t, p.Hotbar[1])

	assert.True(t, eris.Is(Unequip(p, 0, 0), ErrEmptySlot))
	assert.True(t, eris.Is(Unequip(p, 2, 0), ErrBadIndex))
}

func TestPickup_LostClaimLeavesInventory(t *testing.T) {
	p, cat := newPlayer(t, 2, 1)
	w := &entity.WorldItem{ID: "I1", Item: item(t, cat, "basic", 0), Radius: 12}
	claim := claimOnce(w)

	got, err := Pickup(p, w, claim)
	require.NoError(t, err)
	assert.Same(t, w, got)

	_, err = Pickup(p, w, claim)
	assert.True(t, eris.Is(err, ErrClaimed))
	assert.Equal(t, 1, p.Inventory[0].Count)

	called := false
	_, err = Pickup(p, &entity.WorldItem{Item: w.Item, Pos: entity.Vec2{X: 500}, Radius: 12}, func() (*entity.WorldItem, bool) {
		called = true
		return nil, false
	})
	assert.True(t, eris.Is(err, ErrOutOfRange))
	assert.False(t, called, "no claim after a failed check")
}

func TestUnequip_ResetsWear(t *testing.T) {
	p, cat := newPlayer(t, 2, 1)
	a := item(t, cat, "basic", 0)
	a.Health = 3
	a.ReloadUntil = 900
	p.Hotbar[0] = &a
	require.NoError(t, Unequip(p, 0, 1000))
	assert.Equal(t, a.MaxHealth, p.Inventory[0].Item.Health)
}

func TestReloadingItemStaysEquipped(t *testing.T) {
	p, cat := newPlayer(t, 3, 1)
	a := item(t, cat, "basic", 0)
	a.ReloadUntil = 3000
	p.Hotbar[0] = &a
	p.Inventory[0] = &entity.Slot{Item: item(t, cat, "rock", 0), Count: 1}

	assert.True(t, eris.Is(Unequip(p, 0, 2999), ErrReloading))
	_, err := Equip(p, 0, 0, 2999, true)
	assert.True(t, eris.Is(err, ErrReloading))
	assert.Equal(t, int64(3000), p.Hotbar[0].ReloadUntil)
	assert.Equal(t, 1, p.Inventory[0].Count)

	_, err = Equip(p, 0, 0, 3000, true)
	require.NoError(t, err)
	assert.Equal(t, "rock", p.Hotbar[0].Name)
	assert.Equal(t, "basic", p.Inventory[0].Item.Name)
}

func TestEquipUnequip_ConservesCounts(t *testing.T) {
	p, cat := newPlayer(t, 6, 3)
	p.Inventory[0] = &entity.Slot{Item: item(t, cat, "basic", 0), Count: 4}
	p.Inventory[1] = &entity.Slot{Item: item(t, cat, "rock", 2), Count: 2}
	p.Inventory[2] = &entity.Slot{Item: item(t, cat, "leaf", 1), Count: 1}
	want := CountByKey(p)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		if rng.Intn(2) == 0 {
			displaced, _ := Equip(p, rng.Intn(len(p.Inventory)), rng.Intn(len(p.Hotbar)), 0, true)
			require.Nil(t, displaced, "step %d dropped an item", i)
		} else {
			_ = Unequip(p, rng.Intn(len(p.Hotbar)), 0)
		}
		require.Equal(t, want, CountByKey(p), "step %d", i)
	}
}

func TestRecomputeMaxHealth_Idempotent(t *testing.T) {
	p, cat := newPlayer(t, 1, 3)
	leaf1 := item(t, cat, "leaf", 0)
	leaf2 := item(t, cat, "leaf", 0)
	p.Hotbar[0] = &leaf1
	p.Hotbar[2] = &leaf2
	p.Health = 120

	RecomputeMaxHealth(p, 100, 10)
	assert.Equal(t, 120, p.MaxHealth)
	assert.Equal(t, 120, p.Health)

	RecomputeMaxHealth(p, 100, 10)
	assert.Equal(t, 120, p.MaxHealth)
	assert.Equal(t, 120, p.Health)

	p.Hotbar[2] = nil
	RecomputeMaxHealth(p, 100, 10)
	assert.Equal(t, 110, p.MaxHealth)
	assert.Equal(t, 110, p.Health)
}

func TestStarterAndFit(t *testing.T) {
	cat, err := catalogs.Build(tuning.Defaults())
	require.NoError(t, err)
	lt := tuning.Defaults().Loadout

	hot, inv := Starter(cat, lt)
	require.Len(t, hot, 5)
	require.Len(t, inv, 20)
	assert.Equal(t, "basic", hot[0].Name)
	assert.Equal(t, "basic", hot[1].Name)
	assert.Nil(t, hot[2])

	small := tuning.LoadoutTuning{InventorySize: 2, HotbarSize: 1}
	fh, fi := Fit(hot, inv, small)
	require.Len(t, fh, 1)
	require.Len(t, fi, 2)
	assert.Equal(t, "basic", fh[0].Name)
	require.NotNil(t, fi[0])
	assert.Equal(t, 1, fi[0].Count)
}
