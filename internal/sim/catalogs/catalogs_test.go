package catalogs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/tuning"
)

func TestBuild_Defaults(t *testing.T) {
	c, err := Build(tuning.Defaults())
	require.NoError(t, err)
	assert.Len(t, c.Rarities.Names, 7)
	assert.NotEmpty(t, c.Items.Digest)
	assert.Equal(t, 6, c.Mobs.TotalWeight)
}

func TestNewItem_ScalesByRarity(t *testing.T) {
	c, err := Build(tuning.Defaults())
	require.NoError(t, err)

	common, ok := c.NewItem("basic", 0)
	require.True(t, ok)
	assert.Equal(t, 5, common.Damage)
	assert.Equal(t, 15, common.Health)
	assert.Equal(t, 15, common.MaxHealth)
	assert.Equal(t, int64(2000), common.ReloadMs)

	rare, ok := c.NewItem("basic", 2)
	require.True(t, ok)
	assert.Equal(t, 11, rare.Damage) // 5 * 2.25 rounded
	assert.Equal(t, 34, rare.Health) // 15 * 2.25 rounded
	assert.Equal(t, "rare", c.RarityName(rare.Rarity))

	_, ok = c.NewItem("laser", 0)
	assert.False(t, ok)
}

func TestClampRarity(t *testing.T) {
	c, err := Build(tuning.Defaults())
	require.NoError(t, err)
	assert.Equal(t, entity.Rarity(0), c.ClampRarity(-3))
	assert.Equal(t, entity.Rarity(6), c.ClampRarity(99))
}

func TestPickMobAndLoot(t *testing.T) {
	c, err := Build(tuning.Defaults())
	require.NoError(t, err)

	m, ok := c.PickMob(0)
	require.True(t, ok)
	assert.Equal(t, "ladybug", m.Type)
	m, ok = c.PickMob(3)
	require.True(t, ok)
	assert.Equal(t, "bee", m.Type)
	m, ok = c.PickMob(5)
	require.True(t, ok)
	assert.Equal(t, "boulder", m.Type)
	_, ok = c.PickMob(6)
	assert.False(t, ok)

	lady := c.Mobs.ByType["ladybug"]
	assert.Equal(t, 4, LootWeight(lady.Loot))
	name, ok := PickLoot(lady.Loot, 3)
	require.True(t, ok)
	assert.Equal(t, "leaf", name)
}
