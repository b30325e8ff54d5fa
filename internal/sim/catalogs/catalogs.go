package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/tuning"
)

// Catalogs indexes the tuning tables the simulation looks things up in.
type Catalogs struct {
	Rarities RarityCatalog
	Items    ItemCatalog
	Mobs     MobCatalog
}

type RarityCatalog struct {
	Names       []string
	Multipliers []float64
	Digest      string
}

type ItemCatalog struct {
	Names  []string
	Defs   map[string]tuning.ItemDef
	Digest string
}

type MobCatalog struct {
	Types       []tuning.MobDef
	ByType      map[string]tuning.MobDef
	TotalWeight int
	Digest      string
}

func Build(t tuning.Tuning) (*Catalogs, error) {
	var c Catalogs

	for _, r := range t.Rarities {
		c.Rarities.Names = append(c.Rarities.Names, r.Name)
		c.Rarities.Multipliers = append(c.Rarities.Multipliers, r.Multiplier)
	}
	if len(c.Rarities.Names) == 0 {
		return nil, eris.New("catalogs: no rarities")
	}
	b, _ := json.Marshal(t.Rarities)
	c.Rarities.Digest = sha256Hex(b)

	c.Items.Defs = make(map[string]tuning.ItemDef, len(t.Items))
	for _, d := range t.Items {
		if d.Name == "" {
			return nil, eris.New("catalogs: item with empty name")
		}
		c.Items.Defs[d.Name] = d
		c.Items.Names = append(c.Items.Names, d.Name)
	}
	sort.Strings(c.Items.Names)
	b, _ = json.Marshal(t.Items)
	c.Items.Digest = sha256Hex(b)

	c.Mobs.ByType = make(map[string]tuning.MobDef, len(t.Mobs.Types))
	for _, m := range t.Mobs.Types {
		if m.Type == "" {
			return nil, eris.New("catalogs: mob with empty type")
		}
		c.Mobs.ByType[m.Type] = m
		c.Mobs.Types = append(c.Mobs.Types, m)
		if m.Weight > 0 {
			c.Mobs.TotalWeight += m.Weight
		}
	}
	b, _ = json.Marshal(t.Mobs.Types)
	c.Mobs.Digest = sha256Hex(b)

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ClampRarity keeps r inside the configured table.
func (c *Catalogs) ClampRarity(r entity.Rarity) entity.Rarity {
	if r < 0 {
		return 0
	}
	if int(r) >= len(c.Rarities.Multipliers) {
		return entity.Rarity(len(c.Rarities.Multipliers) - 1)
	}
	return r
}

func (c *Catalogs) Multiplier(r entity.Rarity) float64 {
	return c.Rarities.Multipliers[c.ClampRarity(r)]
}

func (c *Catalogs) RarityName(r entity.Rarity) string {
	return c.Rarities.Names[c.ClampRarity(r)]
}

// Scale applies the rarity multiplier to a base stat.
func (c *Catalogs) Scale(base int, r entity.Rarity) int {
	return int(math.Round(float64(base) * c.Multiplier(r)))
}

// NewItem builds a fresh, ready item of the named type at rarity r.
func (c *Catalogs) NewItem(name string, r entity.Rarity) (entity.Item, bool) {
	d, ok := c.Items.Defs[name]
	if !ok {
		return entity.Item{}, false
	}
	r = c.ClampRarity(r)
	hp := c.Scale(d.Health, r)
	if hp < 1 {
		hp = 1
	}
	return entity.Item{
		Name:            d.Name,
		Color:           d.Color,
		Rarity:          r,
		Damage:          c.Scale(d.Damage, r),
		Health:          hp,
		MaxHealth:       hp,
		ReloadMs:        d.ReloadMs,
		CollisionRadius: d.CollisionRadius,
		Buff:            d.Buff,
	}, true
}

// PickMob selects a mob type by weight; roll must be in [0, TotalWeight).
func (c *Catalogs) PickMob(roll int) (tuning.MobDef, bool) {
	for _, m := range c.Mobs.Types {
		if m.Weight <= 0 {
			continue
		}
		if roll < m.Weight {
			return m, true
		}
		roll -= m.Weight
	}
	return tuning.MobDef{}, false
}

// PickLoot selects an item name from a mob's loot table; roll in [0, sum of weights).
func PickLoot(loot []tuning.LootEntry, roll int) (string, bool) {
	for _, l := range loot {
		if l.Weight <= 0 {
			continue
		}
		if roll < l.Weight {
			return l.Item, true
		}
		roll -= l.Weight
	}
	return "", false
}

func LootWeight(loot []tuning.LootEntry) int {
	n := 0
	for _, l := range loot {
		if l.Weight > 0 {
			n += l.Weight
		}
	}
	return n
}
