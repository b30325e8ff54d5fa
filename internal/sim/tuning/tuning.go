package tuning

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz      int   `yaml:"tick_rate_hz"`
	AutosaveEveryMs int64 `yaml:"autosave_every_ms"`

	World    WorldTuning    `yaml:"world"`
	Player   PlayerTuning   `yaml:"player"`
	Rarities []RarityDef    `yaml:"rarities"`
	Items    []ItemDef      `yaml:"items"`
	Mobs     MobTuning      `yaml:"mobs"`
	Loadout  LoadoutTuning  `yaml:"loadout"`
	Admin    AdminTuning    `yaml:"admin"`
	Chat     ChatTuning     `yaml:"chat"`
	Outbound OutboundTuning `yaml:"outbound"`
}

type WorldTuning struct {
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	ZoneCount int     `yaml:"zone_count"` // 0 means one zone per rarity
	SeedItems int     `yaml:"seed_items"`
}

type PlayerTuning struct {
	Radius         float64 `yaml:"radius"`
	Speed          float64 `yaml:"speed"`
	BaseMaxHealth  int     `yaml:"base_max_health"`
	OrbitSpeed     float64 `yaml:"orbit_speed"` // radians per tick
	OrbitRadius    float64 `yaml:"orbit_radius"`
	MinOrbitRadius float64 `yaml:"min_orbit_radius"`
	MaxOrbitRadius float64 `yaml:"max_orbit_radius"`
	InvincibleMs   int64   `yaml:"invincible_ms"`
	BuffPercent    int     `yaml:"buff_percent"`
	ItemRadius     float64 `yaml:"item_radius"` // pickup radius of world items
}

type RarityDef struct {
	Name       string  `yaml:"name"`
	Multiplier float64 `yaml:"multiplier"`
}

type ItemDef struct {
	Name            string  `yaml:"name"`
	Color           string  `yaml:"color"`
	Damage          int     `yaml:"damage"`
	Health          int     `yaml:"health"`
	ReloadMs        int64   `yaml:"reload_ms"`
	CollisionRadius float64 `yaml:"collision_radius,omitempty"`
	Buff            bool    `yaml:"buff,omitempty"`
}

type MobTuning struct {
	CapPerZone    int      `yaml:"cap_per_zone"`
	TTLMs         int64    `yaml:"ttl_ms"`
	DropTTLMs     int64    `yaml:"drop_ttl_ms"`
	BaseRadius    float64  `yaml:"base_radius"`
	RadiusPerZone float64  `yaml:"radius_per_zone"`
	Types         []MobDef `yaml:"types"`
}

type MobDef struct {
	Type   string      `yaml:"type"`
	Damage int         `yaml:"damage"`
	Health int         `yaml:"health"`
	Weight int         `yaml:"weight"`
	Loot   []LootEntry `yaml:"loot"`
}

type LootEntry struct {
	Item   string `yaml:"item"`
	Weight int    `yaml:"weight"`
}

type LoadoutTuning struct {
	InventorySize         int      `yaml:"inventory_size"`
	HotbarSize            int      `yaml:"hotbar_size"`
	StarterHotbar         []string `yaml:"starter_hotbar"`
	EquipReturnsDisplaced bool     `yaml:"equip_returns_displaced"`
}

type AdminTuning struct {
	Usernames       []string `yaml:"usernames"`
	DamageDealtMult float64  `yaml:"damage_dealt_mult"`
	DamageTakenMult float64  `yaml:"damage_taken_mult"`
	SpeedMult       float64  `yaml:"speed_mult"`
}

type ChatTuning struct {
	MaxLen int `yaml:"max_len"`
}

type OutboundTuning struct {
	QueueSize int `yaml:"queue_size"`
}

// Load reads a YAML file over Defaults(); keys absent from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, eris.Wrap(err, "tuning.yaml")
	}
	if err := t.Validate(); err != nil {
		return t, eris.Wrap(err, "tuning.yaml")
	}
	return t, nil
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      20,
		AutosaveEveryMs: 30_000,
		World: WorldTuning{
			Width:  7000,
			Height: 1500,
		},
		Player: PlayerTuning{
			Radius:         20,
			Speed:          5,
			BaseMaxHealth:  100,
			OrbitSpeed:     0.1,
			OrbitRadius:    56,
			MinOrbitRadius: 30,
			MaxOrbitRadius: 120,
			InvincibleMs:   2000,
			BuffPercent:    10,
			ItemRadius:     12,
		},
		Rarities: []RarityDef{
			{Name: "common", Multiplier: 1},
			{Name: "unusual", Multiplier: 1.5},
			{Name: "rare", Multiplier: 2.25},
			{Name: "epic", Multiplier: 3.5},
			{Name: "legendary", Multiplier: 5.5},
			{Name: "mythic", Multiplier: 8.5},
			{Name: "ultra", Multiplier: 13},
		},
		Items: []ItemDef{
			{Name: "basic", Color: "#ffffff", Damage: 5, Health: 15, ReloadMs: 2000},
			{Name: "stinger", Color: "#333333", Damage: 15, Health: 5, ReloadMs: 3500},
			{Name: "rock", Color: "#8a8a8a", Damage: 4, Health: 40, ReloadMs: 3000, CollisionRadius: 10},
			{Name: "leaf", Color: "#3fbf3f", Damage: 3, Health: 10, ReloadMs: 1500, Buff: true},
		},
		Mobs: MobTuning{
			CapPerZone:    10,
			TTLMs:         120_000,
			DropTTLMs:     30_000,
			BaseRadius:    15,
			RadiusPerZone: 5,
			Types: []MobDef{
				{Type: "ladybug", Damage: 3, Health: 40, Weight: 3, Loot: []LootEntry{{Item: "basic", Weight: 3}, {Item: "leaf", Weight: 1}}},
				{Type: "bee", Damage: 6, Health: 25, Weight: 2, Loot: []LootEntry{{Item: "stinger", Weight: 1}}},
				{Type: "boulder", Damage: 8, Health: 80, Weight: 1, Loot: []LootEntry{{Item: "rock", Weight: 1}}},
			},
		},
		Loadout: LoadoutTuning{
			InventorySize:         20,
			HotbarSize:            5,
			StarterHotbar:         []string{"basic", "basic"},
			EquipReturnsDisplaced: true,
		},
		Admin: AdminTuning{
			DamageDealtMult: 2,
			DamageTakenMult: 2,
			SpeedMult:       3,
		},
		Chat:     ChatTuning{MaxLen: 200},
		Outbound: OutboundTuning{QueueSize: 64},
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 {
		return eris.New("tick_rate_hz must be > 0")
	}
	if t.World.Width <= 0 || t.World.Height <= 0 {
		return eris.New("world width/height must be > 0")
	}
	if len(t.Rarities) == 0 {
		return eris.New("at least one rarity is required")
	}
	for _, r := range t.Rarities {
		if strings.TrimSpace(r.Name) == "" || r.Multiplier <= 0 {
			return eris.Errorf("bad rarity %q", r.Name)
		}
	}
	if t.Loadout.InventorySize <= 0 || t.Loadout.HotbarSize <= 0 {
		return eris.New("inventory_size and hotbar_size must be > 0")
	}
	if len(t.Loadout.StarterHotbar) > t.Loadout.HotbarSize {
		return eris.New("starter_hotbar is larger than hotbar_size")
	}
	items := map[string]bool{}
	for _, it := range t.Items {
		if it.Name == "" {
			return eris.New("item with empty name")
		}
		if items[it.Name] {
			return eris.Errorf("duplicate item %q", it.Name)
		}
		items[it.Name] = true
	}
	for _, name := range t.Loadout.StarterHotbar {
		if !items[name] {
			return eris.Errorf("starter_hotbar references unknown item %q", name)
		}
	}
	for _, m := range t.Mobs.Types {
		if m.Type == "" {
			return eris.New("mob with empty type")
		}
		for _, l := range m.Loot {
			if !items[l.Item] {
				return eris.Errorf("mob %q loot references unknown item %q", m.Type, l.Item)
			}
		}
	}
	if t.Player.MinOrbitRadius > t.Player.MaxOrbitRadius {
		return eris.New("min_orbit_radius > max_orbit_radius")
	}
	return nil
}

// ZoneCount resolves the effective number of rarity zones.
func (t Tuning) ZoneCount() int {
	if t.World.ZoneCount > 0 {
		return t.World.ZoneCount
	}
	return len(t.Rarities)
}

// IsAdmin reports whether username is in the configured admin set.
func (t Tuning) IsAdmin(username string) bool {
	for _, u := range t.Admin.Usernames {
		if u != "" && u == username {
			return true
		}
	}
	return false
}
