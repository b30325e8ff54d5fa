// Package loadout moves items between the world, a player's inventory and the
// hotbar. Every function expects the caller to hold the players lock.
package loadout

import (
	"github.com/rotisserie/eris"

	"petalarena.io/internal/sim/catalogs"
	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/tuning"
)

var (
	ErrBadIndex   = eris.New("slot index out of range")
	ErrEmptySlot  = eris.New("slot is empty")
	ErrFull       = eris.New("inventory is full")
	ErrOutOfRange = eris.New("item is out of reach")
	ErrDead       = eris.New("player is dead")
	ErrReloading  = eris.New("item is reloading")
	ErrClaimed    = eris.New("item was claimed first")
)

// InRange reports whether p can reach w.
func InRange(p *entity.Player, w *entity.WorldItem) bool {
	return p.Pos.Dist(w.Pos) <= p.Radius+w.Radius
}

// CanStore reports whether one more unit of key fits in inv.
func CanStore(inv []*entity.Slot, key entity.StackKey) bool {
	for _, s := range inv {
		if s == nil || s.Count <= 0 || s.Item.Key() == key {
			return true
		}
	}
	return false
}

// Store adds one unit of it to inv. It stacks onto a slot of the same name and
// rarity, otherwise takes prefer (when that slot is empty) or the first empty
// slot. Stored items are reset to full durability. Callers only store items
// that are out of their reload window.
func Store(inv []*entity.Slot, it entity.Item, prefer int) bool {
	it.Health = it.MaxHealth
	it.ReloadUntil = 0
	key := it.Key()
	for _, s := range inv {
		if s != nil && s.Count > 0 && s.Item.Key() == key {
			s.Count++
			return true
		}
	}
	if prefer >= 0 && prefer < len(inv) && (inv[prefer] == nil || inv[prefer].Count <= 0) {
		inv[prefer] = &entity.Slot{Item: it, Count: 1}
		return true
	}
	for i, s := range inv {
		if s == nil || s.Count <= 0 {
			inv[i] = &entity.Slot{Item: it, Count: 1}
			return true
		}
	}
	return false
}

// Pickup checks reach and capacity, then calls claim to take the world item
// out of the world and stores what it returns. A failed claim leaves the
// inventory untouched and returns ErrClaimed.
func Pickup(p *entity.Player, w *entity.WorldItem, claim func() (*entity.WorldItem, bool)) (*entity.WorldItem, error) {
	if err := CheckPickup(p, w); err != nil {
		return nil, err
	}
	got, ok := claim()
	if !ok {
		return nil, ErrClaimed
	}
	Store(p.Inventory, got.Item, -1)
	return got, nil
}

func CheckPickup(p *entity.Player, w *entity.WorldItem) error {
	if p.Dead() {
		return ErrDead
	}
	if !InRange(p, w) {
		return ErrOutOfRange
	}
	if !CanStore(p.Inventory, w.Item.Key()) {
		return ErrFull
	}
	return nil
}

// Equip moves one unit from inventory slot inv into hotbar slot hot. When the
// hotbar slot was occupied and returnDisplaced is set, the displaced item goes
// back to inventory, preferring the slot just vacated. The displaced item is
// returned when it was discarded. A hotbar item still reloading at now cannot
// be displaced.
func Equip(p *entity.Player, inv, hot int, now int64, returnDisplaced bool) (*entity.Item, error) {
	if inv < 0 || inv >= len(p.Inventory) || hot < 0 || hot >= len(p.Hotbar) {
		return nil, ErrBadIndex
	}
	slot := p.Inventory[inv]
	if slot == nil || slot.Count <= 0 {
		return nil, ErrEmptySlot
	}
	if cur := p.Hotbar[hot]; cur != nil && !cur.Ready(now) {
		return nil, ErrReloading
	}
	it := slot.Item
	if slot.Count > 1 {
		slot.Count--
	} else {
		p.Inventory[inv] = nil
	}

	displaced := p.Hotbar[hot]
	p.Hotbar[hot] = &it
	if displaced == nil {
		return nil, nil
	}
	if returnDisplaced && Store(p.Inventory, *displaced, inv) {
		return nil, nil
	}
	return displaced, nil
}

// Unequip moves the hotbar item back into inventory. The item stays equipped
// when the inventory has no room or while it is reloading.
func Unequip(p *entity.Player, hot int, now int64) error {
	if hot < 0 || hot >= len(p.Hotbar) {
		return ErrBadIndex
	}
	it := p.Hotbar[hot]
	if it == nil {
		return ErrEmptySlot
	}
	if !it.Ready(now) {
		return ErrReloading
	}
	if !Store(p.Inventory, *it, -1) {
		return ErrFull
	}
	p.Hotbar[hot] = nil
	return nil
}

// MaxHealth derives a player's max health from the buff items on the hotbar.
func MaxHealth(hotbar []*entity.Item, base, buffPercent int) int {
	buffs := 0
	for _, it := range hotbar {
		if it != nil && it.Buff {
			buffs++
		}
	}
	return base * (100 + buffPercent*buffs) / 100
}

// RecomputeMaxHealth refreshes p.MaxHealth and clamps health into range.
func RecomputeMaxHealth(p *entity.Player, base, buffPercent int) {
	p.MaxHealth = MaxHealth(p.Hotbar, base, buffPercent)
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
	if p.Health < 0 {
		p.Health = 0
	}
}

// CountByKey totals units per stack key across inventory and hotbar.
func CountByKey(p *entity.Player) map[entity.StackKey]int {
	out := map[entity.StackKey]int{}
	for _, s := range p.Inventory {
		if s != nil && s.Count > 0 {
			out[s.Item.Key()] += s.Count
		}
	}
	for _, it := range p.Hotbar {
		if it != nil {
			out[it.Key()]++
		}
	}
	return out
}

// Starter builds the starting hotbar and an empty inventory.
func Starter(cat *catalogs.Catalogs, t tuning.LoadoutTuning) ([]*entity.Item, []*entity.Slot) {
	hotbar := make([]*entity.Item, t.HotbarSize)
	for i, name := range t.StarterHotbar {
		if i >= len(hotbar) {
			break
		}
		if it, ok := cat.NewItem(name, 0); ok {
			hotbar[i] = &it
		}
	}
	return hotbar, make([]*entity.Slot, t.InventorySize)
}

// Fit resizes a restored hotbar and inventory to the configured sizes. Excess
// hotbar items are moved into inventory when there is room.
func Fit(hotbar []*entity.Item, inv []*entity.Slot, t tuning.LoadoutTuning) ([]*entity.Item, []*entity.Slot) {
	outInv := make([]*entity.Slot, t.InventorySize)
	var overflow []entity.Slot
	for i, s := range inv {
		if s == nil || s.Count <= 0 {
			continue
		}
		if i < len(outInv) {
			c := *s
			outInv[i] = &c
		} else {
			overflow = append(overflow, *s)
		}
	}
	for _, s := range overflow {
		for k := 0; k < s.Count; k++ {
			Store(outInv, s.Item, -1)
		}
	}
	outHot := make([]*entity.Item, t.HotbarSize)
	for i, it := range hotbar {
		if it == nil {
			continue
		}
		c := *it
		if i < len(outHot) {
			outHot[i] = &c
			continue
		}
		Store(outInv, c, -1)
	}
	return outHot, outInv
}
