package arena

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	journal "petalarena.io/internal/persistence/log"
	"petalarena.io/internal/protocol"
	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/loadout"
)

// JoinRequest describes a player about to spawn. Nil loadouts get the starter
// kit.
type JoinRequest struct {
	ID        string
	Username  string
	Hotbar    []*entity.Item
	Inventory []*entity.Slot
}

// Join spawns a player in the first zone with spawn invincibility, sends the
// joiner a WORLD_SNAPSHOT and broadcasts PLAYER_JOIN.
func (w *World) Join(req JoinRequest) (*entity.Player, error) {
	if req.ID == "" || strings.TrimSpace(req.Username) == "" {
		return nil, eris.Wrap(ErrValidation, "player id and username are required")
	}
	hotbar, inv := req.Hotbar, req.Inventory
	if hotbar == nil && inv == nil {
		hotbar, inv = loadout.Starter(w.cat, w.tune.Loadout)
	} else {
		hotbar, inv = loadout.Fit(hotbar, inv, w.tune.Loadout)
	}

	now := w.now()
	pt := w.tune.Player
	admin := w.tune.IsAdmin(req.Username)
	speed := pt.Speed
	if admin && w.tune.Admin.SpeedMult > 0 {
		speed *= w.tune.Admin.SpeedMult
	}
	spawn := w.spawnPoint()
	maxHP := loadout.MaxHealth(hotbar, pt.BaseMaxHealth, pt.BuffPercent)
	p := &entity.Player{
		ID:              req.ID,
		Username:        req.Username,
		IsAdmin:         admin,
		Pos:             spawn,
		Spawn:           spawn,
		Radius:          pt.Radius,
		Speed:           speed,
		OrbitSpeed:      pt.OrbitSpeed,
		OrbitRadius:     pt.OrbitRadius,
		Health:          maxHP,
		MaxHealth:       maxHP,
		InvincibleUntil: now + pt.InvincibleMs,
		Hotbar:          hotbar,
		Inventory:       inv,
	}

	var (
		view   protocol.PlayerView
		dupErr error
	)
	w.store.Players.Update(func(pl entity.Locked[*entity.Player]) {
		dup := false
		pl.Each(func(_ string, o *entity.Player) bool {
			dup = o.Username == p.Username
			return !dup
		})
		if dup {
			dupErr = eris.Wrapf(ErrAuth, "username %q already has an active session", p.Username)
			return
		}
		if !pl.Insert(p.ID, p) {
			dupErr = eris.Wrapf(ErrValidation, "player id %q already spawned", p.ID)
			return
		}
		view = w.playerView(p, now)
	})
	if dupErr != nil {
		return nil, dupErr
	}

	w.log.Info().Str("player_id", p.ID).Str("username", p.Username).Bool("admin", admin).Msg("player joined")
	w.record(journal.Entry{At: now, Tick: w.Tick(), Kind: journal.KindJoin, Actor: p.ID, Data: map[string]any{"username": p.Username}})

	w.notify.SendTo(p.ID, w.Snapshot(p.ID))
	w.notify.Broadcast(protocol.PlayerJoinMsg{
		Type: protocol.TypePlayerJoin, ProtocolVersion: protocol.Version, Player: view,
	})
	return p.Clone(), nil
}

func (w *World) spawnPoint() entity.Vec2 {
	x0, x1 := w.mobs.ZoneBand(0)
	w.rngMu.Lock()
	defer w.rngMu.Unlock()
	return entity.Vec2{
		X: x0 + w.rng.Float64()*(x1-x0),
		Y: w.rng.Float64() * w.tune.World.Height,
	}
}

// Leave removes the player, queues its final loadout and broadcasts
// PLAYER_LEAVE. Leaving twice is a no-op.
func (w *World) Leave(id string) bool {
	p, ok := w.store.Players.Remove(id)
	if !ok {
		return false
	}
	now := w.now()
	w.persist(p, now)
	w.log.Info().Str("player_id", id).Str("username", p.Username).Msg("player left")
	w.record(journal.Entry{At: now, Tick: w.Tick(), Kind: journal.KindLeave, Actor: id})
	w.notify.Broadcast(protocol.PlayerLeaveMsg{
		Type: protocol.TypePlayerLeave, ProtocolVersion: protocol.Version, ID: id,
	})
	return true
}

// Move steps the player by (dx, dy) scaled to its speed. Vectors longer than
// one are normalized; the result is clamped to the map.
func (w *World) Move(id string, dx, dy float64) error {
	if !finite(dx) || !finite(dy) {
		return eris.Wrap(ErrValidation, "move vector is not finite")
	}
	if mag := math.Hypot(dx, dy); mag > 1 {
		dx, dy = dx/mag, dy/mag
	}
	return w.withPlayer(id, func(p *entity.Player) error {
		if p.Dead() {
			return eris.Wrap(ErrValidation, loadout.ErrDead.Error())
		}
		next := p.Pos.Add(dx*p.Speed, dy*p.Speed)
		p.Pos = entity.Vec2{
			X: clamp(next.X, 0, w.tune.World.Width),
			Y: clamp(next.Y, 0, w.tune.World.Height),
		}
		return nil
	})
}

// SetOrbit sets the orbit radius, clamped to the configured bounds.
func (w *World) SetOrbit(id string, dist float64) error {
	if !finite(dist) {
		return eris.Wrap(ErrValidation, "orbit distance is not finite")
	}
	pt := w.tune.Player
	return w.withPlayer(id, func(p *entity.Player) error {
		p.OrbitRadius = clamp(dist, pt.MinOrbitRadius, pt.MaxOrbitRadius)
		return nil
	})
}

// Pickup moves a world item into the player's inventory. Of concurrent
// pickups for the same item exactly one succeeds; the others get
// ErrConcurrencyLoss.
func (w *World) Pickup(id, itemID string) error {
	now := w.now()
	var (
		snap    *entity.Player
		claimed *entity.WorldItem
	)
	err := w.withPlayer(id, func(p *entity.Player) error {
		wi, ok := w.store.Items.Get(itemID)
		if !ok {
			return eris.Wrapf(ErrConcurrencyLoss, "item %s is gone", itemID)
		}
		got, err := loadout.Pickup(p, wi, func() (*entity.WorldItem, bool) { return w.store.ClaimItem(itemID) })
		if err != nil {
			return fromLoadout(err)
		}
		claimed = got
		snap = p.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	w.metrics.IncrCounter([]string{"loadout", "pickups"}, 1)
	w.record(journal.Entry{At: now, Tick: w.Tick(), Kind: journal.KindPickup, Actor: id, Target: itemID,
		Data: map[string]any{"item": claimed.Item.Name, "rarity": w.cat.RarityName(claimed.Item.Rarity)}})
	w.sendLoadout(snap, now)
	w.notify.Broadcast(protocol.ItemsUpdateMsg{
		Type: protocol.TypeItemsUpdate, ProtocolVersion: protocol.Version,
		Tick: w.Tick(), Items: w.itemViews(),
	})
	w.persist(snap, now)
	return nil
}

// Equip moves one unit from an inventory slot into a hotbar slot.
func (w *World) Equip(id string, invIndex, hotbarIndex int) error {
	now := w.now()
	var (
		snap      *entity.Player
		discarded *entity.Item
	)
	err := w.withPlayer(id, func(p *entity.Player) error {
		d, err := loadout.Equip(p, invIndex, hotbarIndex, now, w.tune.Loadout.EquipReturnsDisplaced)
		if err != nil {
			return fromLoadout(err)
		}
		loadout.RecomputeMaxHealth(p, w.tune.Player.BaseMaxHealth, w.tune.Player.BuffPercent)
		discarded = d
		snap = p.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	if discarded != nil {
		w.log.Debug().Str("player_id", id).Str("item", discarded.Name).Msg("equip discarded displaced item")
	}
	w.sendLoadout(snap, now)
	w.persist(snap, now)
	return nil
}

// Unequip moves a hotbar item back to inventory. A full inventory leaves it
// equipped and returns ErrCapacity.
func (w *World) Unequip(id string, hotbarIndex int) error {
	now := w.now()
	var snap *entity.Player
	err := w.withPlayer(id, func(p *entity.Player) error {
		if err := loadout.Unequip(p, hotbarIndex, now); err != nil {
			return fromLoadout(err)
		}
		loadout.RecomputeMaxHealth(p, w.tune.Player.BaseMaxHealth, w.tune.Player.BuffPercent)
		snap = p.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	w.sendLoadout(snap, now)
	w.persist(snap, now)
	return nil
}

// Respawn revives a dead player at its spawn point with full health and a
// fresh invincibility window.
func (w *World) Respawn(id string) error {
	now := w.now()
	var view protocol.PlayerView
	err := w.withPlayer(id, func(p *entity.Player) error {
		if !p.Dead() {
			return eris.Wrap(ErrValidation, "player is alive")
		}
		loadout.RecomputeMaxHealth(p, w.tune.Player.BaseMaxHealth, w.tune.Player.BuffPercent)
		p.Health = p.MaxHealth
		p.Pos = p.Spawn
		p.InvincibleUntil = now + w.tune.Player.InvincibleMs
		view = w.playerView(p, now)
		return nil
	})
	if err != nil {
		return err
	}
	w.record(journal.Entry{At: now, Tick: w.Tick(), Kind: journal.KindRespawn, Actor: id})
	w.notify.SendTo(id, protocol.RespawnSuccessMsg{
		Type: protocol.TypeRespawnSuccess, ProtocolVersion: protocol.Version, Player: view,
	})
	return nil
}

// Chat broadcasts trimmed text, cut to the configured length.
func (w *World) Chat(id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || !utf8.ValidString(text) {
		return eris.Wrap(ErrValidation, "empty chat message")
	}
	if limit := w.tune.Chat.MaxLen; limit > 0 && utf8.RuneCountInString(text) > limit {
		text = string([]rune(text)[:limit])
	}
	p, ok := w.store.Players.Get(id)
	if !ok {
		return eris.Wrapf(ErrValidation, "player %s is not spawned", id)
	}
	w.notify.Broadcast(protocol.ChatMessageMsg{
		Type: protocol.TypeChatMessage, ProtocolVersion: protocol.Version,
		From: id, Username: p.Username, Text: text, At: w.now(),
	})
	return nil
}

// withPlayer runs fn on the live player under the players write lock.
func (w *World) withPlayer(id string, fn func(p *entity.Player) error) error {
	var err error
	found := false
	w.store.Players.Update(func(pl entity.Locked[*entity.Player]) {
		p, ok := pl.Get(id)
		if !ok || p == nil {
			return
		}
		found = true
		err = fn(p)
	})
	if !found {
		return eris.Wrapf(ErrValidation, "player %s is not spawned", id)
	}
	return err
}

func (w *World) sendLoadout(p *entity.Player, now int64) {
	w.notify.SendTo(p.ID, protocol.InventoryUpdateMsg{
		Type: protocol.TypeInventoryUpdate, ProtocolVersion: protocol.Version,
		Inventory: w.inventoryView(p.Inventory, now),
	})
	w.notify.SendTo(p.ID, protocol.HotbarUpdateMsg{
		Type: protocol.TypeHotbarUpdate, ProtocolVersion: protocol.Version,
		Hotbar: w.hotbarView(p.Hotbar, now),
	})
}

func (w *World) itemViews() []protocol.WorldItemView {
	var out []protocol.WorldItemView
	w.store.Items.View(func(il entity.Locked[*entity.WorldItem]) {
		out = w.itemStates(il)
	})
	return out
}

// persist queues a profile write-back. A full queue is logged and left to the
// next autosave.
func (w *World) persist(p *entity.Player, now int64) {
	if w.profiles == nil || p == nil {
		return
	}
	if !w.profiles.Enqueue(p.Username, profileOf(p, now)) {
		w.log.Warn().Str("username", p.Username).Msg("profile queue full; waiting for autosave")
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
