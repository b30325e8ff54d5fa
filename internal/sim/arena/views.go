package arena

import (
	"petalarena.io/internal/protocol"
	"petalarena.io/internal/sim/entity"
)

func (w *World) itemView(it *entity.Item, now int64) *protocol.ItemView {
	if it == nil {
		return nil
	}
	return &protocol.ItemView{
		Name:      it.Name,
		Color:     it.Color,
		Rarity:    w.cat.RarityName(it.Rarity),
		Damage:    it.Damage,
		Health:    it.Health,
		MaxHealth: it.MaxHealth,
		Reloading: !it.Ready(now),
	}
}

func (w *World) hotbarView(hotbar []*entity.Item, now int64) []*protocol.ItemView {
	out := make([]*protocol.ItemView, len(hotbar))
	for i, it := range hotbar {
		out[i] = w.itemView(it, now)
	}
	return out
}

func (w *World) inventoryView(inv []*entity.Slot, now int64) []*protocol.SlotView {
	out := make([]*protocol.SlotView, len(inv))
	for i, s := range inv {
		if s == nil || s.Count <= 0 {
			continue
		}
		out[i] = &protocol.SlotView{Item: *w.itemView(&s.Item, now), Count: s.Count}
	}
	return out
}

func (w *World) playerView(p *entity.Player, now int64) protocol.PlayerView {
	return protocol.PlayerView{
		ID:          p.ID,
		Username:    p.Username,
		X:           p.Pos.X,
		Y:           p.Pos.Y,
		Radius:      p.Radius,
		Health:      p.Health,
		MaxHealth:   p.MaxHealth,
		OrbitAngle:  p.OrbitAngle,
		OrbitRadius: p.OrbitRadius,
		Invincible:  p.Invincible(now),
		Dead:        p.Dead(),
		IsAdmin:     p.IsAdmin,
		Hotbar:      w.hotbarView(p.Hotbar, now),
	}
}

func (w *World) worldItemView(wi *entity.WorldItem, now int64) protocol.WorldItemView {
	return protocol.WorldItemView{
		ID:     wi.ID,
		X:      wi.Pos.X,
		Y:      wi.Pos.Y,
		Radius: wi.Radius,
		Item:   *w.itemView(&wi.Item, now),
	}
}

func (w *World) mobView(m *entity.Mob) protocol.MobView {
	return protocol.MobView{
		ID:        m.ID,
		Type:      m.Type,
		X:         m.Pos.X,
		Y:         m.Pos.Y,
		Radius:    m.Radius,
		Rarity:    w.cat.RarityName(m.Rarity),
		Health:    m.Health,
		MaxHealth: m.MaxHealth,
	}
}

func (w *World) playerStates(players []*entity.Player, now int64) []protocol.PlayerView {
	out := make([]protocol.PlayerView, 0, len(players))
	for _, p := range players {
		if p != nil {
			out = append(out, w.playerView(p, now))
		}
	}
	return out
}

func (w *World) mobStates(ml entity.Locked[*entity.Mob]) []protocol.MobView {
	out := make([]protocol.MobView, 0, ml.Len())
	ml.Each(func(_ string, m *entity.Mob) bool {
		if m != nil {
			out = append(out, w.mobView(m))
		}
		return true
	})
	return out
}

func (w *World) itemStates(il entity.Locked[*entity.WorldItem]) []protocol.WorldItemView {
	now := w.now()
	out := make([]protocol.WorldItemView, 0, il.Len())
	il.Each(func(_ string, wi *entity.WorldItem) bool {
		if wi != nil {
			out = append(out, w.worldItemView(wi, now))
		}
		return true
	})
	return out
}

// emitStep sends the per-tick events. No registry lock may be held.
func (w *World) emitStep(now int64, rep *StepReport, players []protocol.PlayerView, items []protocol.WorldItemView, mobs []protocol.MobView) {
	for _, d := range rep.Combat.Deaths {
		w.notify.SendTo(d.VictimID, protocol.PlayerDeadMsg{
			Type: protocol.TypePlayerDead, ProtocolVersion: protocol.Version,
			ID: d.VictimID, KillerID: d.KillerID,
		})
	}
	for _, k := range rep.Combat.MobKills {
		w.notify.Broadcast(protocol.MobDeadMsg{
			Type: protocol.TypeMobDead, ProtocolVersion: protocol.Version,
			ID: k.Mob.ID, KillerID: k.KillerID,
		})
	}
	for _, d := range rep.Drops {
		msg := protocol.ItemSpawnMsg{
			Type: protocol.TypeItemSpawn, ProtocolVersion: protocol.Version,
			MobID: d.MobID, Item: w.worldItemView(d.Item, now),
		}
		for _, id := range d.Recipients {
			w.notify.SendTo(id, msg)
		}
	}
	w.notify.Broadcast(protocol.PlayerUpdateMsg{
		Type: protocol.TypePlayerUpdate, ProtocolVersion: protocol.Version,
		Tick: rep.Tick, Players: players,
	})
	w.notify.Broadcast(protocol.ItemsUpdateMsg{
		Type: protocol.TypeItemsUpdate, ProtocolVersion: protocol.Version,
		Tick: rep.Tick, Items: items,
	})
	w.notify.Broadcast(protocol.MobsUpdateMsg{
		Type: protocol.TypeMobsUpdate, ProtocolVersion: protocol.Version,
		Tick: rep.Tick, Mobs: mobs,
	})
}

// Snapshot builds the full-state message for selfID. It takes the registry
// locks one at a time.
func (w *World) Snapshot(selfID string) protocol.WorldSnapshotMsg {
	now := w.now()
	msg := protocol.WorldSnapshotMsg{
		Type:            protocol.TypeWorldSnapshot,
		ProtocolVersion: protocol.Version,
		SelfID:          selfID,
		World: protocol.WorldParams{
			Width:      w.tune.World.Width,
			Height:     w.tune.World.Height,
			Zones:      w.mobs.Zones(),
			Rarities:   append([]string(nil), w.cat.Rarities.Names...),
			TickRateHz: w.tune.TickRateHz,
		},
		Catalogs: protocol.CatalogDigests{
			Rarities: w.cat.Rarities.Digest,
			Items:    w.cat.Items.Digest,
			Mobs:     w.cat.Mobs.Digest,
		},
	}
	w.store.Players.View(func(pl entity.Locked[*entity.Player]) {
		pl.Each(func(id string, p *entity.Player) bool {
			msg.Players = append(msg.Players, w.playerView(p, now))
			if id == selfID {
				msg.Inventory = w.inventoryView(p.Inventory, now)
				msg.Hotbar = w.hotbarView(p.Hotbar, now)
			}
			return true
		})
	})
	w.store.Mobs.View(func(ml entity.Locked[*entity.Mob]) {
		msg.Mobs = w.mobStates(ml)
	})
	w.store.Items.View(func(il entity.Locked[*entity.WorldItem]) {
		msg.Items = w.itemStates(il)
	})
	return msg
}
