package main

import (
	"math"
	"math/rand"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"petalarena.io/internal/protocol"
)

// bot is a scripted client: it spawns, wanders, collects its own drops and
// respawns after dying. Reads happen on one goroutine and wander on another.
type bot struct {
	name string

	mu      sync.Mutex
	rng     *rand.Rand
	selfID  string
	spawned bool
	dead    bool
}

func newBot(name string, seed int64) *bot {
	return &bot{name: name, rng: rand.New(rand.NewSource(seed))}
}

func (b *bot) hello(token string) protocol.AuthMsg {
	return protocol.AuthMsg{Type: protocol.TypeAuth, ProtocolVersion: protocol.Version, Username: b.name, Token: token}
}

// handle reacts to one server frame and returns the frames to send back.
func (b *bot) handle(raw []byte, log zerolog.Logger) []any {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch base.Type {
	case protocol.TypeAuthOK:
		var m protocol.AuthOKMsg
		if json.Unmarshal(raw, &m) != nil {
			return nil
		}
		log.Info().Bool("restored", m.Restored).Msg("AUTH_OK")
		return []any{protocol.SetUsernameMsg{Type: protocol.TypeSetUsername, ProtocolVersion: protocol.Version, Name: b.name}}

	case protocol.TypeWorldSnapshot:
		var m protocol.WorldSnapshotMsg
		if json.Unmarshal(raw, &m) != nil {
			return nil
		}
		b.selfID = m.SelfID
		b.spawned = true
		log.Info().Str("self", m.SelfID).Int("players", len(m.Players)).Int("mobs", len(m.Mobs)).Msg("spawned")
		return []any{protocol.OrbitControlMsg{Type: protocol.TypeOrbitControl, ProtocolVersion: protocol.Version, OrbitDist: 60}}

	case protocol.TypeItemSpawn:
		var m protocol.ItemSpawnMsg
		if json.Unmarshal(raw, &m) != nil {
			return nil
		}
		log.Debug().Str("item", m.Item.Item.Name).Msg("drop")
		return []any{protocol.PickupMsg{Type: protocol.TypePickup, ProtocolVersion: protocol.Version, ItemID: m.Item.ID}}

	case protocol.TypePlayerDead:
		var m protocol.PlayerDeadMsg
		if json.Unmarshal(raw, &m) != nil || m.ID != b.selfID {
			return nil
		}
		b.dead = true
		log.Info().Str("killer", m.KillerID).Msg("died")
		return []any{protocol.RespawnMsg{Type: protocol.TypeRespawn, ProtocolVersion: protocol.Version}}

	case protocol.TypeRespawnSuccess:
		b.dead = false

	case protocol.TypeError:
		var m protocol.ErrorMsg
		if json.Unmarshal(raw, &m) == nil {
			log.Warn().Str("code", m.Code).Str("message", m.Message).Msg("server error")
		}
	}
	return nil
}

// wander picks a random unit heading, or nil while not alive in the arena.
func (b *bot) wander() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.spawned || b.dead {
		return nil
	}
	a := b.rng.Float64() * 2 * math.Pi
	return protocol.MoveMsg{Type: protocol.TypeMove, ProtocolVersion: protocol.Version, DX: math.Cos(a), DY: math.Sin(a)}
}
