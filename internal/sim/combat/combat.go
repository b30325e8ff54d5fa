// Package combat resolves orbiting-weapon collisions for one tick.
package combat

import (
	"fmt"
	"math"

	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/loadout"
	"petalarena.io/internal/sim/tuning"
)

type Config struct {
	BaseMaxHealth int
	BuffPercent   int

	// Multipliers applied to admin attackers and admin targets.
	DamageDealtMult float64
	DamageTakenMult float64
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		BaseMaxHealth:   t.Player.BaseMaxHealth,
		BuffPercent:     t.Player.BuffPercent,
		DamageDealtMult: t.Admin.DamageDealtMult,
		DamageTakenMult: t.Admin.DamageTakenMult,
	}
}

type Death struct {
	VictimID string
	KillerID string
}

type MobKill struct {
	Mob      *entity.Mob
	KillerID string
	// Dealers lists every player credited with damage, sorted by id.
	Dealers []string
}

// Fault records an entity that could not be resolved this tick.
type Fault struct {
	PlayerID string
	Reason   string
}

type Result struct {
	PlayerHits int
	MobHits    int
	Reloads    int
	Deaths     []Death
	MobKills   []MobKill
	Faults     []Fault
}

type Resolver struct {
	cfg Config
}

func NewResolver(cfg Config) *Resolver {
	if cfg.DamageDealtMult <= 0 {
		cfg.DamageDealtMult = 1
	}
	if cfg.DamageTakenMult <= 0 {
		cfg.DamageTakenMult = 1
	}
	return &Resolver{cfg: cfg}
}

// OrbitPosition returns where the i-th of n equipped items around p sits.
func OrbitPosition(p *entity.Player, i, n int) entity.Vec2 {
	step := 2 * math.Pi / float64(n)
	a := p.OrbitAngle + float64(i)*step
	return p.Pos.Add(p.OrbitRadius*math.Cos(a), p.OrbitRadius*math.Sin(a))
}

// Step advances every living player's orbit and applies hits at time now.
// Players and mobs are mutated in place; the caller holds the players and
// mobs locks and removes killed mobs afterwards.
//
// Every player alive when the step starts gets to strike, so two players
// that kill each other in the same tick both die.
func (r *Resolver) Step(now int64, players []*entity.Player, mobs []*entity.Mob) Result {
	var res Result
	attackers := make([]*entity.Player, 0, len(players))
	for _, p := range players {
		if p != nil && !p.Dead() {
			attackers = append(attackers, p)
		}
	}
	for _, p := range attackers {
		r.stepPlayer(now, p, players, mobs, &res)
	}
	return res
}

func (r *Resolver) stepPlayer(now int64, p *entity.Player, players []*entity.Player, mobs []*entity.Mob, res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res.Faults = append(res.Faults, Fault{PlayerID: p.ID, Reason: fmt.Sprint(rec)})
		}
	}()

	p.OrbitAngle += p.OrbitSpeed
	loadout.RecomputeMaxHealth(p, r.cfg.BaseMaxHealth, r.cfg.BuffPercent)

	equipped := p.Equipped()
	for i, it := range equipped {
		if !it.Ready(now) {
			continue
		}
		pos := OrbitPosition(p, i, len(equipped))
		if r.strikePlayers(now, p, it, pos, players, res) {
			continue
		}
		r.strikeMobs(now, p, it, pos, mobs, res)
	}
}

// strikePlayers reports whether the item went into reload.
func (r *Resolver) strikePlayers(now int64, p *entity.Player, it *entity.Item, pos entity.Vec2, players []*entity.Player, res *Result) bool {
	for _, o := range players {
		if o == nil || o == p || o.Dead() {
			continue
		}
		if pos.Dist(o.Pos) >= o.Radius+it.HitRadius() {
			continue
		}
		if o.Invincible(now) {
			continue
		}
		dmg := r.damage(it.Damage, p.IsAdmin, o.IsAdmin)
		o.Health -= dmg
		if o.Health <= 0 {
			o.Health = 0
			res.Deaths = append(res.Deaths, Death{VictimID: o.ID, KillerID: p.ID})
		}
		res.PlayerHits++
		if it.Wear(dmg, now) {
			res.Reloads++
			return true
		}
	}
	return false
}

func (r *Resolver) strikeMobs(now int64, p *entity.Player, it *entity.Item, pos entity.Vec2, mobs []*entity.Mob, res *Result) {
	for _, m := range mobs {
		if m == nil || m.Dead() {
			continue
		}
		if pos.Dist(m.Pos) >= m.Radius+it.HitRadius() {
			continue
		}
		m.Health -= r.damage(it.Damage, p.IsAdmin, false)
		m.RecordDealer(p.ID)
		res.MobHits++
		if m.Health <= 0 {
			m.Health = 0
			res.MobKills = append(res.MobKills, MobKill{Mob: m, KillerID: p.ID, Dealers: m.DealerIDs()})
		}
		if it.Wear(m.Damage, now) {
			res.Reloads++
			return
		}
	}
}

func (r *Resolver) damage(base int, attackerAdmin, targetAdmin bool) int {
	d := float64(base)
	if attackerAdmin {
		d *= r.cfg.DamageDealtMult
	}
	if targetAdmin {
		d *= r.cfg.DamageTakenMult
	}
	return int(math.Round(d))
}
