// Package arena owns the authoritative world: the entity registries, the tick
// driver and the command surface connections call into.
package arena

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/armon/go-metrics"
	"github.com/rs/zerolog"

	journal "petalarena.io/internal/persistence/log"
	"petalarena.io/internal/persistence/profile"
	"petalarena.io/internal/protocol"
	"petalarena.io/internal/sim/catalogs"
	"petalarena.io/internal/sim/combat"
	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/mobs"
	"petalarena.io/internal/sim/tuning"
)

// Notifier delivers outbound protocol messages. The world only knows player
// ids; mapping them to connections is the caller's business.
type Notifier interface {
	Broadcast(msg any)
	SendTo(playerID string, msg any)
}

type ProfileSink interface {
	Enqueue(username string, p profile.Profile) bool
}

type Journal interface {
	Record(e journal.Entry) error
}

type Options struct {
	Tuning   tuning.Tuning
	Notifier Notifier
	Profiles ProfileSink
	Journal  Journal
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger

	// Now returns the simulation clock in unix milliseconds.
	Now  func() int64
	Seed int64
}

type World struct {
	tune     tuning.Tuning
	cat      *catalogs.Catalogs
	store    *entity.Store
	resolver *combat.Resolver
	mobs     *mobs.Manager

	notify   Notifier
	profiles ProfileSink
	journal  Journal
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() int64

	// rng serves command paths; the mob manager has its own tick-only source.
	rngMu sync.Mutex
	rng   *rand.Rand

	stepMu  sync.Mutex
	tick    atomic.Uint64
	running atomic.Bool
}

func New(opts Options) (*World, error) {
	if err := opts.Tuning.Validate(); err != nil {
		return nil, err
	}
	cat, err := catalogs.Build(opts.Tuning)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().UnixMilli() }
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Metrics == nil {
		cfg := metrics.DefaultConfig("arena")
		cfg.EnableHostname = false
		cfg.EnableRuntimeMetrics = false
		m, err := metrics.New(cfg, &metrics.BlackholeSink{})
		if err != nil {
			return nil, err
		}
		opts.Metrics = m
	}

	store := entity.NewStore()
	w := &World{
		tune:     opts.Tuning,
		cat:      cat,
		store:    store,
		resolver: combat.NewResolver(combat.ConfigFromTuning(opts.Tuning)),
		mobs:     mobs.NewManager(cat, opts.Tuning, store, rand.New(rand.NewSource(opts.Seed))),
		notify:   opts.Notifier,
		profiles: opts.Profiles,
		journal:  opts.Journal,
		metrics:  opts.Metrics,
		log:      opts.Logger.With().Str("component", "arena").Logger(),
		now:      opts.Now,
		rng:      rand.New(rand.NewSource(opts.Seed + 1)),
	}
	for _, it := range w.mobs.Seed(opts.Tuning.World.SeedItems) {
		store.Items.Insert(it.ID, it)
	}
	return w, nil
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(any)      {}
func (nopNotifier) SendTo(string, any) {}

func (w *World) Tuning() tuning.Tuning        { return w.tune }
func (w *World) Catalogs() *catalogs.Catalogs { return w.cat }
func (w *World) Store() *entity.Store         { return w.store }
func (w *World) Tick() uint64                 { return w.tick.Load() }
func (w *World) Now() int64                   { return w.now() }

// Run drives Step at the configured tick rate until ctx is done. Only one
// driver may run per world.
func (w *World) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	interval := time.Second / time.Duration(w.tune.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Info().Int("tick_rate_hz", w.tune.TickRateHz).Msg("tick loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Step(w.now())
		}
	}
}

// StepReport summarizes one tick for tests and the journal.
type StepReport struct {
	Tick      uint64
	Combat    combat.Result
	Drops     []Drop
	Spawned   int
	Despawned []string
	Expired   []string
}

// Drop is a loot item and the players it was delivered to.
type Drop struct {
	MobID      string
	Item       *entity.WorldItem
	Recipients []string
}

// Step runs one tick at time now: combat, mob lifecycle, then the state
// broadcasts. Events go out after every registry lock is released.
func (w *World) Step(now int64) (rep StepReport) {
	w.stepMu.Lock()
	defer w.stepMu.Unlock()
	start := time.Now()
	defer w.metrics.MeasureSince([]string{"tick", "duration"}, start)

	rep.Tick = w.tick.Add(1)
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error().Uint64("tick", rep.Tick).Str("panic", fmt.Sprint(rec)).Msg("tick aborted")
			w.metrics.IncrCounter([]string{"tick", "aborted"}, 1)
		}
	}()

	var (
		playerViews []protocol.PlayerView
		mobViews    []protocol.MobView
	)
	w.store.Players.Update(func(pl entity.Locked[*entity.Player]) {
		players := make([]*entity.Player, 0, pl.Len())
		pl.Each(func(_ string, p *entity.Player) bool {
			players = append(players, p)
			return true
		})
		w.store.Mobs.Update(func(ml entity.Locked[*entity.Mob]) {
			list := make([]*entity.Mob, 0, ml.Len())
			ml.Each(func(_ string, m *entity.Mob) bool {
				list = append(list, m)
				return true
			})
			rep.Combat = w.resolver.Step(now, players, list)
			for _, k := range rep.Combat.MobKills {
				ml.Remove(k.Mob.ID)
			}
			rep.Despawned = w.mobs.Despawn(now, ml)
			rep.Spawned = len(w.mobs.Spawn(now, ml))
			mobViews = w.mobStates(ml)
		})
		playerViews = w.playerStates(players, now)
	})

	for _, k := range rep.Combat.MobKills {
		item, ok := w.mobs.Drop(now, k)
		if !ok {
			continue
		}
		rep.Drops = append(rep.Drops, Drop{MobID: k.Mob.ID, Item: item, Recipients: k.Dealers})
	}

	var itemViews []protocol.WorldItemView
	w.store.Items.Update(func(il entity.Locked[*entity.WorldItem]) {
		for _, d := range rep.Drops {
			il.Insert(d.Item.ID, d.Item)
		}
		rep.Expired = w.mobs.ExpireDrops(now, il)
		itemViews = w.itemStates(il)
	})

	w.emitStep(now, &rep, playerViews, itemViews, mobViews)
	w.recordStep(now, &rep, len(playerViews), len(mobViews), len(itemViews))
	return rep
}

func (w *World) recordStep(now int64, rep *StepReport, players, mobCount, items int) {
	w.metrics.SetGauge([]string{"players"}, float32(players))
	w.metrics.SetGauge([]string{"mobs"}, float32(mobCount))
	w.metrics.SetGauge([]string{"items"}, float32(items))
	c := rep.Combat
	if c.PlayerHits > 0 {
		w.metrics.IncrCounter([]string{"combat", "player_hits"}, float32(c.PlayerHits))
	}
	if c.MobHits > 0 {
		w.metrics.IncrCounter([]string{"combat", "mob_hits"}, float32(c.MobHits))
	}
	if c.Reloads > 0 {
		w.metrics.IncrCounter([]string{"combat", "reloads"}, float32(c.Reloads))
	}
	if len(c.Deaths) > 0 {
		w.metrics.IncrCounter([]string{"combat", "deaths"}, float32(len(c.Deaths)))
	}
	if len(c.MobKills) > 0 {
		w.metrics.IncrCounter([]string{"mob", "kills"}, float32(len(c.MobKills)))
	}
	if len(rep.Drops) > 0 {
		w.metrics.IncrCounter([]string{"mob", "loot"}, float32(len(rep.Drops)))
	}
	if len(rep.Despawned) > 0 {
		w.metrics.IncrCounter([]string{"mob", "despawned"}, float32(len(rep.Despawned)))
	}

	for _, d := range c.Deaths {
		w.record(journal.Entry{At: now, Tick: rep.Tick, Kind: journal.KindDeath, Actor: d.KillerID, Target: d.VictimID})
	}
	for _, k := range c.MobKills {
		w.record(journal.Entry{At: now, Tick: rep.Tick, Kind: journal.KindMobKill, Actor: k.KillerID, Target: k.Mob.ID,
			Data: map[string]any{"type": k.Mob.Type, "dealers": k.Dealers}})
	}
	for _, d := range rep.Drops {
		w.record(journal.Entry{At: now, Tick: rep.Tick, Kind: journal.KindLoot, Target: d.Item.ID,
			Data: map[string]any{"item": d.Item.Item.Name, "rarity": w.cat.RarityName(d.Item.Item.Rarity), "recipients": d.Recipients}})
	}
	for _, id := range rep.Despawned {
		w.record(journal.Entry{At: now, Tick: rep.Tick, Kind: journal.KindMobExpire, Target: id})
	}
	for _, f := range c.Faults {
		w.log.Error().Str("player_id", f.PlayerID).Str("reason", f.Reason).Msg("combat step skipped entity")
		w.record(journal.Entry{At: now, Tick: rep.Tick, Kind: journal.KindFault, Target: f.PlayerID, Data: map[string]any{"reason": f.Reason}})
	}
}

func (w *World) record(e journal.Entry) {
	if w.journal == nil {
		return
	}
	if err := w.journal.Record(e); err != nil {
		w.log.Warn().Err(err).Str("kind", e.Kind).Msg("journal write failed")
	}
}

// RunAutosave persists every spawned player's loadout on each interval until
// ctx is done. It runs independently of the tick.
func (w *World) RunAutosave(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Duration(w.tune.AutosaveEveryMs) * time.Millisecond
	}
	if every <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n := w.SaveAll()
			w.log.Debug().Int("players", n).Msg("autosave")
		}
	}
}

// SaveAll queues a profile save for every spawned player and returns how many
// were accepted.
func (w *World) SaveAll() int {
	if w.profiles == nil {
		return 0
	}
	now := w.now()
	n := 0
	for _, p := range w.store.PlayerSnapshot() {
		if w.profiles.Enqueue(p.Username, profileOf(p, now)) {
			n++
		}
	}
	w.metrics.IncrCounter([]string{"autosave", "queued"}, float32(n))
	return n
}

func profileOf(p *entity.Player, now int64) profile.Profile {
	return profile.Profile{
		Inventory: entity.CloneInventory(p.Inventory),
		Hotbar:    entity.CloneHotbar(p.Hotbar),
		UpdatedAt: now,
	}
}
