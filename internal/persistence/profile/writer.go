package profile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// ErrPersistence marks a profile the backing store failed to read or write.
var ErrPersistence = eris.New("persistence failure")

// Writer persists profiles on a background goroutine so callers never wait on
// the store. When the queue is full the save is dropped; the next autosave
// sweep writes the player again. Load answers from queued saves first, so a
// reconnect never restores a loadout older than the one just enqueued.
type Writer struct {
	store   Store
	log     zerolog.Logger
	timeout time.Duration

	// mu guards sends on ch against Close.
	mu   sync.RWMutex
	ch   chan saveReq
	wg   sync.WaitGroup
	once sync.Once

	// pmu guards pending: the newest queued, unwritten profile per username.
	pmu     sync.Mutex
	pending map[string]pendingSave
	seq     uint64

	closed  atomic.Bool
	written atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

type saveReq struct {
	username string
	profile  Profile
	seq      uint64
}

type pendingSave struct {
	profile Profile
	seq     uint64
}

type WriterStats struct {
	Written uint64
	Failed  uint64
	Dropped uint64
	Queued  int
}

func NewWriter(store Store, log zerolog.Logger, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 1024
	}
	w := &Writer{
		store:   store,
		log:     log.With().Str("component", "profile_writer").Logger(),
		timeout: 5 * time.Second,
		ch:      make(chan saveReq, queueSize),
		pending: map[string]pendingSave{},
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
	return w
}

// Enqueue schedules a save and reports whether it was accepted.
func (w *Writer) Enqueue(username string, p Profile) bool {
	if w == nil || username == "" {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed.Load() {
		return false
	}
	w.pmu.Lock()
	defer w.pmu.Unlock()
	w.seq++
	select {
	case w.ch <- saveReq{username: username, profile: p, seq: w.seq}:
		w.pending[username] = pendingSave{profile: p.Clone(), seq: w.seq}
		return true
	default:
		w.dropped.Add(1)
		w.log.Warn().Str("username", username).Msg("profile queue full, save dropped")
		return false
	}
}

// Load returns the newest queued profile for username, falling back to the
// store when nothing is pending.
func (w *Writer) Load(ctx context.Context, username string) (Profile, bool, error) {
	w.pmu.Lock()
	ps, ok := w.pending[username]
	w.pmu.Unlock()
	if ok {
		return ps.profile.Clone(), true, nil
	}
	p, found, err := w.store.Load(ctx, username)
	if err != nil {
		return Profile{}, false, eris.Wrapf(ErrPersistence, "load %q: %v", username, err)
	}
	return p, found, nil
}

func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Written: w.written.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
		Queued:  len(w.ch),
	}
}

// Close drains queued saves and stops the writer. The store is not closed.
func (w *Writer) Close() {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed.Store(true)
		close(w.ch)
		w.mu.Unlock()
		w.wg.Wait()
	})
}

func (w *Writer) loop() {
	for r := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.store.Save(ctx, r.username, r.profile)
		cancel()
		if err != nil {
			// The pending entry stays so Load keeps serving the unsaved profile.
			w.failed.Add(1)
			w.log.Error().Err(eris.Wrapf(ErrPersistence, "save %q: %v", r.username, err)).
				Str("username", r.username).Msg("profile save failed")
			continue
		}
		w.written.Add(1)
		w.pmu.Lock()
		if ps, ok := w.pending[r.username]; ok && ps.seq == r.seq {
			delete(w.pending, r.username)
		}
		w.pmu.Unlock()
	}
}
