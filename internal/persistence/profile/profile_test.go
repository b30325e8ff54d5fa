package profile

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petalarena.io/internal/sim/entity"
)

func sample() Profile {
	basic := &entity.Item{Name: "basic", Color: "#ffffff", Damage: 5, Health: 15, MaxHealth: 15, ReloadMs: 2000}
	return Profile{
		Inventory: []*entity.Slot{{Item: entity.Item{Name: "rock", Rarity: 2, Damage: 9, Health: 90, MaxHealth: 90}, Count: 3}, nil},
		Hotbar:    []*entity.Item{basic, nil, nil},
		UpdatedAt: 1234,
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "ana", sample()))
	got, ok, err := s.Load(ctx, "ana")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample(), got)

	next := sample()
	next.Inventory[0].Count = 1
	require.NoError(t, s.Save(ctx, "ana", next))
	got, _, err = s.Load(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Inventory[0].Count)

	assert.True(t, eris.Is(s.Save(ctx, "", sample()), ErrEmptyUsername))

	require.NoError(t, s.Save(ctx, "bob", sample()))
	names, err := s.Usernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana", "bob"}, names)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "profiles.sqlite"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(rdb, "")
	defer s.Close()
	exerciseStore(t, s)
	assert.True(t, mr.Exists("profile:ana"))
}

type countingStore struct {
	*Memory
	mu    sync.Mutex
	saves int
	fail  bool
}

func (c *countingStore) Save(ctx context.Context, username string, p Profile) error {
	c.mu.Lock()
	c.saves++
	fail := c.fail
	c.mu.Unlock()
	if fail {
		return eris.New("disk on fire")
	}
	return c.Memory.Save(ctx, username, p)
}

func TestWriter_DrainsOnClose(t *testing.T) {
	st := &countingStore{Memory: NewMemory()}
	w := NewWriter(st, zerolog.Nop(), 16)
	for i := 0; i < 10; i++ {
		require.True(t, w.Enqueue("ana", sample()))
	}
	w.Close()

	assert.Equal(t, 10, st.saves)
	assert.Equal(t, uint64(10), w.Stats().Written)
	_, ok, _ := st.Load(context.Background(), "ana")
	assert.True(t, ok)

	assert.False(t, w.Enqueue("ana", sample()), "closed writer rejects saves")
}

func TestWriter_FailuresAreCounted(t *testing.T) {
	st := &countingStore{Memory: NewMemory(), fail: true}
	w := NewWriter(st, zerolog.Nop(), 4)
	w.Enqueue("ana", sample())
	w.Close()
	assert.Equal(t, uint64(1), w.Stats().Failed)
	assert.Equal(t, uint64(0), w.Stats().Written)
}

// gatedStore blocks every Save until gate is closed.
type gatedStore struct {
	*Memory
	gate chan struct{}
}

func (g *gatedStore) Save(ctx context.Context, username string, p Profile) error {
	<-g.gate
	return g.Memory.Save(ctx, username, p)
}

func TestWriter_LoadSeesQueuedSave(t *testing.T) {
	st := &gatedStore{Memory: NewMemory(), gate: make(chan struct{})}
	ctx := context.Background()
	require.NoError(t, st.Memory.Save(ctx, "ana", Profile{UpdatedAt: 1}))

	w := NewWriter(st, zerolog.Nop(), 8)
	newer := sample()
	require.True(t, w.Enqueue("ana", newer))

	got, ok, err := w.Load(ctx, "ana")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newer, got)

	_, ok, err = w.Load(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)

	close(st.gate)
	w.Close()
	w.pmu.Lock()
	assert.Empty(t, w.pending)
	w.pmu.Unlock()

	got, ok, err = w.Load(ctx, "ana")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1234), got.UpdatedAt)
}

type brokenStore struct{ *Memory }

func (brokenStore) Load(context.Context, string) (Profile, bool, error) {
	return Profile{}, false, eris.New("connection refused")
}

func (brokenStore) Save(context.Context, string, Profile) error {
	return eris.New("connection refused")
}

func TestWriter_StoreFailuresArePersistenceErrors(t *testing.T) {
	w := NewWriter(brokenStore{NewMemory()}, zerolog.Nop(), 4)
	_, _, err := w.Load(context.Background(), "ana")
	assert.True(t, eris.Is(err, ErrPersistence))

	require.True(t, w.Enqueue("ana", sample()))
	w.Close()
	assert.Equal(t, uint64(1), w.Stats().Failed)

	// the unsaved profile is still served
	got, ok, err := w.Load(context.Background(), "ana")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sample(), got)
}
