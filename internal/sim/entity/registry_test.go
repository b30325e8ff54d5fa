package entity

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := NewRegistry[int]()
	require.True(t, r.Insert("a", 1))
	require.False(t, r.Insert("a", 2), "duplicate insert must be rejected")

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Remove("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = r.Remove("a")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_EachKeepsInsertionOrder(t *testing.T) {
	r := NewRegistry[string]()
	for i := 0; i < 100; i++ {
		id := strconv.Itoa(i)
		r.Insert(id, id)
	}
	for i := 0; i < 100; i += 2 {
		r.Remove(strconv.Itoa(i))
	}
	var got []string
	r.View(func(l Locked[string]) {
		l.Each(func(id string, _ string) bool {
			got = append(got, id)
			return true
		})
	})
	require.Len(t, got, 50)
	for i, id := range got {
		assert.Equal(t, strconv.Itoa(2*i+1), id)
	}
}

func TestRegistry_RemoveDuringEach(t *testing.T) {
	r := NewRegistry[int]()
	for i := 0; i < 10; i++ {
		r.Insert(strconv.Itoa(i), i)
	}
	visited := 0
	r.Update(func(l Locked[int]) {
		l.Each(func(id string, _ int) bool {
			visited++
			l.Remove(id)
			return true
		})
	})
	assert.Equal(t, 10, visited)
	assert.Equal(t, 0, r.Len())
}

func TestStore_ClaimItemExactlyOnce(t *testing.T) {
	s := NewStore()
	id := s.NewItemID()
	s.Items.Insert(id, &WorldItem{ID: id})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.ClaimItem(id); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 0, s.Items.Len())
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := NewStore()
	p := &Player{ID: "p1", Health: 10, Hotbar: []*Item{{Name: "basic", Health: 15}}}
	s.Players.Insert(p.ID, p)

	snap := s.PlayerSnapshot()
	require.Len(t, snap, 1)
	snap[0].Health = 0
	snap[0].Hotbar[0].Health = 1

	assert.Equal(t, 10, p.Health)
	assert.Equal(t, 15, p.Hotbar[0].Health)
}

func TestItemWear_StartsReloadAndRestores(t *testing.T) {
	it := &Item{Damage: 5, Health: 5, MaxHealth: 15, ReloadMs: 2000}
	assert.False(t, it.Wear(4, 100))
	assert.Equal(t, 1, it.Health)
	assert.True(t, it.Wear(1, 100))
	assert.Equal(t, 15, it.Health)
	assert.Equal(t, int64(2100), it.ReloadUntil)
	assert.False(t, it.Ready(2099))
	assert.True(t, it.Ready(2100))
}

func TestMobDealers(t *testing.T) {
	m := &Mob{}
	m.RecordDealer("b")
	m.RecordDealer("a")
	m.RecordDealer("b")
	assert.Equal(t, []string{"a", "b"}, m.DealerIDs())
	assert.True(t, (&Mob{SpawnedAt: 0}).Expired(1001, 1000))
	assert.False(t, (&Mob{SpawnedAt: 0}).Expired(1000, 1000))
}
