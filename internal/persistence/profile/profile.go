// Package profile persists each player's inventory and hotbar by username.
package profile

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"petalarena.io/internal/sim/entity"
)

var ErrEmptyUsername = eris.New("empty username")

type Profile struct {
	Inventory []*entity.Slot `json:"inventory"`
	Hotbar    []*entity.Item `json:"hotbar"`
	UpdatedAt int64          `json:"updated_at"`
}

// Clone deep-copies the slices so the copy can leave the players lock.
func (p Profile) Clone() Profile {
	return Profile{
		Inventory: entity.CloneInventory(p.Inventory),
		Hotbar:    entity.CloneHotbar(p.Hotbar),
		UpdatedAt: p.UpdatedAt,
	}
}

// Loader reads a profile. Load reports ok=false when none exists.
type Loader interface {
	Load(ctx context.Context, username string) (Profile, bool, error)
}

type Store interface {
	Loader
	Save(ctx context.Context, username string, p Profile) error
	// Usernames lists stored profiles in name order.
	Usernames(ctx context.Context) ([]string, error)
	Close() error
}

// Memory is an in-process Store for tests and single-node dev runs.
type Memory struct {
	mu sync.Mutex
	m  map[string]Profile
}

func NewMemory() *Memory { return &Memory{m: map[string]Profile{}} }

func (s *Memory) Load(_ context.Context, username string) (Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[username]
	if !ok {
		return Profile{}, false, nil
	}
	return p.Clone(), true, nil
}

func (s *Memory) Save(_ context.Context, username string, p Profile) error {
	if username == "" {
		return ErrEmptyUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[username] = p.Clone()
	return nil
}

func (s *Memory) Usernames(context.Context) ([]string, error) {
	s.mu.Lock()
	out := make([]string, 0, len(s.m))
	for u := range s.m {
		out = append(out, u)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out, nil
}

func (s *Memory) Close() error { return nil }
