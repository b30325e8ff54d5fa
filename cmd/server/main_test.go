package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petalarena.io/internal/persistence/identity"
	journal "petalarena.io/internal/persistence/log"
	"petalarena.io/internal/persistence/profile"
	"petalarena.io/internal/protocol"
	"petalarena.io/internal/session"
	"petalarena.io/internal/sim/arena"
	"petalarena.io/internal/sim/entity"
	"petalarena.io/internal/sim/tuning"
	"petalarena.io/internal/transport/ws"
)

func TestShowProfile(t *testing.T) {
	store := profile.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ana", profile.Profile{
		Hotbar:    []*entity.Item{{Name: "basic", Damage: 5}},
		Inventory: []*entity.Slot{nil, {Item: entity.Item{Name: "rock"}, Count: 2}},
	}))

	var out bytes.Buffer
	require.NoError(t, showProfile(ctx, store, "ana", &out))
	assert.Contains(t, out.String(), `"name": "rock"`)
	assert.Contains(t, out.String(), `"count": 2`)

	assert.Error(t, showProfile(ctx, store, "nobody", &out))

	require.NoError(t, store.Save(ctx, "bea", profile.Profile{}))
	out.Reset()
	require.NoError(t, listProfiles(ctx, store, &out))
	assert.Equal(t, "ana\nbea\n", out.String())
}

func TestRouter(t *testing.T) {
	m, sink, err := newMetrics()
	require.NoError(t, err)
	hub := session.NewHub(zerolog.Nop())
	w, err := arena.New(arena.Options{Tuning: tuning.Defaults(), Notifier: hub, Metrics: m, Logger: zerolog.Nop(), Seed: 1})
	require.NoError(t, err)
	gw, err := session.NewGateway(session.Options{World: w, Hub: hub, Identity: identity.NewStatic(nil), Logger: zerolog.Nop()})
	require.NoError(t, err)
	dec, err := protocol.NewDecoder()
	require.NoError(t, err)
	w.Step(1_000)

	r := newRouter(ws.NewServer(gw, dec, 8, zerolog.Nop()), sink, w)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arena.mobs")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDumpJournal(t *testing.T) {
	j := journal.NewJournal(t.TempDir())
	require.NoError(t, j.Record(journal.Entry{At: 1, Kind: journal.KindJoin, Actor: "c1"}))
	require.NoError(t, j.Record(journal.Entry{At: 2, Kind: journal.KindDeath, Actor: "m1", Target: "c1"}))
	require.NoError(t, j.Record(journal.Entry{At: 3, Kind: journal.KindJoin, Actor: "c2"}))
	require.NoError(t, j.Close())
	path := j.Path(time.Now())

	var out bytes.Buffer
	require.NoError(t, dumpJournal(path, journal.KindDeath, false, &out))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), `"target":"c1"`)

	out.Reset()
	require.NoError(t, dumpJournal(path, "", true, &out))
	assert.Equal(t, "death        1\njoin         2\n", out.String())

	assert.Error(t, dumpJournal(filepath.Join(t.TempDir(), "missing.jsonl.zst"), "", false, &out))
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{{"serve"}, {"profile", "show"}, {"profile", "list"}, {"token", "issue"}, {"journal", "dump"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
