package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/armon/go-metrics"
	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"petalarena.io/internal/config"
	"petalarena.io/internal/persistence/identity"
	journal "petalarena.io/internal/persistence/log"
	"petalarena.io/internal/persistence/profile"
	"petalarena.io/internal/protocol"
	"petalarena.io/internal/session"
	"petalarena.io/internal/sim/arena"
	"petalarena.io/internal/sim/tuning"
	"petalarena.io/internal/transport/ws"
)

const shutdownGrace = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the arena: tick loop, autosave and the websocket front door",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func loadTuning(path string, log zerolog.Logger) (tuning.Tuning, error) {
	if path == "" {
		return tuning.Defaults(), nil
	}
	t, err := tuning.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("tuning file not found; using defaults")
		return tuning.Defaults(), nil
	}
	return t, err
}

func openProfiles(ctx context.Context, cfg config.Config) (profile.Store, error) {
	switch cfg.ProfileBackend {
	case config.BackendMemory:
		return profile.NewMemory(), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			return nil, eris.Wrapf(err, "redis %s", cfg.RedisAddr)
		}
		return profile.NewRedis(client, ""), nil
	default:
		return profile.OpenSQLite(cfg.ProfileDBPath())
	}
}

func newMetrics() (*metrics.Metrics, *metrics.InmemSink, error) {
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	mc := metrics.DefaultConfig("arena")
	mc.EnableHostname = false
	mc.EnableRuntimeMetrics = true
	m, err := metrics.New(mc, sink)
	if err != nil {
		return nil, nil, eris.Wrap(err, "metrics")
	}
	return m, sink, nil
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	tune, err := loadTuning(cfg.TuningPath, log)
	if err != nil {
		return eris.Wrap(err, "load tuning")
	}
	m, sink, err := newMetrics()
	if err != nil {
		return err
	}

	store, err := openProfiles(ctx, cfg)
	if err != nil {
		return eris.Wrap(err, "open profile store")
	}
	defer store.Close()
	writer := profile.NewWriter(store, log, 1024)
	defer writer.Close()

	sessions, err := identity.OpenSQLite(cfg.SessionDBPath())
	if err != nil {
		return eris.Wrap(err, "open session store")
	}
	defer sessions.Close()
	validator := identity.Chain{sessions}
	if dev := cfg.ParseDevTokens(); len(dev) > 0 {
		log.Warn().Int("users", len(dev)).Msg("dev tokens enabled")
		validator = append(validator, identity.NewStatic(dev))
	}

	var jr arena.Journal
	if cfg.Journal {
		j := journal.NewJournal(cfg.DataDir)
		defer j.Close()
		jr = j
	}

	hub := session.NewHub(log)
	world, err := arena.New(arena.Options{
		Tuning:   tune,
		Notifier: hub,
		Profiles: writer,
		Journal:  jr,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		return eris.Wrap(err, "create world")
	}
	gw, err := session.NewGateway(session.Options{
		World:    world,
		Hub:      hub,
		Identity: validator,
		Profiles: writer,
		Metrics:  m,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	dec, err := protocol.NewDecoder()
	if err != nil {
		return eris.Wrap(err, "compile protocol schemas")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ws.NewServer(gw, dec, tune.Outbound.QueueSize, log), sink, world),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return ignoreCanceled(world.Run(ctx))
	})
	eg.Go(func() error {
		return ignoreCanceled(world.RunAutosave(ctx, cfg.AutosaveEvery))
	})
	eg.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("profiles", cfg.ProfileBackend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "http server")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := srv.Shutdown(sctx)
		gw.Shutdown()
		writer.Close()
		st := writer.Stats()
		log.Info().Uint64("written", st.Written).Uint64("failed", st.Failed).Uint64("dropped", st.Dropped).Msg("profiles flushed")
		return err
	})
	return eg.Wait()
}

func newRouter(wsrv *ws.Server, sink *metrics.InmemSink, world *arena.World) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/metrics", func(rw http.ResponseWriter, req *http.Request) {
		data, err := sink.DisplayMetrics(rw, req)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"tick": world.Tick(), "metrics": data})
	}).Methods(http.MethodGet)
	r.HandleFunc("/v1/ws", wsrv.Handler())
	return r
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
