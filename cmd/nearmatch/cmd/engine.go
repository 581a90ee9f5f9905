package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/Aman-CERP/nearmatch/internal/analyze"
	"github.com/Aman-CERP/nearmatch/internal/cache"
	"github.com/Aman-CERP/nearmatch/internal/config"
	"github.com/Aman-CERP/nearmatch/internal/daemon"
	"github.com/Aman-CERP/nearmatch/internal/errors"
	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
	"github.com/Aman-CERP/nearmatch/internal/store"
)

// loadConfig loads the effective configuration for the working directory.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.InternalError("failed to get current directory", err)
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		root = cwd
	}
	return config.Load(root)
}

// daemonConfig maps the daemon section of cfg onto daemon.Config.
func daemonConfig(cfg *config.Config) daemon.Config {
	return daemon.Config{
		SocketPath:          cfg.Daemon.SocketPath,
		PIDPath:             cfg.Daemon.PIDPath,
		Timeout:             cfg.DaemonTimeoutDuration(),
		ShutdownGracePeriod: cfg.ShutdownGraceDuration(),
	}
}

// engine is a warmed-up analyze service together with everything it owns.
type engine struct {
	backend  store.Backend
	lock     *store.DirLock
	store    store.Store
	cache    *cache.Cache
	recorder *cache.Recorder
	service  *analyze.Service
}

// openEngine locks the data directory, opens the store and warms the cache.
// With background set, records are persisted by a Recorder; otherwise each
// analyze call records synchronously before returning.
func openEngine(ctx context.Context, cfg *config.Config, background bool) (*engine, error) {
	backend, err := store.ParseBackend(cfg.Store.Backend)
	if err != nil {
		return nil, err
	}

	e := &engine{backend: backend}

	if backend != store.BackendMemory && cfg.Store.Path != "" {
		e.lock = store.NewDirLock(cfg.Store.Path)
		if err := e.lock.TryLock(); err != nil {
			return nil, err
		}
	}

	s, err := store.Open(store.Options{
		Backend: backend,
		DataDir: cfg.Store.Path,
		CacheMB: cfg.Store.CacheMB,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	e.store = s

	e.cache = cache.New(e.store)
	if err := e.cache.WarmUp(ctx); err != nil {
		e.Close()
		return nil, err
	}

	opts := []analyze.Option{
		analyze.WithCodec(fingerprint.NewCachedCodec(cfg.Cache.CodecCacheSize)),
	}
	if background {
		e.recorder = cache.NewRecorder(e.cache, cache.RecorderConfig{
			QueueSize: cfg.Cache.RecordQueue,
			Workers:   cfg.Cache.RecordWorkers,
		})
		e.recorder.Start(ctx)
		opts = append(opts, analyze.WithRecorder(e.recorder))
	}
	e.service = analyze.New(e.cache, opts...)

	st := e.cache.Stats()
	slog.Debug("engine_ready",
		slog.String("backend", string(backend)),
		slog.String("data_dir", cfg.Store.Path),
		slog.Int("texts", st.Texts),
		slog.Int("fingerprints", st.Fingerprints))

	return e, nil
}

// Close drains the recorder, then closes the store and releases the lock.
func (e *engine) Close() {
	if e.recorder != nil {
		e.recorder.Stop()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			slog.Warn("store_close_failed", errors.FormatForLog(err)...)
		}
	}
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil {
			slog.Warn("lock_release_failed", slog.String("error", err.Error()))
		}
	}
}
