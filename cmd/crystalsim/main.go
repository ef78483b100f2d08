// Command crystalsim grows a Widmanstätten-style pattern of crossing rays and
// serves it over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/widmanstatten/internal/api"
	"github.com/talgya/widmanstatten/internal/config"
	"github.com/talgya/widmanstatten/internal/engine"
	"github.com/talgya/widmanstatten/internal/persistence"
	"github.com/talgya/widmanstatten/internal/placement"
	"github.com/talgya/widmanstatten/internal/resolve"
	"github.com/talgya/widmanstatten/internal/scene"
)

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "path to a YAML config file")
	fresh := flag.Bool("fresh", false, "ignore any saved scene and generate a new one")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	setupLogger(*debug)
	slog.Info("Widmanstätten growth simulator")

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.Storage.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Storage.Path)

	// ── Load or Generate Scene ────────────────────────────────────────
	reg := scene.NewRegistry(
		scene.Bounds{Width: cfg.Scene.Width, Height: cfg.Scene.Height},
		cfg.Scene.Orientations,
		cfg.Scene.InitialLength,
	)
	gen := placement.NewGenerator(cfg.Scene, cfg.Seed)

	sim, startTick, err := loadOrGenerate(db, reg, gen, *fresh)
	if err != nil {
		if errors.Is(err, resolve.ErrCycle) {
			slog.Error("initial scene has a cyclic blocking dependency", "error", err, "seed", gen.Seed())
		} else {
			slog.Error("failed to prepare scene", "error", err)
		}
		os.Exit(1)
	}

	// Save on fresh generation only (loaded scenes are already saved).
	if startTick == 0 {
		if err := db.SaveMeta(persistence.MetaSeed, strconv.FormatInt(gen.Seed(), 10)); err != nil {
			slog.Error("save seed failed", "error", err)
		}
		if err := db.SaveScene(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(cfg.Engine.Interval)
	eng.Tick = startTick
	eng.SetSpeed(cfg.Engine.Speed)
	eng.CheckpointTicks = cfg.Engine.CheckpointTicks
	eng.ReportTicks = cfg.Engine.ReportTicks

	eng.OnTick = sim.TickGrowth
	eng.OnReport = func(tick uint64) { sim.Report(tick, eng.Interval) }
	eng.OnCheckpoint = func(tick uint64) {
		if err := db.SaveScene(sim); err != nil {
			slog.Error("checkpoint save failed", "error", err, "tick", tick)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn(config.EnvAdminKey + " not set, admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Sim:          sim,
		Eng:          eng,
		Gen:          gen,
		DB:           db,
		Port:         cfg.API.Port,
		AdminKey:     cfg.API.AdminKey,
		RelayKey:     cfg.API.RelayKey,
		CORSOrigins:  cfg.API.CORSOrigins,
		InsertRate:   cfg.API.InsertRate,
		InsertWindow: cfg.API.InsertWindow,
	}
	if err := apiServer.Start(); err != nil {
		slog.Error("failed to start API", "error", err)
		os.Exit(1)
	}

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	stats := sim.Stats()
	fmt.Printf("\n%s rays on a %gx%g scene, %s sides bounded.\n",
		humanize.Comma(int64(stats.Rays)), cfg.Scene.Width, cfg.Scene.Height, humanize.Comma(int64(stats.BoundedSides)))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	if startTick > 0 {
		fmt.Printf("Resuming from %s\n", engine.SimTime(startTick, cfg.Engine.Interval))
	}
	fmt.Println("Growing... (Ctrl+C to stop)")

	eng.Run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveScene(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Scene saved.")
}

// setupLogger installs a text handler on terminals and JSON otherwise.
func setupLogger(debug bool) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadOrGenerate restores the saved scene, or generates and resolves a new one.
func loadOrGenerate(db *persistence.DB, reg *scene.Registry, gen *placement.Generator, fresh bool) (*engine.Simulation, uint64, error) {
	saved, err := db.HasScene()
	if err != nil {
		return nil, 0, fmt.Errorf("check saved scene: %w", err)
	}

	if saved && !fresh {
		slog.Info("found saved scene, loading...")
		rays, err := db.LoadRays(reg)
		if err != nil {
			return nil, 0, fmt.Errorf("load rays: %w", err)
		}
		tick, err := db.LastTick()
		if err != nil {
			return nil, 0, fmt.Errorf("load tick: %w", err)
		}
		sim := engine.RestoreSimulation(reg, rays, tick)
		if events, err := db.RecentEvents(engine.MaxEvents); err == nil {
			sim.Preload(events)
		} else {
			slog.Warn("could not load event history", "error", err)
		}
		slog.Info("scene restored", "rays", len(rays), "tick", tick)
		return sim, tick, nil
	}

	slog.Info("generating new scene...", "seed", gen.Seed())
	specs := gen.Initial()
	rays := make([]*scene.Ray, 0, len(specs))
	for _, s := range specs {
		r, err := reg.NewRay(s)
		if err != nil {
			return nil, 0, fmt.Errorf("generated ray: %w", err)
		}
		rays = append(rays, r)
	}
	sim, err := engine.NewSimulation(reg, rays)
	if err != nil {
		return nil, 0, err
	}
	return sim, 0, nil
}
