// Command townsim runs the town simulation: a procedurally generated town,
// heatmap-driven townsfolk, and an HTTP API for watching it all unfold.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/townsim/internal/api"
	"github.com/talgya/townsim/internal/config"
	"github.com/talgya/townsim/internal/engine"
	"github.com/talgya/townsim/internal/entropy"
	"github.com/talgya/townsim/internal/grid"
	"github.com/talgya/townsim/internal/heatmap"
	"github.com/talgya/townsim/internal/mobs"
	"github.com/talgya/townsim/internal/persistence"
	"github.com/talgya/townsim/internal/ui"
	"github.com/talgya/townsim/internal/world"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "path to YAML config (empty = built-in defaults)")
		seedFlag = flag.Int64("seed", 0, "world seed override (0 = config seed, or random)")
		view     = flag.Bool("view", false, "run the terminal viewer instead of headless")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
	if *seedFlag != 0 {
		cfg.World.Seed = *seedFlag
	}

	setupLogging(cfg.Log, *view)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DB.Path); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DB.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	runID, err := db.RunID()
	if err != nil {
		slog.Error("failed to read run id", "error", err)
		os.Exit(1)
	}
	slog.Info("database opened", "path", cfg.DB.Path, "run_id", runID)

	// The saved seed wins over config/flags: every derived stream (language,
	// spawns, arrivals) must match the run the world was generated in.
	resume := db.HasWorld()
	seed := entropy.MasterSeed(cfg.World.Seed)
	if resume {
		stored, err := db.StoredSeed()
		if err != nil {
			slog.Error("saved world has no readable seed", "error", err)
			os.Exit(1)
		}
		seed = stored
	}
	slog.Info("townsim starting", "seed", seed, "resume", resume)

	lang := mobs.NewLanguage(rand.New(rand.NewSource(entropy.SubSeed(seed, entropy.StreamLanguage))))
	simRNG := rand.New(rand.NewSource(entropy.SubSeed(seed, entropy.StreamSim)))

	// ── Load or Generate ──────────────────────────────────────────────
	var (
		w         *world.World
		maps      *heatmap.Maps
		reg       mobs.Registry
		events    []engine.Event
		startTick uint64
	)

	if resume {
		slog.Info("found saved world, loading...")
		w, maps, err = db.LoadWorld()
		if err != nil {
			slog.Error("failed to load world", "error", err)
			os.Exit(1)
		}
		reg, err = db.LoadMobs()
		if err != nil {
			slog.Error("failed to load mobs", "error", err)
			os.Exit(1)
		}
		if tickStr, err := db.GetMeta("last_tick"); err == nil {
			if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
				startTick = t
			}
		}
		events, err = db.LoadEvents()
		if err != nil {
			slog.Error("failed to load events", "error", err)
			os.Exit(1)
		}
		slog.Info("world restored",
			"mobs", len(reg),
			"tick", startTick,
			"sim_time", engine.SimTime(startTick),
		)
	} else {
		slog.Info("no saved world, generating...")
		gen := world.GenConfig{
			Width:     cfg.World.Width,
			Height:    cfg.World.Height,
			Seed:      entropy.SubSeed(seed, entropy.StreamTerrain),
			TreeLevel: cfg.World.TreeLevel,
			RockLevel: cfg.World.RockLevel,
			PondLevel: cfg.World.PondLevel,
		}
		maps = heatmap.NewMaps(gen.Width, gen.Height)
		w = world.Generate(gen, maps)
		reg = mobs.Registry{}
	}

	sim := engine.NewSimulation(w, maps, reg, lang, simRNG)
	sim.RestoreEvents(events)

	if !resume || len(reg) == 0 {
		populate(sim, cfg.Sim, lang, rand.New(rand.NewSource(entropy.SubSeed(seed, entropy.StreamMobs))))
	}

	slog.Info("world ready",
		"cells", humanize.Comma(int64(w.Width*w.Height)),
		"fixtures", len(w.Sources()),
		"population", len(sim.Mobs),
	)

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Tick = startTick
	eng.SetSpeed(cfg.Sim.Speed)
	eng.Interval = time.Duration(cfg.Sim.TickIntervalMs) * time.Millisecond

	eng.OnTick = sim.TickMinute
	eng.OnHour = sim.TickHour
	eng.OnDay = func(tick uint64) {
		sim.TickDay(tick)
		if err := db.SaveState(sim, seed); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}

	// Save on fresh generation only (loaded worlds are already saved).
	if startTick == 0 {
		if err := db.SaveState(sim, seed); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.Enabled {
		adminKey := os.Getenv("TOWNSIM_ADMIN_KEY")
		if adminKey == "" {
			slog.Warn("TOWNSIM_ADMIN_KEY not set, admin POST endpoints disabled")
		}
		srv := &api.Server{
			Sim:      sim,
			Eng:      eng,
			DB:       db,
			Listen:   cfg.API.Listen,
			AdminKey: adminKey,
			RunID:    runID,
			Seed:     seed,
		}
		srv.Start()
	}

	// ── Run ───────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	if *view {
		viewer, err := ui.NewViewer(sim, eng)
		if err != nil {
			slog.Error("failed to start viewer", "error", err)
			os.Exit(1)
		}
		go eng.Run()
		viewer.Run()
		eng.Stop()
	} else {
		if startTick > 0 {
			fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.SimTime(startTick))
		}
		fmt.Printf("Town is alive: %d residents on a %dx%d map.\n", len(sim.Mobs), w.Width, w.Height)
		if cfg.API.Enabled {
			fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.API.Listen)
		}
		fmt.Println("Starting simulation... (Ctrl+C to stop)")
		eng.Run()
	}

	slog.Info("final save...")
	if err := db.SaveState(sim, seed); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. World saved.")
}

// populate fills the town with its starting residents at random free cells.
func populate(sim *engine.Simulation, sc config.Sim, lang *mobs.Language, rng *rand.Rand) {
	spawn := func(n int, gen func(*rand.Rand, *mobs.Language) *mobs.Mobile) {
		for i := 0; i < n; i++ {
			m := gen(rng, lang)
			for try := 0; try < 200; try++ {
				p := grid.Point{X: rng.Intn(sim.World.Width), Y: rng.Intn(sim.World.Height)}
				if sim.SpawnMob(p, m) {
					m.Home = p
					break
				}
			}
		}
	}
	spawn(sc.Citizens, mobs.GenAdult)
	spawn(sc.Children, mobs.GenChild)
	spawn(sc.Adventurers, mobs.GenAdventurer)
	slog.Info("town populated",
		"citizens", sc.Citizens,
		"children", sc.Children,
		"adventurers", sc.Adventurers,
	)
}

// setupLogging configures slog per the config. In viewer mode logs go to a
// file so they do not fight tcell for the terminal.
func setupLogging(lc config.Log, view bool) {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stdout
	if view {
		f, err := os.OpenFile("townsim.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			out = f
		}
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
