package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without a window")
	logStats := flag.Bool("log-stats", false, "Output perf and field stats via slog")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and frames")
	seed := flag.Uint("seed", 0, "Agent RNG seed (0 = use config)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	snapshotEvery := flag.Int("snapshot-every", 0, "Headless: save every Nth frame as PNG (requires -output-dir)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := game.Options{
		Seed:          uint32(*seed),
		LogStats:      *logStats,
		OutputDir:     *outputDir,
		Headless:      *headless,
		SnapshotEvery: *snapshotEvery,
	}

	if *headless {
		g, err := game.NewGameWithOptions(ctx, opts)
		if err != nil {
			slog.Error("failed to start", "error", err)
			os.Exit(1)
		}
		defer g.Unload()

		slog.Info("starting headless simulation",
			"max_frames", *maxFrames,
			"snapshot_every", *snapshotEvery,
		)

		for ctx.Err() == nil {
			g.UpdateHeadless()

			if *maxFrames > 0 && int(g.Frames()) >= *maxFrames {
				slog.Info("max frames reached", "frames", g.Frames())
				return
			}
		}
		return
	}

	// Graphical mode
	if cfg.Screen.Resizable {
		rl.SetConfigFlags(rl.FlagWindowResizable)
	}
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(ctx, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		rl.CloseWindow()
		os.Exit(1)
	}
	defer g.Unload()

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		g.Update()
		g.Draw()

		if *maxFrames > 0 && int(g.Frames()) >= *maxFrames {
			break
		}
	}
}
