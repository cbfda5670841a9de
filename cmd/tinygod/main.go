// Command tinygod plays a Tiny God island in the terminal.
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
	"syscall"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/Bluenot3/Tiny-God/internal/engine"
	"github.com/Bluenot3/Tiny-God/internal/llm"
	"github.com/Bluenot3/Tiny-God/internal/persistence"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

func main() {
	dbPath := flag.String("db", "data/tinygod.db", "save database path (empty disables saves)")
	seed := flag.Int64("seed", 0, "island seed (0 = random)")
	size := flag.Int("size", world.DefaultSize, fmt.Sprintf("grid side length (max %d)", world.MaxSize))
	relief := flag.Float64("relief", 0, "coastline roughness from simplex noise, 0 to 1")
	resume := flag.Bool("resume", true, "continue the most recent save")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	// Logs go to stderr so they never interleave with the map.
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := world.DefaultGenConfig()
	gen.Seed = *seed
	gen.Size = *size
	gen.Relief = *relief
	if err := gen.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	var db *persistence.DB
	if *dbPath != "" {
		os.MkdirAll(filepath.Dir(*dbPath), 0755)
		var err error
		db, err = persistence.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open %s: %v\n", *dbPath, err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var narrator engine.Narrator
	if client := llm.NewClient(os.Getenv("ANTHROPIC_API_KEY")); client != nil {
		narrator = llm.NewNarrator(client)
	}

	sim, gameID, err := open(ctx, db, gen, narrator, *resume && *seed == 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fd := os.Stdout.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	s := newSession(sim, gameID, gen, db, os.Stdout, color)
	fmt.Printf("Tiny God. You are the weather; the island does the rest. Type help.\n\n")
	if err := s.run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// open resumes the latest save when asked to and one exists, otherwise it
// generates a new island.
func open(ctx context.Context, db *persistence.DB, gen world.GenConfig, narrator engine.Narrator, resume bool) (*engine.Simulation, string, error) {
	if db != nil && resume {
		id, err := db.Latest(ctx)
		switch {
		case err == nil:
			slot, err := db.LoadGame(ctx, id)
			if err != nil {
				return nil, "", fmt.Errorf("resume %s: %w", shortID(id), err)
			}
			sim, err := slot.Resume(narrator, engine.DefaultConfig())
			if err != nil {
				return nil, "", fmt.Errorf("resume %s: %w", shortID(id), err)
			}
			return sim, id, nil
		case !errors.Is(err, persistence.ErrNotFound):
			return nil, "", fmt.Errorf("find latest save: %w", err)
		}
	}
	sim := engine.NewSimulation(engine.GameState{}, nil, narrator, engine.DefaultConfig())
	sim.Reset(gen)
	return sim, uuid.NewString(), nil
}
