// Command islandsim serves one Tiny God island over HTTP. It resumes the
// most recent save, or generates a fresh island, and saves on every turn.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Bluenot3/Tiny-God/internal/api"
	"github.com/Bluenot3/Tiny-God/internal/engine"
	"github.com/Bluenot3/Tiny-God/internal/llm"
	"github.com/Bluenot3/Tiny-God/internal/persistence"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Tiny God island server")

	dbPath := envOrDefault("TINYGOD_DB", "data/tinygod.db")
	apiPort := envIntOrDefault("TINYGOD_PORT", 8080)
	gen := world.DefaultGenConfig()
	gen.Seed = int64(envIntOrDefault("TINYGOD_SEED", 0))
	gen.Size = envIntOrDefault("TINYGOD_SIZE", gen.Size)
	gen.Relief = envFloatOrDefault("TINYGOD_RELIEF", gen.Relief)
	if err := gen.Validate(); err != nil {
		slog.Error("invalid island settings", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Narration ─────────────────────────────────────────────────────
	var narrator engine.Narrator
	if client := llm.NewClient(os.Getenv("ANTHROPIC_API_KEY"), llmOptions()...); client != nil {
		narrator = llm.NewNarrator(client)
		slog.Info("LLM narration enabled")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, eras will use the stock chronicle")
	}

	// ── Load or Generate Island ──────────────────────────────────────
	sim, gameID, err := loadOrGenerate(ctx, db, gen, narrator)
	if err != nil {
		slog.Error("failed to prepare island", "error", err)
		os.Exit(1)
	}
	st := sim.State
	slog.Info("island ready",
		"game_id", gameID,
		"year", st.Year,
		"size", st.GridSize,
		"land", st.Land(),
		"status", st.Status,
	)
	for b, n := range world.CountBiomes(st.Tiles) {
		slog.Debug("biome", "type", b, "count", n)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("TINYGOD_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("TINYGOD_ADMIN_KEY not set, creator POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:           sim,
		DB:            db,
		GameID:        gameID,
		Gen:           gen,
		Port:          apiPort,
		AdminKey:      adminKey,
		Hub:           api.NewHub(),
		ActionLimiter: api.NewRateLimiter(30, time.Minute),
	}
	srv := apiServer.Start(ctx)

	fmt.Printf("\nThe island stirs: year %d, %d land tiles, era %q.\n", st.Year, st.Land(), st.EraName)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Waiting for the creator... (Ctrl+C to stop)")

	<-ctx.Done()
	slog.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := apiServer.Save(shutdownCtx); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Island stopped. Game saved.")
}

// loadOrGenerate resumes the most recent save, or creates and saves a new
// island when there is none.
func loadOrGenerate(ctx context.Context, db *persistence.DB, gen world.GenConfig, narrator engine.Narrator) (*engine.Simulation, string, error) {
	id, err := db.Latest(ctx)
	switch {
	case err == nil:
		slot, err := db.LoadGame(ctx, id)
		if err != nil {
			return nil, "", fmt.Errorf("load %s: %w", id, err)
		}
		sim, err := slot.Resume(narrator, engine.DefaultConfig())
		if err != nil {
			return nil, "", fmt.Errorf("restore rng for %s: %w", id, err)
		}
		slog.Info("found saved island, resuming", "game_id", id, "year", slot.State.Year, "seed", slot.Seed)
		return sim, id, nil

	case errors.Is(err, persistence.ErrNotFound):
		slog.Info("no saved island found, generating...")
		sim := engine.NewSimulation(engine.GameState{}, nil, narrator, engine.DefaultConfig())
		sim.Reset(gen)
		id = uuid.NewString()
		if err := db.SaveGame(ctx, id, persistence.SlotOf(sim)); err != nil {
			slog.Error("initial save failed", "error", err)
		}
		slog.Info("new island saved", "game_id", id)
		return sim, id, nil

	default:
		return nil, "", fmt.Errorf("find latest save: %w", err)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// llmOptions reads the optional narration overrides.
func llmOptions() []llm.Option {
	var opts []llm.Option
	if m := os.Getenv("TINYGOD_LLM_MODEL"); m != "" {
		opts = append(opts, llm.WithModel(m))
	}
	if sec := envIntOrDefault("TINYGOD_LLM_TIMEOUT", 0); sec > 0 {
		opts = append(opts, llm.WithHTTPClient(&http.Client{Timeout: time.Duration(sec) * time.Second}))
	}
	return opts
}

func envFloatOrDefault(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
