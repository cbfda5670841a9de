// Command steward tends a running island on a timer. It observes the
// public status, triages the island's health and plays one affordable
// action per cycle through the creator API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Bluenot3/Tiny-God/internal/steward"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("TINYGOD_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("TINYGOD_ADMIN_KEY")
	memoryPath := envOrDefault("STEWARD_MEMORY", "data/steward_memory.json")
	interval := cycleInterval(envIntOrDefault("STEWARD_INTERVAL", 60))

	if adminKey == "" {
		slog.Error("TINYGOD_ADMIN_KEY is required")
		os.Exit(1)
	}

	slog.Info("Tiny God steward starting",
		"api_url", apiURL,
		"interval", interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := steward.New(apiURL, adminKey, memoryPath)
	if report := st.Memory.Report(); report != "" {
		slog.Info("resuming with recent cycles\n" + report)
	}

	// The server may still be starting.
	slog.Info("waiting for island API...")
	if !waitForAPI(ctx, apiURL) {
		os.Exit(1)
	}

	runCycle(ctx, st)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(ctx, st)
		case <-ctx.Done():
			slog.Info("received signal, shutting down")
			fmt.Println("Steward stopped.")
			return
		}
	}
}

// minInterval is the shortest pause between cycles.
const minInterval = time.Second

// cycleInterval turns the configured seconds into a ticker period.
// time.NewTicker panics on a non-positive period.
func cycleInterval(sec int) time.Duration {
	return max(time.Duration(sec)*time.Second, minInterval)
}

func runCycle(ctx context.Context, st *steward.Steward) {
	slog.Info("steward cycle starting")
	d, err := st.RunCycle(ctx)
	if err != nil {
		slog.Error("steward cycle failed", "error", err)
		return
	}
	if d.None() {
		slog.Info("steward cycle complete, no turn played", "rationale", d.Rationale)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Gives up after 5 minutes or when ctx is cancelled.
func waitForAPI(ctx context.Context, apiURL string) bool {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("island API is ready")
				return true
			}
		}
		if time.Now().After(deadline) {
			slog.Error("island API did not become ready within 5 minutes")
			return false
		}
		slog.Info("island API not ready, retrying...", "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
