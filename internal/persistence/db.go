// Package persistence provides SQLite-based save slots for island games.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Bluenot3/Tiny-God/internal/engine"
	"github.com/Bluenot3/Tiny-God/internal/entropy"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

// ErrNotFound is returned when a save slot does not exist.
var ErrNotFound = errors.New("save not found")

// DB wraps a SQLite connection for game persistence.
type DB struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		rng_state INTEGER NOT NULL,
		seed INTEGER NOT NULL DEFAULT 0,
		year INTEGER NOT NULL,
		grid_size INTEGER NOT NULL,
		biodiversity INTEGER NOT NULL,
		global_stability INTEGER NOT NULL,
		human_population INTEGER NOT NULL,
		total_life INTEGER NOT NULL,
		mana INTEGER NOT NULL,
		max_mana INTEGER NOT NULL,
		status TEXT NOT NULL,
		era_name TEXT NOT NULL,
		era_description TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tiles (
		game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		elevation REAL NOT NULL,
		moisture REAL NOT NULL,
		temperature REAL NOT NULL,
		fertility REAL NOT NULL,
		vegetation REAL NOT NULL,
		stability REAL NOT NULL,
		stage TEXT NOT NULL,
		biome TEXT NOT NULL,
		PRIMARY KEY (game_id, id)
	);

	CREATE TABLE IF NOT EXISTS logs (
		game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		line TEXT NOT NULL,
		PRIMARY KEY (game_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_games_updated ON games(updated_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	// Saves written before seeds were kept.
	return db.addColumn("games", "seed", "INTEGER NOT NULL DEFAULT 0")
}

func (db *DB) addColumn(table, column, decl string) error {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// Slot is one saved game: the state and what is needed to continue it.
type Slot struct {
	State    engine.GameState
	RNGState int64 // PRNG position after the last resolved turn
	Seed     int64 // Seed the island was generated from; 0 if unknown
}

// SlotOf captures a running simulation.
func SlotOf(sim *engine.Simulation) Slot {
	return Slot{State: sim.State, RNGState: sim.RNG.State(), Seed: sim.Seed}
}

// Resume rebuilds a simulation that continues exactly where the slot left off.
func (sl Slot) Resume(narrator engine.Narrator, cfg engine.Config) (*engine.Simulation, error) {
	rng := entropy.NewLCG(0)
	if err := rng.Restore(sl.RNGState); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidState, err)
	}
	sim := engine.NewSimulation(sl.State, rng, narrator, cfg)
	sim.Seed = sl.Seed
	return sim, nil
}

type gameRow struct {
	ID              string `db:"id"`
	RNGState        int64  `db:"rng_state"`
	Seed            int64  `db:"seed"`
	Year            int    `db:"year"`
	GridSize        int    `db:"grid_size"`
	Biodiversity    int    `db:"biodiversity"`
	GlobalStability int    `db:"global_stability"`
	HumanPopulation int    `db:"human_population"`
	TotalLife       int    `db:"total_life"`
	Mana            int    `db:"mana"`
	MaxMana         int    `db:"max_mana"`
	Status          string `db:"status"`
	EraName         string `db:"era_name"`
	EraDescription  string `db:"era_description"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

type tileRow struct {
	ID          int     `db:"id"`
	X           int     `db:"x"`
	Y           int     `db:"y"`
	Elevation   float64 `db:"elevation"`
	Moisture    float64 `db:"moisture"`
	Temperature float64 `db:"temperature"`
	Fertility   float64 `db:"fertility"`
	Vegetation  float64 `db:"vegetation"`
	Stability   float64 `db:"stability"`
	Stage       string  `db:"stage"`
	Biome       string  `db:"biome"`
}

// SaveGame writes the slot under id (full replace) in one transaction.
func (db *DB) SaveGame(ctx context.Context, id string, slot Slot) error {
	state := slot.State
	status, err := state.Status.MarshalText()
	if err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := db.now().UnixMilli()
	_, err = tx.ExecContext(ctx, `INSERT INTO games
		(id, rng_state, seed, year, grid_size, biodiversity, global_stability, human_population,
		 total_life, mana, max_mana, status, era_name, era_description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 rng_state = excluded.rng_state, seed = excluded.seed, year = excluded.year, grid_size = excluded.grid_size,
		 biodiversity = excluded.biodiversity, global_stability = excluded.global_stability,
		 human_population = excluded.human_population, total_life = excluded.total_life,
		 mana = excluded.mana, max_mana = excluded.max_mana, status = excluded.status,
		 era_name = excluded.era_name, era_description = excluded.era_description,
		 updated_at = excluded.updated_at`,
		id, slot.RNGState, slot.Seed, state.Year, state.GridSize, state.Biodiversity, state.GlobalStability,
		state.HumanPopulation, state.TotalLife, state.Mana, state.MaxMana, string(status),
		state.EraName, state.EraDescription, now, now,
	)
	if err != nil {
		return fmt.Errorf("save game row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tiles WHERE game_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM logs WHERE game_id = ?", id); err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO tiles
		(game_id, id, x, y, elevation, moisture, temperature, fertility, vegetation, stability, stage, biome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range state.Tiles {
		t := &state.Tiles[i]
		_, err := stmt.ExecContext(ctx, id, t.ID, t.X, t.Y, t.Elevation, t.Moisture, t.Temperature,
			t.Fertility, t.Vegetation, t.Stability, t.Stage.String(), t.Biome.String())
		if err != nil {
			return fmt.Errorf("save tile %d: %w", t.ID, err)
		}
	}

	for pos, line := range state.Logs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO logs (game_id, position, line) VALUES (?, ?, ?)", id, pos, line); err != nil {
			return fmt.Errorf("save log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("game saved", "id", id, "year", state.Year, "tiles", len(state.Tiles))
	return nil
}

// LoadGame reads the save with the given id. Snapshots that fail
// validation are rejected.
func (db *DB) LoadGame(ctx context.Context, id string) (Slot, error) {
	var g gameRow
	err := db.conn.GetContext(ctx, &g, "SELECT * FROM games WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Slot{}, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Slot{}, fmt.Errorf("load %s: %w", id, err)
	}

	var rows []tileRow
	err = db.conn.SelectContext(ctx, &rows, `SELECT id, x, y, elevation, moisture, temperature,
		fertility, vegetation, stability, stage, biome FROM tiles WHERE game_id = ? ORDER BY id`, id)
	if err != nil {
		return Slot{}, fmt.Errorf("load tiles: %w", err)
	}

	var logs []string
	err = db.conn.SelectContext(ctx, &logs, "SELECT line FROM logs WHERE game_id = ? ORDER BY position", id)
	if err != nil {
		return Slot{}, fmt.Errorf("load logs: %w", err)
	}

	state := engine.GameState{
		Year:            g.Year,
		GridSize:        g.GridSize,
		Tiles:           make([]world.Tile, 0, len(rows)),
		Biodiversity:    g.Biodiversity,
		GlobalStability: g.GlobalStability,
		HumanPopulation: g.HumanPopulation,
		TotalLife:       g.TotalLife,
		Mana:            g.Mana,
		MaxMana:         g.MaxMana,
		EraName:         g.EraName,
		EraDescription:  g.EraDescription,
		Logs:            logs,
	}
	if err := state.Status.UnmarshalText([]byte(g.Status)); err != nil {
		return Slot{}, fmt.Errorf("load %s: %w: %v", id, engine.ErrInvalidState, err)
	}
	for _, r := range rows {
		tile := world.Tile{
			ID: r.ID, X: r.X, Y: r.Y,
			Elevation:   r.Elevation,
			Moisture:    r.Moisture,
			Temperature: r.Temperature,
			Fertility:   r.Fertility,
			Vegetation:  r.Vegetation,
			Stability:   r.Stability,
		}
		if err := tile.Stage.UnmarshalText([]byte(r.Stage)); err != nil {
			return Slot{}, fmt.Errorf("load %s: %w: %v", id, engine.ErrInvalidState, err)
		}
		if err := tile.Biome.UnmarshalText([]byte(r.Biome)); err != nil {
			return Slot{}, fmt.Errorf("load %s: %w: %v", id, engine.ErrInvalidState, err)
		}
		state.Tiles = append(state.Tiles, tile)
	}

	if err := state.Validate(); err != nil {
		return Slot{}, fmt.Errorf("load %s: %w", id, err)
	}
	if err := entropy.NewLCG(0).Restore(g.RNGState); err != nil {
		return Slot{}, fmt.Errorf("load %s: %w: %v", id, engine.ErrInvalidState, err)
	}
	return Slot{State: state, RNGState: g.RNGState, Seed: g.Seed}, nil
}

// Summary describes one save slot without its tiles.
type Summary struct {
	ID           string    `json:"id"`
	Year         int       `json:"year"`
	Status       string    `json:"status"`
	Biodiversity int       `json:"biodiversity"`
	EraName      string    `json:"eraName"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ListGames returns every save, most recently updated first.
func (db *DB) ListGames(ctx context.Context) ([]Summary, error) {
	var rows []gameRow
	err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM games ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, g := range rows {
		out = append(out, Summary{
			ID:           g.ID,
			Year:         g.Year,
			Status:       g.Status,
			Biodiversity: g.Biodiversity,
			EraName:      g.EraName,
			UpdatedAt:    time.UnixMilli(g.UpdatedAt),
		})
	}
	return out, nil
}

// DeleteGame removes a save and its tiles and logs.
func (db *DB) DeleteGame(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	slog.Info("game deleted", "id", id)
	return nil
}

// Latest returns the id of the most recently saved game.
func (db *DB) Latest(ctx context.Context) (string, error) {
	var id string
	err := db.conn.GetContext(ctx, &id, "SELECT id FROM games ORDER BY updated_at DESC, id LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}
