package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Bluenot3/Tiny-God/internal/engine"
	"github.com/Bluenot3/Tiny-God/internal/entropy"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tinygod.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := time.Unix(1_700_000_000, 0)
	db.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return db
}

func playedGame(t *testing.T, seed int64, turns int) (engine.GameState, *entropy.LCG) {
	t.Helper()
	state, rng := engine.NewGame(world.GenConfig{Size: 9, Seed: seed})
	actions := []engine.Action{engine.ActionRain, engine.ActionBless, engine.ActionWait, engine.ActionSun}
	for i := 0; i < turns; i++ {
		state, _ = engine.Step(state, actions[i%len(actions)], rng)
	}
	return state, rng
}

func TestSaveLoadReplaysNextTurn(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	state, rng := playedGame(t, 31, 12)

	if err := db.SaveGame(ctx, "alpha", Slot{State: state, RNGState: rng.State(), Seed: 31}); err != nil {
		t.Fatalf("save: %v", err)
	}
	slot, err := db.LoadGame(ctx, "alpha")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(slot.State, state) {
		t.Fatal("loaded state differs from the saved one")
	}

	sim, err := slot.Resume(nil, engine.DefaultConfig())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if sim.Seed != 31 {
		t.Fatalf("seed=%d after reload, want 31", sim.Seed)
	}
	want, _ := engine.Step(state, engine.ActionCalm, rng)
	got, _ := engine.Step(slot.State, engine.ActionCalm, sim.RNG)
	if !reflect.DeepEqual(want, got) {
		t.Fatal("reloaded game diverged on the next turn")
	}
}

func TestSlotOfKeepsSeed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	sim := engine.NewSimulation(engine.GameState{}, nil, nil, engine.DefaultConfig())
	sim.Reset(world.GenConfig{Size: 7, Seed: 4242})

	if err := db.SaveGame(ctx, "fresh", SlotOf(sim)); err != nil {
		t.Fatalf("save: %v", err)
	}
	slot, err := db.LoadGame(ctx, "fresh")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if slot.Seed != 4242 || slot.RNGState != sim.RNG.State() {
		t.Fatalf("slot seed=%d rng=%d, want 4242 and %d", slot.Seed, slot.RNGState, sim.RNG.State())
	}
}

func TestMigrateAddsSeedToOldSaves(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	state, rng := playedGame(t, 2, 1)
	if _, err := db.conn.Exec("ALTER TABLE games DROP COLUMN seed"); err != nil {
		t.Fatalf("drop column: %v", err)
	}
	// Old schema, old row.
	if _, err := db.conn.Exec(`INSERT INTO games (id, rng_state, year, grid_size, biodiversity,
		global_stability, human_population, total_life, mana, max_mana, status, era_name,
		era_description, created_at, updated_at) VALUES ('old', 1, 0, 1, 0, 0, 0, 0, 0, 100,
		'playing', '', '', 0, 0)`); err != nil {
		t.Fatalf("insert old row: %v", err)
	}

	if err := db.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var seed int64
	if err := db.conn.Get(&seed, "SELECT seed FROM games WHERE id = 'old'"); err != nil || seed != 0 {
		t.Fatalf("old row seed=%d err=%v", seed, err)
	}
	if err := db.SaveGame(ctx, "new", Slot{State: state, RNGState: rng.State(), Seed: 2}); err != nil {
		t.Fatalf("save after migrate: %v", err)
	}
}

func TestSaveReplacesSlot(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	early, rng := playedGame(t, 5, 2)
	if err := db.SaveGame(ctx, "slot", Slot{State: early, RNGState: rng.State()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	late, rng := playedGame(t, 5, 8)
	late.Logs = late.Logs[:1]
	if err := db.SaveGame(ctx, "slot", Slot{State: late, RNGState: rng.State()}); err != nil {
		t.Fatalf("resave: %v", err)
	}

	slot, err := db.LoadGame(ctx, "slot")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loaded := slot.State
	if loaded.Year != late.Year || len(loaded.Logs) != 1 {
		t.Fatalf("year=%d logs=%d, want the second save", loaded.Year, len(loaded.Logs))
	}
}

func TestListLatestDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty db latest err=%v", err)
	}

	for _, id := range []string{"first", "second", "third"} {
		state, rng := playedGame(t, 11, 1)
		if err := db.SaveGame(ctx, id, Slot{State: state, RNGState: rng.State()}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := db.ListGames(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "third" || list[2].ID != "first" {
		t.Fatalf("list order wrong: %+v", list)
	}
	if list[0].Status != "playing" || list[0].Year != 1 {
		t.Fatalf("summary fields wrong: %+v", list[0])
	}

	latest, err := db.Latest(ctx)
	if err != nil || latest != "third" {
		t.Fatalf("latest=%q err=%v", latest, err)
	}

	if err := db.DeleteGame(ctx, "third"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.LoadGame(ctx, "third"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted game load err=%v", err)
	}
	if err := db.DeleteGame(ctx, "third"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err=%v", err)
	}
	var orphans int
	if err := db.conn.Get(&orphans, "SELECT COUNT(*) FROM tiles WHERE game_id = 'third'"); err != nil || orphans != 0 {
		t.Fatalf("orphan tiles=%d err=%v", orphans, err)
	}
}

func TestLoadRejectsCorruptSave(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	state, rng := playedGame(t, 3, 4)
	if err := db.SaveGame(ctx, "broken", Slot{State: state, RNGState: rng.State()}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := db.conn.Exec("UPDATE games SET mana = 9999 WHERE id = 'broken'"); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := db.LoadGame(ctx, "broken"); !errors.Is(err, engine.ErrInvalidState) {
		t.Fatalf("corrupt mana err=%v", err)
	}

	if _, err := db.conn.Exec("UPDATE games SET mana = 10, status = 'dreaming' WHERE id = 'broken'"); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := db.LoadGame(ctx, "broken"); !errors.Is(err, engine.ErrInvalidState) {
		t.Fatalf("unknown status err=%v", err)
	}

	if _, err := db.conn.Exec("UPDATE games SET status = 'playing', rng_state = -4 WHERE id = 'broken'"); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := db.LoadGame(ctx, "broken"); !errors.Is(err, engine.ErrInvalidState) {
		t.Fatalf("bad rng err=%v", err)
	}
}
