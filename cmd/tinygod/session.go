package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"

	"github.com/Bluenot3/Tiny-God/internal/engine"
	"github.com/Bluenot3/Tiny-God/internal/parser"
	"github.com/Bluenot3/Tiny-God/internal/persistence"
	"github.com/Bluenot3/Tiny-God/internal/world"
)

const (
	savedLayout   = "%Y-%m-%d %H:%M"
	shortIDLength = 8
	// Below this the parser's guess is echoed back before it is played.
	echoConfidence = 0.9
)

// session is one interactive game on a terminal.
type session struct {
	sim    *engine.Simulation
	gameID string
	gen    world.GenConfig
	db     *persistence.DB // Nil disables save commands
	parser *parser.Parser
	out    io.Writer
	color  bool
	local  *time.Location
}

func newSession(sim *engine.Simulation, gameID string, gen world.GenConfig, db *persistence.DB, out io.Writer, color bool) *session {
	return &session{
		sim:    sim,
		gameID: gameID,
		gen:    gen,
		db:     db,
		parser: parser.New(),
		out:    out,
		color:  color,
		local:  time.Local,
	}
}

// run reads commands until quit or end of input.
func (s *session) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	s.printf("%s", renderStatus(s.sim.State, s.sim.Regen()))
	s.printf("%s", renderActions(s.sim))
	for {
		s.printf("> ")
		if !scanner.Scan() {
			s.printf("\n")
			return scanner.Err()
		}
		if quit := s.exec(ctx, scanner.Text()); quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// exec handles one input line and reports whether the player quit.
func (s *session) exec(ctx context.Context, line string) bool {
	intent := s.parser.Parse(line)
	switch intent.Kind {
	case parser.KindUnknown:
		if strings.TrimSpace(line) != "" {
			s.printf("Unknown command %q. Type help.\n", strings.Fields(line)[0])
		}
	case parser.KindAmbiguous:
		s.printf("Did you mean %s?\n", strings.Join(intent.Options, " or "))
	case parser.KindAction:
		if intent.Confidence < echoConfidence {
			s.printf("(reading that as %s)\n", intent.Action)
		}
		s.play(ctx, intent.Action)
	case parser.KindCommand:
		return s.command(ctx, intent)
	}
	return false
}

func (s *session) command(ctx context.Context, intent parser.Intent) bool {
	arg := ""
	if len(intent.Args) > 0 {
		arg = intent.Args[0]
	}
	switch intent.Command {
	case parser.CmdStatus:
		s.printf("%s", renderStatus(s.sim.State, s.sim.Regen()))
	case parser.CmdMap:
		s.printf("%s", renderMap(s.sim.State, s.color))
	case parser.CmdSave:
		s.save(ctx)
	case parser.CmdSaves:
		s.listSaves(ctx)
	case parser.CmdLoad:
		s.load(ctx, arg)
	case parser.CmdDelete:
		s.delete(ctx, arg)
	case parser.CmdReset:
		s.reset(ctx, arg)
	case parser.CmdHelp:
		s.help()
	case parser.CmdQuit:
		s.save(ctx)
		s.printf("The island sleeps.\n")
		return true
	}
	return false
}

func (s *session) play(ctx context.Context, action engine.Action) {
	res := s.sim.Play(ctx, action)
	switch res.Outcome {
	case engine.OutcomeGameOver:
		s.printf("The island's story is over (%s). Type reset to begin again.\n", s.sim.State.Status)
		return
	case engine.OutcomeInsufficientMana:
		s.printf("Not enough mana: %s costs %d, you have %d.\n", action, action.Cost(), s.sim.State.Mana)
		return
	case engine.OutcomeUnknownAction:
		s.printf("Unknown action.\n")
		return
	}

	s.printf("%s\n", res.Log)
	if res.Era != nil {
		s.printf("A new age dawns: %s. %s\n", res.Era.Name, res.Era.Description)
	}
	st := s.sim.State
	s.printf("Mana %d/%d  Biodiversity %d  Stability %d  Humans %d\n",
		st.Mana, st.MaxMana, st.Biodiversity, st.GlobalStability, st.HumanPopulation)
	switch st.Status {
	case engine.StatusWon:
		s.printf("You have won: the island thrives without you.\n")
	case engine.StatusLost:
		s.printf("You have lost: the island falls silent.\n")
	}
	if s.db != nil {
		if err := s.db.SaveGame(ctx, s.gameID, persistence.SlotOf(s.sim)); err != nil {
			s.printf("Autosave failed: %v\n", err)
		}
	}
}

func (s *session) save(ctx context.Context) {
	if s.db == nil {
		return
	}
	if err := s.db.SaveGame(ctx, s.gameID, persistence.SlotOf(s.sim)); err != nil {
		s.printf("Save failed: %v\n", err)
		return
	}
	s.printf("Saved as %s.\n", shortID(s.gameID))
}

func (s *session) listSaves(ctx context.Context) {
	if s.db == nil {
		s.printf("Saves are disabled.\n")
		return
	}
	saves, err := s.db.ListGames(ctx)
	if err != nil {
		s.printf("Listing saves failed: %v\n", err)
		return
	}
	if len(saves) == 0 {
		s.printf("No saves yet.\n")
		return
	}
	for _, sv := range saves {
		current := " "
		if sv.ID == s.gameID {
			current = "*"
		}
		s.printf("%s %s  %s  year %-3d %-7s biodiversity %-3d %s\n",
			current, shortID(sv.ID), strftime.Format(savedLayout, sv.UpdatedAt.In(s.local)),
			sv.Year, sv.Status, sv.Biodiversity, sv.EraName)
	}
}

// resolve expands a unique save ID prefix.
func (s *session) resolve(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", errors.New("which save? see saves")
	}
	saves, err := s.db.ListGames(ctx)
	if err != nil {
		return "", err
	}
	var found []string
	for _, sv := range saves {
		if sv.ID == prefix {
			return sv.ID, nil
		}
		if strings.HasPrefix(sv.ID, prefix) {
			found = append(found, sv.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no save matches %q", prefix)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%q matches %d saves", prefix, len(found))
	}
}

func (s *session) load(ctx context.Context, prefix string) {
	if s.db == nil {
		s.printf("Saves are disabled.\n")
		return
	}
	id, err := s.resolve(ctx, prefix)
	if err != nil {
		s.printf("Load failed: %v\n", err)
		return
	}
	slot, err := s.db.LoadGame(ctx, id)
	if err != nil {
		s.printf("Load failed: %v\n", err)
		return
	}
	sim, err := slot.Resume(s.sim.Narrator, s.sim.Config)
	if err != nil {
		s.printf("Load failed: %v\n", err)
		return
	}
	s.sim = sim
	s.gameID = id
	s.printf("Loaded %s.\n", shortID(id))
	s.printf("%s", renderStatus(s.sim.State, s.sim.Regen()))
}

func (s *session) delete(ctx context.Context, prefix string) {
	if s.db == nil {
		s.printf("Saves are disabled.\n")
		return
	}
	id, err := s.resolve(ctx, prefix)
	if err != nil {
		s.printf("Delete failed: %v\n", err)
		return
	}
	if id == s.gameID {
		s.printf("That is the island you are playing; load or reset first.\n")
		return
	}
	if err := s.db.DeleteGame(ctx, id); err != nil {
		s.printf("Delete failed: %v\n", err)
		return
	}
	s.printf("Deleted %s.\n", shortID(id))
}

func (s *session) reset(ctx context.Context, arg string) {
	cfg := s.gen
	cfg.Seed = 0
	if arg != "" {
		seed, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			s.printf("Seed must be a number.\n")
			return
		}
		cfg.Seed = seed
	}
	s.save(ctx)
	s.sim.Reset(cfg)
	s.gameID = uuid.NewString()
	s.printf("A new island rises from the sea (seed %d).\n", s.sim.Seed)
	s.save(ctx)
	s.printf("%s", renderMap(s.sim.State, s.color))
}

func (s *session) help() {
	s.printf("%s", renderActions(s.sim))
	s.printf("Commands: status, map, save, saves, load <id>, delete <id>, reset [seed], help, quit\n")
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}
