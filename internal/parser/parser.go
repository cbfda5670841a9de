// Package parser turns typed terminal input into actions and commands,
// tolerating prefixes and small typos.
package parser

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Bluenot3/Tiny-God/internal/engine"
)

// Kind is what a line of input resolved to.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindAction
	KindCommand
	KindAmbiguous
)

// Meta commands understood by the terminal client.
const (
	CmdStatus = "status"
	CmdMap    = "map"
	CmdSave   = "save"
	CmdSaves  = "saves"
	CmdLoad   = "load"
	CmdDelete = "delete"
	CmdReset  = "reset"
	CmdHelp   = "help"
	CmdQuit   = "quit"
)

// Intent is the parsed form of one input line.
type Intent struct {
	Kind       Kind
	Action     engine.Action // Set when Kind == KindAction
	Command    string        // Set when Kind == KindCommand
	Args       []string
	Confidence float64
	Options    []string // Candidates when Kind == KindAmbiguous
}

type phrase struct {
	canonical string
	alias     string
	action    bool
}

// Parser matches input against a fixed vocabulary.
type Parser struct {
	phrases []phrase
	actions map[string]engine.Action
}

// New returns a Parser for the seven actions and the meta commands.
func New() *Parser {
	p := &Parser{actions: make(map[string]engine.Action)}
	aliases := map[engine.Action][]string{
		engine.ActionRain:  {"water", "storm"},
		engine.ActionSun:   {"shine", "warm"},
		engine.ActionCalm:  {"soothe", "still"},
		engine.ActionStir:  {"wind", "churn"},
		engine.ActionBless: {"blessing", "grace"},
		engine.ActionSmite: {"wrath", "strike"},
		engine.ActionWait:  {"pass", "rest", "skip"},
	}
	for _, a := range engine.Actions() {
		canonical := strings.ToLower(a.String())
		p.actions[canonical] = a
		p.add(canonical, true, aliases[a]...)
	}
	p.add(CmdStatus, false, "stats", "info")
	p.add(CmdMap, false, "look", "view")
	p.add(CmdSave, false)
	p.add(CmdSaves, false, "list", "slots")
	p.add(CmdLoad, false, "open", "resume")
	p.add(CmdDelete, false, "remove", "rm")
	p.add(CmdReset, false, "new", "restart")
	p.add(CmdHelp, false, "?", "commands")
	p.add(CmdQuit, false, "exit", "q", "bye")
	return p
}

func (p *Parser) add(canonical string, action bool, aliases ...string) {
	p.phrases = append(p.phrases, phrase{canonical, canonical, action})
	for _, a := range aliases {
		p.phrases = append(p.phrases, phrase{canonical, a, action})
	}
}

// Parse resolves the first word of raw and passes the rest through as args.
func (p *Parser) Parse(raw string) Intent {
	tokens := strings.Fields(strings.ToLower(raw))
	if len(tokens) == 0 {
		return Intent{Kind: KindUnknown}
	}
	head, args := tokens[0], tokens[1:]

	matches, score, tie := p.bestMatches(head)
	switch {
	case len(matches) == 0:
		return Intent{Kind: KindUnknown, Args: args}
	case tie:
		return Intent{Kind: KindAmbiguous, Options: matches, Confidence: score, Args: args}
	}

	best := matches[0]
	if a, ok := p.actions[best]; ok {
		return Intent{Kind: KindAction, Action: a, Confidence: score, Args: args}
	}
	return Intent{Kind: KindCommand, Command: best, Confidence: score, Args: args}
}

func (p *Parser) bestMatches(token string) ([]string, float64, bool) {
	type scored struct {
		val   string
		score float64
	}
	// Best score per canonical word.
	bestBy := make(map[string]float64)
	for _, ph := range p.phrases {
		score := 0.0
		switch {
		case token == ph.alias:
			score = 1.0
		case strings.HasPrefix(ph.alias, token) && len(token) >= 2:
			score = 0.9
		default:
			dist := levenshtein.ComputeDistance(token, ph.alias)
			if dist > levenshteinLimit(len(ph.alias)) {
				continue
			}
			score = 0.72 - (0.08 * float64(dist))
		}
		if ph.alias != ph.canonical {
			score -= 0.02
		}
		if score > bestBy[ph.canonical] {
			bestBy[ph.canonical] = score
		}
	}
	if len(bestBy) == 0 {
		return nil, 0, false
	}

	results := make([]scored, 0, len(bestBy))
	for val, score := range bestBy {
		results = append(results, scored{val, score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return results[i].val < results[j].val
		}
		return results[i].score > results[j].score
	})

	best := results[0]
	tie := len(results) > 1 && (best.score-results[1].score) < 0.05 && results[1].score > 0.6
	if tie {
		return []string{best.val, results[1].val}, best.score, true
	}
	return []string{best.val}, best.score, false
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
