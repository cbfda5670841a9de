package steward

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	maxRecords    = 10
	reportRecords = 5 // how many recent records Report prints
)

// CycleRecord captures what happened in a single steward cycle.
type CycleRecord struct {
	GameID       string `json:"game_id"`
	Year         int    `json:"year"`
	Action       string `json:"action"`
	CrisisLevel  string `json:"crisis_level"`
	Biodiversity int    `json:"biodiversity"`
	Stability    int    `json:"stability"`
	Rationale    string `json:"rationale,omitempty"`
}

// Memory keeps a ring of recent steward cycle records on disk.
type Memory struct {
	Records []CycleRecord `json:"records"`

	path string
}

// LoadMemory reads the memory file at path. Returns empty memory if it is
// missing or unreadable. An empty path keeps memory in process only.
func LoadMemory(path string) *Memory {
	mem := &Memory{path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("steward memory corrupted, starting fresh", "path", path, "error", err)
		return &Memory{path: path}
	}
	return mem
}

// Save writes the memory to disk.
func (m *Memory) Save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal steward memory", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		slog.Error("failed to write steward memory", "path", m.path, "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords. Records from an
// earlier game are dropped when the island changes.
func (m *Memory) Record(r CycleRecord) {
	if n := len(m.Records); n > 0 && m.Records[n-1].GameID != r.GameID {
		m.Records = nil
	}
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Streak counts how many of the most recent records played action.
func (m *Memory) Streak(action string) int {
	n := 0
	for i := len(m.Records) - 1; i >= 0 && m.Records[i].Action == action; i-- {
		n++
	}
	return n
}

// Report summarizes the last few cycles, one line each.
func (m *Memory) Report() string {
	if len(m.Records) == 0 {
		return ""
	}

	var b strings.Builder
	start := max(len(m.Records)-reportRecords, 0)
	for _, r := range m.Records[start:] {
		action := r.Action
		if action == "" {
			action = "none"
		}
		fmt.Fprintf(&b, "- %s year: %s, crisis=%s, biodiversity=%d, stability=%d\n",
			humanize.Ordinal(r.Year), action, r.CrisisLevel, r.Biodiversity, r.Stability)
	}
	return b.String()
}
