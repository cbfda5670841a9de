// Era narration: names the island's current age via Haiku.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Bluenot3/Tiny-God/internal/engine"
)

var _ engine.Narrator = (*Narrator)(nil)

const narrationMaxTokens = 200

const narratorSystem = `You are the narrator of a god-sim game. A creator is coaxing life out of a small island, one season at a time.

Respond ONLY with a single JSON object:
- "age_name": a short, mythic name for this era (e.g. "The Green Awakening", "The Drought")
- "description": one cryptic but helpful sentence about the state of the island
- "modifier": one word describing the current vibe (e.g. "Hope", "Chaos")

Do not break character or mention the game's numbers directly.`

// Narrator names eras with an LLM. A Narrator over a nil client is valid and
// always fails, so the caller falls back to the stock eras.
type Narrator struct {
	Client *Client
}

// NewNarrator returns a Narrator over client.
func NewNarrator(client *Client) *Narrator {
	return &Narrator{Client: client}
}

// Narrate asks the model for an era describing state.
func (n *Narrator) Narrate(ctx context.Context, state engine.GameState) (engine.Era, error) {
	if n == nil || !n.Client.Enabled() {
		return engine.Era{}, ErrDisabled
	}
	response, err := n.Client.Complete(ctx, narratorSystem, buildNarrationPrompt(state), narrationMaxTokens)
	if err != nil {
		return engine.Era{}, fmt.Errorf("narrate era: %w", err)
	}
	return parseEra(response)
}

func buildNarrationPrompt(s engine.GameState) string {
	var b strings.Builder
	b.WriteString("Analyze this island state:\n")
	fmt.Fprintf(&b, "Year: %d\n", s.Year)
	fmt.Fprintf(&b, "Biodiversity: %d/100\n", s.Biodiversity)
	fmt.Fprintf(&b, "Stability: %d/100\n", s.GlobalStability)
	fmt.Fprintf(&b, "Life Count: %d\n", s.TotalLife)
	if s.HumanPopulation > 0 {
		fmt.Fprintf(&b, "Villages: %d\n", s.HumanPopulation)
	}
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	if s.EraName != "" {
		fmt.Fprintf(&b, "The age that is ending: %s\n", s.EraName)
	}
	b.WriteString("\nName the age that begins now. Respond with a single JSON object.")
	return b.String()
}

func parseEra(response string) (engine.Era, error) {
	// Find JSON object in response.
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return engine.Era{}, fmt.Errorf("no JSON object found in response")
	}

	var era engine.Era
	if err := json.Unmarshal([]byte(response[start:end+1]), &era); err != nil {
		return engine.Era{}, fmt.Errorf("parse era: %w", err)
	}
	era.Name = strings.TrimSpace(era.Name)
	era.Description = strings.TrimSpace(era.Description)
	era.Modifier = strings.TrimSpace(era.Modifier)
	if err := era.Validate(); err != nil {
		return engine.Era{}, err
	}
	return era, nil
}
