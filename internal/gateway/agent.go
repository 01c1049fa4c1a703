package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// AgentTurn runs a multi-turn tool-use loop bounded by opts.MaxTurns. The
// loop itself is delegated to genkit's own turn budget (ai.WithMaxTurns);
// when genkit reports the budget was exhausted without a final answer,
// AgentTurn returns the spec-mandated degraded result rather than an
// error (§4.2: "an acknowledged degraded result, not an error").
func (gw *GenkitGateway) AgentTurn(ctx context.Context, item, prompt string, opts AgentTurnOptions) (AgentTurnResult, error) {
	if !gw.llmOn {
		return AgentTurnResult{}, fmt.Errorf("gateway: no model configured")
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1
	}
	toolRefs := opts.Tools
	if len(toolRefs) == 0 {
		toolRefs = gw.defaultTools(opts.ReadOnly)
	}

	resp, err := genkit.Generate(ctx, gw.g,
		ai.WithModelName(gw.model),
		ai.WithSystem(prompt),
		ai.WithPrompt(item),
		ai.WithTools(toolRefs...),
		ai.WithMaxTurns(maxTurns),
	)
	if err != nil {
		if isMaxTurnsExceeded(err) {
			return AgentTurnResult{Result: "Max turns reached", Partial: true}, nil
		}
		return AgentTurnResult{}, fmt.Errorf("gateway: agent turn: %w", err)
	}
	return AgentTurnResult{Result: resp.Text()}, nil
}

func isMaxTurnsExceeded(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "max turns") || strings.Contains(msg, "maxturns") || strings.Contains(msg, "turn limit")
}
