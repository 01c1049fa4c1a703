package gateway

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

const (
	preserveDetailsSystemPrompt = `You compress a piece of conversation text while preserving everything a
future reader would need: concrete decisions, file paths, identifiers,
error messages, and actions taken or pending. Write prose, not bullets.
Keep it under the requested token budget.`

	bulletPointsSystemPrompt = `You compress a piece of conversation text into a short bulleted list of
what was done, decided, or changed. Omit narration and filler. Keep it
under the requested token budget.`
)

// Summarize requests a compressed version of text under the given mode,
// capping the requested output at 2x target_tokens to leave headroom for
// the model to actually land under the caller's real budget.
func (gw *GenkitGateway) Summarize(ctx context.Context, text, mode string, targetTokens int) (string, error) {
	if !gw.llmOn {
		return "", fmt.Errorf("gateway: no model configured")
	}

	var system string
	switch mode {
	case "bullet_points":
		system = bulletPointsSystemPrompt
	default:
		system = preserveDetailsSystemPrompt
	}

	maxOut := targetTokens * 2
	if maxOut <= 0 {
		maxOut = 1024
	}

	resp, err := genkit.Generate(ctx, gw.g,
		ai.WithModelName(gw.model),
		ai.WithSystem(fmt.Sprintf("%s\nTarget size: about %d tokens.", system, targetTokens)),
		ai.WithPrompt(text),
		ai.WithConfig(&ai.GenerationCommonConfig{MaxOutputTokens: maxOut}),
	)
	if err != nil {
		return "", fmt.Errorf("gateway: summarize: %w", err)
	}
	return resp.Text(), nil
}
