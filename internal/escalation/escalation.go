// Package escalation turns a long text into a strictly shorter one,
// cascading through two LLM-backed summarization attempts before
// falling back to an unconditional deterministic truncation.
package escalation

import (
	"context"

	"github.com/basket/go-claw/internal/gateway"
	"github.com/basket/go-claw/internal/store"
	"github.com/basket/go-claw/internal/tokens"
)

// truncateHalfChars is the number of characters kept from each end of the
// text by the level-3 backstop (spec.md §4.3: "2·512").
const truncateHalfChars = 2 * 512

// truncateMaxChars is the size below which the level-3 backstop returns
// the text verbatim instead of truncating it (spec.md §4.3: "4·512").
const truncateMaxChars = 4 * 512

const truncateMarker = "\n[...truncated...]\n"

// Result carries the escalation outcome: which level succeeded, the mode
// that produced it, the resulting text, and its token estimate.
type Result struct {
	Content       string
	Level         int
	Mode          string
	TokenEstimate int
}

// attempt is one ordered cascade step: a closure that may fail, paired
// with the level/mode it represents if it succeeds. Modeling the cascade
// as a slice of these rather than nested try/catch keeps the fallthrough
// logic in one loop (spec.md §9, Design Note on escalation control flow).
type attempt struct {
	level int
	mode  string
	run   func(ctx context.Context) (string, error)
}

// Escalate compresses text to fit within roughly targetTokens, trying
// each cascade level in order and returning the first one whose result
// is strictly smaller (in token-estimate terms) than the input. The
// level-3 deterministic truncation never fails, so Escalate always
// returns a result — it never propagates a gateway error to its caller.
func Escalate(ctx context.Context, gw gateway.Gateway, text string, targetTokens int) Result {
	srcTokens := tokens.Estimate(text)
	if srcTokens <= targetTokens {
		return Result{Content: text, Level: 0, Mode: store.ModePassthrough, TokenEstimate: srcTokens}
	}

	attempts := []attempt{
		{
			level: 1,
			mode:  store.ModePreserveDetails,
			run: func(ctx context.Context) (string, error) {
				return gw.Summarize(ctx, text, store.ModePreserveDetails, targetTokens)
			},
		},
		{
			level: 2,
			mode:  store.ModeBulletPoints,
			run: func(ctx context.Context) (string, error) {
				return gw.Summarize(ctx, text, store.ModeBulletPoints, targetTokens/2)
			},
		},
	}

	for _, a := range attempts {
		content, err := a.run(ctx)
		if err != nil {
			continue
		}
		if est := tokens.Estimate(content); est < srcTokens {
			return Result{Content: content, Level: a.level, Mode: a.mode, TokenEstimate: est}
		}
	}

	return deterministicTruncate(text)
}

// deterministicTruncate is the unconditional level-3 backstop: it never
// fails and is the only level guaranteed to run when the gateway is
// unavailable.
func deterministicTruncate(text string) Result {
	if len(text) <= truncateMaxChars {
		return Result{Content: text, Level: 3, Mode: store.ModeDeterministicTruncate, TokenEstimate: tokens.Estimate(text)}
	}
	truncated := text[:truncateHalfChars] + truncateMarker + text[len(text)-truncateHalfChars:]
	return Result{Content: truncated, Level: 3, Mode: store.ModeDeterministicTruncate, TokenEstimate: tokens.Estimate(truncated)}
}
