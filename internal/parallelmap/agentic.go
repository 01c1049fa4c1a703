package parallelmap

import (
	"context"
	"encoding/json"

	"github.com/basket/go-claw/internal/gateway"
)

// DefaultAgenticConcurrency is AgenticMap's default concurrency — lower
// than ClassifyMap's because each call may issue many backend turns.
const DefaultAgenticConcurrency = 4

// AgenticMap runs gw.AgentTurn once per line of inputPath, writing
// successful results (in input order) to a sibling output file.
func AgenticMap(ctx context.Context, gw gateway.Gateway, inputPath, prompt string, outputSchema json.RawMessage, readOnly bool, concurrency, maxRetries int) (Stats, error) {
	if concurrency <= 0 {
		concurrency = DefaultAgenticConcurrency
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	items, err := readItems(inputPath)
	if err != nil {
		return Stats{}, err
	}

	opts := gateway.AgentTurnOptions{ReadOnly: readOnly}

	fn := func(ctx context.Context, item string) (string, error) {
		res, err := gw.AgentTurn(ctx, item, prompt, opts)
		if err != nil {
			return "", err
		}
		out, err := json.Marshal(res)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	results, errs := runExecutor(ctx, items, concurrency, maxRetries, fn)

	outputPath := outputPathFor(inputPath)
	if err := writeResults(outputPath, results); err != nil {
		return Stats{}, err
	}

	return summarize(outputPath, len(items), results, errs), nil
}
