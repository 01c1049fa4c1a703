package parallelmap

import (
	"context"
	"encoding/json"

	"github.com/basket/go-claw/internal/gateway"
)

// DefaultClassifyConcurrency is ClassifyMap's default concurrency.
const DefaultClassifyConcurrency = 16

// DefaultMaxRetries is the default per-item retry budget for both
// ClassifyMap and AgenticMap.
const DefaultMaxRetries = 3

// ClassifyMap runs gw.Classify once per line of inputPath, writing
// successful results (in input order) to a sibling output file.
func ClassifyMap(ctx context.Context, gw gateway.Gateway, inputPath, prompt string, outputSchema json.RawMessage, concurrency, maxRetries int) (Stats, error) {
	if concurrency <= 0 {
		concurrency = DefaultClassifyConcurrency
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	items, err := readItems(inputPath)
	if err != nil {
		return Stats{}, err
	}

	fn := func(ctx context.Context, item string) (string, error) {
		out, err := gw.Classify(ctx, item, prompt, outputSchema)
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
