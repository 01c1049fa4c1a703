package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// FakeGateway is a network-free Gateway test double: Escalation,
// Compaction, and the Parallel Map Executor all depend only on the
// Gateway interface, so their unit tests wire this in instead of a real
// model.
type FakeGateway struct {
	mu sync.Mutex

	// SummarizeFunc, when set, overrides the default summarization
	// behavior (truncate to roughly targetTokens*4 characters).
	SummarizeFunc func(ctx context.Context, text, mode string, targetTokens int) (string, error)
	// ClassifyFunc, when set, overrides the default classify behavior.
	ClassifyFunc func(ctx context.Context, item, prompt string, schema json.RawMessage) (json.RawMessage, error)
	// AgentTurnFunc, when set, overrides the default agent-turn behavior.
	AgentTurnFunc func(ctx context.Context, item, prompt string, opts AgentTurnOptions) (AgentTurnResult, error)

	// Err, when set, makes every call fail with this error regardless of
	// the *Func overrides above.
	Err error

	Calls int
}

var _ Gateway = (*FakeGateway)(nil)

// ErrFakeGateway is FakeGateway's default failure for tests exercising the
// escalation backstop.
var ErrFakeGateway = errors.New("fake gateway: forced failure")

func (f *FakeGateway) Summarize(ctx context.Context, text, mode string, targetTokens int) (string, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Err != nil {
		return "", f.Err
	}
	if f.SummarizeFunc != nil {
		return f.SummarizeFunc(ctx, text, mode, targetTokens)
	}
	limit := targetTokens * 4
	if limit <= 0 || limit >= len(text) {
		limit = len(text) / 2
	}
	if limit < 1 {
		limit = 1
	}
	return "[" + mode + "] " + text[:limit], nil
}

func (f *FakeGateway) Classify(ctx context.Context, item, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	if f.ClassifyFunc != nil {
		return f.ClassifyFunc(ctx, item, prompt, schema)
	}
	return json.RawMessage(`{"label":"ok"}`), nil
}

func (f *FakeGateway) AgentTurn(ctx context.Context, item, prompt string, opts AgentTurnOptions) (AgentTurnResult, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Err != nil {
		return AgentTurnResult{}, f.Err
	}
	if f.AgentTurnFunc != nil {
		return f.AgentTurnFunc(ctx, item, prompt, opts)
	}
	return AgentTurnResult{Result: "ok"}, nil
}
