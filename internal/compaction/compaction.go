// Package compaction implements the two-threshold controller that keeps
// a session's live (uncondensed) token footprint bounded by escalating
// old messages into leaf summaries and, once enough leaves accumulate,
// condensing those leaves into higher-level summaries.
package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/basket/go-claw/internal/escalation"
	"github.com/basket/go-claw/internal/gateway"
	lcmotel "github.com/basket/go-claw/internal/otel"
	"github.com/basket/go-claw/internal/store"
)

// Defaults per spec.md §4.4.
const (
	DefaultSoftThreshold      = 50000
	DefaultHardThreshold      = 200000
	DefaultBlockMin           = 5
	DefaultBlockMax           = 15
	DefaultCondensationThresh = 5
	blockSummaryTargetTokens  = 500
	condensationTargetTokens  = 800
	condensationJoin          = "\n\n---\n\n"
)

// Thresholds bundles the tunables CheckAndCompact runs against, so
// callers needing non-default values (tests, experimentation) don't have
// to pass five positional ints.
type Thresholds struct {
	Soft              int
	Hard              int
	BlockMin          int
	BlockMax          int
	CondensationCount int
}

// DefaultThresholds returns the spec-mandated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Soft:              DefaultSoftThreshold,
		Hard:              DefaultHardThreshold,
		BlockMin:          DefaultBlockMin,
		BlockMax:          DefaultBlockMax,
		CondensationCount: DefaultCondensationThresh,
	}
}

// Stats reports what a CheckAndCompact call actually did.
type Stats struct {
	LeafSummariesCreated      int
	CondensedSummariesCreated int
	TotalTokensBefore         int
	TotalTokensAfter          int
}

// Controller runs compaction against a store using a gateway-backed
// escalation cascade.
type Controller struct {
	Store *store.Store
	GW    gateway.Gateway

	// Metrics is optional; when set, compaction runs and the summaries
	// they produce are recorded against it. A nil Metrics is a no-op, so
	// tests and callers that don't care about observability can leave it
	// unset.
	Metrics *lcmotel.Metrics
}

// New builds a Controller over st using gw for all summarization calls.
func New(st *store.Store, gw gateway.Gateway) *Controller {
	return &Controller{Store: st, GW: gw}
}

// CheckAndCompact runs the decision tree from spec.md §4.4: block-compact
// everything past τ_hard, compact only the oldest block past τ_soft,
// and unconditionally condense once enough uncondensed leaves have
// accumulated. It never returns an error for a single failed block —
// Escalation's level-3 backstop absorbs those — but does propagate
// store write failures, at which point already-committed blocks from
// this call remain committed.
func (c *Controller) CheckAndCompact(ctx context.Context, session string, th Thresholds) (Stats, error) {
	before, err := c.Store.TotalTokens(ctx, session)
	if err != nil {
		return Stats{}, fmt.Errorf("compaction: total tokens: %w", err)
	}

	var stats Stats
	stats.TotalTokensBefore = before

	switch {
	case before >= th.Hard:
		n, err := c.compactAllBlocks(ctx, session, th)
		if err != nil {
			return stats, err
		}
		stats.LeafSummariesCreated += n
	case before >= th.Soft:
		created, err := c.compactOldestBlock(ctx, session, th)
		if err != nil {
			return stats, err
		}
		if created {
			stats.LeafSummariesCreated++
		}
	}

	condensed, err := c.condense(ctx, session, th)
	if err != nil {
		return stats, err
	}
	stats.CondensedSummariesCreated = condensed

	after, err := c.Store.TotalTokens(ctx, session)
	if err != nil {
		return stats, fmt.Errorf("compaction: total tokens: %w", err)
	}
	stats.TotalTokensAfter = after

	if c.Metrics != nil {
		c.Metrics.CompactionRuns.Add(ctx, 1)
		c.Metrics.SummariesCreated.Add(ctx, int64(stats.LeafSummariesCreated+stats.CondensedSummariesCreated))
	}
	return stats, nil
}

// compactOldestBlock implements the "oldest-block policy": summarize at
// most BlockMax of the oldest unsummarized messages, leaving the rest
// untouched. Reports whether a block was actually created.
func (c *Controller) compactOldestBlock(ctx context.Context, session string, th Thresholds) (bool, error) {
	unsummarized, err := c.Store.GetUnsummarizedMessages(ctx, session)
	if err != nil {
		return false, fmt.Errorf("compaction: unsummarized messages: %w", err)
	}
	if len(unsummarized) < th.BlockMin {
		return false, nil
	}

	n := len(unsummarized)
	if n > th.BlockMax {
		n = th.BlockMax
	}
	if err := c.summarizeBlock(ctx, session, unsummarized[:n]); err != nil {
		return false, err
	}
	return true, nil
}

// compactAllBlocks implements "block-compact all": partition every
// unsummarized message into blocks per the all-block partitioning
// policy and summarize each one in order.
func (c *Controller) compactAllBlocks(ctx context.Context, session string, th Thresholds) (int, error) {
	unsummarized, err := c.Store.GetUnsummarizedMessages(ctx, session)
	if err != nil {
		return 0, fmt.Errorf("compaction: unsummarized messages: %w", err)
	}
	if len(unsummarized) == 0 {
		return 0, nil
	}

	blocks := partitionBlocks(unsummarized, th.BlockMax)
	created := 0
	for _, block := range blocks {
		if err := c.summarizeBlock(ctx, session, block); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// partitionBlocks implements spec.md §4.4's "all-block partitioning":
// while R is non-empty, emit all of R if it already fits in one block,
// split it in half if it fits in two, otherwise peel off one full block
// and continue. This is reproducible by construction — the same input
// always yields the same split.
func partitionBlocks(msgs []store.Message, blockMax int) [][]store.Message {
	var blocks [][]store.Message
	r := msgs
	for len(r) > 0 {
		switch {
		case len(r) <= blockMax:
			blocks = append(blocks, r)
			r = nil
		case len(r) <= 2*blockMax:
			mid := len(r) / 2
			blocks = append(blocks, r[:mid], r[mid:])
			r = nil
		default:
			blocks = append(blocks, r[:blockMax])
			r = r[blockMax:]
		}
	}
	return blocks
}

// summarizeBlock builds the block's input text per spec.md §4.4
// ("[{role}]: {content}" lines separated by blank lines), escalates it,
// and stores the result as a new leaf summary spanning the block.
func (c *Controller) summarizeBlock(ctx context.Context, session string, block []store.Message) error {
	if len(block) == 0 {
		return nil
	}

	var b strings.Builder
	for i, m := range block {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]: %s", m.Role, m.Content)
	}

	result := escalation.Escalate(ctx, c.GW, b.String(), blockSummaryTargetTokens)

	first, last := block[0], block[len(block)-1]
	_, err := c.Store.CreateLeafSummary(ctx, session, result.Content, first.ID, last.ID, result.Mode, result.TokenEstimate)
	if err != nil {
		return fmt.Errorf("compaction: create leaf summary: %w", err)
	}
	if c.Metrics != nil {
		c.Metrics.CompactionBlockSize.Record(ctx, int64(len(block)))
	}
	return nil
}

// condense implements spec.md §4.4's condensation step: once the
// uncondensed-leaf count reaches CondensationCount, fold them all into
// one condensed summary one level up. Returns 1 if a condensed summary
// was created, 0 otherwise.
func (c *Controller) condense(ctx context.Context, session string, th Thresholds) (int, error) {
	leaves, err := c.Store.GetLeafSummaries(ctx, session)
	if err != nil {
		return 0, fmt.Errorf("compaction: leaf summaries: %w", err)
	}
	if len(leaves) < th.CondensationCount {
		return 0, nil
	}

	contents := make([]string, len(leaves))
	childIDs := make([]int64, len(leaves))
	for i, l := range leaves {
		contents[i] = l.Content
		childIDs[i] = l.ID
	}

	result := escalation.Escalate(ctx, c.GW, strings.Join(contents, condensationJoin), condensationTargetTokens)

	if _, err := c.Store.CreateCondensedSummary(ctx, session, result.Content, childIDs, result.Mode, result.TokenEstimate); err != nil {
		return 0, fmt.Errorf("compaction: create condensed summary: %w", err)
	}
	return 1, nil
}
