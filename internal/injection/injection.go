// Package injection builds the context-recovery text block substituted
// into a live conversation once its live token footprint has been
// reduced by compaction.
package injection

import (
	"context"
	"fmt"
	"strings"

	"github.com/basket/go-claw/internal/store"
)

// DefaultMaxTokens is BuildInjection's default budget, per §4.7.
const DefaultMaxTokens = 4000

const header = `<context_recovery>
The conversation above has been compacted. The summaries below cover
earlier parts of this session. Use expand(id) to retrieve the original
messages a summary covers, or grep(pattern) to search the full history.
`

const footer = `
(more summaries available — use expand(id) or grep(pattern) to see the rest)
</context_recovery>`

const closingTag = "\n</context_recovery>"

// Builder builds injection blocks against a store.
type Builder struct {
	Store *store.Store
}

// New builds a Builder over st.
func New(st *store.Store) *Builder {
	return &Builder{Store: st}
}

// BuildInjection assembles the injection block for session: a fixed
// header, then as many top-level summaries (ordered by msg_start_id) as
// fit within maxTokens, each rendered with its own header and full
// content. The first summary that would exceed the budget triggers a
// footnote and stops the loop instead of being partially included.
func (b *Builder) BuildInjection(ctx context.Context, session string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	top, err := b.Store.GetTopLevelSummaries(ctx, session)
	if err != nil {
		return "", fmt.Errorf("injection: top level summaries: %w", err)
	}
	if len(top) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(header)

	total := 0
	truncated := false
	for _, sm := range top {
		block := renderSummary(sm)
		blockTokens := sm.TokenEstimate
		if total+blockTokens > maxTokens {
			truncated = true
			break
		}
		sb.WriteString("\n")
		sb.WriteString(block)
		total += blockTokens
	}

	if truncated {
		sb.WriteString(footer)
	} else {
		sb.WriteString(closingTag)
	}
	return sb.String(), nil
}

// renderSummary renders one top-level summary's injection block: a
// header naming its id, level, and message range, followed by its full
// content.
func renderSummary(sm store.Summary) string {
	start, end := int64(0), int64(0)
	if sm.MsgStartID.Valid {
		start = sm.MsgStartID.Int64
	}
	if sm.MsgEndID.Valid {
		end = sm.MsgEndID.Int64
	}
	return fmt.Sprintf("S%d (L%d, messages %d-%d)\n%s\n", sm.ID, sm.Level, start, end, sm.Content)
}
