package retrieval

import (
	"context"

	"github.com/basket/go-claw/internal/store"
)

// ExpandResult is Expand's return shape.
type ExpandResult struct {
	Summary        store.Summary
	Messages       []FormattedMessage
	TotalMessages  int
	ChildSummaries []store.Summary
	Page           int
}

// Expand fetches a summary's full message range, paginated, along with
// its direct child summaries so a caller can drill into either the
// original messages or the layer below.
func (r *Retriever) Expand(ctx context.Context, summaryID int64, page int) (ExpandResult, error) {
	sm, err := r.Store.GetSummary(ctx, summaryID)
	if err != nil {
		return ExpandResult{}, err
	}

	var all []store.Message
	if sm.MsgStartID.Valid && sm.MsgEndID.Valid {
		all, err = r.Store.GetMessagesByRange(ctx, sm.MsgStartID.Int64, sm.MsgEndID.Int64)
		if err != nil {
			return ExpandResult{}, err
		}
	}

	children, err := r.Store.GetChildren(ctx, summaryID)
	if err != nil {
		return ExpandResult{}, err
	}

	offset := offsetForPage(page)
	pageItems := paginate(all, offset, PageSize)
	formatted := make([]FormattedMessage, len(pageItems))
	for i, m := range pageItems {
		formatted[i] = FormattedMessage{ID: m.ID, Role: m.Role, Content: truncateForDisplay(m.Content, MessagePreviewChars)}
	}

	return ExpandResult{
		Summary:        sm,
		Messages:       formatted,
		TotalMessages:  len(all),
		ChildSummaries: children,
		Page:           page,
	}, nil
}
