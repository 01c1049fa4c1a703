package retrieval

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/basket/go-claw/internal/store"
)

// DescribeResult is Describe's return shape; exactly one of Summary,
// FileRef, or Message is populated on success, or Error is set.
type DescribeResult struct {
	Summary  *SummaryDescription
	FileRef  *store.FileRef
	Message  *MessageDescription
	Error    string
}

// SummaryDescription is a summary plus its direct children.
type SummaryDescription struct {
	store.Summary
	Children []store.Summary
}

// MessageDescription is a message plus its covering summary (if any)
// and raw metadata.
type MessageDescription struct {
	store.Message
	CoveringSummaryID string
}

// Describe dispatches a lcm id string by its prefix: `S<digits>` to a
// Summary (with children), `F<digits>` to a FileRef, and plain digits
// to a Message (with its covering summary).
func (r *Retriever) Describe(ctx context.Context, lcmID string) DescribeResult {
	switch {
	case strings.HasPrefix(lcmID, "S"):
		return r.describeSummary(ctx, lcmID[1:])
	case strings.HasPrefix(lcmID, "F"):
		return r.describeFileRef(ctx, lcmID[1:])
	default:
		return r.describeMessage(ctx, lcmID)
	}
}

func (r *Retriever) describeSummary(ctx context.Context, digits string) DescribeResult {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return DescribeResult{Error: store.ErrInvalidID.Error()}
	}
	sm, err := r.Store.GetSummary(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return DescribeResult{Error: store.ErrNotFound.Error()}
	}
	if err != nil {
		return DescribeResult{Error: err.Error()}
	}
	children, err := r.Store.GetChildren(ctx, id)
	if err != nil {
		return DescribeResult{Error: err.Error()}
	}
	return DescribeResult{Summary: &SummaryDescription{Summary: sm, Children: children}}
}

func (r *Retriever) describeFileRef(ctx context.Context, digits string) DescribeResult {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return DescribeResult{Error: store.ErrInvalidID.Error()}
	}
	fr, err := r.Store.GetFileRef(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return DescribeResult{Error: store.ErrNotFound.Error()}
	}
	if err != nil {
		return DescribeResult{Error: err.Error()}
	}
	return DescribeResult{FileRef: &fr}
}

func (r *Retriever) describeMessage(ctx context.Context, digits string) DescribeResult {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return DescribeResult{Error: store.ErrInvalidID.Error()}
	}
	m, err := r.Store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return DescribeResult{Error: store.ErrNotFound.Error()}
	}
	if err != nil {
		return DescribeResult{Error: err.Error()}
	}
	coveringID := ""
	if sm, err := r.Store.GetCoveringSummary(ctx, m.SessionID, m.ID); err == nil {
		coveringID = "S" + strconv.FormatInt(sm.ID, 10)
	} else if !errors.Is(err, store.ErrNotFound) {
		return DescribeResult{Error: err.Error()}
	}
	return DescribeResult{Message: &MessageDescription{Message: m, CoveringSummaryID: coveringID}}
}
