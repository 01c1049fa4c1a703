package retrieval

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/basket/go-claw/internal/store"
)

// unsummarizedGroupID is the group key used for messages with no
// covering summary.
const unsummarizedGroupID = "unsummarized"

// FormattedMessage is one message rendered for display, with content
// truncated per §4.6.
type FormattedMessage struct {
	ID      int64
	Role    string
	Content string
}

// GrepGroup is one covering-summary bucket of matched messages.
type GrepGroup struct {
	Session   string
	SummaryID string
	Preview   string
	Messages  []FormattedMessage
}

// GrepResult is Grep's return shape.
type GrepResult struct {
	Groups []GrepGroup
	Page   int
}

// Grep searches message content — by regex/FTS globally or within a
// session, or by literal/regex substring within a single summary's
// range — and groups the matching page of results by covering summary.
func (r *Retriever) Grep(ctx context.Context, pattern, session string, summaryID *int64, page int, useRegex bool) (GrepResult, error) {
	offset := offsetForPage(page)

	var matches []store.Message
	if summaryID != nil {
		msgs, err := r.grepWithinSummary(ctx, *summaryID, pattern, useRegex)
		if err != nil {
			return GrepResult{}, err
		}
		matches = paginate(msgs, offset, PageSize)
	} else {
		msgs, err := r.grepAcross(ctx, pattern, session, offset, useRegex)
		if err != nil {
			return GrepResult{}, err
		}
		matches = msgs
	}

	groups, err := r.group(ctx, matches)
	if err != nil {
		return GrepResult{}, err
	}
	return GrepResult{Groups: groups, Page: page}, nil
}

// grepAcross implements Grep's non-summary-scoped path: SearchRegex if
// use_regex, else SearchFTS falling back silently to SearchRegex on a
// malformed query (§4.6).
func (r *Retriever) grepAcross(ctx context.Context, pattern, session string, offset int, useRegex bool) ([]store.Message, error) {
	if useRegex {
		return r.Store.SearchRegex(ctx, pattern, session, PageSize, offset)
	}
	msgs, err := r.Store.SearchFTS(ctx, pattern, session, PageSize, offset)
	if err != nil {
		if errors.Is(err, store.ErrInvalidQuery) {
			return r.Store.SearchRegex(ctx, pattern, session, PageSize, offset)
		}
		return nil, err
	}
	return msgs, nil
}

// grepWithinSummary implements Grep's summary-scoped path: fetch the
// summary, pull its exact message range, then filter in memory.
func (r *Retriever) grepWithinSummary(ctx context.Context, summaryID int64, pattern string, useRegex bool) ([]store.Message, error) {
	sm, err := r.Store.GetSummary(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	if !sm.MsgStartID.Valid || !sm.MsgEndID.Valid {
		return nil, nil
	}
	msgs, err := r.Store.GetMessagesByRange(ctx, sm.MsgStartID.Int64, sm.MsgEndID.Int64)
	if err != nil {
		return nil, err
	}

	matcher, err := newMatcher(pattern, useRegex)
	if err != nil {
		return nil, err
	}
	var out []store.Message
	for _, m := range msgs {
		if matcher(m.Content) {
			out = append(out, m)
		}
	}
	return out, nil
}

func newMatcher(pattern string, useRegex bool) (func(string) bool, error) {
	if useRegex {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", store.ErrInvalidQuery, err)
		}
		return re.MatchString, nil
	}
	lower := strings.ToLower(pattern)
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), lower)
	}, nil
}

func paginate(items []store.Message, offset, limit int) []store.Message {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// group buckets matched messages by their covering summary, in
// first-seen order, attaching a preview of the summary content.
func (r *Retriever) group(ctx context.Context, msgs []store.Message) ([]GrepGroup, error) {
	var groups []GrepGroup
	index := make(map[string]int)

	for _, m := range msgs {
		key, preview, err := r.coveringKey(ctx, m)
		if err != nil {
			return nil, err
		}
		groupKey := m.SessionID + "\x00" + key
		idx, seen := index[groupKey]
		if !seen {
			idx = len(groups)
			index[groupKey] = idx
			groups = append(groups, GrepGroup{Session: m.SessionID, SummaryID: key, Preview: preview})
		}
		groups[idx].Messages = append(groups[idx].Messages, FormattedMessage{
			ID:      m.ID,
			Role:    m.Role,
			Content: truncateForDisplay(m.Content, MessagePreviewChars),
		})
	}
	return groups, nil
}

func (r *Retriever) coveringKey(ctx context.Context, m store.Message) (key, preview string, err error) {
	sm, err := r.Store.GetCoveringSummary(ctx, m.SessionID, m.ID)
	if errors.Is(err, store.ErrNotFound) {
		return unsummarizedGroupID, "", nil
	}
	if err != nil {
		return "", "", err
	}
	return "S" + strconv.FormatInt(sm.ID, 10), truncateForDisplay(sm.Content, PreviewChars), nil
}
