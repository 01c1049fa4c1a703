package retrieval

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/basket/go-claw/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestGrepGroupsByCoveringSummary(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := New(st)

	id1, _ := st.InsertMessage(ctx, "s1", "user", "the quick brown fox", nil)
	id2, _ := st.InsertMessage(ctx, "s1", "assistant", "jumps over the lazy fox", nil)
	id3, _ := st.InsertMessage(ctx, "s1", "user", "unrelated fox sighting", nil)

	if _, err := st.CreateLeafSummary(ctx, "s1", "summary of first two", id1, id2, store.ModePassthrough, 5); err != nil {
		t.Fatalf("CreateLeafSummary: %v", err)
	}

	res, err := r.Grep(ctx, "fox", "s1", nil, 1, true)
	if err != nil {
		t.Fatalf("Grep: %v", err)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("expected 2 groups (covered + unsummarized), got %d", len(res.Groups))
	}

	var coveredCount, uncoveredCount int
	for _, g := range res.Groups {
		switch g.SummaryID {
		case unsummarizedGroupID:
			uncoveredCount = len(g.Messages)
		default:
			coveredCount = len(g.Messages)
		}
	}
	if coveredCount != 2 {
		t.Errorf("covered group size = %d, want 2", coveredCount)
	}
	if uncoveredCount != 1 {
		t.Errorf("uncovered group size = %d, want 1", uncoveredCount)
	}
	_ = id3
}

func TestGrepWithinSummaryScopesToRange(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := New(st)

	id1, _ := st.InsertMessage(ctx, "s1", "user", "alpha content", nil)
	id2, _ := st.InsertMessage(ctx, "s1", "assistant", "beta content", nil)
	_, _ = st.InsertMessage(ctx, "s1", "user", "alpha outside range", nil)

	sid, err := st.CreateLeafSummary(ctx, "s1", "covers alpha and beta", id1, id2, store.ModePassthrough, 5)
	if err != nil {
		t.Fatalf("CreateLeafSummary: %v", err)
	}

	res, err := r.Grep(ctx, "alpha", "s1", &sid, 1, false)
	if err != nil {
		t.Fatalf("Grep: %v", err)
	}
	total := 0
	for _, g := range res.Groups {
		total += len(g.Messages)
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 match within the summary's range, got %d", total)
	}
}

func TestGrepFallsBackToRegexOnMalformedFTSQuery(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := New(st)

	st.InsertMessage(ctx, "s1", "user", `a message containing "unterminated quotes`, nil)
	st.InsertMessage(ctx, "s1", "user", "an unrelated message", nil)

	res, err := r.Grep(ctx, `"unterminated`, "s1", nil, 1, false)
	if err != nil {
		t.Fatalf("Grep: %v", err)
	}
	total := 0
	for _, g := range res.Groups {
		total += len(g.Messages)
	}
	if total != 1 {
		t.Fatalf("expected the malformed FTS query to fall back to a regex match, got %d hits", total)
	}
}

func TestDescribeDispatchesByPrefix(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := New(st)

	mid, _ := st.InsertMessage(ctx, "s1", "user", "hello", nil)
	sid, err := st.CreateLeafSummary(ctx, "s1", "a summary", mid, mid, store.ModePassthrough, 3)
	if err != nil {
		t.Fatalf("CreateLeafSummary: %v", err)
	}
	fid, err := st.CreateFileRef(ctx, store.FileRef{SessionID: "s1", FilePath: "/tmp/x.json", FileType: "json"})
	if err != nil {
		t.Fatalf("CreateFileRef: %v", err)
	}

	if got := r.Describe(ctx, "S"+strconv.FormatInt(sid, 10)); got.Summary == nil || got.Error != "" {
		t.Fatalf("Describe(S) = %+v", got)
	}
	if got := r.Describe(ctx, "F"+strconv.FormatInt(fid, 10)); got.FileRef == nil || got.Error != "" {
		t.Fatalf("Describe(F) = %+v", got)
	}
	if got := r.Describe(ctx, strconv.FormatInt(mid, 10)); got.Message == nil || got.Error != "" {
		t.Fatalf("Describe(message) = %+v", got)
	}
	if got := r.Describe(ctx, "S999999"); got.Error == "" {
		t.Fatal("expected error for missing summary")
	}
	if got := r.Describe(ctx, "Snotanumber"); got.Error == "" {
		t.Fatal("expected error for malformed id")
	}
}

func TestExpandReturnsMessagesAndChildren(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := New(st)

	id1, _ := st.InsertMessage(ctx, "s1", "user", "m1", nil)
	id2, _ := st.InsertMessage(ctx, "s1", "assistant", "m2", nil)
	sid, err := st.CreateLeafSummary(ctx, "s1", "covers both", id1, id2, store.ModePassthrough, 5)
	if err != nil {
		t.Fatalf("CreateLeafSummary: %v", err)
	}

	res, err := r.Expand(ctx, sid, 1)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if res.TotalMessages != 2 {
		t.Fatalf("TotalMessages = %d, want 2", res.TotalMessages)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(res.Messages))
	}
	if len(res.ChildSummaries) != 0 {
		t.Fatalf("expected no children for a leaf summary, got %d", len(res.ChildSummaries))
	}
}
