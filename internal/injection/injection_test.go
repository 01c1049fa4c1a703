package injection

import (
	"context"
	"path/filepath"
	"strings"
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

func TestBuildInjectionEmptyWhenNoSummaries(t *testing.T) {
	st := openTestStore(t)
	b := New(st)

	out, err := b.BuildInjection(context.Background(), "s1", DefaultMaxTokens)
	if err != nil {
		t.Fatalf("BuildInjection: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty string, got %q", out)
	}
}

func TestBuildInjectionIncludesAllWithinBudget(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := New(st)

	id1, _ := st.InsertMessage(ctx, "s1", "user", "m1", nil)
	id2, _ := st.InsertMessage(ctx, "s1", "assistant", "m2", nil)
	if _, err := st.CreateLeafSummary(ctx, "s1", "early discussion about setup", id1, id2, store.ModePassthrough, 50); err != nil {
		t.Fatalf("CreateLeafSummary: %v", err)
	}

	out, err := b.BuildInjection(ctx, "s1", DefaultMaxTokens)
	if err != nil {
		t.Fatalf("BuildInjection: %v", err)
	}
	if !strings.Contains(out, "early discussion about setup") {
		t.Errorf("expected summary content in output, got %q", out)
	}
	if strings.Contains(out, "more summaries available") {
		t.Errorf("did not expect truncation footnote when everything fits")
	}
}

func TestBuildInjectionStopsAtBudgetWithFootnote(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	b := New(st)

	id1, _ := st.InsertMessage(ctx, "s1", "user", "m1", nil)
	id2, _ := st.InsertMessage(ctx, "s1", "assistant", "m2", nil)
	id3, _ := st.InsertMessage(ctx, "s1", "user", "m3", nil)
	id4, _ := st.InsertMessage(ctx, "s1", "assistant", "m4", nil)

	if _, err := st.CreateLeafSummary(ctx, "s1", "first block", id1, id2, store.ModePassthrough, 100); err != nil {
		t.Fatalf("CreateLeafSummary: %v", err)
	}
	if _, err := st.CreateLeafSummary(ctx, "s1", "second block", id3, id4, store.ModePassthrough, 100); err != nil {
		t.Fatalf("CreateLeafSummary: %v", err)
	}

	out, err := b.BuildInjection(ctx, "s1", 100)
	if err != nil {
		t.Fatalf("BuildInjection: %v", err)
	}
	if !strings.Contains(out, "first block") {
		t.Errorf("expected the first summary to fit, got %q", out)
	}
	if strings.Contains(out, "second block") {
		t.Errorf("did not expect the second summary to fit within budget 100")
	}
	if !strings.Contains(out, "more summaries available") {
		t.Errorf("expected truncation footnote")
	}
}
