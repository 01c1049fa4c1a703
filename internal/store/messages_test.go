package store

import (
	"errors"
	"testing"
)

func TestInsertMessageComputesTokenEstimate(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertMessage(ctx(), "s1", "user", "Fix the authentication bug in login.py", nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	m, err := s.GetMessage(ctx(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := len("Fix the authentication bug in login.py") / 4
	if m.TokenEstimate != want {
		t.Errorf("TokenEstimate = %d, want %d", m.TokenEstimate, want)
	}
}

func TestMessageIDsStrictlyIncreasing(t *testing.T) {
	s := openTestStore(t)

	var last int64
	for i := 0; i < 5; i++ {
		id, err := s.InsertMessage(ctx(), "s1", "user", "msg", nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if id <= last {
			t.Fatalf("id %d did not increase past %d", id, last)
		}
		last = id
	}
}

func TestGetUnsummarizedMessages(t *testing.T) {
	s := openTestStore(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.InsertMessage(ctx(), "s1", "user", "msg", nil)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, id)
	}

	if _, err := s.CreateLeafSummary(ctx(), "s1", "summary", ids[0], ids[1], ModePassthrough, 5); err != nil {
		t.Fatalf("create leaf: %v", err)
	}

	unsum, err := s.GetUnsummarizedMessages(ctx(), "s1")
	if err != nil {
		t.Fatalf("get unsummarized: %v", err)
	}
	if len(unsum) != 1 || unsum[0].ID != ids[2] {
		t.Fatalf("unsummarized = %+v, want only %d", unsum, ids[2])
	}
}

// S1 — append then search.
func TestGrepScenarioS1(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.InsertMessage(ctx(), "s1", "user", "Fix the authentication bug in login.py", nil); err != nil {
		t.Fatalf("insert 1: %v", err)
	}
	if _, err := s.InsertMessage(ctx(), "s1", "user", "Add unit tests for payments", nil); err != nil {
		t.Fatalf("insert 2: %v", err)
	}
	if _, err := s.InsertMessage(ctx(), "s1", "user", "Deploy to staging", nil); err != nil {
		t.Fatalf("insert 3: %v", err)
	}

	hits, err := s.SearchRegex(ctx(), "authentication", "s1", 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].Content != "Fix the authentication bug in login.py" {
		t.Errorf("unexpected hit content: %q", hits[0].Content)
	}
}

func TestSearchFTSInvalidQueryReturnsErrInvalidQuery(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertMessage(ctx(), "s1", "user", "some content here", nil); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err := s.SearchFTS(ctx(), `"unterminated`, "s1", 10, 0)
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("err = %v, want wrapped ErrInvalidQuery", err)
	}
}

func TestSearchRegexPaginationPastEnd(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := s.InsertMessage(ctx(), "s1", "user", "needle here", nil); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	hits, err := s.SearchRegex(ctx(), "needle", "s1", 10, 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits past end = %d, want 0", len(hits))
	}
}

func TestTotalTokensAndCountMessages(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := s.InsertMessage(ctx(), "s1", "user", "abcdefgh", nil); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	n, err := s.CountMessages(ctx(), "s1")
	if err != nil || n != 3 {
		t.Fatalf("CountMessages = %d, %v", n, err)
	}
	total, err := s.TotalTokens(ctx(), "s1")
	if err != nil {
		t.Fatalf("TotalTokens: %v", err)
	}
	if total != 6 { // 3 messages * 2 tokens each ("abcdefgh" -> 8/4=2)
		t.Fatalf("TotalTokens = %d, want 6", total)
	}
}
