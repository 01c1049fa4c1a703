package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type fakeInserted struct {
	session, role, content string
	metadata               map[string]string
}

type fakeStore struct {
	inserted []fakeInserted
}

func (f *fakeStore) InsertMessage(ctx context.Context, session, role, content string, metadata map[string]string) (int64, error) {
	f.inserted = append(f.inserted, fakeInserted{session, role, content, metadata})
	return int64(len(f.inserted)), nil
}

// TestCaptureNewScenarioS6 mirrors spec.md §8 S6: writing a one-line
// transcript then calling CaptureNew captures exactly one message;
// appending a second line and calling again captures exactly one more.
func TestCaptureNewScenarioS6(t *testing.T) {
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "s1.jsonl")
	if err := os.WriteFile(transcriptPath, []byte(`{"type":"message","role":"user","content":"first"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := &fakeStore{}
	ing := New(st, filepath.Join(dir, "state"), nil)

	res, err := ing.CaptureNew(context.Background(), "s1", transcriptPath)
	if err != nil {
		t.Fatalf("CaptureNew: %v", err)
	}
	if res.Captured != 1 {
		t.Fatalf("Captured = %d, want 1", res.Captured)
	}

	f, err := os.OpenFile(transcriptPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteString(`{"type":"message","role":"assistant","content":"second"}` + "\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	res2, err := ing.CaptureNew(context.Background(), "s1", transcriptPath)
	if err != nil {
		t.Fatalf("CaptureNew (second): %v", err)
	}
	if res2.Captured != 1 {
		t.Fatalf("second Captured = %d, want 1", res2.Captured)
	}
	if len(st.inserted) != 2 {
		t.Fatalf("total inserted = %d, want 2", len(st.inserted))
	}
}

// TestCaptureNewRerunWithoutNewLinesCapturesZero covers spec.md §8
// invariant 9: running the ingestor twice on an unchanged transcript
// captures N messages then 0.
func TestCaptureNewRerunWithoutNewLinesCapturesZero(t *testing.T) {
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "s1.jsonl")
	lines := `{"type":"message","role":"user","content":"a"}
{"type":"message","role":"assistant","content":"b"}
`
	if err := os.WriteFile(transcriptPath, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := &fakeStore{}
	ing := New(st, filepath.Join(dir, "state"), nil)

	first, err := ing.CaptureNew(context.Background(), "s1", transcriptPath)
	if err != nil {
		t.Fatalf("CaptureNew: %v", err)
	}
	if first.Captured != 2 {
		t.Fatalf("first.Captured = %d, want 2", first.Captured)
	}

	second, err := ing.CaptureNew(context.Background(), "s1", transcriptPath)
	if err != nil {
		t.Fatalf("CaptureNew (rerun): %v", err)
	}
	if second.Captured != 0 {
		t.Fatalf("second.Captured = %d, want 0", second.Captured)
	}
}

func TestCaptureNewMissingTranscriptReportsError(t *testing.T) {
	dir := t.TempDir()
	st := &fakeStore{}
	ing := New(st, filepath.Join(dir, "state"), []string{dir})

	res, err := ing.CaptureNew(context.Background(), "no-such-session", "")
	if err != nil {
		t.Fatalf("CaptureNew: %v", err)
	}
	if res.Error != ErrTranscriptMissing {
		t.Fatalf("Error = %q, want %q", res.Error, ErrTranscriptMissing)
	}
	if res.Captured != 0 {
		t.Fatalf("Captured = %d, want 0", res.Captured)
	}
}

func TestCaptureNewLocatesTranscriptByBasename(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "projects", "abc")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	transcriptPath := filepath.Join(nested, "s1.jsonl")
	if err := os.WriteFile(transcriptPath, []byte(`{"type":"message","role":"user","content":"hi"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := &fakeStore{}
	ing := New(st, filepath.Join(dir, "state"), []string{dir})

	res, err := ing.CaptureNew(context.Background(), "s1", "")
	if err != nil {
		t.Fatalf("CaptureNew: %v", err)
	}
	if res.Captured != 1 {
		t.Fatalf("Captured = %d, want 1", res.Captured)
	}
}

func TestCaptureNewSkipsBlankAndUnparseableLines(t *testing.T) {
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "s1.jsonl")
	lines := "\n{not json}\n" + `{"type":"message","role":"user","content":"ok"}` + "\n"
	if err := os.WriteFile(transcriptPath, []byte(lines), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := &fakeStore{}
	ing := New(st, filepath.Join(dir, "state"), nil)

	res, err := ing.CaptureNew(context.Background(), "s1", transcriptPath)
	if err != nil {
		t.Fatalf("CaptureNew: %v", err)
	}
	if res.Captured != 1 {
		t.Fatalf("Captured = %d, want 1", res.Captured)
	}
	if res.LastPosition != 3 {
		t.Fatalf("LastPosition = %d, want 3", res.LastPosition)
	}
}
