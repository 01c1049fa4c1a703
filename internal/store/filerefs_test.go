package store

import "testing"

func TestCreateAndGetFileRef(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateFileRef(ctx(), FileRef{
		SessionID:          "s1",
		FilePath:           "/tmp/data.json",
		FileType:           "json",
		SizeBytes:          1024,
		ExplorationSummary: "object with 3 keys",
		TokenEstimate:      12,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fr, err := s.GetFileRef(ctx(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fr.FilePath != "/tmp/data.json" || fr.FileType != "json" {
		t.Errorf("unexpected file ref: %+v", fr)
	}

	list, err := s.ListFileRefs(ctx(), "s1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %+v, err=%v", list, err)
	}
}

func TestGetFileRefNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetFileRef(ctx(), 999)
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
