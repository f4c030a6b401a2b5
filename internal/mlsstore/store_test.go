package mlsstore

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGroupRoundTrip(t *testing.T) {
	s := openTestStore(t)

	g := Group{NostrGroupID: "g1", MLSGroupID: "m1", Epoch: 1, Name: "DM"}
	if err := s.UpsertGroup(g); err != nil {
		t.Fatalf("UpsertGroup error: %v", err)
	}

	got, ok, err := s.GetGroup("g1")
	if err != nil || !ok {
		t.Fatalf("GetGroup() = %v, %v, %v", got, ok, err)
	}
	if got.MLSGroupID != "m1" || got.Name != "DM" {
		t.Errorf("got %+v", got)
	}

	g.Epoch = 2
	if err := s.UpsertGroup(g); err != nil {
		t.Fatalf("UpsertGroup update error: %v", err)
	}
	got, _, _ = s.GetGroup("g1")
	if got.Epoch != 2 {
		t.Errorf("Epoch after update = %d, want 2", got.Epoch)
	}

	groups, err := s.ListGroups()
	if err != nil || len(groups) != 1 {
		t.Fatalf("ListGroups() = %v, %v", groups, err)
	}
}

func TestGroupNotFound(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetGroup("missing")
	if err != nil {
		t.Fatalf("GetGroup error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing group")
	}
}

func TestPendingWelcomeLifecycle(t *testing.T) {
	s := openTestStore(t)

	w := PendingWelcome{
		WrapperEventID: "w1", WelcomeEventID: "we1", FromPubkey: "pk1",
		NostrGroupID: "g1", MLSGroupID: "m1", GroupName: "DM", RawGiftwrap: []byte("raw"),
	}
	if err := s.StageWelcome(w); err != nil {
		t.Fatalf("StageWelcome error: %v", err)
	}

	got, ok, err := s.GetPendingWelcome("w1")
	if err != nil || !ok {
		t.Fatalf("GetPendingWelcome() = %v, %v, %v", got, ok, err)
	}
	if got.FromPubkey != "pk1" {
		t.Errorf("got %+v", got)
	}

	list, err := s.ListPendingWelcomes()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListPendingWelcomes() = %v, %v", list, err)
	}

	if err := s.ConsumeWelcome("w1"); err != nil {
		t.Fatalf("ConsumeWelcome error: %v", err)
	}

	_, ok, err = s.GetPendingWelcome("w1")
	if err != nil {
		t.Fatalf("GetPendingWelcome after consume error: %v", err)
	}
	if ok {
		t.Error("expected welcome to be gone after ConsumeWelcome")
	}

	// Idempotent: consuming again (or accepting again) must not error,
	// and must continue to report not-found.
	if err := s.ConsumeWelcome("w1"); err != nil {
		t.Fatalf("second ConsumeWelcome error: %v", err)
	}
}

func TestInsertMessage_DuplicateIgnored(t *testing.T) {
	s := openTestStore(t)
	if err := s.InsertMessage("g1", "msg1", "pk1", "hello", 100); err != nil {
		t.Fatalf("InsertMessage error: %v", err)
	}
	if err := s.InsertMessage("g1", "msg1", "pk1", "hello-again", 200); err != nil {
		t.Fatalf("duplicate InsertMessage should be ignored, not error: %v", err)
	}
}
