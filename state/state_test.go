package state

import (
	"path/filepath"
	"testing"
)

func TestSessionRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	sess, err := store.ReadSession()
	if err != nil {
		t.Fatal(err)
	}
	if sess != (Session{}) {
		t.Errorf("fresh store not empty: %+v", sess)
	}

	want := Session{
		ProjectID:     "pr-000001",
		ParticipantID: "pa-000002",
		CalibrationID: "ca-000003",
		RecordingID:   "rec-000004",
	}
	if err := store.StoreSession(want); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: the session survives the process.
	store, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.ReadSession()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if !got.Recording() {
		t.Error("session with a recording id reports not recording")
	}
}

func TestSessionRecording(t *testing.T) {
	if (Session{}).Recording() {
		t.Error("zero session reports recording")
	}
}
