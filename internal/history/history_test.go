package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netopt/optiview/internal/models"
)

func TestLoadMissingFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if records != nil {
		t.Errorf("Load on missing file = %v, want nil", records)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	want := []models.ActivityRecord{
		{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Icon: "sync", Title: "Cycle started", Description: "Running optimization cycle", Time: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
		{ID: "01ARZ3NDEKTSV4RRFFQ69G5FB0", Icon: "check", Title: "Network healthy", Description: "Network healthy - score 93", Time: time.Date(2026, 8, 30, 10, 0, 2, 0, time.UTC)},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Icon != want[i].Icon || got[i].Title != want[i].Title || got[i].Description != want[i].Description {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
		if !got[i].Time.Equal(want[i].Time) {
			t.Errorf("record %d time = %v, want %v", i, got[i].Time, want[i].Time)
		}
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Save([]models.ActivityRecord{{ID: "a", Icon: "plug", Title: "Connected"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, FileName+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file should be gone after a successful save")
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Errorf("feed file missing after save: %v", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Load(); err == nil {
		t.Error("Load on corrupt file should fail")
	}
}
