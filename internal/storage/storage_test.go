package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.etcd.io/bbolt"
)

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("Store database is nil")
	}

	dbPath := filepath.Join(tempDir, "predictions.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "nested", "journal")

	store, err := New(dataPath)
	if err != nil {
		t.Fatalf("Failed to create store in nested directory: %v", err)
	}
	defer store.Close()
}

func TestNew_InvalidPath(t *testing.T) {
	// A regular file cannot be used as the data directory.
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, err := New(file); err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestStore_Close(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Error closing store: %v", err)
	}

	// Test closing already closed store
	if err := store.Close(); err != nil {
		t.Errorf("Error closing already closed store: %v", err)
	}

	var nilStore *Store
	if err := nilStore.Close(); err != nil {
		t.Errorf("Error closing nil store: %v", err)
	}
}

func TestStore_AppendAssignsIdentity(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	stored, err := store.Append(Entry{Source: "predict", Input: "1,2,3,4,5,6,7,8", Status: "success", EUR: 193101, USD: 212411.1})
	if err != nil {
		t.Fatalf("Failed to append entry: %v", err)
	}

	if stored.ID == "" {
		t.Error("Expected an id to be assigned")
	}
	if stored.Timestamp.IsZero() {
		t.Error("Expected a timestamp to be assigned")
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.ID != stored.ID || got.Input != stored.Input || got.EUR != stored.EUR || got.USD != stored.USD {
		t.Errorf("Round trip mismatch: stored %+v, read %+v", stored, got)
	}
	if !got.Timestamp.Equal(stored.Timestamp) {
		t.Errorf("Timestamp mismatch: stored %v, read %v", stored.Timestamp, got.Timestamp)
	}
}

func TestStore_RecentNewestFirst(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order; the key must sort by time.
	for _, offset := range []int{3, 1, 2, 0} {
		_, err := store.Append(Entry{
			Timestamp: base.Add(time.Duration(offset) * time.Second),
			Source:    "predict-from-string",
			Input:     string(rune('a' + offset)),
			Status:    "error",
			Message:   "input is empty",
		})
		if err != nil {
			t.Fatalf("Failed to append entry: %v", err)
		}
	}

	entries, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"d", "c", "b"} {
		if entries[i].Input != want {
			t.Errorf("Entry %d: expected input %s, got %s", i, want, entries[i].Input)
		}
	}
}

func TestStore_RecentLimits(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	for i := 0; i < DefaultRecentLimit+5; i++ {
		if _, err := store.Append(Entry{Source: "ws", Status: "success"}); err != nil {
			t.Fatalf("Failed to append entry: %v", err)
		}
	}

	entries, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != DefaultRecentLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultRecentLimit, len(entries))
	}

	entries, err = store.Recent(MaxRecentLimit * 2)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != DefaultRecentLimit+5 {
		t.Errorf("Expected all %d entries, got %d", DefaultRecentLimit+5, len(entries))
	}
}

func TestStore_RecentEmpty(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	entries, err := store.Recent(5)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestStore_RecentSkipsMalformed(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	if _, err := store.Append(Entry{Source: "predict", Status: "success"}); err != nil {
		t.Fatalf("Failed to append entry: %v", err)
	}
	err = store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(predictionsBucket)).Put([]byte("99999999999999999999_bad"), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("Failed to write malformed record: %v", err)
	}

	entries, err := store.Recent(5)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected malformed record to be skipped, got %d entries", len(entries))
	}
}
