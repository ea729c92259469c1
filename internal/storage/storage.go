// Package storage provides the optional prediction journal. Entries are kept
// in a BoltDB file so recent requests survive a restart and can be listed
// through the API.
//
// The journal is written by the serving layer only; the prediction pipeline
// never reads it.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions" // Bucket name for journal entries
	dbFile            = "predictions.db"

	DefaultRecentLimit = 20
	MaxRecentLimit     = 500
)

// Entry is one journaled prediction request.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Input     string    `json:"input"`
	Status    string    `json:"status"`
	EUR       float64   `json:"prediction_eur,omitempty"`
	USD       float64   `json:"prediction_usd,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Store is a BoltDB backed journal.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the journal under dataPath.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, dbFile)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Safe on a nil or already closed store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores an entry, assigning an id and timestamp when they are unset.
// It returns the entry as stored.
func (s *Store) Append(entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return b.Put(entryKey(entry), data)
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// means DefaultRecentLimit; limits above MaxRecentLimit are capped.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	entries := make([]Entry, 0, limit)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue // Skip malformed records
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// entryKey orders entries by time. Nanoseconds are zero padded so byte order
// matches numeric order; the id keeps keys unique within one nanosecond.
func entryKey(e Entry) []byte {
	return []byte(fmt.Sprintf("%020d_%s", e.Timestamp.UnixNano(), e.ID))
}
