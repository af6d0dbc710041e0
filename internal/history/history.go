package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/netopt/optiview/internal/models"
)

const (
	// FileName is the name of the persisted activity feed file.
	FileName = "activity-feed.json"

	dirPerm  = 0o700
	filePerm = 0o600
)

// Store persists the activity feed in the data dir so a restart keeps the
// feed. All operations are best-effort from the engine's point of view;
// persistence failures are logged by the caller, never surfaced to the user.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store rooted at dataDir, creating the directory if
// needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, FileName)}, nil
}

// Load reads the persisted feed in insertion order. A missing file is not
// an error; it just means an empty feed.
func (s *Store) Load() ([]models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read activity feed: %w", err)
	}

	var records []models.ActivityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse activity feed: %w", err)
	}
	return records, nil
}

// Save writes the feed atomically via a temp file rename.
func (s *Store) Save(records []models.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode activity feed: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("write activity feed: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace activity feed: %w", err)
	}
	return nil
}
