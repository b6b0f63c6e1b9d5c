// Package history keeps the raw SQL query history in a JSON file.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/dbpilot/internal/errs"
	"github.com/spf13/afero"
)

// DefaultMaxItems bounds the file when no limit is configured.
const DefaultMaxItems = 200

// Item is one executed query. RowCount and ExecutionTimeMs are unset when
// the query failed; Error is unset when it succeeded.
type Item struct {
	ID              string  `json:"id"`
	Query           string  `json:"query"`
	ExecutedAt      string  `json:"executed_at"`
	RowCount        *int    `json:"row_count"`
	ExecutionTimeMs *int64  `json:"execution_time_ms"`
	Error           *string `json:"error"`
}

// NewItem stamps a history entry for query with a fresh id and the current
// UTC time.
func NewItem(query string, now time.Time) Item {
	return Item{
		ID:         uuid.NewString(),
		Query:      query,
		ExecutedAt: now.UTC().Format(time.RFC3339),
	}
}

// Store reads and writes the history file. Items are kept newest first.
type Store struct {
	mu       sync.Mutex
	fs       afero.Fs
	path     string
	maxItems int
}

// New returns a Store for path on fs. maxItems <= 0 means DefaultMaxItems.
func New(fs afero.Fs, path string, maxItems int) *Store {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Store{fs: fs, path: path, maxItems: maxItems}
}

// Load returns the saved history. A missing file is an empty history.
func (s *Store) Load() ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the saved history with items, trimmed to the limit.
func (s *Store) Save(items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(items)
}

// Append records item as the newest entry.
func (s *Store) Append(item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append([]Item{item}, items...))
}

func (s *Store) load() ([]Item, error) {
	raw, err := afero.ReadFile(s.fs, s.path)
	if os.IsNotExist(err) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStorage, "failed to read query history", err)
	}
	items := []Item{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errs.InvalidConfig("cannot parse query history %s: %v", s.path, err)
	}
	return items, nil
}

func (s *Store) save(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	if len(items) > s.maxItems {
		items = items[:s.maxItems]
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "encoding query history", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errs.Wrap(errs.ErrKindStorage, "failed to create history dir", err)
	}
	if err := afero.WriteFile(s.fs, s.path, out, 0o600); err != nil {
		return errs.Wrap(errs.ErrKindStorage, "failed to write query history", err)
	}
	return nil
}
