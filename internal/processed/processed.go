// Package processed keeps the append-only set of bundle identifiers that the
// watchers have already handled. The set is persisted after every insertion.
package processed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"

	"sentinel/internal/logging"
	"sentinel/internal/textfile"
)

// Set is a persisted set of bundle identifiers (local absolute paths or
// remote document ids).
type Set struct {
	path  string
	mu    sync.Mutex
	items map[string]struct{}
	order []string
}

// Load reads the set from path. A missing file gives an empty set; an
// unreadable or corrupt one is logged and also treated as empty.
func Load(path string) *Set {
	s := &Set{path: path, items: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.StoreWarn("processed set %s unreadable, starting empty: %v", path, err)
		}
		return s
	}
	if strings.TrimSpace(string(data)) == "" {
		return s
	}

	var ids []string
	if err := json.Unmarshal(jsonc.ToJSON(data), &ids); err != nil {
		logging.StoreWarn("processed set %s corrupt, starting empty: %v", path, err)
		return s
	}
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			continue
		}
		s.items[id] = struct{}{}
		s.order = append(s.order, id)
	}
	logging.StoreDebug("loaded %d processed bundle ids from %s", len(s.order), path)
	return s
}

// Contains reports whether id has been handled.
func (s *Set) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok
}

// Add inserts id and persists the set. Adding a known id is a no-op.
func (s *Set) Add(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; ok {
		return nil
	}
	s.items[id] = struct{}{}
	s.order = append(s.order, id)
	return s.save()
}

// Len returns the number of recorded ids.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Set) save() error {
	data, err := json.MarshalIndent(s.order, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal processed set: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := textfile.WriteAtomic(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write processed set: %w", err)
	}
	return nil
}
