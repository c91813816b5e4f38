package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/deixis/execgate/internal/runner"
)

// DiskStore writes results as JSON files to a directory. When no directory
// is configured, a temp directory is created lazily on first use.
type DiskStore struct {
	mu   sync.Mutex
	dir  string
	keep int
}

// NewDiskStore creates a DiskStore rooted at dir. An empty dir selects a
// lazily created temp directory. After each Save only the keep most recent
// records are retained; keep <= 0 retains everything.
func NewDiskStore(dir string, keep int) *DiskStore {
	return &DiskStore{dir: dir, keep: keep}
}

// Save writes a result as a JSON file to disk.
func (s *DiskStore) Save(result *runner.Result) error {
	if !validID.MatchString(result.RunID) {
		return fmt.Errorf("invalid run id %q", result.RunID)
	}
	dir, err := s.ensureDir()
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshalling result %s: %w", result.RunID, err)
	}
	path := filepath.Join(dir, result.RunID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing result %s: %w", result.RunID, err)
	}
	return s.prune(dir)
}

// prune removes the oldest records beyond s.keep.
func (s *DiskStore) prune(dir string) error {
	if s.keep <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing result directory: %w", err)
	}
	type record struct {
		name string
		mod  time.Time
	}
	var records []record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed concurrently
		}
		records = append(records, record{name: e.Name(), mod: info.ModTime()})
	}
	if len(records) <= s.keep {
		return nil
	}

	slices.SortFunc(records, func(a, b record) int {
		if c := a.mod.Compare(b.mod); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	for _, r := range records[:len(records)-s.keep] {
		if err := os.Remove(filepath.Join(dir, r.name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("pruning result %s: %w", r.name, err)
		}
	}
	return nil
}

// Load reads a result from disk.
func (s *DiskStore) Load(runID string) (*runner.Result, error) {
	if !validID.MatchString(runID) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	dir, err := s.ensureDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, runID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, fmt.Errorf("reading result %s: %w", runID, err)
	}
	var result runner.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshalling result %s: %w", runID, err)
	}
	return &result, nil
}

// Dir returns the directory in use, creating it if necessary.
func (s *DiskStore) Dir() (string, error) {
	return s.ensureDir()
}

func (s *DiskStore) ensureDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o700); err != nil {
			return "", fmt.Errorf("creating result directory: %w", err)
		}
		return s.dir, nil
	}
	dir, err := os.MkdirTemp("", "execgate-runs-*")
	if err != nil {
		return "", fmt.Errorf("creating result directory: %w", err)
	}
	s.dir = dir
	return dir, nil
}
