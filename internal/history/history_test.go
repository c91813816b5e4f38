package history

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/deixis/execgate/internal/runner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newResult(stdout string) *runner.Result {
	code := 0
	return &runner.Result{
		RunID:    uuid.New().String(),
		Command:  "echo " + stdout,
		Outcome:  runner.Completed,
		ExitCode: &code,
		Stdout:   stdout + "\n",
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	s := NewDiskStore(dir, 0)
	in := newResult("hello")

	require.NoError(t, s.Save(in))
	_, err := os.Stat(filepath.Join(dir, in.RunID+".json"))
	require.NoError(t, err)

	out, err := s.Load(in.RunID)
	require.NoError(t, err)
	require.Equal(t, in.Stdout, out.Stdout)
	require.Equal(t, in.Outcome, out.Outcome)
	code, ok := out.Code()
	require.True(t, ok)
	require.Zero(t, code)
}

func TestDiskStore_LazyTempDir(t *testing.T) {
	s := NewDiskStore("", 0)
	dir, err := s.Dir()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	require.DirExists(t, dir)

	again, err := s.Dir()
	require.NoError(t, err)
	require.Equal(t, dir, again)
}

func TestDiskStore_NotFound(t *testing.T) {
	s := NewDiskStore(t.TempDir(), 0)
	_, err := s.Load(uuid.New().String())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStore_RejectsPathLikeIDs(t *testing.T) {
	s := NewDiskStore(t.TempDir(), 0)
	_, err := s.Load("../../etc/passwd")
	require.ErrorIs(t, err, ErrNotFound)

	err = s.Save(&runner.Result{RunID: "../escape"})
	require.Error(t, err)
}

func TestDiskStore_Retention(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskStore(dir, 2)

	oldest, older, newest := newResult("a"), newResult("b"), newResult("c")
	require.NoError(t, s.Save(oldest))
	require.NoError(t, s.Save(older))

	// distinct mtimes regardless of filesystem timestamp granularity
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, oldest.RunID+".json"), base, base))
	require.NoError(t, os.Chtimes(filepath.Join(dir, older.RunID+".json"), base.Add(time.Minute), base.Add(time.Minute)))

	require.NoError(t, s.Save(newest))

	_, err := s.Load(oldest.RunID)
	require.ErrorIs(t, err, ErrNotFound)
	for _, r := range []*runner.Result{older, newest} {
		_, err := s.Load(r.RunID)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestLRUStore_Eviction(t *testing.T) {
	s := NewLRUStore(2, nil)
	a, b, c := newResult("a"), newResult("b"), newResult("c")
	require.NoError(t, s.Save(a))
	require.NoError(t, s.Save(b))

	// Touch a so that b is least recently used.
	_, err := s.Load(a.RunID)
	require.NoError(t, err)

	require.NoError(t, s.Save(c))
	require.Equal(t, 2, s.Len())

	_, err = s.Load(b.RunID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Load(a.RunID)
	require.NoError(t, err)
	_, err = s.Load(c.RunID)
	require.NoError(t, err)
}

func TestLRUStore_BackingStore(t *testing.T) {
	disk := NewDiskStore(t.TempDir(), 0)
	s := NewLRUStore(1, disk)
	a, b := newResult("a"), newResult("b")
	require.NoError(t, s.Save(a))
	require.NoError(t, s.Save(b)) // evicts a from memory

	got, err := s.Load(a.RunID)
	require.NoError(t, err)
	require.Equal(t, "a\n", got.Stdout)
	require.Equal(t, 1, s.Len())
}

type failingStore struct{}

var errDisk = errors.New("disk full")

func (failingStore) Save(*runner.Result) error           { return errDisk }
func (failingStore) Load(string) (*runner.Result, error) { return nil, errDisk }

func TestLRUStore_BackingErrors(t *testing.T) {
	s := NewLRUStore(4, failingStore{})
	r := newResult("x")
	require.ErrorIs(t, s.Save(r), errDisk)

	// The cached copy still serves reads.
	got, err := s.Load(r.RunID)
	require.NoError(t, err)
	require.Equal(t, r, got)

	_, err = s.Load(uuid.New().String())
	require.ErrorIs(t, err, errDisk)
}

func TestLRUStore_Concurrent(t *testing.T) {
	s := NewLRUStore(8, NewDiskStore(t.TempDir(), 0))
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := newResult("c")
			if err := s.Save(r); err != nil {
				t.Errorf("Save: %v", err)
				return
			}
			if _, err := s.Load(r.RunID); err != nil {
				t.Errorf("Load: %v", err)
			}
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, s.Len(), 8)
}
