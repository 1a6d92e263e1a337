package report

import (
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/deixis/clicheck/internal/runner"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suiteRun() *RunResult {
	return &RunResult{
		ID:      uuid.New().String(),
		Kind:    Suite,
		Suite:   "hive-cli",
		Started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Cases: []CaseReport{
			{Name: "help", Status: Pass},
			{Name: "database", Status: Fail, Message: "exit code 1, want 88"},
			{Name: "silent", Status: Error, Message: "launching hive: not found"},
		},
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	want := suiteRun()
	want.Cases[0].Steps = []Invocation{{Command: "hive", Args: []string{"-H"}, ExitCode: 2, Stdout: "usage: hive"}}

	require.NoError(t, store.Save(want))
	got, err := store.Load(want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDiskStore_LazyTempDir(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	store := NewDiskStore("")
	r := suiteRun()
	require.NoError(t, store.Save(r))

	dir, err := store.Dir()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, r.ID+".json"))
}

func TestDiskStore_RejectsNonUUID(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	_, err := store.Load("../../etc/passwd")
	assert.ErrorContains(t, err, "invalid run id")
}

func TestDiskStore_Missing(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	_, err := store.Load(uuid.New().String())
	assert.Error(t, err)
}

type countingStore struct {
	Store
	loads int
}

func (s *countingStore) Load(id string) (*RunResult, error) {
	s.loads++
	return s.Store.Load(id)
}

func TestLRUStore_HitAndEvict(t *testing.T) {
	back := &countingStore{Store: NewDiskStore(t.TempDir())}
	lru := NewLRUStore(2, back)

	a, b, c := suiteRun(), suiteRun(), suiteRun()
	for _, r := range []*RunResult{a, b, c} {
		require.NoError(t, lru.Save(r))
	}
	assert.Equal(t, 2, lru.Len())

	// b and c are cached.
	got, err := lru.Load(c.ID)
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, 0, back.loads)

	// a was evicted and comes from the backing store.
	got, err = lru.Load(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, 1, back.loads)
	assert.Equal(t, 2, lru.Len())

	// Loading a evicted b, the least recently used.
	_, err = lru.Load(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, back.loads)
}

func TestLRUStore_MinimumCapacity(t *testing.T) {
	lru := NewLRUStore(0, NewDiskStore(t.TempDir()))
	require.NoError(t, lru.Save(suiteRun()))
	require.NoError(t, lru.Save(suiteRun()))
	assert.Equal(t, 1, lru.Len())
}

func TestExpect(t *testing.T) {
	r := suiteRun()
	assert.NoError(t, r.Expect(Suite))
	assert.ErrorContains(t, r.Expect(Run), "is a suite run, not a run run")
}

func TestByCase(t *testing.T) {
	r := suiteRun()
	c, err := ByCase(r, "database")
	require.NoError(t, err)
	assert.Equal(t, Fail, c.Status)

	_, err = ByCase(r, "nope")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	s := suiteRun().Summary()
	assert.Equal(t, Summary{Pass: 1, Fail: 1, Error: 1}, s)
	assert.False(t, s.OK())
	assert.Equal(t, "1 passed, 1 failed, 1 errored", s.String())

	assert.True(t, Summary{Pass: 3}.OK())
	assert.False(t, Summary{Pass: 3, Skipped: 1}.OK())
	assert.Equal(t, "no cases", Summary{}.String())
}

func TestNewInvocation(t *testing.T) {
	c := runner.Command{Name: "sh", Args: []string{"-c", "exit 3"}}

	t.Run("exited", func(t *testing.T) {
		res := &runner.Result{RunID: "r1", Command: "sh", ExitCode: 3, Stdout: "out", Duration: 1500 * time.Millisecond}
		inv := NewInvocation(c, res, nil)
		assert.Equal(t, 3, inv.ExitCode)
		assert.Equal(t, "out", inv.Stdout)
		assert.Equal(t, int64(1500), inv.Millis)
		assert.False(t, inv.Failed())
	})

	t.Run("launch failure", func(t *testing.T) {
		err := &runner.LaunchError{Command: "sh", Err: exec.ErrNotFound}
		inv := NewInvocation(c, nil, err)
		assert.Equal(t, -1, inv.ExitCode)
		assert.Contains(t, inv.Error, "launching sh")
		assert.True(t, inv.Failed())
	})

	t.Run("timeout keeps partial output", func(t *testing.T) {
		err := &runner.TimeoutError{Command: "sh", Timeout: time.Second, Partial: &runner.Result{Stdout: "started\n", ExitCode: -1}}
		inv := NewInvocation(c, nil, err)
		assert.Equal(t, "started\n", inv.Stdout)
		assert.Contains(t, inv.Error, "timed out")
	})

	t.Run("io failure keeps partial output", func(t *testing.T) {
		err := &runner.IOError{Command: "sh", Partial: &runner.Result{Stderr: "partial"}, Err: errors.New("broken pipe")}
		inv := NewInvocation(c, nil, err)
		assert.Equal(t, "partial", inv.Stderr)
	})
}
