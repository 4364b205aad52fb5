package shell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	return NewTable(zap.NewNop())
}

func TestTableIDsMonotonicAndNeverReused(t *testing.T) {
	tbl := newTestTable(t)

	j1 := tbl.Add(100, []int{100}, "sleep 1", true)
	j2 := tbl.Add(200, []int{200}, "sleep 2", true)
	assert.Equal(t, 1, j1.ID)
	assert.Equal(t, 2, j2.ID)

	tbl.applyExit(100)
	removed := tbl.Purge()
	require.Len(t, removed, 1)
	assert.Equal(t, 1, removed[0].ID)

	j3 := tbl.Add(300, []int{300}, "sleep 3", true)
	assert.Equal(t, 3, j3.ID)
}

func TestTableLookup(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Add(100, []int{100}, "sleep 1", true)

	j, err := tbl.Lookup("1")
	require.NoError(t, err)
	assert.Equal(t, 100, j.PGID)

	j, err = tbl.Lookup("%1")
	require.NoError(t, err)
	assert.Equal(t, 1, j.ID)

	_, err = tbl.Lookup("%7")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = tbl.Lookup("bogus")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestTableStateTransitions(t *testing.T) {
	tbl := newTestTable(t)
	job := tbl.Add(100, []int{101, 102}, "a | b", true)

	// Any member stopping stops the job; only the first stop is a change.
	got, changed := tbl.applyStop(101)
	assert.True(t, changed)
	assert.Equal(t, Stopped, got.State)
	_, changed = tbl.applyStop(102)
	assert.False(t, changed)

	tbl.applyContinue(101)
	got, err := tbl.Lookup("%1")
	require.NoError(t, err)
	assert.Equal(t, Running, got.State)

	// Stop and resume again: a job may cross Stopped several times.
	_, changed = tbl.applyStop(102)
	assert.True(t, changed)
	tbl.SetResumed(job.ID, true)
	got, _ = tbl.Lookup("%1")
	assert.Equal(t, Running, got.State)

	// Done only once every member is gone.
	_, done := tbl.applyExit(101)
	assert.False(t, done)
	got, done = tbl.applyExit(102)
	assert.True(t, done)
	assert.Equal(t, Done, got.State)
}

func TestTableStatusBeforeAdd(t *testing.T) {
	tbl := newTestTable(t)

	// The reaper can observe an exit before the launcher registers the job.
	tbl.applyExit(555)
	job := tbl.Add(555, []int{555}, "true", false)
	assert.Equal(t, Done, job.State)

	tbl.applyStop(700)
	job = tbl.Add(700, []int{700}, "cat", false)
	assert.Equal(t, Stopped, job.State)
}

func TestTablePurgeOnlyDone(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Add(100, []int{100}, "running", true)
	tbl.Add(200, []int{200}, "stopped", true)
	tbl.Add(300, []int{300}, "done", true)

	tbl.applyStop(200)
	tbl.applyExit(300)

	removed := tbl.Purge()
	require.Len(t, removed, 1)
	assert.Equal(t, 3, removed[0].ID)
	assert.Len(t, tbl.List(), 2)
}

func TestTableListSortedAndIdempotent(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Add(300, []int{300}, "c", false)
	tbl.Add(100, []int{100}, "a", true)
	tbl.Add(200, []int{200}, "b", false)

	first := tbl.List()
	second := tbl.List()
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{first[0].ID, first[1].ID, first[2].ID})
}

func TestWaitNotRunning(t *testing.T) {
	tbl := newTestTable(t)
	job := tbl.Add(100, []int{100}, "cat", false)

	go func() {
		time.Sleep(20 * time.Millisecond)
		tbl.applyStop(100)
	}()
	got, ok := tbl.WaitNotRunning(job.ID)
	require.True(t, ok)
	assert.Equal(t, Stopped, got.State)

	tbl.SetResumed(job.ID, false)
	go func() {
		time.Sleep(20 * time.Millisecond)
		tbl.applyExit(100)
	}()
	got, ok = tbl.WaitNotRunning(job.ID)
	require.True(t, ok)
	assert.Equal(t, Done, got.State)

	_, ok = tbl.WaitNotRunning(999)
	assert.False(t, ok)
}

func TestSetResumedTogglesBackground(t *testing.T) {
	tbl := newTestTable(t)
	job := tbl.Add(100, []int{100}, "cat", false)
	tbl.applyStop(100)

	tbl.SetResumed(job.ID, true)
	got, err := tbl.Lookup("%1")
	require.NoError(t, err)
	assert.True(t, got.Background)
	assert.Equal(t, Running, got.State)

	tbl.SetResumed(job.ID, false)
	got, _ = tbl.Lookup("%1")
	assert.False(t, got.Background)
}
