package shell

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// State is the display state of a job. Done is terminal: a Done job only
// leaves the table through Purge.
type State int

const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// ErrJobNotFound reports a job reference that matches no live job.
var ErrJobNotFound = errors.New("job not found")

// Job tracks one launched process group.
type Job struct {
	ID         int
	PGID       int
	State      State
	Background bool
	Cmdline    string

	// pids holds the group members not yet reaped. Owned by the table lock.
	pids map[int]struct{}
}

func (j *Job) snapshot() Job {
	c := *j
	c.pids = nil
	return c
}

// pendingStatus remembers a reaped status whose job was not registered yet.
// The launcher and the reaper race on freshly started groups: a pipeline can
// exit before Add runs. Only the last status per pid is kept.
type pendingStatus int

const (
	pendingExited pendingStatus = iota
	pendingStopped
	pendingContinued
)

const maxPending = 128

// Table is the authoritative record of process groups known to the shell.
// It is shared between the main loop and the reaper goroutine, so every
// method takes the table lock; the cond wakes foreground waiters whenever a
// job changes state.
type Table struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jobs    map[int]*Job
	pending map[int]pendingStatus
	nextID  int
	log     *zap.Logger
}

func NewTable(log *zap.Logger) *Table {
	t := &Table{
		jobs:    make(map[int]*Job),
		pending: make(map[int]pendingStatus),
		nextID:  1,
		log:     log,
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Add registers a freshly launched process group. Ids increase monotonically
// and are never reused. Statuses reaped before registration are applied
// immediately, so a pipeline that already finished enters the table as Done.
func (t *Table) Add(pgid int, pids []int, cmdline string, background bool) Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := &Job{
		ID:         t.nextID,
		PGID:       pgid,
		State:      Running,
		Background: background,
		Cmdline:    cmdline,
		pids:       make(map[int]struct{}, len(pids)),
	}
	t.nextID++

	for _, pid := range pids {
		st, ok := t.pending[pid]
		if !ok {
			j.pids[pid] = struct{}{}
			continue
		}
		delete(t.pending, pid)
		switch st {
		case pendingExited:
			// already gone
		case pendingStopped:
			j.pids[pid] = struct{}{}
			j.State = Stopped
		case pendingContinued:
			j.pids[pid] = struct{}{}
		}
	}
	if len(j.pids) == 0 {
		j.State = Done
	}

	t.jobs[j.ID] = j
	return j.snapshot()
}

// Lookup resolves a user-supplied job reference, stripping an optional
// leading % marker.
func (t *Table) Lookup(ref string) (Job, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(ref, "%"))
	if err != nil {
		return Job{}, fmt.Errorf("%q: %w", ref, ErrJobNotFound)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %d: %w", id, ErrJobNotFound)
	}
	return j.snapshot(), nil
}

// List returns all jobs ordered by id.
func (t *Table) List() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j.snapshot())
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// SetResumed marks a job Running after a SIGCONT was delivered, moving it to
// the foreground or background per the caller's intent.
func (t *Table) SetResumed(id int, background bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.jobs[id]; ok && j.State != Done {
		j.State = Running
		j.Background = background
		t.cond.Broadcast()
	}
}

// WaitNotRunning blocks until the job leaves Running, reporting its final
// snapshot. This is the shell's only wait path for foreground jobs; all
// actual reaping happens in the reaper, which wakes the cond.
func (t *Table) WaitNotRunning(id int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		j, ok := t.jobs[id]
		if !ok {
			return Job{}, false
		}
		if j.State != Running {
			return j.snapshot(), true
		}
		t.cond.Wait()
	}
}

// Purge drops every Done job and returns the removed snapshots. Called
// opportunistically from the main loop, never from the reaper.
func (t *Table) Purge() []Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []Job
	for id, j := range t.jobs {
		if j.State == Done {
			removed = append(removed, j.snapshot())
			delete(t.jobs, id)
		}
	}
	return removed
}

// applyExit records that a member exited or was killed. When the last member
// is gone the job becomes Done; the returned flag reports that transition.
func (t *Table) applyExit(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.byPid(pid)
	if j == nil {
		t.stash(pid, pendingExited)
		return Job{}, false
	}
	delete(j.pids, pid)
	if len(j.pids) > 0 {
		t.cond.Broadcast()
		return j.snapshot(), false
	}
	j.State = Done
	t.cond.Broadcast()
	return j.snapshot(), true
}

// applyStop records that a member was stopped. The whole job shows Stopped;
// the flag reports the Running-to-Stopped transition (a job with several
// members notifies once).
func (t *Table) applyStop(pid int) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.byPid(pid)
	if j == nil {
		t.stash(pid, pendingStopped)
		return Job{}, false
	}
	if j.State != Running {
		return j.snapshot(), false
	}
	j.State = Stopped
	t.cond.Broadcast()
	return j.snapshot(), true
}

// applyContinue records that a member resumed outside the shell's own fg/bg
// commands (e.g. an external SIGCONT).
func (t *Table) applyContinue(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j := t.byPid(pid)
	if j == nil {
		t.stash(pid, pendingContinued)
		return
	}
	if j.State == Stopped {
		j.State = Running
		t.cond.Broadcast()
	}
}

func (t *Table) byPid(pid int) *Job {
	for _, j := range t.jobs {
		if _, ok := j.pids[pid]; ok {
			return j
		}
	}
	return nil
}

func (t *Table) stash(pid int, st pendingStatus) {
	if len(t.pending) >= maxPending {
		t.log.Warn("pending status table full, dropping", zap.Int("pid", pid))
		return
	}
	t.pending[pid] = st
}
