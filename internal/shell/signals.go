package shell

import (
	"fmt"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// setupSignalHandling wires the shell's signal dispositions. SIGINT and
// SIGTSTP are caught so the shell itself is never killed or suspended at the
// prompt; catching them also means children exec with default dispositions.
// SIGTTOU/SIGTTIN must be ignored outright, otherwise tcsetpgrp from a
// momentarily-backgrounded shell would be interrupted instead of succeeding.
func (s *Shell) setupSignalHandling() {
	signal.Notify(s.signalChan, unix.SIGINT, unix.SIGTSTP, unix.SIGCHLD)
	signal.Ignore(unix.SIGTTOU, unix.SIGTTIN)
	go s.handleSignals()
}

func (s *Shell) handleSignals() {
	for sig := range s.signalChan {
		switch sig {
		case unix.SIGINT, unix.SIGTSTP:
			// The terminal delivers these to the foreground job's group;
			// at the prompt readline absorbs them. Nothing to do here
			// beyond staying alive.
		case unix.SIGCHLD:
			s.reapChildren()
		}
	}
}

// reapChildren drains every pending child status change. SIGCHLD does not
// queue one-for-one with events, so loop until the kernel reports nothing
// left, then reconcile each status into the job table. Removal from the
// table is left to the main loop's Purge.
func (s *Shell) reapChildren() {
	s.reapMu.Lock()
	defer s.reapMu.Unlock()

	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil || pid <= 0 {
			return
		}

		switch {
		case ws.Exited() || ws.Signaled():
			job, done := s.jobs.applyExit(pid)
			s.log.Debug("member reaped",
				zap.Int("pid", pid), zap.Int("job", job.ID), zap.Bool("done", done))
			if done && job.Background {
				s.notifyf("[%d] Done\t%s\n", job.ID, job.Cmdline)
			}
		case ws.Stopped():
			job, changed := s.jobs.applyStop(pid)
			s.log.Debug("member stopped", zap.Int("pid", pid), zap.Int("job", job.ID))
			if changed && job.Background {
				s.notifyf("[%d] Stopped\t%s\n", job.ID, job.Cmdline)
			}
		case ws.Continued():
			s.jobs.applyContinue(pid)
			s.log.Debug("member continued", zap.Int("pid", pid))
		}
	}
}

// notifyf prints an asynchronous status line. The writer is readline's
// prompt-aware stdout, which redraws the pending input line after the write.
func (s *Shell) notifyf(format string, args ...interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
