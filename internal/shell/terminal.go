package shell

import (
	"os"

	"golang.org/x/sys/unix"
)

// Terminal hands the controlling terminal's foreground process group back and
// forth between the shell and launched jobs. When stdin is not a controlling
// terminal (tests, scripted input) every operation is a successful no-op.
type Terminal struct {
	fd      int
	pgid    int // the shell's own process group
	tmodes  *unix.Termios
	enabled bool
}

// NewTerminal probes stdin, moves the shell into its own process group and
// claims the foreground. The terminal modes are saved so Reclaim can restore
// them after a job scrambles the tty.
func NewTerminal() *Terminal {
	t := &Terminal{fd: int(os.Stdin.Fd())}

	if _, err := unix.IoctlGetInt(t.fd, unix.TIOCGPGRP); err != nil {
		return t
	}
	t.enabled = true

	t.pgid = unix.Getpgrp()
	if pid := unix.Getpid(); pid != t.pgid {
		if err := unix.Setpgid(pid, pid); err == nil {
			t.pgid = pid
		}
	}

	if tm, err := unix.IoctlGetTermios(t.fd, unix.TCGETS); err == nil {
		t.tmodes = tm
	}

	t.setForeground(t.pgid)
	return t
}

// GiveTo makes pgid the terminal's foreground group. Callers must pair this
// with Reclaim once their wait concludes, on every path.
func (t *Terminal) GiveTo(pgid int) error {
	return t.setForeground(pgid)
}

// Reclaim returns the terminal to the shell's group and restores the saved
// modes.
func (t *Terminal) Reclaim() error {
	if !t.enabled {
		return nil
	}
	err := t.setForeground(t.pgid)
	if t.tmodes != nil {
		if terr := unix.IoctlSetTermios(t.fd, unix.TCSETSW, t.tmodes); err == nil {
			err = terr
		}
	}
	return err
}

func (t *Terminal) setForeground(pgid int) error {
	if !t.enabled {
		return nil
	}
	// TIOCSPGRP takes a pointer to the pgid, hence the pointer variant.
	return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}
