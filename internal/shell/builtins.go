package shell

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/parser"
)

func isBuiltin(name string) bool {
	switch name {
	case "cd", "help", "exit", "clear", "about", "jobs", "fg", "bg", "killjob", "history":
		return true
	}
	return false
}

// runBuiltin dispatches a single-segment builtin, honoring its redirections
// by handing the opened files to the builtin as its streams.
func (s *Shell) runBuiltin(spec parser.Command) (bool, error) {
	if !isBuiltin(spec.Args[0]) {
		return false, nil
	}

	in := io.Reader(os.Stdin)
	out := s.out
	if spec.Infile != "" {
		f, err := os.Open(spec.Infile)
		if err != nil {
			return true, err
		}
		defer f.Close()
		in = f
	}
	if spec.Outfile != "" {
		flags := os.O_WRONLY | os.O_CREATE
		if spec.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(spec.Outfile, flags, 0644)
		if err != nil {
			return true, err
		}
		defer f.Close()
		out = f
	}

	return true, s.executeBuiltin(spec.Args, in, out)
}

// executeBuiltin runs one builtin with its resolved streams. No current
// builtin reads from in, but redirected input is still wired through so a
// builtin gets the same stream an external command would.
func (s *Shell) executeBuiltin(args []string, in io.Reader, out io.Writer) error {
	switch args[0] {
	case "cd":
		return s.changeDirectory(args[1:])
	case "help":
		fmt.Fprintln(out, "minishell help:")
		fmt.Fprintln(out, "Builtins: cd, help, clear, about, jobs, fg, bg, killjob, history, exit")
		return nil
	case "exit":
		s.exit()
		return nil
	case "clear":
		fmt.Fprint(out, "\033[H\033[2J")
		return nil
	case "about":
		fmt.Fprintln(out, "minishell: a small shell with pipelines and job control.")
		return nil
	case "jobs":
		s.listJobs(out)
		return nil
	case "fg":
		return s.foreground(args[1:])
	case "bg":
		return s.background(args[1:], out)
	case "killjob":
		return s.killJob(args[1:], out)
	case "history":
		return s.showHistory(out)
	}
	return nil
}

func (s *Shell) changeDirectory(args []string) error {
	dir := s.config.HomeDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = os.Getenv("HOME")
	}
	if err := os.Chdir(dir); err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	return nil
}

func (s *Shell) exit() {
	s.reader.Close()
	s.log.Sync()
	os.Exit(0)
}

func (s *Shell) listJobs(out io.Writer) {
	for _, j := range s.jobs.List() {
		marker := ""
		if j.Background {
			marker = " &"
		}
		fmt.Fprintf(out, "[%d] %s\t%d\t%s%s\n", j.ID, j.State, j.PGID, j.Cmdline, marker)
	}
}

// foreground resumes a job, attaches it to the terminal and waits for it to
// stop or finish. The continue signal goes to the whole group (-pgid), so
// every pipeline member resumes.
func (s *Shell) foreground(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("fg: usage: fg %%jobid")
	}
	job, err := s.jobs.Lookup(args[0])
	if err != nil {
		return fmt.Errorf("fg: %w", err)
	}
	if err := unix.Kill(-job.PGID, unix.SIGCONT); err != nil {
		return fmt.Errorf("fg: continue job %d: %w", job.ID, err)
	}
	s.jobs.SetResumed(job.ID, false)
	s.log.Info("job foregrounded", zap.Int("job", job.ID), zap.Int("pgid", job.PGID))
	return s.waitForeground(job.ID, job.PGID)
}

// background resumes a job without touching the terminal and returns to the
// prompt immediately.
func (s *Shell) background(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("bg: usage: bg %%jobid")
	}
	job, err := s.jobs.Lookup(args[0])
	if err != nil {
		return fmt.Errorf("bg: %w", err)
	}
	if err := unix.Kill(-job.PGID, unix.SIGCONT); err != nil {
		return fmt.Errorf("bg: continue job %d: %w", job.ID, err)
	}
	s.jobs.SetResumed(job.ID, true)
	s.log.Info("job backgrounded", zap.Int("job", job.ID), zap.Int("pgid", job.PGID))
	fmt.Fprintf(out, "[%d] %d resumed in background\n", job.ID, job.PGID)
	return nil
}

// killJob sends SIGKILL to the whole group and lets the reaper observe the
// deaths; there is no synchronous wait here.
func (s *Shell) killJob(args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("killjob: usage: killjob %%jobid")
	}
	job, err := s.jobs.Lookup(args[0])
	if err != nil {
		return fmt.Errorf("killjob: %w", err)
	}
	if err := unix.Kill(-job.PGID, unix.SIGKILL); err != nil {
		return fmt.Errorf("killjob: job %d: %w", job.ID, err)
	}
	s.log.Info("job killed", zap.Int("job", job.ID), zap.Int("pgid", job.PGID))
	fmt.Fprintf(out, "killed job %d\n", job.ID)
	return nil
}

func (s *Shell) showHistory(out io.Writer) error {
	for i, cmd := range s.history.GetAll() {
		fmt.Fprintf(out, "%d: %s\n", i+1, cmd)
	}
	return nil
}
