package shell

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/parser"
)

type pipeEnds struct {
	r, w *os.File
}

// launch starts every command of a pipeline inside one fresh process group
// and returns the group id plus the pids that actually started. The first
// member that starts becomes the group leader; later members join its group
// before exec (SysProcAttr.Pgid), so a signal aimed at -pgid can never miss a
// member that is already running.
//
// The parent never relays pipeline data: all pipe descriptors are closed here
// once every member has been started, and the reaper picks up the statuses.
func launch(p *parser.Pipeline) (int, []int, error) {
	n := len(p.Commands)

	pipes := make([]pipeEnds, n-1)
	defer func() {
		for _, pe := range pipes {
			if pe.r != nil {
				pe.r.Close()
			}
			if pe.w != nil {
				pe.w.Close()
			}
		}
	}()

	// All pipes up front; one failure aborts the whole launch.
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			return 0, nil, fmt.Errorf("pipe: %w", err)
		}
		pipes[i] = pipeEnds{r: r, w: w}
	}

	pgid := 0
	var pids []int
	for i, spec := range p.Commands {
		cmd := exec.Command(spec.Args[0], spec.Args[1:]...)
		cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true, Pgid: pgid}

		cmd.Stdin = os.Stdin
		if i > 0 {
			cmd.Stdin = pipes[i-1].r
		}
		cmd.Stdout = os.Stdout
		if i < n-1 {
			cmd.Stdout = pipes[i].w
		}
		cmd.Stderr = os.Stderr

		// File redirections win over pipe wiring: applied last.
		files, err := redirect(cmd, spec)
		if err != nil {
			// Fatal to this member only; its pipe ends close below, so
			// siblings see EOF/EPIPE exactly as if it had exited at once.
			fmt.Fprintf(os.Stderr, "minishell: %v\n", err)
			continue
		}

		err = cmd.Start()
		for _, f := range files {
			f.Close()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "minishell: %s: %v\n", spec.Args[0], err)
			continue
		}

		if pgid == 0 {
			pgid = cmd.Process.Pid
		}
		pids = append(pids, cmd.Process.Pid)
	}

	if len(pids) == 0 {
		return 0, nil, fmt.Errorf("no pipeline member could be started")
	}
	return pgid, pids, nil
}

// redirect opens the command's file redirections and installs them on the
// exec builder, returning the opened files for the caller to close after
// Start has duplicated them into the child.
func redirect(cmd *exec.Cmd, spec parser.Command) ([]*os.File, error) {
	var files []*os.File

	if spec.Infile != "" {
		f, err := os.Open(spec.Infile)
		if err != nil {
			return nil, err
		}
		cmd.Stdin = f
		files = append(files, f)
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
			for _, o := range files {
				o.Close()
			}
			return nil, err
		}
		cmd.Stdout = f
		files = append(files, f)
	}
	return files, nil
}
