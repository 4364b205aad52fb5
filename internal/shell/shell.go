// Package shell implements the interactive loop, the pipeline launcher and
// POSIX-style job control: every pipeline runs as one process group, the
// terminal's foreground group moves between the shell and its jobs, and an
// asynchronous reaper keeps the job table in step with the kernel.
package shell

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/config"
	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/history"
	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/parser"
	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/plugin"
)

type Shell struct {
	config     *config.Config
	history    *history.History
	plugins    []plugin.Plugin
	jobs       *Table
	term       *Terminal
	log        *zap.Logger
	signalChan chan os.Signal
	reapMu     sync.Mutex
	reader     *readline.Instance
	out        io.Writer
	outMu      sync.Mutex
}

func New(cfg *config.Config, log *zap.Logger) (*Shell, error) {
	hist, err := history.New(cfg.HistoryFile, cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("error initializing history: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     cfg.HistoryFile,
		HistoryLimit:    cfg.HistorySize,
		AutoComplete:    fileCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing readline: %w", err)
	}

	s := &Shell{
		config:     cfg,
		history:    hist,
		jobs:       NewTable(log),
		term:       NewTerminal(),
		log:        log,
		signalChan: make(chan os.Signal, 1),
		reader:     rl,
		out:        rl.Stdout(),
	}

	for _, path := range cfg.Plugins {
		p, err := plugin.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "minishell: plugin %s: %v\n", path, err)
			continue
		}
		s.plugins = append(s.plugins, p)
	}
	return s, nil
}

func (s *Shell) Run() {
	defer s.reader.Close()

	s.setupSignalHandling()
	defer signal.Stop(s.signalChan)

	for {
		// Opportunistic drain and sweep before each prompt, so a Done job
		// never lingers and statuses missed by a dropped SIGCHLD are picked
		// up here.
		s.reapChildren()
		s.purge()

		s.reader.SetPrompt(s.prompt())
		line, err := s.reader.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.history.Add(line)

		if err := s.Execute(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		s.purge()
	}
}

func (s *Shell) prompt() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "?"
	}
	user := s.config.PromptUser
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		user = "user"
	}
	return fmt.Sprintf("\033[1;36m[%s@minishell %s]\033[0m$ ", user, cwd)
}

// Execute runs one command line: builtins and plugins resolve only for a
// single-segment line; everything else becomes a pipeline in its own process
// group.
func (s *Shell) Execute(line string) error {
	pipe, err := parser.Parse(line)
	if err != nil {
		return err
	}

	if len(pipe.Commands) == 1 {
		if handled, err := s.runBuiltin(pipe.Commands[0]); handled {
			return err
		}
		if handled, err := s.runPlugin(pipe.Commands[0].Args); handled {
			return err
		}
	}
	return s.runPipeline(pipe)
}

func (s *Shell) runPipeline(p *parser.Pipeline) error {
	pgid, pids, err := launch(p)
	if err != nil {
		return err
	}

	job := s.jobs.Add(pgid, pids, p.Line, p.Background)
	s.log.Info("pipeline launched",
		zap.Int("job", job.ID),
		zap.Int("pgid", pgid),
		zap.Int("members", len(pids)),
		zap.Bool("background", p.Background))

	if p.Background {
		s.notifyf("[%d] %d started: %s\n", job.ID, pgid, p.Line)
		return nil
	}
	return s.waitForeground(job.ID, pgid)
}

// waitForeground hands the terminal to the job's group, blocks until the job
// stops or finishes, and always takes the terminal back, error paths
// included. A stop leaves the job in the table for fg/bg to pick up later.
func (s *Shell) waitForeground(id, pgid int) error {
	if err := s.term.GiveTo(pgid); err != nil {
		s.log.Warn("terminal handoff failed", zap.Int("pgid", pgid), zap.Error(err))
	}

	job, ok := s.jobs.WaitNotRunning(id)

	if err := s.term.Reclaim(); err != nil {
		s.log.Warn("terminal reclaim failed", zap.Error(err))
	}

	if ok && job.State == Stopped {
		s.notifyf("\n[%d] Stopped\t%s\n", job.ID, job.Cmdline)
	}
	return nil
}

func (s *Shell) runPlugin(args []string) (bool, error) {
	for _, p := range s.plugins {
		if p.Name() == args[0] {
			return true, p.Execute(args[1:])
		}
	}
	return false, nil
}

func (s *Shell) purge() {
	for _, j := range s.jobs.Purge() {
		s.log.Debug("job purged", zap.Int("job", j.ID), zap.Int("pgid", j.PGID))
	}
}

func fileCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(readline.PcItemDynamic(listFiles))
}

// listFiles feeds filename completion from the current directory.
func listFiles(string) []string {
	entries, err := os.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += string(os.PathSeparator)
		}
		names = append(names, name)
	}
	return names
}
