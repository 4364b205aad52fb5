package main

import (
	"fmt"
	"os"

	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/config"
	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/logging"
	"github.com/sai-swaroop23/Custom-Shell-Implementation/internal/shell"
)

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogFile, cfg.LogLevel)
	defer log.Sync()

	s, err := shell.New(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing shell: %v\n", err)
		os.Exit(1)
	}

	s.Run()
}
