package main

import (
	"fmt"
	"os"
	"strings"

	"notelink/internal/index"
	"notelink/internal/logging"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = ""

func main() {
	logger, closeLog, err := logging.Setup(os.Stderr, logging.FromEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	version := strings.TrimSpace(Version)
	if version == "" {
		version = "dev"
	}
	index.SetBuildVersion(Version)

	root := newRootCmd(&app{
		version: version,
		logger:  logger,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	})
	if err := root.Execute(); err != nil {
		logger.Error("notelink failed", "err", err)
		_ = closeLog()
		os.Exit(1)
	}
	_ = closeLog()
}
