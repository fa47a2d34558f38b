// Package engine spawns host processes with file-backed standard streams.
package engine

import (
	"context"
	"fmt"
	"time"
)

// Command describes one process to spawn.
// Paths are absolute or relative to the caller's cwd; WorkDir is passed to
// the child as its working directory and never changes the caller's cwd.
type Command struct {
	Args       []string
	WorkDir    string
	Env        []string
	StdinPath  string // empty reads from the null device
	StdoutPath string // empty discards
	StderrPath string // empty discards
}

// Result is the raw accounting of a finished process.
type Result struct {
	ExitCode     int
	Signal       int
	Elapsed      time.Duration
	CPUTime      time.Duration
	PeakMemoryKB int64
	Killed       bool
}

// Success reports a clean zero exit.
func (r Result) Success() bool {
	return r.ExitCode == 0 && r.Signal == 0 && !r.Killed
}

// Engine runs commands to completion. A returned error means the process
// could not be spawned or waited on; nonzero exits are reported in Result.
type Engine interface {
	Exec(ctx context.Context, cmd Command) (Result, error)
}

// Config controls engine behavior.
type Config struct {
	// Env is appended to the inherited environment of every command.
	Env []string
}

func validateCommand(cmd Command) error {
	if len(cmd.Args) == 0 || cmd.Args[0] == "" {
		return fmt.Errorf("command is required")
	}
	if cmd.WorkDir == "" {
		return fmt.Errorf("work dir is required")
	}
	return nil
}
