// Package language defines the per-language compile, run and output rules
// and the registry that maps language identifiers onto them.
package language

import (
	"context"
	"strings"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
)

// Language is one supported language variant.
//
// Compile leaves either an executable or nonempty diagnostics on the task and
// returns an error only when a process could not be spawned or a file could
// not be read or written.
// A task that already carries diagnostics is left
// untouched. RunCommand must be deterministic for a given task.
type Language interface {
	ID() string
	Version() string
	Limits() spec.ResourceLimits
	// AdmissionWeight estimates the processes and threads one run starts
	// under the guard identity.
	AdmissionWeight() int64
	SourceName() string
	Compile(ctx context.Context, exec engine.Engine, t *task.Task) error
	RunCommand(guard spec.Guard, t *task.Task) []string
	FilterOutput(raw string) string
}

const defaultSourceName = "prog"

// standardLimits returns the limits shared by every variant apart from
// time, memory and file size.
func standardLimits(timeSeconds int, memoryKB, fileSizeKB int64) spec.ResourceLimits {
	return spec.ResourceLimits{
		TimeSeconds:  timeSeconds,
		MemoryKB:     memoryKB,
		FileSizeKB:   fileSizeKB,
		NumProcs:     200,
		NoCore:       true,
		StreamSizeKB: 1000,
	}
}

// base carries the data every variant exposes unchanged.
type base struct {
	id        string
	limits    spec.ResourceLimits
	weight    int64
	toolchain Toolchain
}

func (b *base) ID() string                  { return b.id }
func (b *base) Version() string             { return b.toolchain.Version }
func (b *base) Limits() spec.ResourceLimits { return b.limits }
func (b *base) AdmissionWeight() int64      { return b.weight }
func (b *base) SourceName() string          { return defaultSourceName }
func (b *base) FilterOutput(raw string) string {
	return raw
}

// runCommand guards the runtime prefix followed by args.
func (b *base) runCommand(guard spec.Guard, args ...string) []string {
	rt := b.toolchain.Runtime
	return spec.BuildCommand(guard, b.limits, rt[0], argv(rt[1:], args...)...)
}

// argv copies prefix and appends args so toolchain slices are never shared.
func argv(prefix []string, args ...string) []string {
	out := make([]string, 0, len(prefix)+len(args))
	out = append(out, prefix...)
	return append(out, args...)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
