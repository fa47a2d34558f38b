package language

import (
	"context"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
)

// C compiles with warnings as errors and runs the resulting binary directly.
type C struct {
	base
}

// NewC creates the C variant.
func NewC(tc Toolchain) *C {
	return &C{base{
		id:        "c",
		limits:    standardLimits(5, 100000, 10000),
		weight:    1,
		toolchain: tc,
	}}
}

func (c *C) Compile(ctx context.Context, exec engine.Engine, t *task.Task) error {
	if t.CompileFailed() {
		return nil
	}
	executable := t.SourceFile + ".exe"
	args := argv(c.toolchain.Compiler, "-o", executable, t.SourceFile, "-lm")
	ok, err := runCompiler(ctx, exec, t, t.SourceFile+".err", args)
	if err != nil {
		return err
	}
	if ok {
		t.SetExecutable(executable)
	}
	return nil
}

func (c *C) RunCommand(guard spec.Guard, t *task.Task) []string {
	return spec.BuildCommand(guard, c.limits, "./"+t.ExecutableFile)
}
