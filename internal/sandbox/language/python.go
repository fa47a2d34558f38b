package language

import (
	"context"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
)

// Python2 has no compile step; the source is run as is.
type Python2 struct {
	base
}

// NewPython2 creates the Python 2 variant.
func NewPython2(tc Toolchain) *Python2 {
	return &Python2{base{
		id:        "python2",
		limits:    standardLimits(3, 100000, 10000),
		weight:    2,
		toolchain: tc,
	}}
}

func (p *Python2) Compile(ctx context.Context, exec engine.Engine, t *task.Task) error {
	if t.CompileFailed() {
		return nil
	}
	t.SetExecutable(t.SourceFile)
	return nil
}

func (p *Python2) RunCommand(guard spec.Guard, t *task.Task) []string {
	return p.runCommand(guard, t.SourceFile)
}

// Python3 syntax-checks with py_compile before running.
type Python3 struct {
	base
}

// NewPython3 creates the Python 3 variant.
func NewPython3(tc Toolchain) *Python3 {
	return &Python3{base{
		id:        "python3",
		limits:    standardLimits(10, 4000000, 10000),
		weight:    2,
		toolchain: tc,
	}}
}

func (p *Python3) Compile(ctx context.Context, exec engine.Engine, t *task.Task) error {
	if t.CompileFailed() {
		return nil
	}
	if len(p.toolchain.Compiler) == 0 {
		t.SetExecutable(t.SourceFile)
		return nil
	}
	ok, err := runCompiler(ctx, exec, t, "compile.out", argv(p.toolchain.Compiler, t.SourceFile))
	if err != nil {
		return err
	}
	if ok {
		t.SetExecutable(t.SourceFile)
	}
	return nil
}

func (p *Python3) RunCommand(guard spec.Guard, t *task.Task) []string {
	return p.runCommand(guard, t.SourceFile)
}
