package language

import (
	"context"
	"fmt"
	"io"
	"os"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/task"
)

const maxDiagnosticsBytes int64 = 64 * 1024

// runCompiler runs a compiler in the task work dir and records the stderr it
// wrote to logName as diagnostics on failure. Compiler stdout is discarded.
func runCompiler(ctx context.Context, exec engine.Engine, t *task.Task, logName string, args []string) (bool, error) {
	cmd := engine.Command{
		Args:       args,
		WorkDir:    t.WorkDir,
		StderrPath: t.Path(logName),
	}

	res, err := exec.Exec(ctx, cmd)
	if err != nil {
		return false, fmt.Errorf("run %s: %w", args[0], err)
	}
	if res.Killed {
		return false, fmt.Errorf("%s aborted: %w", args[0], context.Cause(ctx))
	}
	if res.Success() {
		return true, nil
	}

	diagnostics, err := engine.ReadFilePrefix(t.Path(logName), maxDiagnosticsBytes)
	if err != nil {
		return false, err
	}
	t.FailCompile(diagnostics, res.ExitCode)
	return false, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
