package language

import (
	"context"
	"path/filepath"
	"strings"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
)

// MatlabBannerMarker ends the startup banner Matlab prints before any output.
const MatlabBannerMarker = "For product information, visit www.mathworks.com."

// Matlab runs the source as a script named after the source file.
type Matlab struct {
	base
}

// NewMatlab creates the Matlab variant. It has no memory cap; the runtime
// maps far more address space than it uses.
func NewMatlab(tc Toolchain) *Matlab {
	return &Matlab{base{
		id:        "matlab",
		limits:    standardLimits(15, 0, 1000000),
		weight:    24,
		toolchain: tc,
	}}
}

func (m *Matlab) Compile(ctx context.Context, exec engine.Engine, t *task.Task) error {
	if t.CompileFailed() {
		return nil
	}
	script := t.SourceFile + ".m"
	if err := copyFile(t.Path(t.SourceFile), t.Path(script)); err != nil {
		return err
	}
	t.SetExecutable(script)
	return nil
}

func (m *Matlab) RunCommand(guard spec.Guard, t *task.Task) []string {
	return m.runCommand(guard, filepath.Base(t.SourceFile))
}

// FilterOutput drops the startup banner and surrounding blank lines.
// Output without a banner is dropped entirely.
func (m *Matlab) FilterOutput(raw string) string {
	var lines []string
	headerEnded := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, " \t\n\r\x00\x0b")
		if headerEnded {
			lines = append(lines, line)
		}
		if strings.Contains(line, MatlabBannerMarker) {
			headerEnded = true
		}
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}
