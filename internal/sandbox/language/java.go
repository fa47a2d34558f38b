package language

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
)

// NoMainClassDiagnostic is reported when the source has zero or several
// public classes declaring main.
const NoMainClassDiagnostic = "Error: no main class found, or multiple main classes. " +
	"[Did you write a public class when asked for a non-public one?]"

var mainClassPattern = regexp.MustCompile(
	`(?ms)(^|\W)public\s+class\s+(\w+)\s*\{.*?public\s+static\s+void\s+main\s*\(\s*String`)

// Java renames the source after its public main class before compiling.
type Java struct {
	base
}

// NewJava creates the Java variant.
func NewJava(tc Toolchain) *Java {
	return &Java{base{
		id:        "java",
		limits:    standardLimits(10, 2000000, 10000),
		weight:    16,
		toolchain: tc,
	}}
}

// MainClass returns the single public class declaring main.
func MainClass(source string) (string, bool) {
	matches := mainClassPattern.FindAllStringSubmatch(source, -1)
	if len(matches) != 1 {
		return "", false
	}
	return matches[0][2], true
}

func (j *Java) Compile(ctx context.Context, exec engine.Engine, t *task.Task) error {
	if t.CompileFailed() {
		return nil
	}
	source, err := os.ReadFile(t.Path(t.SourceFile))
	if err != nil {
		return fmt.Errorf("read java source: %w", err)
	}
	className, ok := MainClass(string(source))
	if !ok {
		t.FailCompile(NoMainClassDiagnostic, 0)
		return nil
	}

	renamed := className + ".java"
	if renamed != t.SourceFile {
		if err := os.Rename(t.Path(t.SourceFile), t.Path(renamed)); err != nil {
			return fmt.Errorf("rename java source: %w", err)
		}
		t.SourceFile = renamed
	}

	ok, err = runCompiler(ctx, exec, t, "compile.out", argv(j.toolchain.Compiler, renamed))
	if err != nil {
		return err
	}
	if ok {
		t.SetExecutable(className + ".class")
	}
	return nil
}

func (j *Java) RunCommand(guard spec.Guard, t *task.Task) []string {
	return j.runCommand(guard, strings.TrimSuffix(t.ExecutableFile, ".class"))
}
