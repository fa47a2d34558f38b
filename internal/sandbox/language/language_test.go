package language

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"coderun/internal/sandbox/engine"
	"coderun/internal/sandbox/spec"
	"coderun/internal/sandbox/task"
	appErr "coderun/pkg/errors"
)

var testGuard = spec.Guard{Path: "/opt/runguard", User: "coderunner"}

type fakeEngine struct {
	calls    []engine.Command
	exitCode int
	output   string
	err      error
}

func (f *fakeEngine) Exec(ctx context.Context, cmd engine.Command) (engine.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return engine.Result{}, f.err
	}
	path := cmd.StderrPath
	if path != "" {
		if err := os.WriteFile(path, []byte(f.output), 0o644); err != nil {
			return engine.Result{}, err
		}
	}
	return engine.Result{ExitCode: f.exitCode}, nil
}

func newSourceTask(t *testing.T, lang Language, source string) *task.Task {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, lang.SourceName()), []byte(source), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return task.New(lang.ID(), dir, lang.SourceName(), lang.Limits())
}

func TestRunCommands(t *testing.T) {
	reg := MustDefault()
	flags := func(time, mem, file string) []string {
		out := []string{"/opt/runguard", "--user=coderunner", "--time=" + time}
		if mem != "" {
			out = append(out, "--memsize="+mem)
		}
		return append(out, "--filesize="+file, "--nproc=200", "--no-core", "--streamsize=1000")
	}

	cases := []struct {
		id         string
		source     string
		executable string
		want       []string
	}{
		{id: "c", source: "prog", executable: "prog.exe", want: append(flags("5", "100000", "10000"), "./prog.exe")},
		{id: "python2", source: "prog", executable: "prog", want: append(flags("3", "100000", "10000"), "/usr/bin/python2", "-BESs", "prog")},
		{id: "python3", source: "prog", executable: "prog", want: append(flags("10", "4000000", "10000"), "/usr/bin/python3", "-BE", "prog")},
		{id: "java", source: "Hello.java", executable: "Hello.class", want: append(flags("10", "2000000", "10000"), "/usr/bin/java", "-Xrs", "-Xss8m", "-Xmx200m", "Hello")},
		{id: "matlab", source: "prog", executable: "prog.m", want: append(flags("15", "", "1000000"), "/usr/local/bin/matlab_exec_cli", "-nojvm", "-r", "prog")},
	}

	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			lang, err := reg.Get(tc.id)
			if err != nil {
				t.Fatalf("get language: %v", err)
			}
			tk := task.New(tc.id, "/work", tc.source, lang.Limits())
			tk.SetExecutable(tc.executable)
			got := lang.RunCommand(testGuard, tk)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected run command\n got: %q\nwant: %q", got, tc.want)
			}
			if again := lang.RunCommand(testGuard, tk); !reflect.DeepEqual(got, again) {
				t.Fatalf("run command is not deterministic")
			}
		})
	}
}

func TestMainClass(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
		ok     bool
	}{
		{
			name:   "single main class",
			source: "import java.util.*;\npublic class Hello {\n  public static void main(String[] args) {}\n}\n",
			want:   "Hello",
			ok:     true,
		},
		{
			name:   "helper class without main",
			source: "class Helper {}\npublic class Main {\n public static void main (String[] a) {}\n}\n",
			want:   "Main",
			ok:     true,
		},
		{
			name:   "non public class",
			source: "class Hello {\n  public static void main(String[] args) {}\n}\n",
		},
		{
			name: "two main classes",
			source: "public class A {\n public static void main(String[] a) {}\n}\n" +
				"public class B {\n public static void main(String[] a) {}\n}\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := MainClass(tc.source)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("MainClass() = %q, %v; want %q, %v", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestJavaCompile(t *testing.T) {
	java := NewJava(DefaultToolchains()["java"])

	t.Run("renames and compiles", func(t *testing.T) {
		tk := newSourceTask(t, java, "public class Hello { public static void main(String[] a) {} }")
		eng := &fakeEngine{}
		if err := java.Compile(context.Background(), eng, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		if tk.SourceFile != "Hello.java" || tk.ExecutableFile != "Hello.class" {
			t.Fatalf("unexpected files %q %q", tk.SourceFile, tk.ExecutableFile)
		}
		if _, err := os.Stat(tk.Path("Hello.java")); err != nil {
			t.Fatalf("renamed source missing: %v", err)
		}
		if len(eng.calls) != 1 || !reflect.DeepEqual(eng.calls[0].Args, []string{"/usr/bin/javac", "Hello.java"}) {
			t.Fatalf("unexpected javac call %+v", eng.calls)
		}
		if eng.calls[0].WorkDir != tk.WorkDir {
			t.Fatalf("javac must run in the work dir, got %q", eng.calls[0].WorkDir)
		}
		if eng.calls[0].StderrPath != tk.Path("compile.out") || eng.calls[0].StdoutPath != "" {
			t.Fatalf("javac stderr alone should go to compile.out, got %+v", eng.calls[0])
		}
	})

	t.Run("no main class", func(t *testing.T) {
		tk := newSourceTask(t, java, "class Hello {}")
		eng := &fakeEngine{}
		if err := java.Compile(context.Background(), eng, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		if tk.CompileDiagnostics != NoMainClassDiagnostic || tk.Compiled() {
			t.Fatalf("unexpected diagnostics %q", tk.CompileDiagnostics)
		}
		if len(eng.calls) != 0 {
			t.Fatalf("javac must not run")
		}
	})

	t.Run("javac failure", func(t *testing.T) {
		tk := newSourceTask(t, java, "public class Hello { public static void main(String[] a) { x } }")
		eng := &fakeEngine{exitCode: 1, output: "Hello.java:1: error: not a statement\n"}
		if err := java.Compile(context.Background(), eng, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		if tk.CompileDiagnostics != "Hello.java:1: error: not a statement\n" {
			t.Fatalf("unexpected diagnostics %q", tk.CompileDiagnostics)
		}
	})
}

func TestCCompile(t *testing.T) {
	c := NewC(DefaultToolchains()["c"])

	t.Run("success", func(t *testing.T) {
		tk := newSourceTask(t, c, "int main(void){return 0;}")
		eng := &fakeEngine{}
		if err := c.Compile(context.Background(), eng, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		want := []string{"gcc", "-Wall", "-Werror", "-std=c99", "-x", "c", "-o", "prog.exe", "prog", "-lm"}
		if !reflect.DeepEqual(eng.calls[0].Args, want) {
			t.Fatalf("unexpected gcc args %q", eng.calls[0].Args)
		}
		if eng.calls[0].StderrPath != tk.Path("prog.err") {
			t.Fatalf("gcc stderr should go to prog.err, got %q", eng.calls[0].StderrPath)
		}
		if tk.ExecutableFile != "prog.exe" {
			t.Fatalf("unexpected executable %q", tk.ExecutableFile)
		}
	})

	t.Run("diagnostics", func(t *testing.T) {
		tk := newSourceTask(t, c, "int main(void){return x;}")
		eng := &fakeEngine{exitCode: 1, output: "prog:1: error: 'x' undeclared\n"}
		if err := c.Compile(context.Background(), eng, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		if tk.Compiled() || tk.CompileDiagnostics != "prog:1: error: 'x' undeclared\n" {
			t.Fatalf("unexpected state %+v", tk)
		}
	})

	t.Run("spawn failure", func(t *testing.T) {
		tk := newSourceTask(t, c, "int main(void){return 0;}")
		eng := &fakeEngine{err: errors.New("exec: gcc: not found")}
		if err := c.Compile(context.Background(), eng, tk); err == nil {
			t.Fatalf("expected spawn error")
		}
	})
}

func TestPythonCompile(t *testing.T) {
	t.Run("python2 is identity", func(t *testing.T) {
		py := NewPython2(DefaultToolchains()["python2"])
		tk := newSourceTask(t, py, "print 1")
		eng := &fakeEngine{}
		if err := py.Compile(context.Background(), eng, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		if tk.ExecutableFile != "prog" || len(eng.calls) != 0 {
			t.Fatalf("python2 should not invoke a compiler")
		}
	})

	t.Run("python3 syntax error", func(t *testing.T) {
		py := NewPython3(DefaultToolchains()["python3"])
		tk := newSourceTask(t, py, "def f(:\n")
		eng := &fakeEngine{exitCode: 1, output: "SyntaxError: invalid syntax\n"}
		if err := py.Compile(context.Background(), eng, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		if !reflect.DeepEqual(eng.calls[0].Args, []string{"python3", "-m", "py_compile", "prog"}) {
			t.Fatalf("unexpected check args %q", eng.calls[0].Args)
		}
		if eng.calls[0].StderrPath != tk.Path("compile.out") {
			t.Fatalf("check stderr should go to compile.out")
		}
		if tk.CompileDiagnostics != "SyntaxError: invalid syntax\n" {
			t.Fatalf("unexpected diagnostics %q", tk.CompileDiagnostics)
		}
	})
}

func TestMatlab(t *testing.T) {
	m := NewMatlab(DefaultToolchains()["matlab"])

	t.Run("compile copies script", func(t *testing.T) {
		tk := newSourceTask(t, m, "disp(42)\n")
		if err := m.Compile(context.Background(), &fakeEngine{}, tk); err != nil {
			t.Fatalf("compile: %v", err)
		}
		data, err := os.ReadFile(tk.Path("prog.m"))
		if err != nil || string(data) != "disp(42)\n" {
			t.Fatalf("script not copied: %q %v", data, err)
		}
		if tk.ExecutableFile != "prog.m" {
			t.Fatalf("unexpected executable %q", tk.ExecutableFile)
		}
	})

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "banner stripped",
			raw: "\n                            < M A T L A B (R) >\n" +
				"  For product information, visit www.mathworks.com.\n\n\n42   \n  43\n\n",
			want: "42\n  43\n",
		},
		{
			name: "no banner drops everything",
			raw:  "42\n",
			want: "\n",
		},
		{
			name: "empty after banner",
			raw:  "For product information, visit www.mathworks.com.\n\n",
			want: "\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.FilterOutput(tc.raw); got != tc.want {
				t.Fatalf("FilterOutput() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := MustDefault()

	if got := reg.IDs(); !reflect.DeepEqual(got, []string{"matlab", "python2", "python3", "java", "c"}) {
		t.Fatalf("unexpected ids %q", got)
	}
	for _, id := range []string{"Java", "C", "PYTHON3", " python2 "} {
		if _, err := reg.Get(id); err != nil {
			t.Fatalf("lookup %q failed: %v", id, err)
		}
	}
	if _, err := reg.Get("cobol"); !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
	if err := reg.Register(NewC(DefaultToolchains()["c"])); err == nil {
		t.Fatalf("duplicate registration must fail")
	}

	infos := reg.Describe()
	if len(infos) != 5 || infos[2].ID != "python3" || infos[2].Version != "Python 3.2" {
		t.Fatalf("unexpected describe %+v", infos)
	}
}

func TestRegistryOverrides(t *testing.T) {
	reg, err := NewRegistry(map[string]Override{
		"Python3": {Runtime: `/opt/py/bin/python3 -BE -X "utf8"`, Version: "Python 3.12"},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	py, _ := reg.Get("python3")
	if py.Version() != "Python 3.12" {
		t.Fatalf("version override ignored")
	}
	tk := task.New("python3", "/work", "prog", py.Limits())
	cmd := py.RunCommand(testGuard, tk)
	tail := cmd[len(cmd)-5:]
	if !reflect.DeepEqual(tail, []string{"/opt/py/bin/python3", "-BE", "-X", "utf8", "prog"}) {
		t.Fatalf("unexpected runtime %q", tail)
	}

	stock := DefaultToolchains()["python3"]
	if stock.Runtime[0] != "/usr/bin/python3" {
		t.Fatalf("defaults must not be mutated")
	}

	if _, err := NewRegistry(map[string]Override{"cobol": {Version: "x"}}); !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected unknown override error, got %v", err)
	}
	if _, err := NewRegistry(map[string]Override{"c": {Compiler: `gcc "unterminated`}}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCompileKeepsEarlierDiagnostics(t *testing.T) {
	reg := MustDefault()
	for _, id := range reg.IDs() {
		t.Run(id, func(t *testing.T) {
			lang, err := reg.Get(id)
			if err != nil {
				t.Fatalf("get language: %v", err)
			}
			tk := newSourceTask(t, lang, "public class Hello { public static void main(String[] a) {} }")
			tk.FailCompile("earlier diagnostics", 1)
			eng := &fakeEngine{}

			if err := lang.Compile(context.Background(), eng, tk); err != nil {
				t.Fatalf("compile: %v", err)
			}
			if len(eng.calls) != 0 {
				t.Fatalf("compiler must not run again, got %d calls", len(eng.calls))
			}
			if tk.CompileDiagnostics != "earlier diagnostics" || tk.ExecutableFile != "" || tk.Compiled() {
				t.Fatalf("earlier failure was overwritten: diagnostics=%q exe=%q", tk.CompileDiagnostics, tk.ExecutableFile)
			}
			if tk.SourceFile != lang.SourceName() {
				t.Fatalf("source must not be renamed, got %q", tk.SourceFile)
			}
		})
	}
}
