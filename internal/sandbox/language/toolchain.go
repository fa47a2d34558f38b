package language

import (
	"github.com/google/shlex"

	appErr "coderun/pkg/errors"
)

// Toolchain is the host tooling a variant invokes.
type Toolchain struct {
	// Compiler is the compile or syntax-check argv prefix; empty when the
	// variant needs no external tool.
	Compiler []string
	// Runtime is the argv prefix placed after the guard flags.
	Runtime []string
	Version string
}

// Override replaces parts of a toolchain from configuration.
// Commands are split with shell quoting rules.
type Override struct {
	Compiler string `yaml:"compiler"`
	Runtime  string `yaml:"runtime"`
	Version  string `yaml:"version"`
}

// Apply returns a copy of tc with the non-empty override fields applied.
func (tc Toolchain) Apply(o Override) (Toolchain, error) {
	out := Toolchain{
		Compiler: argv(tc.Compiler),
		Runtime:  argv(tc.Runtime),
		Version:  tc.Version,
	}
	if o.Compiler != "" {
		fields, err := splitCommand("compiler", o.Compiler)
		if err != nil {
			return Toolchain{}, err
		}
		out.Compiler = fields
	}
	if o.Runtime != "" {
		fields, err := splitCommand("runtime", o.Runtime)
		if err != nil {
			return Toolchain{}, err
		}
		out.Runtime = fields
	}
	if o.Version != "" {
		out.Version = o.Version
	}
	return out, nil
}

func splitCommand(field, value string) ([]string, error) {
	fields, err := shlex.Split(value)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse %s command failed", field)
	}
	if len(fields) == 0 {
		return nil, appErr.ValidationError(field, "command is empty after parsing")
	}
	return fields, nil
}

// DefaultToolchains returns the stock toolchain of every variant.
func DefaultToolchains() map[string]Toolchain {
	return map[string]Toolchain{
		"c": {
			Compiler: []string{"gcc", "-Wall", "-Werror", "-std=c99", "-x", "c"},
			Version:  "gcc-4.6.3",
		},
		"java": {
			Compiler: []string{"/usr/bin/javac"},
			Runtime:  []string{"/usr/bin/java", "-Xrs", "-Xss8m", "-Xmx200m"},
			Version:  "Java 1.6",
		},
		"python2": {
			Runtime: []string{"/usr/bin/python2", "-BESs"},
			Version: "Python 2.7",
		},
		"python3": {
			Compiler: []string{"python3", "-m", "py_compile"},
			Runtime:  []string{"/usr/bin/python3", "-BE"},
			Version:  "Python 3.2",
		},
		"matlab": {
			Runtime: []string{"/usr/local/bin/matlab_exec_cli", "-nojvm", "-r"},
			Version: "Matlab R2012",
		},
	}
}
