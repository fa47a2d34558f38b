package spec

import (
	"reflect"
	"testing"
)

func TestBuildCommand(t *testing.T) {
	guard := Guard{Path: "/opt/runguard", User: "coderunner"}
	cases := []struct {
		name    string
		limits  ResourceLimits
		program string
		args    []string
		want    []string
	}{
		{
			name:    "python3 limits",
			limits:  ResourceLimits{TimeSeconds: 10, MemoryKB: 4000000, FileSizeKB: 10000, NumProcs: 200, NoCore: true, StreamSizeKB: 1000},
			program: "/usr/bin/python3",
			args:    []string{"-BE", "prog"},
			want: []string{
				"/opt/runguard", "--user=coderunner", "--time=10", "--memsize=4000000",
				"--filesize=10000", "--nproc=200", "--no-core", "--streamsize=1000",
				"/usr/bin/python3", "-BE", "prog",
			},
		},
		{
			name:    "memory flag omitted",
			limits:  ResourceLimits{TimeSeconds: 15, FileSizeKB: 1000000, NumProcs: 200, NoCore: true, StreamSizeKB: 1000},
			program: "/usr/local/bin/matlab_exec_cli",
			args:    []string{"-nojvm", "-r", "prog"},
			want: []string{
				"/opt/runguard", "--user=coderunner", "--time=15",
				"--filesize=1000000", "--nproc=200", "--no-core", "--streamsize=1000",
				"/usr/local/bin/matlab_exec_cli", "-nojvm", "-r", "prog",
			},
		},
		{
			name:    "core dumps allowed",
			limits:  ResourceLimits{TimeSeconds: 5, MemoryKB: 100000, FileSizeKB: 10000, NumProcs: 1, StreamSizeKB: 1000},
			program: "./prog.exe",
			want: []string{
				"/opt/runguard", "--user=coderunner", "--time=5", "--memsize=100000",
				"--filesize=10000", "--nproc=1", "--streamsize=1000", "./prog.exe",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildCommand(guard, tc.limits, tc.program, tc.args...)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected command\n got: %q\nwant: %q", got, tc.want)
			}
			again := BuildCommand(guard, tc.limits, tc.program, tc.args...)
			if !reflect.DeepEqual(got, again) {
				t.Fatalf("command is not deterministic")
			}
		})
	}
}
