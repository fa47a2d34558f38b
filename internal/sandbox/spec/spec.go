// Package spec defines resource limits and builds guarded command lines.
package spec

import "strconv"

// ResourceLimits describes the caps the guard enforces on one run.
// Sizes are in kilobytes; MemoryKB == 0 omits the memory flag entirely.
type ResourceLimits struct {
	TimeSeconds  int
	MemoryKB     int64
	FileSizeKB   int64
	NumProcs     int
	NoCore       bool
	StreamSizeKB int64
}

// Guard names the resource-limiting wrapper and the identity it runs programs as.
type Guard struct {
	Path string
	User string
}

// BuildCommand returns the guard invocation for program and args.
// Flag order is fixed: user, time, memsize, filesize, nproc, no-core, streamsize.
func BuildCommand(guard Guard, limits ResourceLimits, program string, args ...string) []string {
	cmd := make([]string, 0, 8+len(args))
	cmd = append(cmd,
		guard.Path,
		"--user="+guard.User,
		"--time="+strconv.Itoa(limits.TimeSeconds),
	)
	if limits.MemoryKB > 0 {
		cmd = append(cmd, "--memsize="+strconv.FormatInt(limits.MemoryKB, 10))
	}
	cmd = append(cmd,
		"--filesize="+strconv.FormatInt(limits.FileSizeKB, 10),
		"--nproc="+strconv.Itoa(limits.NumProcs),
	)
	if limits.NoCore {
		cmd = append(cmd, "--no-core")
	}
	cmd = append(cmd, "--streamsize="+strconv.FormatInt(limits.StreamSizeKB, 10))
	cmd = append(cmd, program)
	return append(cmd, args...)
}
