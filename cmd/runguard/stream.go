package main

import (
	"fmt"
	"io"
)

// copyLimited copies at most limit bytes from src to dst and drains the
// rest so the writer never blocks. A limit <= 0 copies everything.
func copyLimited(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		return io.Copy(dst, src)
	}
	n, err := io.Copy(dst, io.LimitReader(src, limit))
	if err != nil {
		return n, err
	}
	if _, err := io.Copy(io.Discard, src); err != nil {
		return n, err
	}
	return n, nil
}

// Warning lines read by the outcome classifier.
const (
	wallTimeWarning = "runguard: warning: timelimit exceeded (wall time): aborting command"
	cpuTimeWarning  = "runguard: warning: timelimit exceeded (cpu time)"
)

func signalWarning(sig int) string {
	return fmt.Sprintf("runguard: warning: command terminated with signal %d", sig)
}

// verdict returns the warning line for how the command ended, or "" when
// there is nothing to report. Plain nonzero exits are not reported.
func verdict(wallTimeout bool, signaled bool, sig int, cpuExceeded bool) string {
	switch {
	case wallTimeout:
		return wallTimeWarning
	case cpuExceeded:
		return cpuTimeWarning
	case signaled:
		return signalWarning(sig)
	default:
		return ""
	}
}
