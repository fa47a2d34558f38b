//go:build linux

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"coderun/internal/sandbox/spec"
)

// wallGrace is how much longer than the cpu limit a command may run by the
// clock before its process group is killed.
const wallGrace = 2 * time.Second

func runGuard(args []string) (int, error) {
	opts, err := parseOptions(args)
	if err != nil {
		return 1, err
	}
	self, err := os.Executable()
	if err != nil {
		return 1, fmt.Errorf("locate self: %w", err)
	}

	cmd := exec.Command(self, append([]string{childStage}, opts.args()...)...)
	cmd.Stdin = os.Stdin
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pdeathsig: syscall.SIGKILL}
	if os.Geteuid() == 0 && opts.User != "" {
		uid, gid, err := lookupIDs(opts.User)
		if err != nil {
			return 1, err
		}
		cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid), Groups: []uint32{}}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start command: %w", err)
	}
	pgid := cmd.Process.Pid

	var wallExceeded atomic.Bool
	timer := time.AfterFunc(time.Duration(opts.Limits.TimeSeconds)*time.Second+wallGrace, func() {
		wallExceeded.Store(true)
		_ = unix.Kill(-pgid, unix.SIGKILL)
	})

	limit := opts.Limits.StreamSizeKB * 1024
	var copiers errgroup.Group
	copiers.Go(func() error {
		_, err := copyLimited(os.Stdout, stdout, limit)
		return err
	})
	copiers.Go(func() error {
		_, err := copyLimited(os.Stderr, stderr, limit)
		return err
	})
	copyErr := copiers.Wait()
	waitErr := cmd.Wait()
	timer.Stop()
	// Reap anything the command left running in its group.
	_ = unix.Kill(-pgid, unix.SIGKILL)

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return 1, fmt.Errorf("wait command: %w", waitErr)
	}
	ws, _ := cmd.ProcessState.Sys().(syscall.WaitStatus)
	sig := 0
	if ws.Signaled() {
		sig = int(ws.Signal())
	}
	cpuExceeded := ws.Signaled() && (ws.Signal() == syscall.SIGXCPU ||
		(ws.Signal() == syscall.SIGKILL && cpuTime(cmd.ProcessState) >= time.Duration(opts.Limits.TimeSeconds)*time.Second))

	if line := verdict(wallExceeded.Load(), ws.Signaled(), sig, cpuExceeded); line != "" {
		_, _ = fmt.Fprintln(os.Stderr, line)
	}
	if copyErr != nil {
		return 1, fmt.Errorf("copy output: %w", copyErr)
	}
	if ws.Signaled() {
		return 128 + sig, nil
	}
	return ws.ExitStatus(), nil
}

func cpuTime(state *os.ProcessState) time.Duration {
	return state.UserTime() + state.SystemTime()
}

// runChild applies the limits to itself and replaces itself with the command.
func runChild(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	path, err := exec.LookPath(opts.Command[0])
	if err != nil {
		return fmt.Errorf("resolve command: %w", err)
	}
	if err := applyRlimits(opts.Limits); err != nil {
		return err
	}
	return unix.Exec(path, opts.Command, os.Environ())
}

func applyRlimits(limits spec.ResourceLimits) error {
	seconds := uint64(limits.TimeSeconds)
	// SIGXCPU at the soft limit, SIGKILL one second later.
	if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: seconds, Max: seconds + 1}); err != nil {
		return fmt.Errorf("set rlimit cpu: %w", err)
	}
	if limits.MemoryKB > 0 {
		bytes := uint64(limits.MemoryKB) * 1024
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: bytes, Max: bytes}); err != nil {
			return fmt.Errorf("set rlimit as: %w", err)
		}
	}
	if limits.FileSizeKB > 0 {
		bytes := uint64(limits.FileSizeKB) * 1024
		if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: bytes, Max: bytes}); err != nil {
			return fmt.Errorf("set rlimit fsize: %w", err)
		}
	}
	if limits.NumProcs > 0 {
		val := uint64(limits.NumProcs)
		if err := unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: val, Max: val}); err != nil {
			return fmt.Errorf("set rlimit nproc: %w", err)
		}
	}
	if limits.NoCore {
		if err := unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0}); err != nil {
			return fmt.Errorf("set rlimit core: %w", err)
		}
	}
	return nil
}
