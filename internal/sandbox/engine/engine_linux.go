//go:build linux

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"coderun/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

type linuxEngine struct {
	cfg Config
}

// NewEngine creates a Linux process engine.
func NewEngine(cfg Config) (Engine, error) {
	return &linuxEngine{cfg: cfg}, nil
}

func (e *linuxEngine) Exec(ctx context.Context, command Command) (Result, error) {
	if err := validateCommand(command); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	files, err := openStreams(command)
	if err != nil {
		return Result{}, err
	}
	defer files.close()

	cmd := exec.Command(command.Args[0], command.Args[1:]...)
	cmd.Dir = command.WorkDir
	if len(e.cfg.Env)+len(command.Env) > 0 {
		env := append(os.Environ(), e.cfg.Env...)
		cmd.Env = append(env, command.Env...)
	}
	cmd.Stdin = files.stdin
	if files.stdout != nil {
		cmd.Stdout = files.stdout
	}
	if files.stderr != nil {
		cmd.Stderr = files.stderr
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", command.Args[0], err)
	}

	var killRequested atomic.Bool
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			killRequested.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := Result{
		ExitCode:     exitCode(cmd.ProcessState),
		Signal:       exitSignal(cmd.ProcessState),
		Elapsed:      time.Since(start),
		CPUTime:      cpuTime(cmd.ProcessState),
		PeakMemoryKB: peakMemoryKB(cmd.ProcessState),
		Killed:       killedBy(killRequested.Load(), cmd.ProcessState),
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return res, fmt.Errorf("wait %s: %w", command.Args[0], waitErr)
		}
	}
	logger.Debug(ctx, "process finished",
		zap.String("program", command.Args[0]),
		zap.Int("exit_code", res.ExitCode),
		zap.Int("signal", res.Signal),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = unix.Kill(-pid, unix.SIGKILL)
}

// killedBy reports whether our SIGKILL ended the process. A kill sent after
// the process already exited on its own leaves its status untouched.
func killedBy(requested bool, state *os.ProcessState) bool {
	return requested && exitSignal(state) == int(syscall.SIGKILL)
}

func exitCode(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}

func exitSignal(state *os.ProcessState) int {
	if state == nil {
		return 0
	}
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return 0
	}
	return int(status.Signal())
}

func cpuTime(state *os.ProcessState) time.Duration {
	if state == nil {
		return 0
	}
	return state.UserTime() + state.SystemTime()
}

// peakMemoryKB reports ru_maxrss, which Linux accounts in kilobytes and which
// covers the waited process and its reaped descendants.
func peakMemoryKB(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	if usage, ok := state.SysUsage().(*syscall.Rusage); ok {
		return usage.Maxrss
	}
	return 0
}
