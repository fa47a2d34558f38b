package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadFilePrefix reads at most maxBytes from path. A missing file reads as empty.
func ReadFilePrefix(path string, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		return "", nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// ReadFile reads all of path. A missing file reads as empty.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func openStdin(path string) (*os.File, error) {
	if path == "" {
		path = os.DevNull
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stdin: %w", err)
	}
	return file, nil
}

func createOutput(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return file, nil
}

// streams holds the files handed to one child process.
type streams struct {
	stdin  *os.File
	stdout *os.File
	stderr *os.File
}

func openStreams(cmd Command) (*streams, error) {
	s := &streams{}
	var err error
	if s.stdin, err = openStdin(cmd.StdinPath); err != nil {
		return nil, err
	}
	if s.stdout, err = createOutput(cmd.StdoutPath); err != nil {
		s.close()
		return nil, err
	}
	if s.stderr, err = createOutput(cmd.StderrPath); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *streams) close() {
	for _, f := range []*os.File{s.stdin, s.stdout, s.stderr} {
		if f != nil {
			_ = f.Close()
		}
	}
}
