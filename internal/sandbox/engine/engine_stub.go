//go:build !linux

package engine

import (
	"context"
	"fmt"
)

type stubEngine struct{}

// NewEngine returns an engine that refuses to run on non-Linux hosts.
func NewEngine(cfg Config) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Exec(ctx context.Context, cmd Command) (Result, error) {
	return Result{}, fmt.Errorf("process engine is only supported on linux")
}
