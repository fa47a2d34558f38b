//go:build !linux

package main

import "errors"

var errUnsupported = errors.New("runguard is only supported on linux")

func runGuard(args []string) (int, error) {
	return 1, errUnsupported
}

func runChild(args []string) error {
	return errUnsupported
}
