// Command runguard runs a program under resource limits as another user and
// reports limit violations on stderr.
//
//	runguard --user=<name|uid> --time=<s> [--memsize=<KB>] --filesize=<KB> \
//	    --nproc=<n> [--no-core] --streamsize=<KB> <program> [args...]
package main

import (
	"fmt"
	"os"
)

// childStage is the hidden first argument of the re-executed child.
const childStage = "__runguard_child"

func main() {
	var (
		code int
		err  error
	)
	if len(os.Args) > 1 && os.Args[1] == childStage {
		err = runChild(os.Args[2:])
		code = 127
	} else {
		code, err = runGuard(os.Args[1:])
	}
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "runguard: error: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	os.Exit(code)
}
