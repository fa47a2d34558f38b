package main

import (
	"flag"
	"fmt"
	"io"
	"os/user"
	"strconv"

	"coderun/internal/sandbox/spec"
)

type options struct {
	User    string
	Limits  spec.ResourceLimits
	Command []string
}

func parseOptions(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("runguard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.User, "user", "", "run the command as this user name or uid")
	fs.IntVar(&opts.Limits.TimeSeconds, "time", 0, "cpu time limit in seconds")
	fs.Int64Var(&opts.Limits.MemoryKB, "memsize", 0, "address space limit in KB, 0 for none")
	fs.Int64Var(&opts.Limits.FileSizeKB, "filesize", 0, "largest file the command may write in KB")
	fs.IntVar(&opts.Limits.NumProcs, "nproc", 0, "process limit for the user")
	fs.BoolVar(&opts.Limits.NoCore, "no-core", false, "disable core dumps")
	fs.Int64Var(&opts.Limits.StreamSizeKB, "streamsize", 0, "stdout and stderr cap in KB, 0 for none")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.Command = fs.Args()

	switch {
	case len(opts.Command) == 0:
		return options{}, fmt.Errorf("no command specified")
	case opts.Limits.TimeSeconds <= 0:
		return options{}, fmt.Errorf("--time must be positive")
	case opts.Limits.MemoryKB < 0 || opts.Limits.FileSizeKB < 0 || opts.Limits.StreamSizeKB < 0:
		return options{}, fmt.Errorf("sizes must not be negative")
	case opts.Limits.NumProcs < 0:
		return options{}, fmt.Errorf("--nproc must not be negative")
	}
	return opts, nil
}

// args renders opts back into the guard command line.
func (o options) args() []string {
	cmd := spec.BuildCommand(spec.Guard{User: o.User}, o.Limits, o.Command[0], o.Command[1:]...)
	return cmd[1:]
}

// lookupIDs resolves a user name or numeric uid.
func lookupIDs(name string) (uid, gid int, err error) {
	u, err := user.Lookup(name)
	if err != nil {
		if _, convErr := strconv.Atoi(name); convErr != nil {
			return 0, 0, fmt.Errorf("unknown user %q", name)
		}
		u, err = user.LookupId(name)
		if err != nil {
			return 0, 0, fmt.Errorf("unknown uid %s", name)
		}
	}
	if uid, err = strconv.Atoi(u.Uid); err != nil {
		return 0, 0, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	if gid, err = strconv.Atoi(u.Gid); err != nil {
		return 0, 0, fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}
	return uid, gid, nil
}
