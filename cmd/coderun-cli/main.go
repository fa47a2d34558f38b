// Command coderun-cli talks to the coderun service. With arguments it runs
// a single command; without, it starts an interactive session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"coderun/internal/cli/command"
	"coderun/internal/cli/config"
	httpclient "coderun/internal/cli/http"
	"coderun/internal/cli/repl"
)

const defaultConfigPath = "configs/coderun_cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout)
	session := repl.New(client, command.Registry(), *cfg.PrettyJSON, os.Stdin, os.Stdout)
	if flag.NArg() == 0 {
		session.Run(context.Background())
		return
	}
	if err := session.Exec(context.Background(), joinArgs(flag.Args())); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// joinArgs re-quotes shell-split arguments so the session can split them again.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = quoteArg(arg)
	}
	return strings.Join(quoted, " ")
}

func quoteArg(arg string) string {
	if !strings.ContainsAny(arg, " \t\n\"'\\#") {
		return arg
	}
	if !strings.Contains(arg, "'") {
		return "'" + arg + "'"
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(arg)
	return `"` + escaped + `"`
}
