// Command blog-fixtures prepares the blog application for manual debugging
// of the browser scenarios. It uses the same configuration and fixture data
// as the suite.
//
// Usage:
//
//	BLOG_E2E_BASE_URL=http://localhost:5173 go run ./cmd/blog-fixtures reset
//	BLOG_E2E_BASE_URL=http://localhost:5173 go run ./cmd/blog-fixtures seed
//	go run ./cmd/blog-fixtures config
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/kuitang/bloglist-e2e/internal/config"
	"github.com/kuitang/bloglist-e2e/internal/fixture"
	"github.com/kuitang/bloglist-e2e/internal/obs"
	"github.com/kuitang/bloglist-e2e/internal/urlutil"
)

// command is one parsed invocation.
type command struct {
	Name    string
	Users   int // seed: how many fixture users to register, 0 means all
	Timeout time.Duration
}

var commands = []string{"reset", "seed", "config"}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, fmt.Errorf("missing command, want one of %s", strings.Join(commands, ", "))
	}
	cmd := command{Name: args[0]}
	known := false
	for _, name := range commands {
		if name == cmd.Name {
			known = true
		}
	}
	if !known {
		return command{}, fmt.Errorf("unknown command %q, want one of %s", cmd.Name, strings.Join(commands, ", "))
	}

	fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cmd.Users, "users", 0, "number of fixture users to register (seed only)")
	fs.DurationVar(&cmd.Timeout, "timeout", 30*time.Second, "overall deadline")
	if err := fs.Parse(args[1:]); err != nil {
		return command{}, err
	}
	if fs.NArg() > 0 {
		return command{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if cmd.Users < 0 {
		return command{}, fmt.Errorf("-users must not be negative")
	}
	if cmd.Timeout <= 0 {
		return command{}, fmt.Errorf("-timeout must be positive")
	}
	return cmd, nil
}

// seedUsers returns the first n users of data, or all of them when n is 0.
func seedUsers(data fixture.Data, n int) []fixture.User {
	if n == 0 || n > len(data.Users) {
		return data.Users
	}
	return data.Users[:n]
}

func main() {
	obs.Init()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "blog-fixtures:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cmd, err := parseCommand(args)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	if cmd.Name == "config" {
		fmt.Fprintf(out, "base url:   %s\n", urlutil.Redact(cfg.BaseURL))
		fmt.Fprintf(out, "api url:    %s\n", urlutil.Redact(cfg.APIURL))
		fmt.Fprintf(out, "browser:    %s (headless=%t)\n", cfg.Browser, cfg.Headless)
		fmt.Fprintf(out, "timeouts:   action=%s assert=%s\n", cfg.ActionTimeout, cfg.AssertTimeout)
		if cfg.BrowserEnabled() {
			fmt.Fprintln(out, "scenarios:  enabled")
		} else {
			fmt.Fprintln(out, "scenarios:  skipped (BLOG_E2E_BASE_URL not set)")
		}
		return nil
	}
	if !cfg.BrowserEnabled() {
		return fmt.Errorf("BLOG_E2E_BASE_URL is not set")
	}

	data, err := fixture.Load(cfg.FixturesFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()
	ctx = obs.WithCorrelation(ctx, obs.Correlation{RunID: obs.NewRunID(), Scenario: "blog-fixtures " + cmd.Name})

	client := fixture.NewClient(fixture.Options{
		APIURL:  cfg.APIURL,
		RPS:     cfg.SetupRPS,
		Burst:   cfg.SetupBurst,
		Timeout: cfg.ActionTimeout,
	})
	defer client.Close()

	switch cmd.Name {
	case "reset":
		if err := client.Reset(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "backend reset")
	case "seed":
		users := seedUsers(data, cmd.Users)
		if err := client.ResetAndRegister(ctx, users...); err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(out, "registered %s (%s)\n", u.Username, u.Name)
		}
	}
	return nil
}
