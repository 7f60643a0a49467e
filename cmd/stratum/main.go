package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/stratum/internal/config"
	"github.com/dusk-indust/stratum/internal/project"
)

// version is set by goreleaser at build time.
var version = "dev"

// CLI flags shared by every command.
type cliFlags struct {
	Dir       string
	LogLevel  string
	LogFormat string
	ServeMCP  bool
	Version   bool
}

// app carries the global flags and output streams into commands.
type app struct {
	flags  cliFlags
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"merge", "merge the hierarchy into the target", runMerge},
	{"status", "compare the target with the last merge and the sources", runStatus},
	{"mergers", "list mergers, their settings and the file bindings", runMergers},
	{"explain", "show which sources produced an output file", runExplain},
	{"export", "write a JSON report of a merge", runExport},
	{"diagram", "print a Mermaid diagram of sources and outputs", runDiagram},
	{"watch", "merge again whenever a source changes", runWatch},
	{"init", "write a starter stratum.yaml", runInit},
}

// exitError carries a process exit code. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
			if ee.err == nil {
				os.Exit(code)
			}
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(code)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}

	fs := pflag.NewFlagSet("stratum", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVarP(&a.flags.Dir, "dir", "C", ".", "directory holding stratum.yaml")
	fs.StringVar(&a.flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&a.flags.LogFormat, "log-format", "", "log format: text or json (overrides config)")
	fs.BoolVar(&a.flags.ServeMCP, "serve-mcp", false, "run as an MCP server on stdio")
	fs.BoolVar(&a.flags.Version, "version", false, "print version and exit")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: 2, err: err}
	}

	if a.flags.Version {
		fmt.Fprintln(stdout, version)
		return nil
	}
	if a.flags.ServeMCP {
		return runServeMCP(ctx, a)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr, fs)
		return &exitError{code: 2}
	}
	for _, c := range commands {
		if c.name == rest[0] {
			return c.run(ctx, a, rest[1:])
		}
	}
	return &exitError{code: 2, err: fmt.Errorf("unknown command %q (run 'stratum --help')", rest[0])}
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "stratum merges layered agent configuration into one target directory.\n\n")
	fmt.Fprintf(w, "Usage: stratum [flags] <command> [command flags]\n\nCommands:\n")
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	sort.Strings(names)
	for _, n := range names {
		for _, c := range commands {
			if c.name == n {
				fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
			}
		}
	}
	fmt.Fprintf(w, "\nFlags:\n%s", fs.FlagUsages())
}

// newFlagSet returns a subcommand flag set writing usage to stderr.
func (a *app) newFlagSet(name, args string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "Usage: stratum %s %s\n\n%s", name, args, fs.FlagUsages())
	}
	return fs
}

// parse parses a subcommand's flags. Help is reported as a silent exit.
func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return &exitError{code: 0}
		}
		return &exitError{code: 2, err: err}
	}
	return nil
}

// load reads the config and builds its logger, applying flag overrides.
func (a *app) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.flags.Dir)
	if err != nil {
		return nil, nil, err
	}
	if a.flags.LogLevel != "" {
		cfg.Log.Level = a.flags.LogLevel
	}
	if a.flags.LogFormat != "" {
		cfg.Log.Format = a.flags.LogFormat
	}
	logger, err := cfg.Logger(a.stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// open loads the config and builds the project. The caller must Close it.
func (a *app) open(ctx context.Context, opts ...project.Option) (*project.Project, error) {
	cfg, logger, err := a.load()
	if err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("no %s found in %s (run 'stratum init' to create one)",
			strings.Join(config.FileNames, " or "), a.flags.Dir)
	}
	return project.FromConfig(ctx, cfg, logger, opts...)
}
