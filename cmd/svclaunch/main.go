// svclaunch starts every service under a services root and exits.
//
// Usage:
//
//	svclaunch [flags]
//	svclaunch scaffold NAME [--root DIR] [--env KEY=VALUE]... -- CMD [ARGS...]
//
// With no flags it starts <directory of svclaunch>/s/*/startup.sh with
// /bin/sh, printing "Starting service: <path>" for each service directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	svclaunch "github.com/axondata/go-svclaunch"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// launchFlags holds command-line values; only flags the user set override
// the config file.
type launchFlags struct {
	configPath string
	root       string
	shell      string
	runAs      string
	recordFile string
	watch      bool
	failFast   bool
	noDetach   bool
	logLevel   string
	logFormat  string
	version    bool
	help       bool
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "scaffold" {
		return runScaffold(args[1:], stdout, stderr)
	}

	var f launchFlags
	flagSet := pflag.NewFlagSet("svclaunch", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&f.configPath, "config", "", "path to YAML config file")
	flagSet.StringVar(&f.root, "root", "", "services root (default: <launcher directory>/s)")
	flagSet.StringVar(&f.shell, "shell", svclaunch.DefaultShell, "interpreter for startup scripts")
	flagSet.StringVar(&f.runAs, "run-as", "", "account to run services as (default: inherit)")
	flagSet.StringVar(&f.recordFile, "record", "", "append a JSON line per spawned process to this file")
	flagSet.BoolVar(&f.watch, "watch", false, "keep running and start services as they appear")
	flagSet.BoolVar(&f.failFast, "fail-fast", false, "stop at the first spawn failure")
	flagSet.BoolVar(&f.noDetach, "no-detach", false, "keep services in the launcher's process group")
	flagSet.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.StringVar(&f.logFormat, "log-format", svclaunch.LogFormatText, "log format: text or json")
	flagSet.BoolVar(&f.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&f.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}

	if f.help {
		printHelp(stderr, flagSet)
		return nil
	}
	if f.version {
		info := svclaunch.GetVersion()
		_, _ = fmt.Fprintf(stdout, "svclaunch %s (layout %s)\n", info.Version, info.Layout)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := loadConfig(flagSet, &f)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	root := cfg.ServicesRoot
	if root == "" {
		root, err = svclaunch.DefaultRoot()
		if err != nil {
			return err
		}
	}

	opts := append(cfg.Options(),
		svclaunch.WithLogger(logger),
		svclaunch.WithStatusWriter(stdout),
	)
	launcher, err := svclaunch.New(root, opts...)
	if err != nil {
		return err
	}

	var report *svclaunch.Report
	if cfg.Watch {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		report, err = launcher.Watch(ctx)
	} else {
		report, err = launcher.Run(context.Background())
	}

	if report != nil {
		logger.Debug("launcher finished",
			"root", launcher.Root,
			"run_id", report.RunID,
			"spawned", len(report.Spawned),
			"skipped", len(report.Skipped),
		)
	}

	return err
}

// loadConfig reads the config file, if any, and applies explicitly set flags over it
func loadConfig(flagSet *pflag.FlagSet, f *launchFlags) (*svclaunch.Config, error) {
	cfg := svclaunch.DefaultConfig()
	if f.configPath != "" {
		loaded, err := svclaunch.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flagSet.Changed("root") {
		cfg.ServicesRoot = f.root
	}
	if flagSet.Changed("shell") {
		cfg.Shell = f.shell
	}
	if flagSet.Changed("run-as") {
		cfg.RunAs = f.runAs
	}
	if flagSet.Changed("record") {
		cfg.RecordFile = f.recordFile
	}
	if flagSet.Changed("watch") {
		cfg.Watch = f.watch
	}
	if flagSet.Changed("fail-fast") {
		cfg.FailFast = f.failFast
	}
	if flagSet.Changed("no-detach") {
		detach := !f.noDetach
		cfg.Detach = &detach
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *svclaunch.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, svclaunch.LogFormatJSON) {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, `svclaunch - start every service under a services root

Each directory under the root whose name does not start with "." and that
contains startup.sh has the script run once, detached, with the service
directory as working directory. svclaunch does not supervise the services.

Usage:
    svclaunch [flags]
    svclaunch scaffold NAME [--root DIR] [--env KEY=VALUE]... -- CMD [ARGS...]

Flags:
%s`, flagSet.FlagUsages())
}
