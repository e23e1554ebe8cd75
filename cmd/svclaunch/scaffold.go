package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	svclaunch "github.com/axondata/go-svclaunch"
)

// runScaffold creates a service directory with a startup script
func runScaffold(args []string, stdout, stderr io.Writer) error {
	var (
		root        string
		env         []string
		title       string
		description string
		docsURL     string
		help        bool
	)

	flagSet := pflag.NewFlagSet("svclaunch scaffold", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&root, "root", "", "services root (default: <launcher directory>/s)")
	flagSet.StringArrayVar(&env, "env", nil, "KEY=VALUE exported by startup.sh (repeatable)")
	flagSet.StringVar(&title, "title", "", "manifest name (writes manifest.json when set)")
	flagSet.StringVar(&description, "description", "", "manifest description")
	flagSet.StringVar(&docsURL, "docs-url", "", "manifest documentation URL")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printScaffoldHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help {
		printScaffoldHelp(stderr, flagSet)
		return nil
	}

	positional := flagSet.Args()
	dash := flagSet.ArgsLenAtDash()
	if dash < 0 {
		return fmt.Errorf("command required after '--'\n\nusage: svclaunch scaffold NAME -- CMD [ARGS...]")
	}
	if dash != 1 {
		return fmt.Errorf("exactly one service name required before '--', got %d", dash)
	}
	name, command := positional[0], positional[dash:]
	if len(command) == 0 {
		return fmt.Errorf("command required after '--'")
	}

	if root == "" {
		var err error
		root, err = svclaunch.DefaultRoot()
		if err != nil {
			return err
		}
	}

	builder := svclaunch.NewServiceBuilder(name, root).WithCmd(command)
	for _, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--env %q: want KEY=VALUE", kv)
		}
		builder.WithEnv(key, value)
	}
	if title != "" {
		builder.WithManifest(svclaunch.Manifest{
			Name:        title,
			DocsURL:     docsURL,
			Description: description,
		})
	}

	if err := builder.Build(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Created service %q in %s\n", name, builder.Dir())
	return nil
}

func printScaffoldHelp(w io.Writer, flagSet *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, `svclaunch scaffold - create a launchable service directory

Writes <root>/NAME/startup.sh running CMD, and manifest.json when --title
is given.

Usage:
    svclaunch scaffold NAME [flags] -- CMD [ARGS...]

Flags:
%s`, flagSet.FlagUsages())
}
