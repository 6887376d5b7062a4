// japicheck reports binary and source API incompatibilities between two
// versions of a Java library.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/japicheck/internal/checker"
	"github.com/phobologic/japicheck/internal/config"
	"github.com/phobologic/japicheck/internal/logging"
	"github.com/phobologic/japicheck/internal/rules"
)

var version = "dev"

// errIncompatible is returned by run when the candidate breaks the
// reference under the fail_on policy. It maps to exit code 1.
var errIncompatible = errors.New("backward incompatible changes found")

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errIncompatible):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

type checkFlags struct {
	config      string
	rules       []string
	exclude     []string
	units       []string
	minSeverity string
	format      string
	failOn      string
	workers     int
	noColor     bool
	verbose     bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "japicheck [flags] <reference> <candidate>",
		Short: "Check a Java library for backward incompatible API changes",
		Long: `Compare a candidate version of a Java library against a reference version
and report every change that breaks code compiled against the reference.

Artifacts are jar/zip archives or directories of .class files (or .java
sources with --units java). Settings are read from japicheck.toml in the
working directory, or from --config; flags and arguments override them.

Exit codes: 0 compatible, 1 incompatible, 2 usage or load error.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&f.config, "config", "c", "", "configuration file (default ./"+config.FileName+" if present)")
	flags.StringSliceVarP(&f.rules, "rules", "r", nil, "comma-separated rules to run (default all, see japicheck rules)")
	flags.StringSliceVarP(&f.exclude, "exclude", "x", nil, "gitignore-style patterns of units to skip")
	flags.StringSliceVar(&f.units, "units", nil, "unit formats to decode: class, java")
	flags.StringVar(&f.minSeverity, "min-severity", "", "lowest severity to display: info, warning, error")
	flags.StringVarP(&f.format, "format", "f", "", "output format: text, toon, json, yaml")
	flags.StringVar(&f.failOn, "fail-on", "", "lowest severity that fails the run: warning, error")
	flags.IntVarP(&f.workers, "workers", "j", 0, "concurrent unit decoders (default number of CPUs)")
	flags.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newInitCmd(stdout, stderr), newRulesCmd(stdout))
	return cmd
}

func runCheck(cmd *cobra.Command, args []string, f checkFlags, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(f.config)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("rules") {
		cfg.Rules = f.rules
	}
	if flags.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, f.exclude...)
	}
	if flags.Changed("units") {
		cfg.Units = f.units
	}
	if flags.Changed("min-severity") {
		cfg.MinSeverity = f.minSeverity
	}
	if flags.Changed("format") {
		cfg.Format = strings.ToLower(f.format)
	}
	if flags.Changed("fail-on") {
		cfg.FailOn = f.failOn
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if len(args) > 0 {
		cfg.Reference = args[0]
	}
	if len(args) > 1 {
		cfg.Candidate = args[1]
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	opts := checker.FromConfig(cfg)
	opts.Out = stdout
	opts.Color = !f.noColor && logging.IsTerminal(stdout)
	opts.Logger = logging.Configure(stderr, f.verbose, os.Getenv)

	res, err := checker.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if res.Incompatible(opts.FailOn) {
		return errIncompatible
	}
	return nil
}

// loadConfig reads path, or ./japicheck.toml when path is empty and the
// file exists, or falls back to the defaults.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if found, ok := config.Find("."); ok {
		return config.Load(found)
	}
	return config.Default(), nil
}

func newRulesCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the available compatibility rules",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			for _, info := range rules.Catalog() {
				if _, err := fmt.Fprintf(stdout, "%-16s %-28s %s\n", info.Name, info.Alias, info.Summary); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
