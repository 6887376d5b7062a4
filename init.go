package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phobologic/japicheck/internal/config"
	"github.com/phobologic/japicheck/internal/format"
	"github.com/phobologic/japicheck/internal/rules"
)

const (
	sentinelStart = "# japicheck:start"
	sentinelEnd   = "# japicheck:end"
)

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter " + config.FileName,
		Long: `Write a starter configuration file listing every setting with its default.

A reference block of comments describing the available rules and formats is
wrapped in sentinel lines, so running init again refreshes it in place
without touching your settings. path defaults to ./` + config.FileName + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// runInit writes (or refreshes) the starter configuration at path.
func runInit(path string, dryRun bool, stdout, stderr io.Writer) error {
	existing, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		existing, err = starterConfig()
		if err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("reading %s: %w", path, err)
	}

	updated := applySection(string(existing), generateSection())

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote japicheck configuration to %s\n", path)
	return nil
}

// starterConfig is the default configuration with empty artifact paths.
func starterConfig() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Paths to the reference (old) and candidate (new) artifacts: jars,\n")
	buf.WriteString("# zips or directories.\n")
	if err := config.Encode(&buf, config.Default()); err != nil {
		return nil, fmt.Errorf("encoding starter config: %w", err)
	}
	return buf.Bytes(), nil
}

// generateSection returns the sentinel-wrapped reference comments.
func generateSection() string {
	var b strings.Builder
	b.WriteString(sentinelStart + "\n")
	b.WriteString("# Rules run in the order listed in `rules`. Each accepts its short\n")
	b.WriteString("# name, its legacy alias or com.googlecode.japi.checker.rules.<Alias>.\n")
	b.WriteString("#\n")
	for _, info := range rules.Catalog() {
		fmt.Fprintf(&b, "#   %-16s %-28s %s\n", info.Name, info.Alias, info.Summary)
	}
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# units:        %s\n", strings.Join(format.Names(), ", "))
	fmt.Fprintf(&b, "# format:       %s, %s, %s, %s\n", config.FormatText, config.FormatTOON, config.FormatJSON, config.FormatYAML)
	b.WriteString("# min_severity: info, warning, error\n")
	b.WriteString("# fail_on:      warning, error\n")
	b.WriteString("# exclude:      gitignore-style patterns, also read from .japicheckignore\n")
	b.WriteString(sentinelEnd)
	return b.String()
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
