// Package checker runs one comparison: it loads the reference and candidate
// artifacts, evaluates the configured rules and renders the findings.
package checker

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/japicheck/internal/archive"
	"github.com/phobologic/japicheck/internal/compat"
	"github.com/phobologic/japicheck/internal/config"
	"github.com/phobologic/japicheck/internal/load"
	"github.com/phobologic/japicheck/internal/model"
	"github.com/phobologic/japicheck/internal/report"
	"github.com/phobologic/japicheck/internal/rules"
	"github.com/phobologic/japicheck/internal/toon"
)

// Options configures a run. Options built from a config.Config should go
// through config.Validate first.
type Options struct {
	Reference string
	Candidate string
	Rules     []string
	Units     []string
	Exclude   []string
	// MinSeverity hides lower findings from the rendered output. Counts
	// always cover every finding.
	MinSeverity model.Severity
	FailOn      model.Severity
	// Format is one of the config.Format* names.
	Format  string
	Workers int
	Color   bool
	Out     io.Writer
	Logger  zerolog.Logger
}

// FromConfig maps a validated configuration onto run options.
func FromConfig(cfg config.Config) Options {
	return Options{
		Reference:   cfg.Reference,
		Candidate:   cfg.Candidate,
		Rules:       cfg.Rules,
		Units:       cfg.Units,
		Exclude:     cfg.Exclude,
		MinSeverity: cfg.MinLevel(),
		FailOn:      cfg.FailLevel(),
		Format:      cfg.Format,
		Workers:     cfg.Workers,
	}
}

// Result is the outcome of a run.
type Result struct {
	Counts   report.Counts
	Findings []model.Finding
	Document report.Document
}

// Issues counts the findings at or above failOn.
func (r Result) Issues(failOn model.Severity) int {
	n := r.Counts.Error
	if failOn <= model.Warning {
		n += r.Counts.Warning
	}
	return n
}

// Incompatible reports whether the run fails under the failOn policy.
func (r Result) Incompatible(failOn model.Severity) bool {
	return r.Issues(failOn) > 0
}

// Run compares the candidate artifact against the reference.
func Run(ctx context.Context, opts Options) (Result, error) {
	ruleSet, err := rules.Resolve(opts.Rules)
	if err != nil {
		return Result{}, err
	}
	names := make([]string, len(ruleSet))
	for i, r := range ruleSet {
		names[i] = r.Name()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	log := opts.Logger

	log.Info().
		Str("reference", opts.Reference).
		Str("candidate", opts.Candidate).
		Strs("rules", names).
		Msg("checking backward compatibility")

	ref, cand, err := loadBoth(ctx, opts)
	if err != nil {
		return Result{}, err
	}

	var (
		counter   report.Counter
		collector report.Collector
		text      *report.Text
	)
	sinks := []report.Sink{&counter, &collector}
	if opts.Format == "" || opts.Format == config.FormatText {
		text = report.NewText(out, opts.Color)
		sinks = append(sinks, report.Filter(opts.MinSeverity, text))
	}
	if err := compat.Evaluate(ref, cand, ruleSet, report.Multi(sinks...)); err != nil {
		return Result{}, err
	}

	var shown []model.Finding
	for _, f := range collector.Findings {
		if f.Severity >= opts.MinSeverity {
			shown = append(shown, f)
		}
	}
	res := Result{
		Counts:   counter.Counts(),
		Findings: collector.Findings,
		Document: report.NewDocument(opts.Reference, opts.Candidate, names, shown),
	}
	// Document counts cover the whole run, not only what is shown.
	res.Document.Counts = res.Counts

	if text != nil {
		err = text.Err()
	} else {
		err = render(out, opts.Format, res.Document)
	}
	if err != nil {
		return res, fmt.Errorf("writing report: %w", err)
	}

	if n := res.Issues(opts.FailOn); n > 0 {
		log.Error().Int("errors", res.Counts.Error).Int("warnings", res.Counts.Warning).
			Msgf("You have %d backward compatibility issues.", n)
	} else {
		log.Info().Int("warnings", res.Counts.Warning).Msg("No backward compatibility issue found.")
	}
	return res, nil
}

func loadBoth(ctx context.Context, opts Options) (*model.Registry, *model.Registry, error) {
	lopts := load.Options{
		Scan:    archive.Options{Formats: opts.Units, Exclude: opts.Exclude},
		Workers: opts.Workers,
		Logger:  opts.Logger,
	}
	var ref, cand *model.Registry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ref, _, err = load.Artifact(gctx, opts.Reference, lopts)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cand, _, err = load.Artifact(gctx, opts.Candidate, lopts)
		if err != nil {
			return fmt.Errorf("candidate: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ref, cand, nil
}

func render(w io.Writer, format string, doc report.Document) error {
	switch format {
	case config.FormatTOON:
		_, err := fmt.Fprintln(w, toon.Encode(doc))
		return err
	case config.FormatJSON:
		return doc.WriteJSON(w)
	case config.FormatYAML:
		return doc.WriteYAML(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
