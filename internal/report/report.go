// Package report delivers findings to sinks: human-readable text, counters
// that decide pass or fail, and structured documents.
package report

import "github.com/phobologic/japicheck/internal/model"

// Sink accepts findings. Sinks are used from a single goroutine.
type Sink interface {
	Report(f model.Finding)
}

// Func adapts a function to a Sink.
type Func func(model.Finding)

func (fn Func) Report(f model.Finding) { fn(f) }

// Multi fans every finding out to each sink, in order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Report(f model.Finding) {
	for _, s := range m {
		s.Report(f)
	}
}

// Filter forwards findings of at least threshold severity to next.
func Filter(threshold model.Severity, next Sink) Sink {
	return Func(func(f model.Finding) {
		if f.Severity >= threshold {
			next.Report(f)
		}
	})
}

// Counts tallies findings by severity.
type Counts struct {
	Info    int `json:"info" yaml:"info"`
	Warning int `json:"warning" yaml:"warning"`
	Error   int `json:"error" yaml:"error"`
}

// Total is the number of findings counted.
func (c Counts) Total() int { return c.Info + c.Warning + c.Error }

// Of returns the count for one severity.
func (c Counts) Of(sev model.Severity) int {
	switch sev {
	case model.Info:
		return c.Info
	case model.Warning:
		return c.Warning
	case model.Error:
		return c.Error
	default:
		return 0
	}
}

// Counter is a sink that counts findings by severity.
type Counter struct {
	counts Counts
}

func (c *Counter) Report(f model.Finding) {
	switch f.Severity {
	case model.Info:
		c.counts.Info++
	case model.Warning:
		c.counts.Warning++
	case model.Error:
		c.counts.Error++
	}
}

// Counts returns the tally so far.
func (c *Counter) Counts() Counts { return c.counts }

// HasIssues reports whether any ERROR finding was counted.
func (c *Counter) HasIssues() bool { return c.counts.Error > 0 }

// Collector is a sink that keeps every finding in arrival order.
type Collector struct {
	Findings []model.Finding
}

func (c *Collector) Report(f model.Finding) { c.Findings = append(c.Findings, f) }
