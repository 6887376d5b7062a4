package model

import (
	"fmt"
	"strings"
)

// Severity grades a Finding.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return Info, nil
	case "WARNING", "WARN":
		return Warning, nil
	case "ERROR":
		return Error, nil
	default:
		return Info, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalText renders the severity name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Finding is one severity-graded observation. Findings are values; nothing
// mutates one after it is built.
type Finding struct {
	Severity  Severity
	Message   string
	Rule      string
	Reference Item
	Candidate Item
}

// NewFinding builds a finding for a reference/candidate pair. Either item
// may be nil.
func NewFinding(sev Severity, rule, msg string, ref, cand Item) Finding {
	return Finding{Severity: sev, Message: msg, Rule: rule, Reference: ref, Candidate: cand}
}

// Subject names the type the finding is about, in dotted form.
func (f Finding) Subject() string {
	item := f.Reference
	if item == nil {
		item = f.Candidate
	}
	switch it := item.(type) {
	case *Type:
		return it.DisplayName()
	case *Method:
		return ownerName(it.Owner())
	case *Field:
		return ownerName(it.Owner())
	default:
		return ""
	}
}

func ownerName(t *Type) string {
	if t == nil {
		return ""
	}
	return t.DisplayName()
}

// Member names the member the finding is about, or "" for type-level findings.
func (f Finding) Member() string {
	item := f.Reference
	if item == nil {
		item = f.Candidate
	}
	switch it := item.(type) {
	case *Method:
		return it.Key()
	case *Field:
		return it.Name()
	default:
		return ""
	}
}
