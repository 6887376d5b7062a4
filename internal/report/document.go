package report

import (
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/japicheck/internal/model"
)

// Entry is the flattened form of a finding used in documents.
type Entry struct {
	Severity string `json:"severity" yaml:"severity"`
	Rule     string `json:"rule" yaml:"rule"`
	Subject  string `json:"subject" yaml:"subject"`
	Member   string `json:"member,omitempty" yaml:"member,omitempty"`
	Message  string `json:"message" yaml:"message"`
}

// Document is the structured result of one comparison run.
type Document struct {
	RunID     string   `json:"run_id" yaml:"run_id"`
	Reference string   `json:"reference" yaml:"reference"`
	Candidate string   `json:"candidate" yaml:"candidate"`
	Rules     []string `json:"rules" yaml:"rules"`
	Counts    Counts   `json:"counts" yaml:"counts"`
	Findings  []Entry  `json:"findings" yaml:"findings"`
}

// NewDocument builds a document with a fresh run id. Counts cover every
// finding given.
func NewDocument(reference, candidate string, rules []string, findings []model.Finding) Document {
	doc := Document{
		RunID:     uuid.NewString(),
		Reference: reference,
		Candidate: candidate,
		Rules:     rules,
		Findings:  make([]Entry, 0, len(findings)),
	}
	var c Counter
	for _, f := range findings {
		c.Report(f)
		doc.Findings = append(doc.Findings, Entry{
			Severity: f.Severity.String(),
			Rule:     f.Rule,
			Subject:  f.Subject(),
			Member:   f.Member(),
			Message:  f.Message,
		})
	}
	doc.Counts = c.Counts()
	return doc
}

// WriteJSON writes d as indented JSON.
func (d Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteYAML writes d as YAML.
func (d Document) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}
