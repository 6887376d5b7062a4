// Package toon implements TOON (Token-Oriented Object Notation) encoding.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/japicheck/internal/report"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Encode converts a report document into TOON format.
func Encode(doc report.Document) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("run: %s", encodeValue(doc.RunID)))
	parts = append(parts, fmt.Sprintf("reference: %s", encodeValue(doc.Reference)))
	parts = append(parts, fmt.Sprintf("candidate: %s", encodeValue(doc.Candidate)))
	parts = append(parts, formatList("rules", doc.Rules))

	parts = append(parts, formatTabular("counts", []string{"info", "warning", "error"}, [][]string{{
		strconv.Itoa(doc.Counts.Info),
		strconv.Itoa(doc.Counts.Warning),
		strconv.Itoa(doc.Counts.Error),
	}}))

	var rows [][]string
	for i := range doc.Findings {
		e := &doc.Findings[i]
		rows = append(rows, []string{e.Severity, e.Rule, e.Subject, e.Member, e.Message})
	}
	parts = append(parts, formatTabular("findings", []string{"severity", "rule", "subject", "member", "message"}, rows))

	return strings.Join(parts, "\n")
}

func formatList(name string, values []string) string {
	encoded := make([]string, len(values))
	for i, v := range values {
		encoded[i] = encodeValue(v)
	}
	return fmt.Sprintf("%s[%d]: %s", name, len(values), strings.Join(encoded, ","))
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
