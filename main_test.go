package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/japicheck/internal/archive"
	"github.com/phobologic/japicheck/internal/testutil/classgen"
)

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// createSampleJars writes api-1.0.jar and api-1.1.jar. The newer one makes
// Service.run final and drops Service.stop.
func createSampleJars(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	member := func(access uint16, name string) classgen.Member {
		return classgen.Member{Access: access, Name: name, Desc: "()V"}
	}
	ref := classgen.Class{
		Access:  classgen.Public | classgen.Super,
		Name:    "com/acme/Service",
		Methods: []classgen.Member{member(classgen.Public, "run"), member(classgen.Public, "stop")},
	}
	cand := ref
	cand.Methods = []classgen.Member{member(classgen.Public|classgen.Final, "run")}

	refPath := filepath.Join(dir, "api-1.0.jar")
	candPath := filepath.Join(dir, "api-1.1.jar")
	if err := classgen.WriteJar(refPath, map[string][]byte{"com/acme/Service.class": ref.Bytes()}); err != nil {
		t.Fatal(err)
	}
	if err := classgen.WriteJar(candPath, map[string][]byte{"com/acme/Service.class": cand.Bytes()}); err != nil {
		t.Fatal(err)
	}
	return refPath, candPath
}

func TestRunIncompatible(t *testing.T) {
	t.Parallel()
	ref, cand := createSampleJars(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{ref, cand}, &stdout, &stderr)
	if !errors.Is(err, errIncompatible) {
		t.Fatalf("run: got %v, want errIncompatible\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "com.acme.Service.run(): the method has been made final.") {
		t.Errorf("missing method-final finding:\n%s", out)
	}
	if !strings.Contains(out, "com.acme.Service: Could not find method stop() in newer version.") {
		t.Errorf("missing removed method finding:\n%s", out)
	}
	if strings.Contains(out, "INFO") {
		t.Errorf("info findings should be hidden by default:\n%s", out)
	}
	if !strings.Contains(stderr.String(), "You have 2 backward compatibility issues.") {
		t.Errorf("missing summary log:\n%s", stderr.String())
	}
}

func TestRunCompatible(t *testing.T) {
	t.Parallel()
	ref, _ := createSampleJars(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{ref, ref, "--min-severity", "info"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "INFO    The visibility of the run() method has not changed") {
		t.Errorf("expected info findings:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "No backward compatibility issue found.") {
		t.Errorf("missing summary log:\n%s", stderr.String())
	}
}

func TestRunRulesFlag(t *testing.T) {
	t.Parallel()
	ref, cand := createSampleJars(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--rules", "CheckRemovedMethod", "--format", "toon", ref, cand}, &stdout, &stderr)
	if !errors.Is(err, errIncompatible) {
		t.Fatalf("run: got %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "rules[1]: removed-method") {
		t.Errorf("expected only removed-method:\n%s", out)
	}
	if strings.Contains(out, "method-final") {
		t.Errorf("method-final should not run:\n%s", out)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	ref, _ := createSampleJars(t)
	cfgPath := writeTestFile(t, t.TempDir(), "check.toml",
		"reference = \""+filepath.ToSlash(ref)+"\"\n"+
			"candidate = \""+filepath.ToSlash(ref)+"\"\n"+
			"rules = [\"class-final\"]\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--config", cfgPath}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no findings, got:\n%s", stdout.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	t.Parallel()
	ref, _ := createSampleJars(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing candidate", []string{ref}, "candidate artifact is required"},
		{"too many args", []string{ref, ref, ref}, "accepts at most 2 arg(s)"},
		{"unknown rule", []string{"--rules", "nope", ref, ref}, "unknown rule"},
		{"bad format", []string{"--format", "xml", ref, ref}, "format must be one of"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.toml")}, "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			if err == nil || errors.Is(err, errIncompatible) {
				t.Fatalf("run: got %v, want usage error", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestRunUnreadableArtifact(t *testing.T) {
	t.Parallel()
	ref, _ := createSampleJars(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{ref, filepath.Join(t.TempDir(), "gone.jar")}, &stdout, &stderr)
	if !errors.Is(err, archive.ErrArtifactUnreadable) {
		t.Fatalf("run: got %v, want ErrArtifactUnreadable", err)
	}
}

func TestRunSources(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "old/p/Api.java", "package p; public class Api { public void call(String s) {} }")
	writeTestFile(t, dir, "new/p/Api.java", "package p; public class Api { protected void call(String s) {} }")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--units", "java", filepath.Join(dir, "old"), filepath.Join(dir, "new")}, &stdout, &stderr)
	if !errors.Is(err, errIncompatible) {
		t.Fatalf("run: got %v\nstderr: %s", err, stderr.String())
	}
	want := "The visibility of the call(java.lang.String) method has been changed from public to protected"
	if !strings.Contains(stdout.String(), want) {
		t.Errorf("missing %q in:\n%s", want, stdout.String())
	}
}

func TestRulesCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"rules"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 7 {
		t.Fatalf("got %d rules, want 7:\n%s", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[0], "change-of-scope") {
		t.Errorf("first rule = %q", lines[0])
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "dev") {
		t.Errorf("version output = %q", stdout.String())
	}
}
