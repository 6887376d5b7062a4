package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/japicheck/internal/archive"
	"github.com/phobologic/japicheck/internal/config"
	"github.com/phobologic/japicheck/internal/model"
	"github.com/phobologic/japicheck/internal/report"
	"github.com/phobologic/japicheck/internal/rules"
	"github.com/phobologic/japicheck/internal/testutil/classgen"
)

func service(access uint16, methods ...classgen.Member) []byte {
	return classgen.Class{Access: access, Name: "com/acme/Service", Methods: methods}.Bytes()
}

func pub(name, desc string) classgen.Member {
	return classgen.Member{Access: classgen.Public, Name: name, Desc: desc}
}

// jars writes a reference and a candidate jar and returns their paths.
func jars(t *testing.T, ref, cand map[string][]byte) (string, string) {
	t.Helper()
	dir := t.TempDir()
	refPath := filepath.Join(dir, "api-1.0.jar")
	candPath := filepath.Join(dir, "api-1.1.jar")
	require.NoError(t, classgen.WriteJar(refPath, ref))
	require.NoError(t, classgen.WriteJar(candPath, cand))
	return refPath, candPath
}

func options(ref, cand string, out *bytes.Buffer, logs *bytes.Buffer) Options {
	cfg := config.Default()
	cfg.Reference = ref
	cfg.Candidate = cand
	opts := FromConfig(cfg)
	opts.Out = out
	opts.Logger = zerolog.New(logs)
	return opts
}

func TestRunCompatible(t *testing.T) {
	t.Parallel()

	lib := map[string][]byte{"com/acme/Service.class": service(classgen.Public|classgen.Super, pub("run", "(I)V"))}
	ref, cand := jars(t, lib, lib)

	var out, logs bytes.Buffer
	res, err := Run(context.Background(), options(ref, cand, &out, &logs))
	require.NoError(t, err)

	assert.False(t, res.Incompatible(model.Error))
	assert.Zero(t, res.Counts.Error)
	// type + method, both unchanged visibility
	assert.Equal(t, 2, res.Counts.Info)
	assert.Empty(t, out.String(), "info findings are below the default threshold")
	assert.Contains(t, logs.String(), "No backward compatibility issue found.")
}

func TestRunIncompatible(t *testing.T) {
	t.Parallel()

	ref, cand := jars(t,
		map[string][]byte{
			"com/acme/Service.class": service(classgen.Public|classgen.Super, pub("run", "(I)V"), pub("stop", "()V")),
			"com/acme/Gone.class":    classgen.Class{Access: classgen.Public, Name: "com/acme/Gone"}.Bytes(),
		},
		map[string][]byte{
			"com/acme/Service.class": service(classgen.Public|classgen.Super|classgen.Final, pub("run", "(I)V")),
		},
	)

	var out, logs bytes.Buffer
	res, err := Run(context.Background(), options(ref, cand, &out, &logs))
	require.NoError(t, err)

	assert.True(t, res.Incompatible(model.Error))
	assert.Equal(t, 3, res.Counts.Error)
	assert.Equal(t, 3, res.Issues(model.Error))
	assert.Len(t, res.Findings, res.Counts.Total())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"ERROR   Could not find class com.acme.Gone in newer version.",
		"ERROR   The class com.acme.Service has been made final, this breaks inheritance.",
		"ERROR   com.acme.Service: Could not find method stop() in newer version.",
	}, lines)
	assert.Contains(t, logs.String(), "You have 3 backward compatibility issues.")
}

func TestRunFailOnWarning(t *testing.T) {
	t.Parallel()

	ref, cand := jars(t,
		map[string][]byte{"com/acme/Service.class": service(classgen.Public, classgen.Member{Access: classgen.Protected, Name: "run", Desc: "()V"})},
		map[string][]byte{"com/acme/Service.class": service(classgen.Public, pub("run", "()V"))},
	)

	var out, logs bytes.Buffer
	opts := options(ref, cand, &out, &logs)
	opts.FailOn = model.Warning
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Counts.Warning)
	assert.False(t, res.Incompatible(model.Error))
	assert.True(t, res.Incompatible(model.Warning))
	assert.Contains(t, out.String(), "WARNING The visibility of the run() method has been changed from protected to public")
	assert.Contains(t, logs.String(), "You have 1 backward compatibility issues.")
}

func TestRunStructuredFormats(t *testing.T) {
	t.Parallel()

	ref, cand := jars(t,
		map[string][]byte{"com/acme/Service.class": service(classgen.Public, pub("run", "()V"))},
		map[string][]byte{"com/acme/Service.class": service(classgen.Public)},
	)

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var out, logs bytes.Buffer
		opts := options(ref, cand, &out, &logs)
		opts.Format = config.FormatJSON
		_, err := Run(context.Background(), opts)
		require.NoError(t, err)

		var doc report.Document
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.NotEmpty(t, doc.RunID)
		assert.Equal(t, rules.Names(), doc.Rules)
		assert.Equal(t, 1, doc.Counts.Error)
		assert.Equal(t, 1, doc.Counts.Info)
		require.Len(t, doc.Findings, 1)
		assert.Equal(t, "engine", doc.Findings[0].Rule)
		assert.Equal(t, "com.acme.Service", doc.Findings[0].Subject)
		assert.Equal(t, "run()", doc.Findings[0].Member)
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		var out, logs bytes.Buffer
		opts := options(ref, cand, &out, &logs)
		opts.Format = config.FormatYAML
		opts.MinSeverity = model.Info
		_, err := Run(context.Background(), opts)
		require.NoError(t, err)

		var doc report.Document
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
		assert.Len(t, doc.Findings, 2)
	})

	t.Run("toon", func(t *testing.T) {
		t.Parallel()
		var out, logs bytes.Buffer
		opts := options(ref, cand, &out, &logs)
		opts.Format = config.FormatTOON
		_, err := Run(context.Background(), opts)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "counts[1]{info,warning,error}:\n  1,0,1")
		assert.Contains(t, out.String(), "findings[1]{severity,rule,subject,member,message}:")
	})
}

func TestRunSelectedRules(t *testing.T) {
	t.Parallel()

	ref, cand := jars(t,
		map[string][]byte{"com/acme/Service.class": service(classgen.Public, pub("run", "()V"))},
		map[string][]byte{"com/acme/Service.class": service(classgen.Public|classgen.Abstract, classgen.Member{Access: classgen.Public | classgen.Final, Name: "run", Desc: "()V"})},
	)

	var out, logs bytes.Buffer
	opts := options(ref, cand, &out, &logs)
	opts.Rules = []string{"com.googlecode.japi.checker.rules.CheckMethodChangedToStatic"}
	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "method-final", res.Findings[0].Rule)
	assert.Equal(t, []string{"method-final"}, res.Document.Rules)
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	lib := map[string][]byte{"com/acme/Service.class": service(classgen.Public)}
	ref, cand := jars(t, lib, lib)

	var out, logs bytes.Buffer
	opts := options(ref, cand, &out, &logs)
	opts.Rules = []string{"no-such-rule"}
	_, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, rules.ErrUnknownRule)

	opts = options(ref, filepath.Join(t.TempDir(), "missing.jar"), &out, &logs)
	_, err = Run(context.Background(), opts)
	assert.ErrorIs(t, err, archive.ErrArtifactUnreadable)
	assert.ErrorContains(t, err, "candidate")

	broken := filepath.Join(t.TempDir(), "broken.jar")
	require.NoError(t, classgen.WriteJar(broken, map[string][]byte{"A.class": []byte("not a class")}))
	out.Reset()
	opts = options(broken, cand, &out, &logs)
	opts.MinSeverity = model.Info
	res, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, model.ErrMalformedUnit)
	assert.ErrorContains(t, err, "reference")
	assert.Empty(t, out.String(), "no finding is reported when a unit fails to decode")
	assert.Empty(t, res.Findings)
}
