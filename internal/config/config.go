// Package config loads and validates japicheck.toml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/phobologic/japicheck/internal/format"
	"github.com/phobologic/japicheck/internal/model"
	"github.com/phobologic/japicheck/internal/rules"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "japicheck.toml"

// Output formats.
const (
	FormatText = "text"
	FormatTOON = "toon"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var formats = []string{FormatText, FormatTOON, FormatJSON, FormatYAML}

// Config is one comparison run's configuration.
type Config struct {
	Reference   string   `toml:"reference"`
	Candidate   string   `toml:"candidate"`
	Rules       []string `toml:"rules"`
	Exclude     []string `toml:"exclude"`
	Units       []string `toml:"units"`
	MinSeverity string   `toml:"min_severity"`
	Format      string   `toml:"format"`
	FailOn      string   `toml:"fail_on"`
	Workers     int      `toml:"workers"`
}

// Default returns the built-in configuration: every rule, class units,
// warnings and errors displayed, failing on errors.
func Default() Config {
	return Config{
		Rules:       rules.Names(),
		Units:       []string{"class"},
		MinSeverity: "warning",
		Format:      FormatText,
		FailOn:      "error",
	}
}

// Load reads path over Default(). Keys absent from the file keep their
// default; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Find returns the path of FileName in dir if it exists.
func Find(dir string) (string, bool) {
	path := filepath.Join(dir, FileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Validate checks every value. Missing artifacts are reported here as well.
func Validate(cfg Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Reference) == "" {
		errs = append(errs, errors.New("reference artifact is required"))
	}
	if strings.TrimSpace(cfg.Candidate) == "" {
		errs = append(errs, errors.New("candidate artifact is required"))
	}
	if _, err := rules.Resolve(cfg.Rules); err != nil {
		errs = append(errs, err)
	}
	for _, u := range cfg.Units {
		if _, ok := format.Lookup(u); !ok {
			errs = append(errs, fmt.Errorf("unknown unit format %q (known: %s)", u, strings.Join(format.Names(), ", ")))
		}
	}
	if _, err := model.ParseSeverity(cfg.MinSeverity); err != nil {
		errs = append(errs, fmt.Errorf("min_severity: %w", err))
	}
	if !slices.Contains(formats, cfg.Format) {
		errs = append(errs, fmt.Errorf("format must be one of %s, got %q", strings.Join(formats, ", "), cfg.Format))
	}
	if sev, err := model.ParseSeverity(cfg.FailOn); err != nil || sev == model.Info {
		errs = append(errs, fmt.Errorf("fail_on must be error or warning, got %q", cfg.FailOn))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", cfg.Workers))
	}
	return errors.Join(errs...)
}

// MinLevel is the parsed display threshold. Validate first.
func (c Config) MinLevel() model.Severity {
	sev, _ := model.ParseSeverity(c.MinSeverity)
	return sev
}

// FailLevel is the parsed failure threshold. Validate first.
func (c Config) FailLevel() model.Severity {
	sev, err := model.ParseSeverity(c.FailOn)
	if err != nil {
		return model.Error
	}
	return sev
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}
