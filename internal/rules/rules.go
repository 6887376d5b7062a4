// Package rules is the catalog of compatibility rules and the name lookup
// that turns configured rule identifiers into rule instances.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phobologic/japicheck/internal/compat"
)

// ErrUnknownRule is returned by Lookup for a name not in the catalog.
var ErrUnknownRule = errors.New("unknown rule")

// legacyPackage prefixes the fully-qualified legacy rule class names that
// Lookup still accepts in configuration.
const legacyPackage = "com.googlecode.japi.checker.rules."

// Info describes one catalog entry.
type Info struct {
	Name    string
	Alias   string
	Summary string
}

type entry struct {
	Info
	rule compat.Rule
}

var catalog = []entry{
	{Info{"change-of-scope", "CheckChangeOfScope", "visibility narrowed (error), unchanged (info) or widened (warning)"}, ScopeChange{}},
	{Info{"field-static", "CheckFieldChangeToStatic", "reachable field became static or stopped being static"}, FieldStatic{}},
	{Info{"method-final", "CheckMethodChangedToStatic", "method became final"}, MethodFinal{}},
	{Info{"class-abstract", "ClassChangedToAbstract", "type became abstract"}, ClassAbstract{}},
	{Info{"class-final", "ClassChangedToFinal", "type became final"}, ClassFinal{}},
	{Info{"removed-field", "CheckRemovedField", "non-private field removed"}, compat.RemovedFieldRule{}},
	{Info{"removed-method", "CheckRemovedMethod", "non-private method removed"}, compat.RemovedMethodRule{}},
}

// Default returns every catalog rule in catalog order.
func Default() []compat.Rule {
	out := make([]compat.Rule, len(catalog))
	for i, e := range catalog {
		out[i] = e.rule
	}
	return out
}

// Catalog describes every rule in catalog order.
func Catalog() []Info {
	out := make([]Info, len(catalog))
	for i, e := range catalog {
		out[i] = e.Info
	}
	return out
}

// Names returns the short names of every rule in catalog order.
func Names() []string {
	out := make([]string, len(catalog))
	for i, e := range catalog {
		out[i] = e.Name
	}
	return out
}

// Lookup resolves a rule by short name, legacy alias or fully-qualified
// legacy class name.
func Lookup(name string) (compat.Rule, error) {
	key := strings.TrimPrefix(strings.TrimSpace(name), legacyPackage)
	for _, e := range catalog {
		if key == e.Name || key == e.Alias {
			return e.rule, nil
		}
	}
	return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownRule, name, strings.Join(Names(), ", "))
}

// Resolve looks up each name in order. An empty list means Default().
func Resolve(names []string) ([]compat.Rule, error) {
	if len(names) == 0 {
		return Default(), nil
	}
	out := make([]compat.Rule, 0, len(names))
	for _, n := range names {
		r, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
