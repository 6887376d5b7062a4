// Package compat is the compatibility rule engine. It matches the types and
// members of a reference model set against a candidate set by identity and
// evaluates rules on every matched pair.
//
// The diff is reference-driven: anything only present in the candidate is
// an addition and never a finding.
package compat

import (
	"fmt"

	"github.com/phobologic/japicheck/internal/descriptor"
	"github.com/phobologic/japicheck/internal/model"
	"github.com/phobologic/japicheck/internal/report"
)

// EngineRule is the rule name stamped on findings the engine produces
// itself.
const EngineRule = "engine"

// Rule checks one matched reference/candidate pair. Both items are of the
// same variant. A rule that does not apply to the variant returns nil.
// Rules must not modify the items.
type Rule interface {
	Name() string
	Check(ref, cand model.Item) []model.Finding
}

// builtin is implemented by rules whose findings the engine already
// produces during member matching.
type builtin interface {
	engineBuiltin()
}

// Evaluate compares ref against cand, sending findings to sink. Rules run in
// order on every matched pair; nothing short-circuits. The only error is a
// model that fails validation, reported before any finding is emitted.
func Evaluate(ref, cand *model.Registry, rules []Rule, sink report.Sink) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := cand.Validate(); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}

	active := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if _, ok := r.(builtin); ok {
			continue
		}
		active = append(active, r)
	}
	e := &engine{rules: active, sink: sink}

	for _, name := range ref.Names() {
		rt, _ := ref.Lookup(name)
		ct, ok := cand.Lookup(name)
		if !ok {
			sink.Report(RemovedType(rt))
			continue
		}
		e.types(rt, ct)
	}
	return nil
}

type engine struct {
	rules []Rule
	sink  report.Sink
}

func (e *engine) check(ref, cand model.Item) {
	for _, r := range e.rules {
		for _, f := range r.Check(ref, cand) {
			if f.Rule == "" {
				f.Rule = r.Name()
			}
			e.sink.Report(f)
		}
	}
}

func (e *engine) types(rt, ct *model.Type) {
	e.check(rt, ct)

	for _, rf := range rt.Fields() {
		cf := ct.Field(rf.Name())
		if cf == nil {
			if f, ok := removedField(rf); ok {
				e.sink.Report(f)
			}
			continue
		}
		e.check(rf, cf)
	}

	for _, rm := range rt.Methods() {
		// A bridge sharing its key with a declared method is matched once,
		// through the declared method.
		if rt.Method(rm.Key()) != rm {
			continue
		}
		cm := ct.Method(rm.Key())
		if cm == nil {
			if f, ok := removedMethod(rt, rm); ok {
				e.sink.Report(f)
			}
			continue
		}
		e.check(rm, cm)
	}
}

// RemovedType is the finding for a reference type missing from the
// candidate.
func RemovedType(t *model.Type) model.Finding {
	msg := fmt.Sprintf("Could not find %s %s in newer version.", t.Label(), t.DisplayName())
	return model.NewFinding(model.Error, EngineRule, msg, t, nil)
}

// RemovedFields reports each non-private field of ref missing from cand.
func RemovedFields(ref, cand *model.Type) []model.Finding {
	var out []model.Finding
	for _, rf := range ref.Fields() {
		if cand.Field(rf.Name()) != nil {
			continue
		}
		if f, ok := removedField(rf); ok {
			out = append(out, f)
		}
	}
	return out
}

// RemovedMethods reports each non-private method of ref missing from cand.
func RemovedMethods(ref, cand *model.Type) []model.Finding {
	var out []model.Finding
	for _, rm := range ref.Methods() {
		if ref.Method(rm.Key()) != rm || cand.Method(rm.Key()) != nil {
			continue
		}
		if f, ok := removedMethod(ref, rm); ok {
			out = append(out, f)
		}
	}
	return out
}

// Private members are not part of the binary contract.
func removedField(f *model.Field) (model.Finding, bool) {
	if f.Visibility() == model.Private {
		return model.Finding{}, false
	}
	msg := fmt.Sprintf("Could not find %s %s in newer version.", f.Label(), f.Name())
	return model.NewFinding(model.Error, EngineRule, msg, f, nil), true
}

func removedMethod(owner *model.Type, m *model.Method) (model.Finding, bool) {
	if m.Visibility() == model.Private {
		return model.Finding{}, false
	}
	msg := fmt.Sprintf("%s: Could not find %s %s in newer version.",
		owner.DisplayName(), m.Label(), MemberName(m))
	return model.NewFinding(model.Error, EngineRule, msg, m, nil), true
}

// MemberName renders an item for messages: dotted names for types, Java
// parameter lists for methods, plain names for fields.
func MemberName(item model.Item) string {
	switch it := item.(type) {
	case *model.Type:
		return it.DisplayName()
	case *model.Method:
		name := it.Name()
		if name == "<init>" && it.Owner() != nil {
			name = simpleName(it.Owner().DisplayName())
		}
		return descriptor.JavaMethod(name, it.Parameters())
	case *model.Field:
		return it.Name()
	default:
		return ""
	}
}

func simpleName(dotted string) string {
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' || dotted[i] == '$' {
			return dotted[i+1:]
		}
	}
	return dotted
}

// RemovedFieldRule is the rule-list form of the engine's removed-field
// check. The engine skips it during Evaluate, since it reports removals
// itself; called directly it returns the same findings.
type RemovedFieldRule struct{}

func (RemovedFieldRule) Name() string { return "removed-field" }

func (RemovedFieldRule) Check(ref, cand model.Item) []model.Finding {
	rt, ok := ref.(*model.Type)
	ct, ok2 := cand.(*model.Type)
	if !ok || !ok2 {
		return nil
	}
	return RemovedFields(rt, ct)
}

func (RemovedFieldRule) engineBuiltin() {}

// RemovedMethodRule is the rule-list form of the engine's removed-method
// check. See RemovedFieldRule.
type RemovedMethodRule struct{}

func (RemovedMethodRule) Name() string { return "removed-method" }

func (RemovedMethodRule) Check(ref, cand model.Item) []model.Finding {
	rt, ok := ref.(*model.Type)
	ct, ok2 := cand.(*model.Type)
	if !ok || !ok2 {
		return nil
	}
	return RemovedMethods(rt, ct)
}

func (RemovedMethodRule) engineBuiltin() {}
