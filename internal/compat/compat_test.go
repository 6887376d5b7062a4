package compat_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/japicheck/internal/compat"
	"github.com/phobologic/japicheck/internal/model"
	"github.com/phobologic/japicheck/internal/report"
	"github.com/phobologic/japicheck/internal/rules"
)

// member describes a field, or a method when method is set.
type member struct {
	name   string
	params []string // nil for fields
	vis    model.Scope
	mods   model.Modifiers
	method bool
}

func field(name string, vis model.Scope, mods model.Modifiers) member {
	return member{name: name, vis: vis, mods: mods}
}

func method(name string, params []string, vis model.Scope, mods model.Modifiers) member {
	return member{name: name, params: params, vis: vis, mods: mods, method: true}
}

func typ(name string, vis model.Scope, mods model.Modifiers, members ...member) *model.Type {
	t := model.NewType(nil, model.TypeSpec{Name: name, Visibility: vis, Modifiers: mods, SuperName: "java/lang/Object"})
	for _, m := range members {
		if m.method {
			t.AddMethod(model.NewMethod(t, model.MethodSpec{Name: m.name, Visibility: m.vis, Modifiers: m.mods, Parameters: m.params, Return: "V"}))
			continue
		}
		t.AddField(model.NewField(t, model.FieldSpec{Name: m.name, Visibility: m.vis, Modifiers: m.mods, Type: "I"}))
	}
	return t
}

func registry(t *testing.T, types ...*model.Type) *model.Registry {
	t.Helper()
	r := model.NewRegistry()
	for _, ty := range types {
		require.NoError(t, r.Add(ty))
	}
	return r
}

func evaluate(t *testing.T, ref, cand *model.Registry, rs []compat.Rule) []model.Finding {
	t.Helper()
	var col report.Collector
	require.NoError(t, compat.Evaluate(ref, cand, rs, &col))
	return col.Findings
}

func bySeverity(fs []model.Finding, sev model.Severity) []model.Finding {
	var out []model.Finding
	for _, f := range fs {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

func sample() *model.Type {
	return typ("com/acme/T", model.Public, 0,
		field("count", model.Public, 0),
		field("secret", model.Private, 0),
		method("m", []string{"I"}, model.Public, 0),
		method("helper", nil, model.Protected, 0),
	)
}

func TestSelfComparisonOnlyInfo(t *testing.T) {
	t.Parallel()

	fs := evaluate(t, registry(t, sample()), registry(t, sample()), rules.Default())
	require.NotEmpty(t, fs)
	for _, f := range fs {
		assert.Equal(t, model.Info, f.Severity, f.Message)
		assert.Equal(t, "change-of-scope", f.Rule)
	}
	// type + 2 fields + 2 methods
	assert.Len(t, fs, 5)
}

func TestEqualVisibilityFieldSingleInfo(t *testing.T) {
	t.Parallel()

	ref := registry(t, typ("T", model.Public, 0, field("f", model.Protected, 0)))
	cand := registry(t, typ("T", model.Public, 0, field("f", model.Protected, 0)))

	var fieldFindings []model.Finding
	for _, f := range evaluate(t, ref, cand, rules.Default()) {
		if _, ok := f.Reference.(*model.Field); ok {
			fieldFindings = append(fieldFindings, f)
		}
	}
	require.Len(t, fieldFindings, 1)
	assert.Equal(t, model.Info, fieldFindings[0].Severity)
	assert.Equal(t, "The visibility of the f field has not changed", fieldFindings[0].Message)
}

func TestRemovedPublicMethodReportedOnce(t *testing.T) {
	t.Parallel()

	ref := registry(t, sample())
	cand := registry(t, typ("com/acme/T", model.Public, 0,
		field("count", model.Public, 0),
		field("secret", model.Private, 0),
		method("helper", nil, model.Protected, 0),
	))

	errs := bySeverity(evaluate(t, ref, cand, rules.Default()), model.Error)
	require.Len(t, errs, 1)
	assert.Equal(t, "com.acme.T: Could not find method m(int) in newer version.", errs[0].Message)
	assert.Equal(t, compat.EngineRule, errs[0].Rule)
	assert.Nil(t, errs[0].Candidate)
}

func TestRemovedPrivateFieldIgnored(t *testing.T) {
	t.Parallel()

	ref := registry(t, typ("T", model.Public, 0, field("secret", model.Private, 0)))
	cand := registry(t, typ("T", model.Public, 0))

	fs := evaluate(t, ref, cand, []compat.Rule{compat.RemovedFieldRule{}, compat.RemovedMethodRule{}})
	assert.Empty(t, fs)
}

func TestRemovedFieldWithoutRules(t *testing.T) {
	t.Parallel()

	ref := registry(t, typ("T", model.Public, 0, field("count", model.Package, 0)))
	cand := registry(t, typ("T", model.Public, 0))

	fs := evaluate(t, ref, cand, nil)
	require.Len(t, fs, 1)
	assert.Equal(t, "Could not find field count in newer version.", fs[0].Message)
}

func TestScopeNarrowingAndWidening(t *testing.T) {
	t.Parallel()

	scope := []compat.Rule{rules.ScopeChange{}}
	ref := registry(t, typ("T", model.Public, 0,
		method("narrowed", nil, model.Public, 0),
		method("widened", nil, model.Protected, 0),
	))
	cand := registry(t, typ("T", model.Public, 0,
		method("narrowed", nil, model.Protected, 0),
		method("widened", nil, model.Public, 0),
	))

	fs := evaluate(t, ref, cand, scope)
	errs := bySeverity(fs, model.Error)
	warns := bySeverity(fs, model.Warning)
	require.Len(t, errs, 1)
	require.Len(t, warns, 1)
	assert.Equal(t, "The visibility of the narrowed() method has been changed from public to protected", errs[0].Message)
	assert.Equal(t, "The visibility of the widened() method has been changed from protected to public", warns[0].Message)
}

func TestFieldStaticToggle(t *testing.T) {
	t.Parallel()

	rs := []compat.Rule{rules.FieldStatic{}}
	ref := registry(t,
		typ("Pub", model.Public, 0, field("f", model.Public, 0)),
		typ("Pkg", model.Package, 0, field("f", model.Public, 0)),
	)
	cand := registry(t,
		typ("Pub", model.Public, 0, field("f", model.Public, model.Static)),
		typ("Pkg", model.Package, 0, field("f", model.Public, model.Static)),
	)

	fs := evaluate(t, ref, cand, rs)
	require.Len(t, fs, 1)
	assert.Equal(t, model.Error, fs[0].Severity)
	assert.Equal(t, "The field f is now static.", fs[0].Message)
	assert.Equal(t, "Pub", fs[0].Subject())
}

func TestMethodMadeFinal(t *testing.T) {
	t.Parallel()

	ref := registry(t, typ("T", model.Public, 0, method("m", []string{"I"}, model.Public, 0)))
	cand := registry(t, typ("T", model.Public, 0, method("m", []string{"I"}, model.Public, model.Final)))

	fs := evaluate(t, ref, cand, []compat.Rule{rules.MethodFinal{}})
	require.Len(t, fs, 1)
	assert.Equal(t, model.Error, fs[0].Severity)
	assert.Equal(t, "method-final", fs[0].Rule)
	assert.Equal(t, "T.m(int): the method has been made final.", fs[0].Message)

	// With the whole catalog the only non-info finding is still that one.
	all := evaluate(t, ref, cand, rules.Default())
	assert.Len(t, bySeverity(all, model.Error), 1)
	assert.Empty(t, bySeverity(all, model.Warning))
}

func TestClassMadeFinalIndependentOfMembers(t *testing.T) {
	t.Parallel()

	ref := registry(t, sample())
	cand := sample()
	candFinal := typ("com/acme/T", model.Public, model.Final)
	for _, f := range cand.Fields() {
		candFinal.AddField(model.NewField(candFinal, model.FieldSpec{Name: f.Name(), Visibility: f.Visibility(), Type: f.Type()}))
	}
	for _, m := range cand.Methods() {
		candFinal.AddMethod(model.NewMethod(candFinal, model.MethodSpec{Name: m.Name(), Visibility: m.Visibility(), Parameters: m.Parameters(), Return: m.Return()}))
	}

	errs := bySeverity(evaluate(t, ref, registry(t, candFinal), rules.Default()), model.Error)
	require.Len(t, errs, 1)
	assert.Equal(t, "The class com.acme.T has been made final, this breaks inheritance.", errs[0].Message)
	assert.IsType(t, &model.Type{}, errs[0].Reference)
}

func TestRemovedTypeWithNoRules(t *testing.T) {
	t.Parallel()

	ref := registry(t, typ("a/Gone", model.Public, 0), typ("a/Kept", model.Public, 0))
	cand := registry(t, typ("a/Kept", model.Public, 0), typ("a/Added", model.Public, 0))

	fs := evaluate(t, ref, cand, nil)
	require.Len(t, fs, 1)
	assert.Equal(t, model.Error, fs[0].Severity)
	assert.Equal(t, "Could not find class a.Gone in newer version.", fs[0].Message)
}

func TestEvaluateNoShortCircuit(t *testing.T) {
	t.Parallel()

	ref := registry(t, typ("T", model.Public, 0, method("m", nil, model.Public, 0)))
	cand := registry(t, typ("T", model.Protected, model.Final|model.Abstract, method("m", nil, model.Package, model.Final)))

	errs := bySeverity(evaluate(t, ref, cand, rules.Default()), model.Error)
	var names []string
	for _, f := range errs {
		names = append(names, f.Rule)
	}
	assert.Equal(t, []string{"change-of-scope", "class-abstract", "class-final", "change-of-scope", "method-final"}, names)
}

func TestEvaluateDeterministicOrder(t *testing.T) {
	t.Parallel()

	ref := registry(t, typ("b/B", model.Public, 0), typ("a/A", model.Public, 0))
	fs := evaluate(t, ref, registry(t), nil)
	require.Len(t, fs, 2)
	assert.Equal(t, "a.A", fs[0].Subject())
	assert.Equal(t, "b.B", fs[1].Subject())
}

func TestEvaluateInvalidModel(t *testing.T) {
	t.Parallel()

	outer := typ("Outer", model.Public, 0)
	stray := typ("Stray", model.Public, 0)
	outer.AddField(model.NewField(stray, model.FieldSpec{Name: "f", Type: "I"}))

	var col report.Collector
	err := compat.Evaluate(registry(t, outer), registry(t), rules.Default(), &col)
	assert.ErrorIs(t, err, model.ErrInvalidModel)
	assert.Empty(t, col.Findings)
}

func TestRemovedRulesDirectly(t *testing.T) {
	t.Parallel()

	ref := sample()
	cand := typ("com/acme/T", model.Public, 0)

	fields := compat.RemovedFieldRule{}.Check(ref, cand)
	methods := compat.RemovedMethodRule{}.Check(ref, cand)
	require.Len(t, fields, 1)
	require.Len(t, methods, 2)
	assert.Equal(t, "Could not find field count in newer version.", fields[0].Message)
	assert.Equal(t, "com.acme.T: Could not find method helper() in newer version.", methods[1].Message)

	assert.Nil(t, compat.RemovedFieldRule{}.Check(ref.Fields()[0], ref.Fields()[0]))
}

func TestBridgeMatchedOnce(t *testing.T) {
	t.Parallel()

	build := func() *model.Type {
		ty := typ("T", model.Public, 0)
		ty.AddMethod(model.NewMethod(ty, model.MethodSpec{Name: "get", Visibility: model.Public, Return: "Ljava/lang/String;"}))
		ty.AddMethod(model.NewMethod(ty, model.MethodSpec{Name: "get", Visibility: model.Public, Modifiers: model.Synthetic, Return: "Ljava/lang/Object;"}))
		return ty
	}
	fs := evaluate(t, registry(t, build()), registry(t, build()), []compat.Rule{rules.ScopeChange{}})
	// type + one method
	assert.Len(t, fs, 2)
}

func TestEvaluateManyMethods(t *testing.T) {
	t.Parallel()

	const n = 20000
	build := func() *model.Type {
		ty := typ("Wide", model.Public, 0)
		for i := range n {
			ty.AddMethod(model.NewMethod(ty, model.MethodSpec{Name: fmt.Sprintf("m%d", i), Visibility: model.Public, Parameters: []string{"I"}, Return: "V"}))
		}
		return ty
	}
	fs := evaluate(t, registry(t, build()), registry(t, build()), []compat.Rule{rules.ScopeChange{}})
	// type + every method, each matched exactly once
	assert.Len(t, fs, n+1)
	assert.Empty(t, bySeverity(fs, model.Error))
}
