package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/japicheck/internal/compat"
	"github.com/phobologic/japicheck/internal/model"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short name", "change-of-scope", "change-of-scope"},
		{"alias", "ClassChangedToFinal", "class-final"},
		{"legacy class name", "com.googlecode.japi.checker.rules.CheckRemovedMethod", "removed-method"},
		{"surrounding space", "  method-final ", "method-final"},
		{"legacy prefix on short name", "com.googlecode.japi.checker.rules.field-static", "field-static"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := Lookup(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Name())
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()

	_, err := Lookup("CheckSomethingElse")
	require.ErrorIs(t, err, ErrUnknownRule)
	assert.Contains(t, err.Error(), `"CheckSomethingElse"`)
	assert.Contains(t, err.Error(), "change-of-scope")
}

func TestDefaultOrder(t *testing.T) {
	t.Parallel()

	var got []string
	for _, r := range Default() {
		got = append(got, r.Name())
	}
	assert.Equal(t, Names(), got)
	assert.Equal(t, []string{
		"change-of-scope", "field-static", "method-final",
		"class-abstract", "class-final", "removed-field", "removed-method",
	}, got)
	assert.Len(t, Catalog(), len(got))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	rs, err := Resolve(nil)
	require.NoError(t, err)
	assert.Len(t, rs, len(Default()))

	rs, err = Resolve([]string{"class-final", "CheckChangeOfScope"})
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "class-final", rs[0].Name())
	assert.Equal(t, "change-of-scope", rs[1].Name())

	_, err = Resolve([]string{"class-final", "nope"})
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func newType(name string, vis model.Scope, mods model.Modifiers) *model.Type {
	return model.NewType(nil, model.TypeSpec{Name: name, Visibility: vis, Modifiers: mods})
}

func newField(owner *model.Type, name string, vis model.Scope, mods model.Modifiers) *model.Field {
	return model.NewField(owner, model.FieldSpec{Name: name, Visibility: vis, Modifiers: mods, Type: "I"})
}

func newMethod(owner *model.Type, name string, vis model.Scope, mods model.Modifiers, params ...string) *model.Method {
	return model.NewMethod(owner, model.MethodSpec{Name: name, Visibility: vis, Modifiers: mods, Parameters: params, Return: "V"})
}

func TestScopeChange(t *testing.T) {
	t.Parallel()

	owner := newType("a/Owner", model.Public, 0)
	tests := []struct {
		name     string
		from, to model.Scope
		sev      model.Severity
		msg      string
	}{
		{"narrowed", model.Public, model.Package, model.Error, "The visibility of the size(int) method has been changed from public to package"},
		{"unchanged", model.Protected, model.Protected, model.Info, "The visibility of the size(int) method has not changed"},
		{"widened", model.Private, model.Protected, model.Warning, "The visibility of the size(int) method has been changed from private to protected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := ScopeChange{}.Check(newMethod(owner, "size", tt.from, 0, "I"), newMethod(owner, "size", tt.to, 0, "I"))
			require.Len(t, fs, 1)
			assert.Equal(t, tt.sev, fs[0].Severity)
			assert.Equal(t, tt.msg, fs[0].Message)
			assert.Equal(t, "change-of-scope", fs[0].Rule)
		})
	}
}

func TestScopeChangeConstructorAndType(t *testing.T) {
	t.Parallel()

	ref := newType("a/Outer$Inner", model.Public, 0)
	cand := newType("a/Outer$Inner", model.Protected, 0)
	fs := ScopeChange{}.Check(ref, cand)
	require.Len(t, fs, 1)
	assert.Equal(t, "The visibility of the a.Outer$Inner class has been changed from public to protected", fs[0].Message)

	fs = ScopeChange{}.Check(newMethod(ref, "<init>", model.Public, 0), newMethod(cand, "<init>", model.Public, 0))
	require.Len(t, fs, 1)
	assert.Equal(t, "The visibility of the Inner() constructor has not changed", fs[0].Message)
}

func TestFieldStatic(t *testing.T) {
	t.Parallel()

	pub := newType("Pub", model.Public, 0)
	prot := newType("Prot", model.Protected, 0)
	pkg := newType("Pkg", model.Package, 0)

	tests := []struct {
		name      string
		ref, cand *model.Field
		msg       string
	}{
		{"became static", newField(pub, "f", model.Public, 0), newField(pub, "f", model.Public, model.Static), "The field f is now static."},
		{"no longer static", newField(prot, "f", model.Package, model.Static), newField(prot, "f", model.Package, 0), "The field f is not static anymore."},
		{"unchanged", newField(pub, "f", model.Public, model.Static), newField(pub, "f", model.Public, model.Static), ""},
		{"private field", newField(pub, "f", model.Private, 0), newField(pub, "f", model.Private, model.Static), ""},
		{"package owner", newField(pkg, "f", model.Public, 0), newField(pkg, "f", model.Public, model.Static), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := FieldStatic{}.Check(tt.ref, tt.cand)
			if tt.msg == "" {
				assert.Empty(t, fs)
				return
			}
			require.Len(t, fs, 1)
			assert.Equal(t, model.Error, fs[0].Severity)
			assert.Equal(t, tt.msg, fs[0].Message)
		})
	}

	assert.Nil(t, FieldStatic{}.Check(pub, pub))
}

func TestMethodFinal(t *testing.T) {
	t.Parallel()

	owner := newType("com/acme/Svc", model.Public, 0)

	fs := MethodFinal{}.Check(newMethod(owner, "run", model.Public, 0, "J"), newMethod(owner, "run", model.Public, model.Final, "J"))
	require.Len(t, fs, 1)
	assert.Equal(t, model.Error, fs[0].Severity)
	assert.Equal(t, "com.acme.Svc.run(long): the method has been made final.", fs[0].Message)

	assert.Empty(t, MethodFinal{}.Check(newMethod(owner, "run", model.Public, model.Final), newMethod(owner, "run", model.Public, model.Final)))
	assert.Empty(t, MethodFinal{}.Check(newMethod(owner, "run", model.Public, model.Final), newMethod(owner, "run", model.Public, 0)))
	assert.Empty(t, MethodFinal{}.Check(owner, owner))
}

func TestClassModifiers(t *testing.T) {
	t.Parallel()

	plain := newType("com/acme/Svc", model.Public, 0)
	abstract := newType("com/acme/Svc", model.Public, model.Abstract)
	final := newType("com/acme/Svc", model.Public, model.Final)

	fs := ClassAbstract{}.Check(plain, abstract)
	require.Len(t, fs, 1)
	assert.Equal(t, "com.acme.Svc: the class has been made abstract.", fs[0].Message)
	assert.Empty(t, ClassAbstract{}.Check(abstract, abstract))
	assert.Empty(t, ClassAbstract{}.Check(abstract, plain))

	fs = ClassFinal{}.Check(plain, final)
	require.Len(t, fs, 1)
	assert.Equal(t, model.Error, fs[0].Severity)
	assert.Equal(t, "The class com.acme.Svc has been made final, this breaks inheritance.", fs[0].Message)
	assert.Empty(t, ClassFinal{}.Check(final, plain))

	m := newMethod(plain, "x", model.Public, 0)
	assert.Empty(t, ClassFinal{}.Check(m, m))
}

func TestRuleListCompatibility(t *testing.T) {
	t.Parallel()

	var _ compat.Rule = ScopeChange{}
	r, err := Lookup("removed-field")
	require.NoError(t, err)
	assert.Equal(t, compat.RemovedFieldRule{}, r)
}
