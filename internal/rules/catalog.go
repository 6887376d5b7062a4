package rules

import (
	"fmt"

	"github.com/phobologic/japicheck/internal/compat"
	"github.com/phobologic/japicheck/internal/model"
)

// ScopeChange compares visibility on the scope lattice: narrowing is an
// error, no change is informational, widening is a warning. It applies to
// every item variant.
type ScopeChange struct{}

func (ScopeChange) Name() string { return "change-of-scope" }

func (r ScopeChange) Check(ref, cand model.Item) []model.Finding {
	from, to := ref.Visibility(), cand.Visibility()
	subject := compat.MemberName(cand) + " " + cand.Label()
	switch {
	case to < from:
		msg := fmt.Sprintf("The visibility of the %s has been changed from %s to %s", subject, from, to)
		return []model.Finding{model.NewFinding(model.Error, r.Name(), msg, ref, cand)}
	case to == from:
		msg := fmt.Sprintf("The visibility of the %s has not changed", subject)
		return []model.Finding{model.NewFinding(model.Info, r.Name(), msg, ref, cand)}
	default:
		msg := fmt.Sprintf("The visibility of the %s has been changed from %s to %s", subject, from, to)
		return []model.Finding{model.NewFinding(model.Warning, r.Name(), msg, ref, cand)}
	}
}

// FieldStatic reports a reachable field whose static modifier was toggled.
// A field is reachable when it is not private and its owner is public or
// protected.
type FieldStatic struct{}

func (FieldStatic) Name() string { return "field-static" }

func (r FieldStatic) Check(ref, cand model.Item) []model.Finding {
	rf, ok := ref.(*model.Field)
	if !ok || rf.Visibility() == model.Private {
		return nil
	}
	owner := rf.Owner()
	if owner == nil || owner.Visibility() < model.Protected {
		return nil
	}
	cf, ok := cand.(*model.Field)
	if !ok {
		return nil
	}
	switch {
	case rf.IsStatic() && !cf.IsStatic():
		msg := fmt.Sprintf("The field %s is not static anymore.", rf.Name())
		return []model.Finding{model.NewFinding(model.Error, r.Name(), msg, ref, cand)}
	case !rf.IsStatic() && cf.IsStatic():
		msg := fmt.Sprintf("The field %s is now static.", rf.Name())
		return []model.Finding{model.NewFinding(model.Error, r.Name(), msg, ref, cand)}
	}
	return nil
}

// MethodFinal reports a method that became final, which breaks overriding.
type MethodFinal struct{}

func (MethodFinal) Name() string { return "method-final" }

func (r MethodFinal) Check(ref, cand model.Item) []model.Finding {
	rm, ok := ref.(*model.Method)
	if !ok {
		return nil
	}
	if rm.IsFinal() || !cand.Modifiers().Has(model.Final) {
		return nil
	}
	msg := fmt.Sprintf("%s: the method has been made final.", qualifiedMember(rm))
	return []model.Finding{model.NewFinding(model.Error, r.Name(), msg, ref, cand)}
}

// ClassAbstract reports a type that became abstract, which breaks direct
// instantiation.
type ClassAbstract struct{}

func (ClassAbstract) Name() string { return "class-abstract" }

func (r ClassAbstract) Check(ref, cand model.Item) []model.Finding {
	rt, ok := ref.(*model.Type)
	if !ok || rt.IsAbstract() || !cand.Modifiers().Has(model.Abstract) {
		return nil
	}
	msg := fmt.Sprintf("%s: the class has been made abstract.", rt.DisplayName())
	return []model.Finding{model.NewFinding(model.Error, r.Name(), msg, ref, cand)}
}

// ClassFinal reports a type that became final, which breaks subclassing.
type ClassFinal struct{}

func (ClassFinal) Name() string { return "class-final" }

func (r ClassFinal) Check(ref, cand model.Item) []model.Finding {
	rt, ok := ref.(*model.Type)
	if !ok || rt.IsFinal() || !cand.Modifiers().Has(model.Final) {
		return nil
	}
	msg := fmt.Sprintf("The class %s has been made final, this breaks inheritance.", rt.DisplayName())
	return []model.Finding{model.NewFinding(model.Error, r.Name(), msg, ref, cand)}
}

func qualifiedMember(item model.Item) string {
	if owner := item.Owner(); owner != nil {
		return owner.DisplayName() + "." + compat.MemberName(item)
	}
	return compat.MemberName(item)
}
