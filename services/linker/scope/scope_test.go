// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// recordingScope counts forwarded calls.
type recordingScope struct {
	Scope
	calls map[string]int
}

func newRecordingScope(inner Scope) *recordingScope {
	return &recordingScope{Scope: inner, calls: make(map[string]int)}
}

func (r *recordingScope) ProcessFunctionsByName(name string, fn func(*ast.Declaration)) {
	r.calls["functions"]++
	r.Scope.ProcessFunctionsByName(name, fn)
}

func (r *recordingScope) ProcessPropertiesByName(name string, fn func(*ast.Declaration)) {
	r.calls["properties"]++
	r.Scope.ProcessPropertiesByName(name, fn)
}

func (r *recordingScope) ProcessDeclaredConstructors(fn func(*ast.Declaration)) {
	r.calls["constructors"]++
	r.Scope.ProcessDeclaredConstructors(fn)
}

func (r *recordingScope) MayContainName(name string) bool {
	r.calls["may_contain"]++
	return r.Scope.MayContainName(name)
}

func (r *recordingScope) CallableNames() []string {
	r.calls["callable_names"]++
	return r.Scope.CallableNames()
}

func (r *recordingScope) ClassifierNames() []string {
	r.calls["classifier_names"]++
	return r.Scope.ClassifierNames()
}

func (r *recordingScope) ScopeOwnerLookupNames() []string {
	r.calls["owner_names"]++
	return r.Scope.ScopeOwnerLookupNames()
}

type fixture struct {
	base      *ast.Declaration
	baseT     *ast.Declaration
	inner     *ast.Declaration
	nested    *ast.Declaration
	stringRef ast.TypeRef
}

// newFixture builds
//
//	class Base<T> { inner class Inner; class Nested; fun f(); val p; constructor() }
func newFixture(t *testing.T) *fixture {
	t.Helper()
	file := ast.NewFragment("common").AddFile("a.kt", "pkg")
	str := file.AddClass("String")
	base := file.AddClass("Base")
	baseT := base.AddTypeParameter("T")
	inner := base.AddClass("Inner", ast.AsInner())
	nested := base.AddClass("Nested")
	base.AddFunction("f")
	base.AddFunction("f", ast.WithValueParameters(ast.Param("x", ast.ClassType(str))))
	base.AddProperty("p")
	base.AddConstructor()
	return &fixture{base: base, baseT: baseT, inner: inner, nested: nested, stringRef: ast.ClassType(str)}
}

func TestClassMemberScope(t *testing.T) {
	fx := newFixture(t)
	s := NewClassMemberScope(fx.base)

	var fns []*ast.Declaration
	s.ProcessFunctionsByName("f", func(d *ast.Declaration) { fns = append(fns, d) })
	assert.Len(t, fns, 2)

	var props int
	s.ProcessPropertiesByName("p", func(*ast.Declaration) { props++ })
	assert.Equal(t, 1, props)

	var ctors int
	s.ProcessDeclaredConstructors(func(*ast.Declaration) { ctors++ })
	assert.Equal(t, 1, ctors)

	assert.Equal(t, []string{"f", "p"}, s.CallableNames())
	assert.Equal(t, []string{"Inner", "Nested"}, s.ClassifierNames())
	assert.Equal(t, []string{"pkg.Base"}, s.ScopeOwnerLookupNames())
	assert.True(t, s.MayContainName("Inner"))
	assert.False(t, s.MayContainName("missing"))

	var sub Substitutor
	s.ProcessClassifiersByNameWithSubstitution("Inner", func(_ *ast.Declaration, ds Substitutor) { sub = ds })
	require.NotNil(t, sub)
	assert.True(t, sub.IsEmpty())
}

func TestClassMemberScope_PanicsOnNonClass(t *testing.T) {
	file := ast.NewFragment("common").AddFile("a.kt", "pkg")
	assert.Panics(t, func() { NewClassMemberScope(file.AddFunction("f")) })
}

func TestNestedScope_InnerClassGetsSupertypeSubstitution(t *testing.T) {
	fx := newFixture(t)
	wrapped := WrapForSupertype(NewClassMemberScope(fx.base), ast.ClassType(fx.base, fx.stringRef))

	var (
		got *ast.Declaration
		sub Substitutor
	)
	wrapped.ProcessClassifiersByNameWithSubstitution("Inner", func(d *ast.Declaration, ds Substitutor) {
		got, sub = d, ds
	})
	require.Equal(t, fx.inner, got)
	require.False(t, sub.IsEmpty())

	out := sub.SubstituteOrSelf(ast.ParamType(fx.baseT))
	assert.Equal(t, fx.stringRef.Target, out.Target)

	list := ast.NamedType("kotlin.List", ast.ParamType(fx.baseT))
	out = sub.SubstituteOrSelf(list)
	assert.Equal(t, fx.stringRef.Target, out.Args[0].Target)
	assert.Equal(t, fx.baseT, list.Args[0].Target, "input must not be mutated")
}

func TestNestedScope_NonInnerClassGetsEmpty(t *testing.T) {
	fx := newFixture(t)
	wrapped := WrapForSupertype(NewClassMemberScope(fx.base), ast.ClassType(fx.base, fx.stringRef))

	var sub Substitutor
	wrapped.ProcessClassifiersByNameWithSubstitution("Nested", func(_ *ast.Declaration, ds Substitutor) { sub = ds })
	require.NotNil(t, sub)
	assert.True(t, sub.IsEmpty())
}

func TestNestedScope_NoOrManyClassifiers(t *testing.T) {
	file := ast.NewFragment("common").AddFile("a.kt", "pkg")
	base := file.AddClass("Base")
	base.AddClass("Dup", ast.AsInner())
	base.AddClass("Dup", ast.AsInner())
	wrapped := NewNestedClassifierScopeWithSubstitution(NewClassMemberScope(base), nil)

	called := 0
	wrapped.ProcessClassifiersByNameWithSubstitution("Dup", func(*ast.Declaration, Substitutor) { called++ })
	wrapped.ProcessClassifiersByNameWithSubstitution("Missing", func(*ast.Declaration, Substitutor) { called++ })
	assert.Zero(t, called)
	assert.True(t, wrapped.Substitutor().IsEmpty())
}

func TestNestedScope_ForwardsEverythingElse(t *testing.T) {
	fx := newFixture(t)
	rec := newRecordingScope(NewClassMemberScope(fx.base))
	wrapped := WrapForSupertype(rec, ast.ClassType(fx.base, fx.stringRef))

	var fns int
	wrapped.ProcessFunctionsByName("f", func(*ast.Declaration) { fns++ })
	wrapped.ProcessPropertiesByName("p", func(*ast.Declaration) {})
	wrapped.ProcessDeclaredConstructors(func(*ast.Declaration) {})
	assert.True(t, wrapped.MayContainName("f"))
	assert.Equal(t, []string{"f", "p"}, wrapped.CallableNames())
	assert.Equal(t, []string{"Inner", "Nested"}, wrapped.ClassifierNames())
	assert.Equal(t, []string{"pkg.Base"}, wrapped.ScopeOwnerLookupNames())

	assert.Equal(t, 2, fns)
	for _, k := range []string{"functions", "properties", "constructors", "may_contain", "callable_names", "classifier_names", "owner_names"} {
		assert.Equal(t, 1, rec.calls[k], "call %s", k)
	}
	assert.Same(t, rec, wrapped.Original())
}

func TestForSupertype(t *testing.T) {
	fx := newFixture(t)

	assert.True(t, ForSupertype(ast.ClassType(fx.base)).IsEmpty(), "no arguments")
	assert.True(t, ForSupertype(ast.NamedType("ext.Base", fx.stringRef)).IsEmpty(), "unresolved class")

	sub := ForSupertype(ast.ClassType(fx.base, fx.stringRef, fx.stringRef))
	m, ok := sub.(MapSubstitutor)
	require.True(t, ok)
	assert.Len(t, m, 1)
}

func TestMapSubstitutor_KeepsNullability(t *testing.T) {
	fx := newFixture(t)
	sub := MapSubstitutor{fx.baseT.ID: fx.stringRef}

	ref := ast.ParamType(fx.baseT)
	ref.Nullable = true
	out := sub.SubstituteOrSelf(ref)
	assert.True(t, out.Nullable)
	assert.Equal(t, fx.stringRef.Target, out.Target)

	assert.Equal(t, fx.stringRef, Empty.SubstituteOrSelf(fx.stringRef))
}
