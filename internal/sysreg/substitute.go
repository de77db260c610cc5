package sysreg

import (
	"github.com/sysreg/sysreg/internal/js_ast"
)

// The second pass. The printer calls these hooks for every expression and
// property it prints in a file produced by "Transform". Rewrites happen here
// instead of in the first pass because they depend on the finished export
// tables and because they apply everywhere an identifier can appear.
//
// A Substituter is used by one printer at a time. Files produced by the same
// Transformer may be printed by several printers in parallel as long as each
// has its own Substituter.
type Substituter struct {
	transformer *Transformer
	current     *moduleState
	rules       []substitutionRule
}

// A rule returns true if it rewrote the expression. The first rule that does
// wins, and the printer prints its result without substituting it again.
type substitutionRule func(state *moduleState, expr js_ast.Expr) (js_ast.Expr, bool)

func (t *Transformer) Substituter() *Substituter {
	return &Substituter{
		transformer: t,
		rules: []substitutionRule{
			substituteImportMeta,
			substituteHelperName,
			substituteImportedName,
			substituteExportedAssignment,
			substituteExportedUpdate,
		},
	}
}

func (s *Substituter) EnterFile(sourceIndex uint32) {
	s.current = s.transformer.loadModule(sourceIndex)
}

// The module's state isn't needed once it has been printed
func (s *Substituter) ExitFile(sourceIndex uint32) {
	if s.current != nil {
		s.transformer.releaseModule(sourceIndex)
		s.current = nil
	}
}

func (s *Substituter) SubstituteExpr(expr js_ast.Expr) js_ast.Expr {
	if s.current == nil {
		return expr
	}
	for _, rule := range s.rules {
		if result, ok := rule(s.current, expr); ok {
			return result
		}
	}
	return expr
}

// "{f}" where "f" is imported must become "{f: m_1.f}"
func (s *Substituter) SubstituteProperty(property js_ast.Property) js_ast.Property {
	if s.current == nil || !property.WasShorthand || property.Value == nil {
		return property
	}
	if value, ok := substituteImportedName(s.current, *property.Value); ok {
		property.Value = &value
		property.WasShorthand = false
	} else if value, ok := substituteHelperName(s.current, *property.Value); ok {
		property.Value = &value
		property.WasShorthand = false
	}
	return property
}

// "import.meta" => "context_1.meta"
func substituteImportMeta(state *moduleState, expr js_ast.Expr) (js_ast.Expr, bool) {
	if _, ok := expr.Data.(*js_ast.EImportMeta); !ok {
		return expr, false
	}
	return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EDot{
		Target:  state.ident(expr.Loc, state.contextObject),
		Name:    "meta",
		NameLoc: expr.Loc,
	}}, true
}

// "__awaiter" => "tslib_1.__awaiter"
func substituteHelperName(state *moduleState, expr js_ast.Expr) (js_ast.Expr, bool) {
	id, ok := expr.Data.(*js_ast.EIdentifier)
	if !ok || !state.info.HasHelpersImport() {
		return expr, false
	}
	symbol := state.symbols.Get(js_ast.FollowSymbols(state.symbols, id.Ref))
	if !symbol.Flags.Has(js_ast.HelperName) || symbol.Kind != js_ast.SymbolUnbound {
		return expr, false
	}
	return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EDot{
		Target:  state.ident(expr.Loc, state.info.HelpersNamespaceRef),
		Name:    symbol.OriginalName,
		NameLoc: expr.Loc,
	}}, true
}

// "f" imported from "./m" => "m_1.f". Default imports become "m_1.default".
func substituteImportedName(state *moduleState, expr js_ast.Expr) (js_ast.Expr, bool) {
	id, ok := expr.Data.(*js_ast.EIdentifier)
	if !ok || id.IsLocalName || state.isTransformSymbol(id.Ref) {
		return expr, false
	}
	if state.symbols.Get(id.Ref).Flags.Has(js_ast.GeneratedName) {
		return expr, false
	}
	binding, ok := state.resolver.ReferencedImportDeclaration(id.Ref)
	if !ok {
		return expr, false
	}
	namespace, ok := state.importAliases[binding.ImportRecordIndex]
	if !ok {
		return expr, false
	}

	target := state.ident(expr.Loc, namespace)
	if js_ast.IsIdentifier(binding.Alias) {
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EDot{Target: target, Name: binding.Alias, NameLoc: expr.Loc}}, true
	}

	// "import {'a-b' as ab}" needs an index expression
	return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIndex{Target: target, Index: js_ast.StringExpr(expr.Loc, binding.Alias)}}, true
}

// "x = 1" where "x" is exported as "x" and "y" => exports_1("y", exports_1("x", x = 1))
func substituteExportedAssignment(state *moduleState, expr js_ast.Expr) (js_ast.Expr, bool) {
	e, ok := expr.Data.(*js_ast.EBinary)
	if !ok || !e.Op.IsAssign() || (e.ID != 0 && state.noSubstitution[e.ID]) {
		return expr, false
	}
	id, ok := e.Left.Data.(*js_ast.EIdentifier)
	if !ok || !state.canExport(id) {
		return expr, false
	}
	names := state.exportsOf(id.Ref)
	if len(names) == 0 {
		return expr, false
	}

	result := expr
	for _, name := range names {
		result = state.exportExpression(expr.Loc, name, state.preventSubstitution(result))
	}
	return result, true
}

// "++x" => exports_1("x", ++x)
// "x++" => exports_1("x", ++x) - 1
//
// Exporter calls return the value they were given, so the postfix form still
// produces the old value while the loader is told about the new one.
func substituteExportedUpdate(state *moduleState, expr js_ast.Expr) (js_ast.Expr, bool) {
	e, ok := expr.Data.(*js_ast.EUnary)
	if !ok || !e.Op.IsUpdate() || (e.ID != 0 && state.noSubstitution[e.ID]) {
		return expr, false
	}
	id, ok := e.Value.Data.(*js_ast.EIdentifier)
	if !ok || !state.canExport(id) {
		return expr, false
	}
	names := state.exportsOf(id.Ref)
	if len(names) == 0 {
		return expr, false
	}

	result := expr
	isPostfix := !e.Op.IsPrefix()
	if isPostfix {
		op := js_ast.UnOpPreInc
		if e.Op == js_ast.UnOpPostDec {
			op = js_ast.UnOpPreDec
		}
		result = js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EUnary{Op: op, Value: e.Value, ID: state.newNodeID()}}
	}

	for _, name := range names {
		result = state.exportExpression(expr.Loc, name, state.preventSubstitution(result))
	}

	if isPostfix {
		op := js_ast.BinOpSub
		if e.Op == js_ast.UnOpPostDec {
			op = js_ast.BinOpAdd
		}
		result = state.preventSubstitution(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{
			Op:    op,
			Left:  result,
			Right: js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ENumber{Value: 1}},
		}})
	}
	return result, true
}
