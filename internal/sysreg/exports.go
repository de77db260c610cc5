package sysreg

import (
	"github.com/elliotchance/orderedmap/v3"

	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

func (state *moduleState) ident(loc logger.Loc, ref js_ast.Ref) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: ref}}
}

// A reference to the local declaration itself. The printer never rewrites
// these, so they are used where the local value is what's wanted even if an
// import has the same name.
func (state *moduleState) localName(loc logger.Loc, ref js_ast.Ref) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: ref, IsLocalName: true}}
}

// Generates "exports_1("name", value)"
func (state *moduleState) exportExpression(loc logger.Loc, name string, value js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
		Target: state.ident(loc, state.exportFunction),
		Args:   []js_ast.Expr{js_ast.StringExpr(loc, name), value},
	}}
}

// Whether a write to this identifier may need to be reported to the loader.
// Enums and namespaces are only exported once their body has finished.
func (state *moduleState) canExport(id *js_ast.EIdentifier) bool {
	if id.IsLocalName || state.isTransformSymbol(id.Ref) {
		return false
	}
	if state.symbols.Get(id.Ref).Flags.Has(js_ast.GeneratedName) {
		return false
	}
	return !state.resolver.IsEnumOrNamespaceDeclaration(id.Ref)
}

func (v *visitor) appendExportStatement(stmts []js_ast.Stmt, loc logger.Loc, name string, value js_ast.Expr) []js_ast.Stmt {
	return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: v.state.exportExpression(loc, name, value)}})
}

// Exports each name bound by a variable statement under its aliases from
// "export {}" clauses. With "exportSelf" set the names are also exported under
// their own names, which is only needed when the initializers didn't already
// do that (merged declarations, or names without an initializer).
func (v *visitor) appendExportsOfVariableStatement(stmts []js_ast.Stmt, local *js_ast.SLocal, exportSelf bool) []js_ast.Stmt {
	if v.state.info.ExportEquals != nil {
		return stmts
	}
	for _, decl := range local.Decls {
		if decl.Value != nil || exportSelf {
			stmts = v.appendExportsOfBinding(stmts, decl.Binding, exportSelf)
		}
	}
	return stmts
}

func (v *visitor) appendExportsOfBinding(stmts []js_ast.Stmt, binding js_ast.Binding, exportSelf bool) []js_ast.Stmt {
	js_ast.ForEachIdentifierBinding(binding, func(loc logger.Loc, b *js_ast.BIdentifier) {
		excludeName := ""
		if exportSelf {
			excludeName = v.name(b.Ref)
			stmts = v.appendExportStatement(stmts, loc, excludeName, v.state.localName(loc, b.Ref))
		}
		stmts = v.appendExportsOfDeclaration(stmts, b.Ref, excludeName)
	})
	return stmts
}

// For function and class declarations. The declaration's own export comes
// first, then any aliases.
func (v *visitor) appendExportsOfHoistedDeclaration(stmts []js_ast.Stmt, name js_ast.LocRef, isExport bool, isDefault bool) []js_ast.Stmt {
	if v.state.info.ExportEquals != nil {
		return stmts
	}

	excludeName := ""
	if isExport {
		excludeName = v.name(name.Ref)
		if isDefault {
			excludeName = "default"
		}
		stmts = v.appendExportStatement(stmts, name.Loc, excludeName, v.state.localName(name.Loc, name.Ref))
	}
	return v.appendExportsOfDeclaration(stmts, name.Ref, excludeName)
}

// "import {a} from 'm'; export {a as b}" exports "b" at the import. The value
// is a plain reference so it's rewritten to "m_1.a" when printed.
func (v *visitor) appendExportsOfImportDeclaration(stmts []js_ast.Stmt, s *js_ast.SImport) []js_ast.Stmt {
	if v.state.info.ExportEquals != nil {
		return stmts
	}
	if s.DefaultName != nil {
		stmts = v.appendExportsOfDeclaration(stmts, s.DefaultName.Ref, "")
	}
	if s.StarNameLoc != nil {
		stmts = v.appendExportsOfDeclaration(stmts, s.NamespaceRef, "")
	}
	if s.Items != nil {
		for _, item := range *s.Items {
			stmts = v.appendExportsOfDeclaration(stmts, item.Name.Ref, "")
		}
	}
	return stmts
}

func (v *visitor) appendExportsOfDeclaration(stmts []js_ast.Stmt, ref js_ast.Ref, excludeName string) []js_ast.Stmt {
	if v.state.info.ExportEquals != nil {
		return stmts
	}
	ref = js_ast.FollowSymbols(v.state.symbols, ref)
	for _, alias := range v.state.info.ExportSpecifiers[ref] {
		if alias.Name != excludeName {
			stmts = v.appendExportStatement(stmts, alias.Loc, alias.Name, v.state.ident(alias.Loc, ref))
		}
	}
	return stmts
}

// "export * from 'm'" copies every export of "m" except "default" and the
// names this module exports itself. Returns nothing if there is no such
// statement.
func (v *visitor) createExportStarHelper() (stmts []js_ast.Stmt, ref js_ast.Ref, ok bool) {
	info := v.state.info
	if !info.HasExportStarsToExportValues {
		return nil, js_ast.Ref{}, false
	}

	// Collect the names that must not be overwritten
	localNames := orderedmap.NewOrderedMap[string, logger.Loc]()
	for name := range info.ExportedNames.Keys() {
		if name != "default" {
			localNames.Set(name, logger.Loc{})
		}
	}
	hasReexportedNames := false
	for _, external := range info.ExternalImports {
		switch s := external.Stmt.Data.(type) {
		case *js_ast.SExportFrom:
			hasReexportedNames = true
			for _, item := range s.Items {
				if !localNames.Has(item.Alias) {
					localNames.Set(item.Alias, item.AliasLoc)
				}
			}

		case *js_ast.SExportStar:
			if s.Alias != nil {
				hasReexportedNames = true
				if !localNames.Has(s.Alias.Name) {
					localNames.Set(s.Alias.Name, s.Alias.Loc)
				}
			}
		}
	}

	ref = v.newUniqueSymbol(js_ast.SymbolHoistedFunction, "exportStar")
	if localNames.Len() == 0 && len(info.ExportSpecifiers) == 0 && !hasReexportedNames {
		return []js_ast.Stmt{v.createExportStarFunction(ref, nil)}, ref, true
	}

	// var exportedNames_1 = { "a": true, ... };
	tableRef := v.newUniqueSymbol(js_ast.SymbolHoisted, "exportedNames")
	properties := make([]js_ast.Property, 0, localNames.Len())
	for name, loc := range localNames.AllFromFront() {
		value := js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: true}}
		properties = append(properties, js_ast.Property{Key: js_ast.StringExpr(loc, name), Value: &value})
	}
	table := js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
		Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: tableRef}},
		Value:   &js_ast.Expr{Data: &js_ast.EObject{Properties: properties}},
	}}}}

	return []js_ast.Stmt{table, v.createExportStarFunction(ref, &tableRef)}, ref, true
}

// function exportStar_1(m) {
//     var exports = {};
//     for (var n in m) {
//         if (n !== "default" && !exportedNames_1.hasOwnProperty(n)) exports[n] = m[n];
//     }
//     exports_1(exports);
// }
func (v *visitor) createExportStarFunction(ref js_ast.Ref, tableRef *js_ast.Ref) js_ast.Stmt {
	state := v.state
	m := v.newSymbol(js_ast.SymbolHoisted, "m")
	exports := v.newSymbol(js_ast.SymbolHoisted, "exports")
	n := v.newSymbol(js_ast.SymbolHoisted, "n")
	loc := logger.Loc{}

	condition := js_ast.Expr{Data: &js_ast.EBinary{
		Op:    js_ast.BinOpStrictNe,
		Left:  state.ident(loc, n),
		Right: js_ast.StringExpr(loc, "default"),
	}}
	if tableRef != nil {
		hasOwnProperty := js_ast.Expr{Data: &js_ast.ECall{
			Target: js_ast.Expr{Data: &js_ast.EDot{Target: state.ident(loc, *tableRef), Name: "hasOwnProperty"}},
			Args:   []js_ast.Expr{state.ident(loc, n)},
		}}
		condition = js_ast.Expr{Data: &js_ast.EBinary{
			Op:    js_ast.BinOpLogicalAnd,
			Left:  condition,
			Right: js_ast.Expr{Data: &js_ast.EUnary{Op: js_ast.UnOpNot, Value: hasOwnProperty}},
		}}
	}

	copyExport := js_ast.AssignStmt(
		js_ast.Expr{Data: &js_ast.EIndex{Target: state.ident(loc, exports), Index: state.ident(loc, n)}},
		js_ast.Expr{Data: &js_ast.EIndex{Target: state.ident(loc, m), Index: state.ident(loc, n)}},
	)
	loop := js_ast.Stmt{Data: &js_ast.SForIn{
		Init:  js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: n}}}}}},
		Value: state.ident(loc, m),
		Body:  js_ast.Stmt{Data: &js_ast.SBlock{Stmts: []js_ast.Stmt{{Data: &js_ast.SIf{Test: condition, Yes: copyExport}}}}},
	}}

	return js_ast.Stmt{Data: &js_ast.SFunction{Fn: js_ast.Fn{
		Name: &js_ast.LocRef{Ref: ref},
		Args: []js_ast.Arg{{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: m}}}},
		Body: js_ast.FnBody{Stmts: []js_ast.Stmt{
			{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
				Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: exports}},
				Value:   &js_ast.Expr{Data: &js_ast.EObject{}},
			}}}},
			loop,
			{Data: &js_ast.SExpr{Value: js_ast.Expr{Data: &js_ast.ECall{
				Target: state.ident(loc, state.exportFunction),
				Args:   []js_ast.Expr{state.ident(loc, exports)},
			}}}},
		}},
	}}}
}
