package sysreg

import (
	"github.com/sysreg/sysreg/internal/helpers"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

// Builds the function passed to "System.register()":
//
//   function (exports_1, context_1) {
//       "use strict";
//       var __moduleName = context_1 && context_1.id;
//       function f() {}                  // hoisted statements
//       var x, m_1;                      // hoisted names
//       function exportStar_1(m) { ... } // only with "export *"
//       return { setters: [...], execute: function () { ... } };
//   }
//
func (v *visitor) createBody(stmts []js_ast.Stmt, groups []*dependencyGroup) js_ast.Fn {
	state := v.state
	body, prologueCount := v.copyPrologue(stmts)

	// var __moduleName = context_1 && context_1.id;
	moduleNameRef := v.newSymbol(js_ast.SymbolHoisted, "__moduleName")
	body = append(body, js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
		Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: moduleNameRef}},
		Value: &js_ast.Expr{Data: &js_ast.EBinary{
			Op:    js_ast.BinOpLogicalAnd,
			Left:  state.ident(logger.Loc{}, state.contextObject),
			Right: js_ast.Expr{Data: &js_ast.EDot{Target: state.ident(logger.Loc{}, state.contextObject), Name: "id"}},
		}},
	}}}})

	// The helpers import isn't in the source so it's visited on its own
	if info := state.info; info.HasHelpersImport() {
		body = append(body, v.visitTopLevelStmt(info.ExternalImports[0].Stmt)...)
	}

	executeStmts := v.visitTopLevelStmts(stmts[prologueCount:])
	if len(v.deferredExports) != 0 {
		panic("Internal error")
	}

	body = append(body, v.hoistedStmts...)
	if len(v.hoistedNames) > 0 {
		decls := make([]js_ast.Decl, len(v.hoistedNames))
		for i, ref := range v.hoistedNames {
			decls[i] = js_ast.Decl{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: ref}}}
		}
		body = append(body, js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}})
	}

	exportStarStmts, exportStarRef, hasExportStar := v.createExportStarHelper()
	body = append(body, exportStarStmts...)

	var exportStar *js_ast.Ref
	if hasExportStar {
		exportStar = &exportStarRef
	}
	setters := v.createSetters(groups, exportStar)

	execute := js_ast.Expr{Data: &js_ast.EFunction{Fn: js_ast.Fn{
		Body:    js_ast.FnBody{Stmts: executeStmts},
		IsAsync: v.hasTopLevelAwait,
	}}}
	returned := js_ast.Expr{Data: &js_ast.EObject{Properties: []js_ast.Property{
		{Key: js_ast.StringExpr(logger.Loc{}, "setters"), Value: &js_ast.Expr{Data: &js_ast.EArray{Items: setters}}},
		{Key: js_ast.StringExpr(logger.Loc{}, "execute"), Value: &execute},
	}}}
	body = append(body, js_ast.Stmt{Data: &js_ast.SReturn{Value: &returned}})

	return js_ast.Fn{
		Args: []js_ast.Arg{
			{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: state.exportFunction}}},
			{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: state.contextObject}}},
		},
		Body: js_ast.FnBody{Stmts: body},
	}
}

// Copies the directives at the start of the module into the body function
// and adds "use strict" if needed. Returns how many statements were copied.
func (v *visitor) copyPrologue(stmts []js_ast.Stmt) ([]js_ast.Stmt, int) {
	var prologue []js_ast.Stmt
	hasUseStrict := false
	for _, stmt := range stmts {
		directive, ok := stmt.Data.(*js_ast.SDirective)
		if !ok {
			break
		}
		if helpers.UTF16EqualsString(directive.Value, "use strict") {
			hasUseStrict = true
		}
		prologue = append(prologue, stmt)
	}
	count := len(prologue)

	if !hasUseStrict && v.options.ShouldEmitUseStrict() {
		prologue = append(prologue, js_ast.Stmt{Data: &js_ast.SDirective{Value: helpers.StringToUTF16("use strict")}})
	}
	return prologue, count
}

// Each group gets one setter that the loader calls with the group's module
// namespace object whenever it changes
func (v *visitor) createSetters(groups []*dependencyGroup, exportStar *js_ast.Ref) []js_ast.Expr {
	state := v.state
	setters := make([]js_ast.Expr, 0, len(groups))

	for _, group := range groups {
		// The parameter is named after the first import in the group that has a
		// local, and "_1" if none of them do
		paramBase := ""
		for _, external := range group.externalImports {
			if local := v.importLocals[external.ImportRecordIndex]; local != js_ast.InvalidRef {
				paramBase = v.name(local)
				break
			}
		}
		param := v.newUniqueSymbol(js_ast.SymbolHoisted, paramBase)
		loc := group.loc

		var stmts []js_ast.Stmt
		for _, external := range group.externalImports {
			local := v.importLocals[external.ImportRecordIndex]

			switch s := external.Stmt.Data.(type) {
			case *js_ast.SImport:
				if local == js_ast.InvalidRef {
					continue
				}
				stmts = append(stmts, js_ast.AssignStmt(state.localName(loc, local), state.ident(loc, param)))

			case *js_ast.SImportEquals:
				stmts = append(stmts, js_ast.AssignStmt(state.localName(loc, local), state.ident(loc, param)))
				if s.IsExport {
					stmts = v.appendExportStatement(stmts, loc, v.name(local), state.ident(loc, param))
				}

			case *js_ast.SExportFrom:
				// exports_1({ b: m_1_1["a"] });
				properties := make([]js_ast.Property, len(s.Items))
				for i, item := range s.Items {
					value := js_ast.Expr{Loc: item.Name.Loc, Data: &js_ast.EIndex{
						Target: state.ident(item.Name.Loc, param),
						Index:  js_ast.StringExpr(item.Name.Loc, item.OriginalName),
					}}
					properties[i] = js_ast.Property{Key: js_ast.StringExpr(item.AliasLoc, item.Alias), Value: &value}
				}
				stmts = append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
					Target: state.ident(loc, state.exportFunction),
					Args:   []js_ast.Expr{{Loc: loc, Data: &js_ast.EObject{Properties: properties}}},
				}}}})

			case *js_ast.SExportStar:
				if s.Alias != nil {
					stmts = v.appendExportStatement(stmts, loc, s.Alias.Name, state.ident(loc, param))
				} else {
					stmts = append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
						Target: state.ident(loc, *exportStar),
						Args:   []js_ast.Expr{state.ident(loc, param)},
					}}}})
				}
			}
		}

		setters = append(setters, js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: js_ast.Fn{
			Args: []js_ast.Arg{{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: param}}}},
			Body: js_ast.FnBody{Stmts: stmts},
		}}})
	}

	return setters
}

// System.register("name", ["./a", "./b"], function (exports_1, context_1) { ... });
func (v *visitor) createRegistration(groups []*dependencyGroup, body js_ast.Fn) js_ast.Stmt {
	systemRef := v.newSymbol(js_ast.SymbolUnbound, "System")

	dependencies := make([]js_ast.Expr, len(groups))
	for i, group := range groups {
		dependencies[i] = js_ast.StringExpr(group.loc, group.specifier)
	}

	var args []js_ast.Expr
	if name := v.registrationName(); name != "" {
		args = append(args, js_ast.StringExpr(logger.Loc{}, name))
	}
	args = append(args,
		js_ast.Expr{Data: &js_ast.EArray{Items: dependencies, IsSingleLine: true}},
		js_ast.Expr{Data: &js_ast.EFunction{Fn: body}},
	)

	return js_ast.Stmt{Data: &js_ast.SExpr{Value: js_ast.Expr{Data: &js_ast.ECall{
		Target: js_ast.Expr{Data: &js_ast.EDot{Target: v.state.ident(logger.Loc{}, systemRef), Name: "register"}},
		Args:   args,
	}}}}
}
