package sysreg

import (
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

// Declarations directly in the module body are hoisted no matter their kind.
// Inside a block only "var" is, since "let", "const", functions and classes
// can't escape it.
type container uint8

const (
	containerModule container = iota
	containerBlock
)

func (v *visitor) visitTopLevelStmts(stmts []js_ast.Stmt) []js_ast.Stmt {
	var result []js_ast.Stmt
	for _, stmt := range stmts {
		result = append(result, v.visitTopLevelStmt(stmt)...)
	}
	return result
}

func (v *visitor) visitTopLevelStmt(stmt js_ast.Stmt) []js_ast.Stmt {
	switch s := stmt.Data.(type) {
	case *js_ast.SImport:
		return v.visitImport(s)

	case *js_ast.SImportEquals:
		return v.visitImportEquals(s)

	case *js_ast.SExportClause, *js_ast.SExportFrom, *js_ast.SExportStar:
		// These are handled by the setters and the exported names table
		return nil

	case *js_ast.SExportEquals:
		v.log.AddDebug(logger.MsgID_SysReg_ExportEqualsElided, &v.source, logger.Range{Loc: stmt.Loc},
			"Dropping \"export =\" since it has no equivalent in the System.register format")
		return nil

	case *js_ast.SExportDefault:
		return v.visitExportDefault(stmt, s)

	default:
		return v.visitNestedStmt(stmt, containerModule)
	}
}

func (v *visitor) visitNestedStmts(stmts []js_ast.Stmt, c container) []js_ast.Stmt {
	var result []js_ast.Stmt
	for _, stmt := range stmts {
		result = append(result, v.visitNestedStmt(stmt, c)...)
	}
	return result
}

// Statements in a single-statement position such as a loop body must stay a
// single statement
func (v *visitor) visitNestedBody(stmt js_ast.Stmt, c container) js_ast.Stmt {
	stmts := v.visitNestedStmt(stmt, c)
	if len(stmts) == 1 {
		return stmts[0]
	}
	return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: stmts}}
}

// Statements that can contain hoistable declarations are rewritten here.
// Everything else goes through the plain visitor in "visit.go", which doesn't
// hoist anything.
func (v *visitor) visitNestedStmt(stmt js_ast.Stmt, c container) []js_ast.Stmt {
	switch s := stmt.Data.(type) {
	case *js_ast.SLocal:
		return v.visitVariableStatement(stmt, s, c)

	case *js_ast.SFunction:
		// Functions and classes in a block are scoped to that block
		if c != containerModule {
			return []js_ast.Stmt{v.visitStmt(stmt)}
		}
		name := *s.Fn.Name
		v.visitFunctionDeclaration(stmt.Loc, s.Fn, name, s.IsExport, false, s.EndMarker)
		return nil

	case *js_ast.SClass:
		if c != containerModule {
			return []js_ast.Stmt{v.visitStmt(stmt)}
		}
		return v.visitClassDeclaration(stmt.Loc, s.Class, *s.Class.Name, s.IsExport, false, s.EndMarker)

	case *js_ast.SFor:
		clone := *s
		if s.Init != nil {
			init := v.visitForInitializer(*s.Init, v.visitStmt)
			clone.Init = &init
		}
		if s.Test != nil {
			test := v.visitExpr(*s.Test, false)
			clone.Test = &test
		}
		if s.Update != nil {
			update := v.visitExpr(*s.Update, true)
			clone.Update = &update
		}
		clone.Body = v.visitNestedBody(s.Body, containerBlock)
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SForIn:
		clone := *s
		clone.Init = v.visitForInitializer(s.Init, v.visitForTarget)
		clone.Value = v.visitExpr(s.Value, false)
		clone.Body = v.visitNestedBody(s.Body, containerBlock)
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SForOf:
		if s.IsAwait && v.fnDepth == 0 {
			v.hasTopLevelAwait = true
		}
		clone := *s
		clone.Init = v.visitForInitializer(s.Init, v.visitForTarget)
		clone.Value = v.visitExpr(s.Value, false)
		clone.Body = v.visitNestedBody(s.Body, containerBlock)
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SDoWhile:
		clone := *s
		clone.Body = v.visitNestedBody(s.Body, c)
		clone.Test = v.visitExpr(s.Test, false)
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SWhile:
		clone := *s
		clone.Test = v.visitExpr(s.Test, false)
		clone.Body = v.visitNestedBody(s.Body, c)
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SLabel:
		clone := *s
		clone.Stmt = v.visitNestedBody(s.Stmt, c)
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SWith:
		clone := *s
		clone.Value = v.visitExpr(s.Value, false)
		clone.Body = v.visitNestedBody(s.Body, c)
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SIf:
		clone := *s
		clone.Test = v.visitExpr(s.Test, false)
		clone.Yes = v.visitNestedBody(s.Yes, c)
		if s.No != nil {
			no := v.visitNestedBody(*s.No, c)
			clone.No = &no
		}
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SSwitch:
		clone := *s
		clone.Test = v.visitExpr(s.Test, false)
		clone.Cases = make([]js_ast.Case, len(s.Cases))
		for i, c := range s.Cases {
			if c.Value != nil {
				value := v.visitExpr(*c.Value, false)
				c.Value = &value
			}
			c.Body = v.visitNestedStmts(c.Body, containerBlock)
			clone.Cases[i] = c
		}
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.STry:
		clone := *s
		clone.Body = v.visitNestedStmts(s.Body, containerBlock)
		if s.Catch != nil {
			catch := *s.Catch
			if catch.Binding != nil {
				binding := v.visitBinding(*catch.Binding)
				catch.Binding = &binding
			}
			catch.Body = v.visitNestedStmts(catch.Body, containerBlock)
			clone.Catch = &catch
		}
		if s.Finally != nil {
			clone.Finally = &js_ast.Finally{Loc: s.Finally.Loc, Stmts: v.visitNestedStmts(s.Finally.Stmts, containerBlock)}
		}
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &clone}}

	case *js_ast.SBlock:
		return []js_ast.Stmt{{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: v.visitNestedStmts(s.Stmts, containerBlock)}}}

	case *js_ast.SMergeMarker:
		// A merged variable statement is hoisted like any other, but its exports
		// are held back until the whole merged declaration has run
		if local, ok := s.Original.Data.(*js_ast.SLocal); ok && s.EndMarker != 0 {
			clone := *local
			clone.EndMarker = s.EndMarker
			return v.visitVariableStatement(s.Original, &clone, c)
		}
		return v.visitNestedStmt(s.Original, c)

	case *js_ast.SEndMarker:
		stmts := []js_ast.Stmt{stmt}
		deferred := v.deferredExports[s.ID]
		delete(v.deferredExports, s.ID)
		if len(deferred) > 0 {
			return append(stmts, deferred...)
		}
		if s.Kind != js_ast.EndOfOther {
			// Enums and namespaces are exported once their body has run
			return v.appendExportsOfDeclaration(stmts, s.Name, "")
		}
		return stmts

	default:
		return []js_ast.Stmt{v.visitStmt(stmt)}
	}
}

func shouldHoistVariable(local *js_ast.SLocal, c container) bool {
	return c == containerModule || !local.Kind.IsBlockScoped()
}

// "export let a = 1, b;" becomes "exports_1("a", a = 1);" with "a" and "b"
// hoisted. Initializers keep their order.
func (v *visitor) visitVariableStatement(stmt js_ast.Stmt, local *js_ast.SLocal, c container) []js_ast.Stmt {
	if !shouldHoistVariable(local, c) {
		return []js_ast.Stmt{v.visitStmt(stmt)}
	}

	isMarked := local.EndMarker != 0
	var exprs []js_ast.Expr
	for _, decl := range local.Decls {
		if decl.Value != nil {
			exprs = append(exprs, v.transformInitializedVariable(decl, local.IsExport && !isMarked))
		} else {
			v.hoistBinding(decl.Binding)
		}
	}

	var stmts []js_ast.Stmt
	if len(exprs) > 0 {
		stmts = append(stmts, js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExpr{Value: js_ast.JoinAllWithComma(exprs)}})
	}

	if isMarked {
		v.deferredExports[local.EndMarker] = v.appendExportsOfVariableStatement(v.deferredExports[local.EndMarker], local, local.IsExport)
	} else {
		stmts = v.appendExportsOfVariableStatement(stmts, local, false)
	}
	return stmts
}

// The initializer of a for loop can't hold a statement, so a hoisted
// declaration there turns into a comma expression. Anything else is left to
// "visitOther".
func (v *visitor) visitForInitializer(init js_ast.Stmt, visitOther func(js_ast.Stmt) js_ast.Stmt) js_ast.Stmt {
	if local, ok := init.Data.(*js_ast.SLocal); ok && shouldHoistVariable(local, containerBlock) {
		exprs := make([]js_ast.Expr, len(local.Decls))
		for i, decl := range local.Decls {
			exprs[i] = v.transformInitializedVariable(decl, false)
		}
		return js_ast.Stmt{Loc: init.Loc, Data: &js_ast.SExpr{Value: js_ast.JoinAllWithComma(exprs)}}
	}
	return visitOther(init)
}

// Returns the assignment for one declarator after hoisting the names it binds.
// A declarator without an initializer (only possible in a for loop here)
// turns into its name or pattern.
func (v *visitor) transformInitializedVariable(decl js_ast.Decl, isExported bool) js_ast.Expr {
	v.hoistBinding(decl.Binding)

	if b, ok := decl.Binding.Data.(*js_ast.BIdentifier); ok {
		name := js_ast.Expr{Loc: decl.Binding.Loc, Data: &js_ast.EIdentifier{Ref: b.Ref}}
		if decl.Value == nil {
			return name
		}
		assign := v.state.preventSubstitution(v.assign(name, v.visitExpr(*decl.Value, false)))
		if isExported {
			return v.state.exportExpression(decl.Binding.Loc, v.name(b.Ref), assign)
		}
		return assign
	}

	target := v.convertBindingToExpr(decl.Binding)
	if decl.Value == nil {
		return target
	}
	assign := v.state.preventSubstitution(v.assign(target, v.visitExpr(*decl.Value, false)))
	if !isExported {
		return assign
	}

	// Each exported name is reported after the pattern has been assigned
	exprs := []js_ast.Expr{assign}
	js_ast.ForEachIdentifierBinding(decl.Binding, func(loc logger.Loc, b *js_ast.BIdentifier) {
		exprs = append(exprs, v.state.exportExpression(loc, v.name(b.Ref), v.state.localName(loc, b.Ref)))
	})
	return js_ast.JoinAllWithComma(exprs)
}

// Function declarations are hoisted whole, so the function exists before any
// setter runs. Its exports are reported from the hoisted code too.
func (v *visitor) visitFunctionDeclaration(loc logger.Loc, fn js_ast.Fn, name js_ast.LocRef, isExport bool, isDefault bool, endMarker js_ast.NodeID) {
	fn = v.visitFn(fn)
	fn.Name = &name
	v.hoistedStmts = append(v.hoistedStmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: fn}})

	if endMarker != 0 {
		v.deferredExports[endMarker] = v.appendExportsOfHoistedDeclaration(v.deferredExports[endMarker], name, isExport, isDefault)
	} else {
		v.hoistedStmts = v.appendExportsOfHoistedDeclaration(v.hoistedStmts, name, isExport, isDefault)
	}
}

// "class C {}" becomes "C = class C {}" with "C" hoisted. The class body still
// runs at its original position.
func (v *visitor) visitClassDeclaration(loc logger.Loc, class js_ast.Class, name js_ast.LocRef, isExport bool, isDefault bool, endMarker js_ast.NodeID) []js_ast.Stmt {
	v.hoist(name.Ref)
	class = v.visitClass(class)
	value := js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: class}}
	stmts := []js_ast.Stmt{{Loc: loc, Data: &js_ast.SExpr{Value: v.assign(v.state.localName(name.Loc, name.Ref), value)}}}

	if endMarker != 0 {
		v.deferredExports[endMarker] = v.appendExportsOfHoistedDeclaration(v.deferredExports[endMarker], name, isExport, isDefault)
	} else {
		stmts = v.appendExportsOfHoistedDeclaration(stmts, name, isExport, isDefault)
	}
	return stmts
}

// The import itself is handled by the setter. All that's left here is to
// hoist the local and re-export anything named in an "export {}" clause.
func (v *visitor) visitImport(s *js_ast.SImport) []js_ast.Stmt {
	if s.DefaultName != nil || s.Items != nil || s.StarNameLoc != nil {
		v.hoist(v.importLocals[s.ImportRecordIndex])
	}

	if s.EndMarker != 0 {
		v.deferredExports[s.EndMarker] = v.appendExportsOfImportDeclaration(v.deferredExports[s.EndMarker], s)
		return nil
	}
	return v.appendExportsOfImportDeclaration(nil, s)
}

func (v *visitor) visitImportEquals(s *js_ast.SImportEquals) []js_ast.Stmt {
	// "import x = N.y" must have been lowered to a variable by now
	if !s.ImportRecordIndex.IsValid() {
		panic("Internal error")
	}
	v.hoist(s.Name.Ref)

	if s.EndMarker != 0 {
		v.deferredExports[s.EndMarker] = v.appendExportsOfDeclaration(v.deferredExports[s.EndMarker], s.Name.Ref, "")
		return nil
	}
	return v.appendExportsOfDeclaration(nil, s.Name.Ref, "")
}

func (v *visitor) visitExportDefault(stmt js_ast.Stmt, s *js_ast.SExportDefault) []js_ast.Stmt {
	if s.Value.Stmt != nil {
		switch d := s.Value.Stmt.Data.(type) {
		case *js_ast.SFunction:
			name := s.DefaultName
			if d.Fn.Name != nil {
				name = *d.Fn.Name
			}
			v.visitFunctionDeclaration(s.Value.Stmt.Loc, d.Fn, name, true, true, s.EndMarker)
			return nil

		case *js_ast.SClass:
			name := s.DefaultName
			if d.Class.Name != nil {
				name = *d.Class.Name
			}
			return v.visitClassDeclaration(s.Value.Stmt.Loc, d.Class, name, true, true, s.EndMarker)

		default:
			panic("Internal error")
		}
	}

	value := v.visitExpr(*s.Value.Expr, false)
	if s.EndMarker != 0 {
		v.deferredExports[s.EndMarker] = v.appendExportStatement(v.deferredExports[s.EndMarker], stmt.Loc, "default", value)
		return nil
	}
	return v.appendExportStatement(nil, stmt.Loc, "default", value)
}
