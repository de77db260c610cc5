package sysreg

import (
	"github.com/sysreg/sysreg/internal/js_ast"
)

// This is the plain visitor for code that isn't hoisted: nested function
// bodies, block-scoped declarations, and every expression. It copies each
// node it changes and leaves the input tree alone. The only rewrites here are
// the ones that can't wait until print time: "import()", destructuring into
// exported names, and spotting top-level await.

func (v *visitor) visitStmts(stmts []js_ast.Stmt) []js_ast.Stmt {
	result := make([]js_ast.Stmt, len(stmts))
	for i, stmt := range stmts {
		result[i] = v.visitStmt(stmt)
	}
	return result
}

func (v *visitor) visitStmt(stmt js_ast.Stmt) js_ast.Stmt {
	switch s := stmt.Data.(type) {
	case *js_ast.SEmpty, *js_ast.SDebugger, *js_ast.SDirective, *js_ast.SBreak, *js_ast.SContinue,
		*js_ast.SMergeMarker, *js_ast.SEndMarker:
		return stmt

	case *js_ast.SExpr:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SExpr{Value: v.visitExpr(s.Value, true)}}

	case *js_ast.SLocal:
		clone := *s
		clone.Decls = make([]js_ast.Decl, len(s.Decls))
		for i, decl := range s.Decls {
			decl.Binding = v.visitBinding(decl.Binding)
			if decl.Value != nil {
				value := v.visitExpr(*decl.Value, false)
				decl.Value = &value
			}
			clone.Decls[i] = decl
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SFunction:
		clone := *s
		clone.Fn = v.visitFn(s.Fn)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SClass:
		clone := *s
		clone.Class = v.visitClass(s.Class)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SReturn:
		if s.Value == nil {
			return stmt
		}
		value := v.visitExpr(*s.Value, false)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SReturn{Value: &value}}

	case *js_ast.SThrow:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SThrow{Value: v.visitExpr(s.Value, false)}}

	case *js_ast.SBlock:
		return js_ast.Stmt{Loc: stmt.Loc, Data: &js_ast.SBlock{Stmts: v.visitStmts(s.Stmts)}}

	case *js_ast.SLabel:
		clone := *s
		clone.Stmt = v.visitStmt(s.Stmt)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SIf:
		clone := *s
		clone.Test = v.visitExpr(s.Test, false)
		clone.Yes = v.visitStmt(s.Yes)
		if s.No != nil {
			no := v.visitStmt(*s.No)
			clone.No = &no
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SFor:
		clone := *s
		if s.Init != nil {
			init := v.visitStmt(*s.Init)
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
		clone.Body = v.visitStmt(s.Body)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SForIn:
		clone := *s
		clone.Init = v.visitForTarget(s.Init)
		clone.Value = v.visitExpr(s.Value, false)
		clone.Body = v.visitStmt(s.Body)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SForOf:
		if s.IsAwait && v.fnDepth == 0 {
			v.hasTopLevelAwait = true
		}
		clone := *s
		clone.Init = v.visitForTarget(s.Init)
		clone.Value = v.visitExpr(s.Value, false)
		clone.Body = v.visitStmt(s.Body)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SDoWhile:
		clone := *s
		clone.Body = v.visitStmt(s.Body)
		clone.Test = v.visitExpr(s.Test, false)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SWhile:
		clone := *s
		clone.Test = v.visitExpr(s.Test, false)
		clone.Body = v.visitStmt(s.Body)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SWith:
		clone := *s
		clone.Value = v.visitExpr(s.Value, false)
		clone.Body = v.visitStmt(s.Body)
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.SSwitch:
		clone := *s
		clone.Test = v.visitExpr(s.Test, false)
		clone.Cases = make([]js_ast.Case, len(s.Cases))
		for i, c := range s.Cases {
			if c.Value != nil {
				value := v.visitExpr(*c.Value, false)
				c.Value = &value
			}
			c.Body = v.visitStmts(c.Body)
			clone.Cases[i] = c
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	case *js_ast.STry:
		clone := *s
		clone.Body = v.visitStmts(s.Body)
		if s.Catch != nil {
			catch := *s.Catch
			if catch.Binding != nil {
				binding := v.visitBinding(*catch.Binding)
				catch.Binding = &binding
			}
			catch.Body = v.visitStmts(catch.Body)
			clone.Catch = &catch
		}
		if s.Finally != nil {
			clone.Finally = &js_ast.Finally{Loc: s.Finally.Loc, Stmts: v.visitStmts(s.Finally.Stmts)}
		}
		return js_ast.Stmt{Loc: stmt.Loc, Data: &clone}

	default:
		panic("Internal error")
	}
}

// The left side of "for (x in y)" is either a declaration or an assignment
// target
func (v *visitor) visitForTarget(init js_ast.Stmt) js_ast.Stmt {
	if s, ok := init.Data.(*js_ast.SExpr); ok {
		return js_ast.Stmt{Loc: init.Loc, Data: &js_ast.SExpr{Value: v.visitAssignTarget(s.Value)}}
	}
	return v.visitStmt(init)
}

func (v *visitor) visitFn(fn js_ast.Fn) js_ast.Fn {
	v.fnDepth++
	v.tempsForFn = append(v.tempsForFn, nil)

	fn.Args = v.visitArgs(fn.Args)
	fn.Body.Stmts = v.visitStmts(fn.Body.Stmts)
	fn.Body.Stmts = v.popTemps(fn.Body.Stmts)

	v.fnDepth--
	return fn
}

func (v *visitor) visitArgs(args []js_ast.Arg) []js_ast.Arg {
	if len(args) == 0 {
		return args
	}
	result := make([]js_ast.Arg, len(args))
	for i, arg := range args {
		arg.Binding = v.visitBinding(arg.Binding)
		if arg.Default != nil {
			value := v.visitExpr(*arg.Default, false)
			arg.Default = &value
		}
		result[i] = arg
	}
	return result
}

// Declares the temporaries of the function being left at the top of its body
func (v *visitor) popTemps(stmts []js_ast.Stmt) []js_ast.Stmt {
	top := len(v.tempsForFn) - 1
	temps := v.tempsForFn[top]
	v.tempsForFn = v.tempsForFn[:top]
	if len(temps) == 0 {
		return stmts
	}

	decls := make([]js_ast.Decl, len(temps))
	for i, ref := range temps {
		decls[i] = js_ast.Decl{Binding: js_ast.Binding{Data: &js_ast.BIdentifier{Ref: ref}}}
	}
	result := make([]js_ast.Stmt, 0, len(stmts)+1)
	result = append(result, js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}})
	return append(result, stmts...)
}

func (v *visitor) visitClass(class js_ast.Class) js_ast.Class {
	if class.Extends != nil {
		extends := v.visitExpr(*class.Extends, false)
		class.Extends = &extends
	}
	class.Properties = v.visitProperties(class.Properties)
	return class
}

func (v *visitor) visitProperties(properties []js_ast.Property) []js_ast.Property {
	if len(properties) == 0 {
		return properties
	}
	result := make([]js_ast.Property, len(properties))
	for i, property := range properties {
		if property.IsComputed {
			property.Key = v.visitExpr(property.Key, false)
		}
		if property.Value != nil {
			value := v.visitExpr(*property.Value, false)
			property.Value = &value
		}
		if property.Initializer != nil {
			initializer := v.visitExpr(*property.Initializer, false)
			property.Initializer = &initializer
		}
		result[i] = property
	}
	return result
}

// Only default values and computed keys in a binding can contain code
func (v *visitor) visitBinding(binding js_ast.Binding) js_ast.Binding {
	switch b := binding.Data.(type) {
	case *js_ast.BMissing, *js_ast.BIdentifier:
		return binding

	case *js_ast.BArray:
		items := make([]js_ast.ArrayBinding, len(b.Items))
		for i, item := range b.Items {
			item.Binding = v.visitBinding(item.Binding)
			if item.DefaultValue != nil {
				value := v.visitExpr(*item.DefaultValue, false)
				item.DefaultValue = &value
			}
			items[i] = item
		}
		return js_ast.Binding{Loc: binding.Loc, Data: &js_ast.BArray{Items: items, HasSpread: b.HasSpread}}

	case *js_ast.BObject:
		properties := make([]js_ast.PropertyBinding, len(b.Properties))
		for i, property := range b.Properties {
			if property.IsComputed {
				property.Key = v.visitExpr(property.Key, false)
			}
			property.Value = v.visitBinding(property.Value)
			if property.DefaultValue != nil {
				value := v.visitExpr(*property.DefaultValue, false)
				property.DefaultValue = &value
			}
			properties[i] = property
		}
		return js_ast.Binding{Loc: binding.Loc, Data: &js_ast.BObject{Properties: properties}}

	default:
		panic("Internal error")
	}
}

// Turns a hoisted declaration's pattern into an assignment target. Default
// values become assignments inside the pattern and those must never be
// wrapped in an exporter call.
func (v *visitor) convertBindingToExpr(binding js_ast.Binding) js_ast.Expr {
	return v.visitAssignTarget(js_ast.ConvertBindingToExpr(binding, nil))
}

// Marks the default-value assignments inside a destructuring target so the
// printer leaves them alone
func (v *visitor) visitAssignTarget(target js_ast.Expr) js_ast.Expr {
	switch e := target.Data.(type) {
	case *js_ast.EArray:
		items := make([]js_ast.Expr, len(e.Items))
		for i, item := range e.Items {
			items[i] = v.visitAssignTarget(item)
		}
		return js_ast.Expr{Loc: target.Loc, Data: &js_ast.EArray{Items: items, IsSingleLine: e.IsSingleLine}}

	case *js_ast.EObject:
		properties := make([]js_ast.Property, len(e.Properties))
		for i, property := range e.Properties {
			if property.IsComputed {
				property.Key = v.visitExpr(property.Key, false)
			}
			if property.Value != nil {
				value := v.visitAssignTarget(*property.Value)
				property.Value = &value
			}
			if property.Initializer != nil {
				initializer := v.visitExpr(*property.Initializer, false)
				property.Initializer = &initializer
			}
			properties[i] = property
		}
		return js_ast.Expr{Loc: target.Loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: e.IsSingleLine}}

	case *js_ast.ESpread:
		return js_ast.Expr{Loc: target.Loc, Data: &js_ast.ESpread{Value: v.visitAssignTarget(e.Value)}}

	case *js_ast.EBinary:
		if e.Op == js_ast.BinOpAssign {
			return v.state.preventSubstitution(js_ast.Expr{Loc: target.Loc, Data: &js_ast.EBinary{
				Op:    js_ast.BinOpAssign,
				Left:  v.visitAssignTarget(e.Left),
				Right: v.visitExpr(e.Right, false),
				ID:    e.ID,
			}})
		}
	}

	return v.visitExpr(target, false)
}

func (v *visitor) assign(target js_ast.Expr, value js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Loc: target.Loc, Data: &js_ast.EBinary{
		Op:    js_ast.BinOpAssign,
		Left:  target,
		Right: value,
		ID:    v.state.newNodeID(),
	}}
}

func (v *visitor) visitExprs(exprs []js_ast.Expr) []js_ast.Expr {
	if len(exprs) == 0 {
		return exprs
	}
	result := make([]js_ast.Expr, len(exprs))
	for i, expr := range exprs {
		result[i] = v.visitExpr(expr, false)
	}
	return result
}

// "isDiscarded" is true when nothing uses the value of the expression, which
// lets a destructuring assignment skip its temporary
func (v *visitor) visitExpr(expr js_ast.Expr, isDiscarded bool) js_ast.Expr {
	switch e := expr.Data.(type) {
	case *js_ast.EMissing, *js_ast.EBoolean, *js_ast.ESuper, *js_ast.ENull, *js_ast.EUndefined,
		*js_ast.EThis, *js_ast.ENewTarget, *js_ast.EImportMeta, *js_ast.EIdentifier, *js_ast.ENumber,
		*js_ast.EBigInt, *js_ast.EString, *js_ast.ERegExp:
		return expr

	case *js_ast.EImport:
		// "import(x)" goes through the loader's context object
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ECall{
			Target: js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EDot{
				Target:  v.state.ident(expr.Loc, v.state.contextObject),
				Name:    "import",
				NameLoc: expr.Loc,
			}},
			Args: []js_ast.Expr{v.visitExpr(e.Expr, false)},
		}}

	case *js_ast.EAwait:
		if v.fnDepth == 0 {
			v.hasTopLevelAwait = true
		}
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EAwait{Value: v.visitExpr(e.Value, false)}}

	case *js_ast.EBinary:
		if e.Op == js_ast.BinOpAssign && js_ast.IsDestructuringTarget(e.Left) {
			return v.visitDestructuringAssignment(expr, e, isDiscarded)
		}
		clone := *e
		clone.Left = v.visitExpr(e.Left, e.Op == js_ast.BinOpComma)
		clone.Right = v.visitExpr(e.Right, e.Op == js_ast.BinOpComma && isDiscarded)
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	case *js_ast.EUnary:
		clone := *e
		clone.Value = v.visitExpr(e.Value, false)
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	case *js_ast.EArray:
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EArray{Items: v.visitExprs(e.Items), IsSingleLine: e.IsSingleLine}}

	case *js_ast.EObject:
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EObject{Properties: v.visitProperties(e.Properties), IsSingleLine: e.IsSingleLine}}

	case *js_ast.ESpread:
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ESpread{Value: v.visitExpr(e.Value, false)}}

	case *js_ast.ENew:
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.ENew{Target: v.visitExpr(e.Target, false), Args: v.visitExprs(e.Args)}}

	case *js_ast.ECall:
		clone := *e
		clone.Target = v.visitExpr(e.Target, false)
		clone.Args = v.visitExprs(e.Args)
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	case *js_ast.EDot:
		clone := *e
		clone.Target = v.visitExpr(e.Target, false)
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	case *js_ast.EIndex:
		clone := *e
		clone.Target = v.visitExpr(e.Target, false)
		clone.Index = v.visitExpr(e.Index, false)
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	case *js_ast.EIf:
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EIf{
			Test: v.visitExpr(e.Test, false),
			Yes:  v.visitExpr(e.Yes, isDiscarded),
			No:   v.visitExpr(e.No, isDiscarded),
		}}

	case *js_ast.EArrow:
		v.fnDepth++
		v.tempsForFn = append(v.tempsForFn, nil)
		clone := *e
		clone.Args = v.visitArgs(e.Args)
		clone.Body.Stmts = v.visitStmts(e.Body.Stmts)
		if stmts := v.popTemps(clone.Body.Stmts); len(stmts) != len(clone.Body.Stmts) {
			clone.Body.Stmts = stmts
			clone.PreferExpr = false
		}
		v.fnDepth--
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	case *js_ast.EFunction:
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EFunction{Fn: v.visitFn(e.Fn)}}

	case *js_ast.EClass:
		return js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EClass{Class: v.visitClass(e.Class)}}

	case *js_ast.ETemplate:
		clone := *e
		if e.Tag != nil {
			tag := v.visitExpr(*e.Tag, false)
			clone.Tag = &tag
		}
		clone.Parts = make([]js_ast.TemplatePart, len(e.Parts))
		for i, part := range e.Parts {
			part.Value = v.visitExpr(part.Value, false)
			clone.Parts[i] = part
		}
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	case *js_ast.EYield:
		clone := *e
		if e.Value != nil {
			value := v.visitExpr(*e.Value, false)
			clone.Value = &value
		}
		return js_ast.Expr{Loc: expr.Loc, Data: &clone}

	default:
		panic("Internal error")
	}
}

// "[a, b] = o" where "a" is exported becomes "[a, b] = o, exports_1("a", a)".
// When the value is used it's kept in a temporary and produced last.
func (v *visitor) visitDestructuringAssignment(expr js_ast.Expr, e *js_ast.EBinary, isDiscarded bool) js_ast.Expr {
	target := v.visitAssignTarget(e.Left)
	value := v.visitExpr(e.Right, false)

	var exports []js_ast.Expr
	js_ast.ForEachAssignmentTarget(e.Left, func(id *js_ast.EIdentifier) {
		if !v.state.canExport(id) {
			return
		}
		for _, name := range v.state.exportsOf(id.Ref) {
			exports = append(exports, v.state.exportExpression(expr.Loc, name, v.state.localName(expr.Loc, id.Ref)))
		}
	})

	if len(exports) == 0 {
		return v.state.preventSubstitution(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpAssign, Left: target, Right: value, ID: e.ID}})
	}

	if isDiscarded {
		assign := v.state.preventSubstitution(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpAssign, Left: target, Right: value, ID: e.ID}})
		return js_ast.JoinAllWithComma(append([]js_ast.Expr{assign}, exports...))
	}

	temp := v.newTemp()
	exprs := []js_ast.Expr{
		v.assign(v.state.ident(expr.Loc, temp), value),
		v.state.preventSubstitution(js_ast.Expr{Loc: expr.Loc, Data: &js_ast.EBinary{Op: js_ast.BinOpAssign, Left: target, Right: v.state.ident(expr.Loc, temp), ID: e.ID}}),
	}
	exprs = append(exprs, exports...)
	exprs = append(exprs, v.state.ident(expr.Loc, temp))
	return js_ast.JoinAllWithComma(exprs)
}
