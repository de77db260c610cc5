package estree

import (
	"github.com/sysreg/sysreg/internal/js_ast"
)

func (l *loader) visitFn(n node, name *js_ast.LocRef) js_ast.Fn {
	l.pushScope(js_ast.ScopeFunctionArgs, n.loc())
	fn := l.visitFnInArgsScope(n, name)
	l.popScope()
	return fn
}

func (l *loader) visitFnInArgsScope(n node, name *js_ast.LocRef) js_ast.Fn {
	fn := js_ast.Fn{
		Name:        name,
		IsAsync:     n.boolean("async"),
		IsGenerator: n.boolean("generator"),
	}
	fn.Args, fn.HasRestArg = l.visitArgs(n.children("params"))

	body := n.child("body")
	l.pushScope(js_ast.ScopeFunctionBody, body.loc())
	fn.Body = js_ast.FnBody{Loc: body.loc(), Stmts: l.visitBody(body.children("body"))}
	l.popScope()
	return fn
}

func (l *loader) visitArrow(n node) js_ast.Expr {
	loc := n.loc()
	l.pushScope(js_ast.ScopeFunctionArgs, loc)
	arrow := &js_ast.EArrow{IsAsync: n.boolean("async")}
	arrow.Args, arrow.HasRestArg = l.visitArgs(n.children("params"))

	body := n.child("body")
	l.pushScope(js_ast.ScopeFunctionBody, body.loc())
	if body.typ() == "BlockStatement" {
		arrow.Body = js_ast.FnBody{Loc: body.loc(), Stmts: l.visitBody(body.children("body"))}
	} else {
		value := l.visitExpr(body)
		arrow.Body = js_ast.FnBody{Loc: body.loc(), Stmts: []js_ast.Stmt{{Loc: body.loc(), Data: &js_ast.SReturn{Value: &value}}}}
		arrow.PreferExpr = true
	}
	l.popScope()
	l.popScope()
	return js_ast.Expr{Loc: loc, Data: arrow}
}

func (l *loader) visitArgs(params []node) ([]js_ast.Arg, bool) {
	args := make([]js_ast.Arg, 0, len(params))
	hasRestArg := false

	for _, param := range params {
		switch param.typ() {
		case "RestElement":
			args = append(args, js_ast.Arg{Binding: l.visitBinding(param.child("argument"), js_ast.SymbolHoisted)})
			hasRestArg = true

		case "AssignmentPattern":
			binding := l.visitBinding(param.child("left"), js_ast.SymbolHoisted)
			value := l.visitExpr(param.child("right"))
			args = append(args, js_ast.Arg{Binding: binding, Default: &value})

		case "TSParameterProperty":
			l.unsupported(param)

		default:
			// TypeScript's "this" parameter only carries a type
			if param.typ() == "Identifier" && param.str("name") == "this" {
				continue
			}
			args = append(args, js_ast.Arg{Binding: l.visitBinding(param, js_ast.SymbolHoisted)})
		}
	}

	return args, hasRestArg
}

// A class declaration's name is declared by the caller in the enclosing
// scope. A class expression's name is only visible inside the class.
func (l *loader) visitClass(n node, name *js_ast.LocRef) js_ast.Class {
	l.pushScope(js_ast.ScopeClassName, n.loc())
	if id := n.child("id"); id != nil && name == nil && n.typ() == "ClassExpression" {
		name = &js_ast.LocRef{Loc: id.loc(), Ref: l.declare(js_ast.SymbolClass, id)}
	}

	class := js_ast.Class{Name: name}
	if n.has("superClass") {
		extends := l.visitExpr(n.child("superClass"))
		class.Extends = &extends
	}

	body := n.child("body")
	class.BodyLoc = body.loc()
	l.pushScope(js_ast.ScopeClassBody, body.loc())
	for _, member := range body.children("body") {
		if member.boolean("declare") {
			continue
		}

		switch member.typ() {
		case "MethodDefinition":
			// Overload signatures have no body
			valueNode := member.child("value")
			if valueNode.typ() == "TSEmptyBodyFunctionExpression" {
				continue
			}
			key, isComputed := l.visitPropertyKey(member)
			value := l.visitExpr(valueNode)
			property := js_ast.Property{
				Key:        key,
				Value:      &value,
				IsComputed: isComputed,
				IsMethod:   true,
				IsStatic:   member.boolean("static"),
			}
			switch member.str("kind") {
			case "get":
				property.Kind = js_ast.PropertyGet
			case "set":
				property.Kind = js_ast.PropertySet
			}
			class.Properties = append(class.Properties, property)

		case "PropertyDefinition":
			key, isComputed := l.visitPropertyKey(member)
			property := js_ast.Property{
				Key:        key,
				IsComputed: isComputed,
				IsStatic:   member.boolean("static"),
			}
			if member.has("value") {
				initializer := l.visitExpr(member.child("value"))
				property.Initializer = &initializer
			}
			class.Properties = append(class.Properties, property)

		case "TSAbstractMethodDefinition", "TSAbstractPropertyDefinition", "TSIndexSignature":

		default:
			l.unsupported(member)
		}
	}
	l.popScope()
	l.popScope()
	return class
}

func (l *loader) visitBinding(n node, kind js_ast.SymbolKind) js_ast.Binding {
	loc := n.loc()

	switch n.typ() {
	case "Identifier":
		return js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Ref: l.declare(kind, n)}}

	case "ArrayPattern":
		elements := n.children("elements")
		items := make([]js_ast.ArrayBinding, 0, len(elements))
		hasSpread := false
		for _, element := range elements {
			switch element.typ() {
			case "":
				items = append(items, js_ast.ArrayBinding{Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BMissing{}}})

			case "RestElement":
				items = append(items, js_ast.ArrayBinding{Binding: l.visitBinding(element.child("argument"), kind)})
				hasSpread = true

			case "AssignmentPattern":
				binding := l.visitBinding(element.child("left"), kind)
				value := l.visitExpr(element.child("right"))
				items = append(items, js_ast.ArrayBinding{Binding: binding, DefaultValue: &value})

			default:
				items = append(items, js_ast.ArrayBinding{Binding: l.visitBinding(element, kind)})
			}
		}
		return js_ast.Binding{Loc: loc, Data: &js_ast.BArray{Items: items, HasSpread: hasSpread}}

	case "ObjectPattern":
		var properties []js_ast.PropertyBinding
		for _, p := range n.children("properties") {
			if p.typ() == "RestElement" {
				properties = append(properties, js_ast.PropertyBinding{
					Key:      js_ast.Expr{Loc: p.loc(), Data: &js_ast.EMissing{}},
					Value:    l.visitBinding(p.child("argument"), kind),
					IsSpread: true,
				})
				continue
			}

			key, isComputed := l.visitPropertyKey(p)
			property := js_ast.PropertyBinding{Key: key, IsComputed: isComputed}
			if value := p.child("value"); value.typ() == "AssignmentPattern" {
				property.Value = l.visitBinding(value.child("left"), kind)
				defaultValue := l.visitExpr(value.child("right"))
				property.DefaultValue = &defaultValue
			} else {
				property.Value = l.visitBinding(value, kind)
			}
			properties = append(properties, property)
		}
		return js_ast.Binding{Loc: loc, Data: &js_ast.BObject{Properties: properties}}
	}

	l.unsupported(n)
	return js_ast.Binding{Loc: loc, Data: &js_ast.BMissing{}}
}

// Patterns on the left of "=" are expressions, not bindings. Defaults in
// array patterns are stored as assignments.
func (l *loader) visitAssignTarget(n node) js_ast.Expr {
	loc := n.loc()

	switch n.typ() {
	case "ArrayPattern":
		elements := n.children("elements")
		items := make([]js_ast.Expr, 0, len(elements))
		for _, element := range elements {
			switch element.typ() {
			case "":
				items = append(items, js_ast.Expr{Loc: loc, Data: &js_ast.EMissing{}})

			case "RestElement":
				items = append(items, js_ast.Expr{Loc: element.loc(), Data: &js_ast.ESpread{Value: l.visitAssignTarget(element.child("argument"))}})

			case "AssignmentPattern":
				target := l.visitAssignTarget(element.child("left"))
				value := l.visitExpr(element.child("right"))
				items = append(items, js_ast.Expr{Loc: element.loc(), Data: &js_ast.EBinary{Op: js_ast.BinOpAssign, Left: target, Right: value, ID: l.nodeID()}})

			default:
				items = append(items, l.visitAssignTarget(element))
			}
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items, IsSingleLine: true}}

	case "ObjectPattern":
		var properties []js_ast.Property
		for _, p := range n.children("properties") {
			if p.typ() == "RestElement" {
				value := l.visitAssignTarget(p.child("argument"))
				properties = append(properties, js_ast.Property{Kind: js_ast.PropertySpread, Value: &value})
				continue
			}

			key, isComputed := l.visitPropertyKey(p)
			property := js_ast.Property{Key: key, IsComputed: isComputed, WasShorthand: p.boolean("shorthand")}
			if value := p.child("value"); value.typ() == "AssignmentPattern" {
				target := l.visitAssignTarget(value.child("left"))
				initializer := l.visitExpr(value.child("right"))
				property.Value = &target
				property.Initializer = &initializer
			} else {
				target := l.visitAssignTarget(value)
				property.Value = &target
			}
			properties = append(properties, property)
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EObject{Properties: properties, IsSingleLine: true}}
	}

	return l.visitExpr(n)
}
