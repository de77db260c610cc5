package estree

import (
	"fmt"

	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

func (l *loader) visitImport(stmts []js_ast.Stmt, n node) []js_ast.Stmt {
	if n.str("importKind") == "type" {
		return stmts
	}

	// "import {type T} from 'm'" imports nothing at runtime. TypeScript drops
	// the whole statement, while a bare "import 'm'" is kept for its side
	// effects.
	specifiers := n.children("specifiers")
	if len(specifiers) > 0 && allTypeOnly(specifiers, "importKind") {
		return stmts
	}
	s := &js_ast.SImport{NamespaceRef: js_ast.InvalidRef}
	s.ImportRecordIndex = l.addImportRecord(n.child("source"), ast.ImportStmt)

	var items []js_ast.ClauseItem
	for _, specifier := range specifiers {
		local := specifier.child("local")

		switch specifier.typ() {
		case "ImportDefaultSpecifier":
			ref := l.declare(js_ast.SymbolImport, local)
			s.DefaultName = &js_ast.LocRef{Loc: local.loc(), Ref: ref}
			l.addNamedImport(ref, js_ast.NamedImport{
				Alias:             "default",
				AliasLoc:          local.loc(),
				NamespaceRef:      js_ast.InvalidRef,
				ImportRecordIndex: s.ImportRecordIndex,
			})

		case "ImportNamespaceSpecifier":
			s.NamespaceRef = l.declare(js_ast.SymbolImport, local)
			starLoc := specifier.loc()
			s.StarNameLoc = &starLoc

		case "ImportSpecifier":
			if specifier.str("importKind") == "type" {
				continue
			}
			imported := specifier.child("imported")
			alias := imported.moduleExportName()
			ref := l.declare(js_ast.SymbolImport, local)
			l.addNamedImport(ref, js_ast.NamedImport{
				Alias:             alias,
				AliasLoc:          imported.loc(),
				NamespaceRef:      js_ast.InvalidRef,
				ImportRecordIndex: s.ImportRecordIndex,
			})
			items = append(items, js_ast.ClauseItem{
				Alias:        alias,
				AliasLoc:     imported.loc(),
				Name:         js_ast.LocRef{Loc: local.loc(), Ref: ref},
				OriginalName: local.str("name"),
			})

		default:
			l.unsupported(specifier)
		}
	}

	if items != nil {
		s.Items = &items
	}
	return append(stmts, js_ast.Stmt{Loc: n.loc(), Data: s})
}

func (l *loader) visitExportNamed(stmts []js_ast.Stmt, n node) []js_ast.Stmt {
	if n.str("exportKind") == "type" {
		return stmts
	}
	if declaration := n.child("declaration"); declaration != nil {
		return l.visitDeclaration(stmts, declaration, true)
	}

	var items []js_ast.ClauseItem
	specifiers := n.children("specifiers")
	if len(specifiers) > 0 && allTypeOnly(specifiers, "exportKind") {
		return stmts
	}

	// "export {a as b} from 'm'"
	if source := n.child("source"); source != nil {
		for _, specifier := range specifiers {
			if specifier.str("exportKind") == "type" {
				continue
			}
			local, exported := specifier.child("local"), specifier.child("exported")
			items = append(items, js_ast.ClauseItem{
				Alias:        exported.moduleExportName(),
				AliasLoc:     exported.loc(),
				Name:         js_ast.LocRef{Loc: local.loc(), Ref: js_ast.InvalidRef},
				OriginalName: local.moduleExportName(),
			})
		}
		return append(stmts, js_ast.Stmt{Loc: n.loc(), Data: &js_ast.SExportFrom{
			Items:             items,
			NamespaceRef:      js_ast.InvalidRef,
			ImportRecordIndex: l.addImportRecord(source, ast.ImportStmt),
		}})
	}

	// "export {a as b}"
	for _, specifier := range specifiers {
		if specifier.str("exportKind") == "type" {
			continue
		}
		local, exported := specifier.child("local"), specifier.child("exported")
		items = append(items, js_ast.ClauseItem{
			Alias:    exported.moduleExportName(),
			AliasLoc: exported.loc(),
			Name:     js_ast.LocRef{Loc: local.loc(), Ref: l.find(local)},
		})
	}
	return append(stmts, js_ast.Stmt{Loc: n.loc(), Data: &js_ast.SExportClause{Items: items}})
}

func allTypeOnly(specifiers []node, kindKey string) bool {
	for _, specifier := range specifiers {
		if specifier.str(kindKey) != "type" {
			return false
		}
	}
	return true
}

func (l *loader) visitExportDefault(stmts []js_ast.Stmt, n node) []js_ast.Stmt {
	loc := n.loc()
	declaration := n.child("declaration")
	switch declaration.typ() {
	case "TSInterfaceDeclaration", "TSDeclareFunction":
		return stmts
	}
	s := &js_ast.SExportDefault{DefaultName: js_ast.LocRef{Loc: declaration.loc(), Ref: js_ast.InvalidRef}}

	switch declaration.typ() {
	case "FunctionDeclaration", "ClassDeclaration":
		kind := js_ast.SymbolHoistedFunction
		if declaration.typ() == "ClassDeclaration" {
			kind = js_ast.SymbolClass
		}

		// "export default function () {}" still needs a name to export
		var name *js_ast.LocRef
		if id := declaration.child("id"); id != nil {
			name = &js_ast.LocRef{Loc: id.loc(), Ref: l.declare(kind, id)}
			s.DefaultName = *name
		} else {
			s.DefaultName.Ref = l.generatedSymbol(kind, "default")
		}

		var stmt js_ast.Stmt
		if kind == js_ast.SymbolClass {
			stmt = js_ast.Stmt{Loc: declaration.loc(), Data: &js_ast.SClass{Class: l.visitClass(declaration, name)}}
		} else {
			stmt = js_ast.Stmt{Loc: declaration.loc(), Data: &js_ast.SFunction{Fn: l.visitFn(declaration, name)}}
		}
		s.Value = js_ast.ExprOrStmt{Stmt: &stmt}

	default:
		value := l.visitExpr(declaration)
		s.Value = js_ast.ExprOrStmt{Expr: &value}
	}

	return append(stmts, js_ast.Stmt{Loc: loc, Data: s})
}

// "import x = require('m')" is an external import. "import x = N.y" is an
// alias for something in this program and becomes a variable, the same as
// the TypeScript compiler emits it.
func (l *loader) visitImportEquals(stmts []js_ast.Stmt, n node, isExport bool) []js_ast.Stmt {
	if n.str("importKind") == "type" {
		return stmts
	}
	loc := n.loc()
	id := n.child("id")
	reference := n.child("moduleReference")

	if reference.typ() == "TSExternalModuleReference" {
		ref := l.declare(js_ast.SymbolImport, id)
		index := l.addImportRecord(reference.child("expression"), ast.ImportRequire)
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SImportEquals{
			Name:              js_ast.LocRef{Loc: id.loc(), Ref: ref},
			ImportRecordIndex: ast.MakeIndex32(index),
			IsExport:          isExport,
		}})
	}

	ref := l.declare(js_ast.SymbolHoisted, id)
	value := l.visitEntityName(reference)
	return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{
		Kind:     js_ast.LocalVar,
		IsExport: isExport,
		Decls:    []js_ast.Decl{{Binding: js_ast.Binding{Loc: id.loc(), Data: &js_ast.BIdentifier{Ref: ref}}, Value: &value}},
	}})
}

// "N.a.b" in "import x = N.a.b"
func (l *loader) visitEntityName(n node) js_ast.Expr {
	switch n.typ() {
	case "Identifier":
		return js_ast.Expr{Loc: n.loc(), Data: &js_ast.EIdentifier{Ref: l.find(n)}}

	case "TSQualifiedName":
		right := n.child("right")
		return js_ast.Expr{Loc: n.loc(), Data: &js_ast.EDot{
			Target:  l.visitEntityName(n.child("left")),
			Name:    right.str("name"),
			NameLoc: right.loc(),
		}}
	}

	l.unsupported(n)
	return js_ast.Expr{Loc: n.loc(), Data: &js_ast.EMissing{}}
}

// Enums are lowered the way the TypeScript compiler lowers them:
//
//	var E;
//	(function (E) {
//	    E[E["A"] = 0] = "A";
//	    E["B"] = "b";
//	})(E || (E = {}));
//
// A second declaration of the same enum continues the first, so its variable
// statement is only carried along as a merge marker. The end marker after the
// call is where the exports of an exported enum are written.
func (l *loader) visitEnum(stmts []js_ast.Stmt, n node, isExport bool) []js_ast.Stmt {
	loc := n.loc()
	id := n.child("id")
	name := id.str("name")
	ref := l.declare(js_ast.SymbolTSEnum, id)
	endMarker := l.nodeID()

	local := js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{
		Kind:      js_ast.LocalVar,
		IsExport:  isExport,
		EndMarker: endMarker,
		Decls:     []js_ast.Decl{{Binding: js_ast.Binding{Loc: id.loc(), Data: &js_ast.BIdentifier{Ref: ref}}}},
	}}
	if l.declaredEnums[ref] {
		stmts = append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SMergeMarker{Original: local, EndMarker: endMarker}})
	} else {
		if l.isBindPass {
			l.declaredEnums[ref] = true
		}
		stmts = append(stmts, local)
	}

	// The members are assigned inside a function whose argument shadows the enum
	l.pushScope(js_ast.ScopeFunctionArgs, loc)
	argRef := l.b.DeclareSymbol(js_ast.SymbolHoisted, id.loc(), name)
	l.pushScope(js_ast.ScopeFunctionBody, loc)
	body := l.visitEnumMembers(n, argRef)
	l.popScope()
	l.popScope()

	enumRef := func() js_ast.Expr {
		return js_ast.Expr{Loc: id.loc(), Data: &js_ast.EIdentifier{Ref: ref}}
	}
	arg := js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{
		Op:   js_ast.BinOpLogicalOr,
		Left: enumRef(),
		Right: js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{
			Op:    js_ast.BinOpAssign,
			Left:  enumRef(),
			Right: js_ast.Expr{Loc: loc, Data: &js_ast.EObject{IsSingleLine: true}},
			ID:    l.nodeID(),
		}},
		ID: l.nodeID(),
	}}
	call := js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
		Target: js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: js_ast.Fn{
			Args: []js_ast.Arg{{Binding: js_ast.Binding{Loc: id.loc(), Data: &js_ast.BIdentifier{Ref: argRef}}}},
			Body: js_ast.FnBody{Loc: loc, Stmts: body},
		}}},
		Args: []js_ast.Expr{arg},
	}}

	return append(stmts,
		js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: call}},
		js_ast.Stmt{Loc: loc, Data: &js_ast.SEndMarker{ID: endMarker, Kind: js_ast.EndOfEnum, Name: ref}},
	)
}

func (l *loader) visitEnumMembers(n node, argRef js_ast.Ref) []js_ast.Stmt {
	var stmts []js_ast.Stmt
	next, hasNext := float64(0), true

	// typescript-estree moved the members into a "body" node
	members := n.children("members")
	if body := n.child("body"); body != nil && len(members) == 0 {
		members = body.children("members")
	}

	for _, member := range members {
		loc := member.loc()
		memberName := member.child("id").moduleExportName()
		target := js_ast.Expr{Loc: loc, Data: &js_ast.EIndex{
			Target: js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: argRef}},
			Index:  js_ast.StringExpr(loc, memberName),
		}}

		var value js_ast.Expr
		isString := false
		switch initializer := member.child("initializer"); {
		case initializer == nil:
			if !hasNext {
				l.fail(logger.MsgID_ESTree_UnsupportedNode, fmt.Sprintf(
					"Enum member %q must have an initializer (at offset %d)", memberName, loc.Start))
			}
			value = js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: next}}
			next++

		default:
			constant, ok := enumConstant(initializer)
			switch {
			case !ok:
				l.fail(logger.MsgID_ESTree_UnsupportedNode, fmt.Sprintf(
					"Only literal enum initializers are supported (enum member %q at offset %d)", memberName, loc.Start))
			case constant.isString:
				value = js_ast.StringExpr(loc, constant.text)
				isString, hasNext = true, false
			default:
				value = js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: constant.number}}
				next, hasNext = constant.number+1, true
			}
		}
		if value.Data == nil {
			continue
		}

		// "E[E["A"] = 0] = "A"" maps the value back to the name too
		assign := js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: js_ast.BinOpAssign, Left: target, Right: value, ID: l.nodeID()}}
		if !isString {
			assign = js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{
				Op: js_ast.BinOpAssign,
				Left: js_ast.Expr{Loc: loc, Data: &js_ast.EIndex{
					Target: js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: argRef}},
					Index:  assign,
				}},
				Right: js_ast.StringExpr(loc, memberName),
				ID:    l.nodeID(),
			}}
		}
		stmts = append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: assign}})
	}
	return stmts
}

type enumValue struct {
	text     string
	number   float64
	isString bool
}

func enumConstant(n node) (enumValue, bool) {
	switch n.typ() {
	case "Literal":
		switch value := n["value"].(type) {
		case string:
			return enumValue{text: value, isString: true}, true
		default:
			if number, ok := literalNumber(n); ok {
				return enumValue{number: number}, true
			}
		}

	case "UnaryExpression":
		if n.str("operator") == "-" {
			if value, ok := enumConstant(n.child("argument")); ok && !value.isString {
				return enumValue{number: -value.number}, true
			}
		}

	case "TemplateLiteral":
		if quasis := n.children("quasis"); len(quasis) == 1 && len(n.children("expressions")) == 0 {
			return enumValue{text: quasis[0].child("value").str("cooked"), isString: true}, true
		}
	}
	return enumValue{}, false
}
