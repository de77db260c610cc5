package estree

import (
	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/helpers"
	"github.com/sysreg/sysreg/internal/js_ast"
)

// Visits a program or function body. Leading string statements marked as
// directives become directives.
func (l *loader) visitBody(body []node) []js_ast.Stmt {
	stmts := make([]js_ast.Stmt, 0, len(body))
	isPrologue := true
	for _, n := range body {
		if isPrologue {
			if _, ok := n["directive"].(string); ok && n.typ() == "ExpressionStatement" {
				value := n.child("expression").str("value")
				stmts = append(stmts, js_ast.Stmt{Loc: n.loc(), Data: &js_ast.SDirective{Value: helpers.StringToUTF16(value)}})
				continue
			}
			isPrologue = false
		}
		stmts = l.visitAndAppendStmt(stmts, n)
	}
	return stmts
}

func (l *loader) visitStmts(body []node) []js_ast.Stmt {
	stmts := make([]js_ast.Stmt, 0, len(body))
	for _, n := range body {
		stmts = l.visitAndAppendStmt(stmts, n)
	}
	return stmts
}

func (l *loader) visitBlock(n node) []js_ast.Stmt {
	l.pushScope(js_ast.ScopeBlock, n.loc())
	stmts := l.visitStmts(n.children("body"))
	l.popScope()
	return stmts
}

// For statement positions that hold exactly one statement, such as the body
// of an "if"
func (l *loader) visitSingleStmt(n node) js_ast.Stmt {
	stmts := l.visitAndAppendStmt(nil, n)
	switch len(stmts) {
	case 0:
		return js_ast.Stmt{Loc: n.loc(), Data: &js_ast.SEmpty{}}
	case 1:
		return stmts[0]
	}
	return js_ast.Stmt{Loc: n.loc(), Data: &js_ast.SBlock{Stmts: stmts}}
}

func (l *loader) visitAndAppendStmt(stmts []js_ast.Stmt, n node) []js_ast.Stmt {
	loc := n.loc()

	switch n.typ() {
	case "EmptyStatement":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SEmpty{}})

	case "DebuggerStatement":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SDebugger{}})

	case "ExpressionStatement":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: l.visitExpr(n.child("expression"))}})

	case "BlockStatement":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SBlock{Stmts: l.visitBlock(n)}})

	case "ReturnStatement":
		s := &js_ast.SReturn{}
		if n.has("argument") {
			value := l.visitExpr(n.child("argument"))
			s.Value = &value
		}
		return append(stmts, js_ast.Stmt{Loc: loc, Data: s})

	case "ThrowStatement":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SThrow{Value: l.visitExpr(n.child("argument"))}})

	case "IfStatement":
		s := &js_ast.SIf{
			Test: l.visitExpr(n.child("test")),
			Yes:  l.visitSingleStmt(n.child("consequent")),
		}
		if n.has("alternate") {
			no := l.visitSingleStmt(n.child("alternate"))
			s.No = &no
		}
		return append(stmts, js_ast.Stmt{Loc: loc, Data: s})

	case "ForStatement":
		l.pushScope(js_ast.ScopeBlock, loc)
		s := &js_ast.SFor{}
		if init := n.child("init"); init != nil {
			var stmt js_ast.Stmt
			if init.typ() == "VariableDeclaration" {
				stmt = l.visitLocal(init, false)
			} else {
				stmt = js_ast.Stmt{Loc: init.loc(), Data: &js_ast.SExpr{Value: l.visitExpr(init)}}
			}
			s.Init = &stmt
		}
		if n.has("test") {
			test := l.visitExpr(n.child("test"))
			s.Test = &test
		}
		if n.has("update") {
			update := l.visitExpr(n.child("update"))
			s.Update = &update
		}
		s.Body = l.visitSingleStmt(n.child("body"))
		l.popScope()
		return append(stmts, js_ast.Stmt{Loc: loc, Data: s})

	case "ForInStatement", "ForOfStatement":
		l.pushScope(js_ast.ScopeBlock, loc)
		var init js_ast.Stmt
		if left := n.child("left"); left.typ() == "VariableDeclaration" {
			init = l.visitLocal(left, false)
		} else {
			init = js_ast.Stmt{Loc: left.loc(), Data: &js_ast.SExpr{Value: l.visitAssignTarget(left)}}
		}
		value := l.visitExpr(n.child("right"))
		body := l.visitSingleStmt(n.child("body"))
		l.popScope()
		if n.typ() == "ForInStatement" {
			return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SForIn{Init: init, Value: value, Body: body}})
		}
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SForOf{IsAwait: n.boolean("await"), Init: init, Value: value, Body: body}})

	case "WhileStatement":
		test := l.visitExpr(n.child("test"))
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SWhile{Test: test, Body: l.visitSingleStmt(n.child("body"))}})

	case "DoWhileStatement":
		body := l.visitSingleStmt(n.child("body"))
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SDoWhile{Body: body, Test: l.visitExpr(n.child("test"))}})

	case "WithStatement":
		value := l.visitExpr(n.child("object"))
		bodyNode := n.child("body")
		l.pushScope(js_ast.ScopeWith, bodyNode.loc())
		body := l.visitSingleStmt(bodyNode)
		l.popScope()
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SWith{Value: value, BodyLoc: bodyNode.loc(), Body: body}})

	case "LabeledStatement":
		label := n.child("label")
		l.pushScope(js_ast.ScopeLabel, loc)
		name := js_ast.LocRef{Loc: label.loc(), Ref: l.declare(js_ast.SymbolLabel, label)}
		body := l.visitSingleStmt(n.child("body"))
		l.popScope()
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SLabel{Name: name, Stmt: body}})

	case "BreakStatement":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SBreak{Label: l.visitLabelRef(n)}})

	case "ContinueStatement":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SContinue{Label: l.visitLabelRef(n)}})

	case "SwitchStatement":
		test := l.visitExpr(n.child("discriminant"))
		l.pushScope(js_ast.ScopeBlock, loc)
		var cases []js_ast.Case
		for _, c := range n.children("cases") {
			var value *js_ast.Expr
			if c.has("test") {
				expr := l.visitExpr(c.child("test"))
				value = &expr
			}
			cases = append(cases, js_ast.Case{Value: value, Body: l.visitStmts(c.children("consequent"))})
		}
		l.popScope()
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SSwitch{Test: test, BodyLoc: loc, Cases: cases}})

	case "TryStatement":
		s := &js_ast.STry{Body: l.visitBlock(n.child("block"))}
		if handler := n.child("handler"); handler != nil {
			s.Catch = &js_ast.Catch{Loc: handler.loc()}
			l.pushScope(js_ast.ScopeCatchBinding, handler.loc())
			if param := handler.child("param"); param != nil {
				kind := js_ast.SymbolOther
				if param.typ() == "Identifier" {
					kind = js_ast.SymbolCatchIdentifier
				}
				binding := l.visitBinding(param, kind)
				s.Catch.Binding = &binding
			}
			s.Catch.Body = l.visitBlock(handler.child("body"))
			l.popScope()
		}
		if finalizer := n.child("finalizer"); finalizer != nil {
			s.Finally = &js_ast.Finally{Loc: finalizer.loc(), Stmts: l.visitBlock(finalizer)}
		}
		return append(stmts, js_ast.Stmt{Loc: loc, Data: s})

	case "ImportDeclaration":
		return l.visitImport(stmts, n)

	case "ExportNamedDeclaration":
		return l.visitExportNamed(stmts, n)

	case "ExportDefaultDeclaration":
		return l.visitExportDefault(stmts, n)

	case "ExportAllDeclaration":
		if n.str("exportKind") == "type" {
			return stmts
		}
		s := &js_ast.SExportStar{
			NamespaceRef:      js_ast.InvalidRef,
			ImportRecordIndex: l.addImportRecord(n.child("source"), ast.ImportStmt),
		}
		if exported := n.child("exported"); exported != nil {
			s.Alias = &js_ast.ExportStarAlias{Loc: exported.loc(), Name: exported.moduleExportName()}
		}
		return append(stmts, js_ast.Stmt{Loc: loc, Data: s})

	case "TSExportAssignment":
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SExportEquals{Value: l.visitExpr(n.child("expression"))}})

	case "TSNamespaceExportDeclaration":
		// "export as namespace N" only affects declaration files
		return stmts
	}

	return l.visitDeclaration(stmts, n, false)
}

// Declarations are the statements that can follow "export"
func (l *loader) visitDeclaration(stmts []js_ast.Stmt, n node, isExport bool) []js_ast.Stmt {
	if n.boolean("declare") {
		return stmts
	}
	loc := n.loc()

	switch n.typ() {
	case "VariableDeclaration":
		local := l.visitLocal(n, isExport)
		return append(stmts, local)

	case "FunctionDeclaration":
		// Overload signatures have no body
		if !n.has("body") {
			return stmts
		}
		id := n.child("id")
		name := &js_ast.LocRef{Loc: id.loc(), Ref: l.declare(js_ast.SymbolHoistedFunction, id)}
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SFunction{Fn: l.visitFn(n, name), IsExport: isExport}})

	case "ClassDeclaration":
		id := n.child("id")
		name := &js_ast.LocRef{Loc: id.loc(), Ref: l.declare(js_ast.SymbolClass, id)}
		return append(stmts, js_ast.Stmt{Loc: loc, Data: &js_ast.SClass{Class: l.visitClass(n, name), IsExport: isExport}})

	case "TSEnumDeclaration":
		return l.visitEnum(stmts, n, isExport)

	case "TSImportEqualsDeclaration":
		return l.visitImportEquals(stmts, n, isExport || n.boolean("isExport"))

	case "TSTypeAliasDeclaration", "TSInterfaceDeclaration", "TSDeclareFunction":
		return stmts

	case "TSModuleDeclaration":
		// Only ambient module declarations carry no code
		if body := n.child("body"); body == nil {
			return stmts
		}
	}

	l.unsupported(n)
	return stmts
}

func (l *loader) visitLocal(n node, isExport bool) js_ast.Stmt {
	var kind js_ast.LocalKind
	var symbolKind js_ast.SymbolKind
	switch n.str("kind") {
	case "var":
		kind, symbolKind = js_ast.LocalVar, js_ast.SymbolHoisted
	case "let":
		kind, symbolKind = js_ast.LocalLet, js_ast.SymbolOther
	case "const":
		kind, symbolKind = js_ast.LocalConst, js_ast.SymbolConst
	default:
		l.unsupported(n)
	}

	declarations := n.children("declarations")
	decls := make([]js_ast.Decl, 0, len(declarations))
	for _, d := range declarations {
		decl := js_ast.Decl{Binding: l.visitBinding(d.child("id"), symbolKind)}
		if d.has("init") {
			value := l.visitExpr(d.child("init"))
			decl.Value = &value
		}
		decls = append(decls, decl)
	}
	return js_ast.Stmt{Loc: n.loc(), Data: &js_ast.SLocal{Decls: decls, Kind: kind, IsExport: isExport}}
}

func (l *loader) visitLabelRef(n node) *js_ast.LocRef {
	label := n.child("label")
	if label == nil {
		return nil
	}
	return &js_ast.LocRef{Loc: label.loc(), Ref: l.find(label)}
}
