package estree

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/binder"
	"github.com/sysreg/sysreg/internal/config"
	"github.com/sysreg/sysreg/internal/helpers"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/js_printer"
	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/internal/renamer"
	"github.com/sysreg/sysreg/internal/sysreg"
	"github.com/sysreg/sysreg/internal/test"
)

// ESTree nodes are written as Go maps and marshaled, which keeps the inputs
// readable without needing a JavaScript parser in the tests
type obj = map[string]interface{}

func program(body ...obj) string {
	return programWith(obj{}, body...)
}

func programWith(extra obj, body ...obj) string {
	n := obj{"type": "Program", "sourceType": "module", "body": body}
	for key, value := range extra {
		n[key] = value
	}
	bytes, err := json.Marshal(n)
	if err != nil {
		panic(err)
	}
	return string(bytes)
}

func ident(name string) obj {
	return obj{"type": "Identifier", "name": name}
}

func lit(value interface{}) obj {
	return obj{"type": "Literal", "value": value}
}

func regexLit(pattern string, flags string) obj {
	return obj{"type": "Literal", "value": nil, "regex": obj{"pattern": pattern, "flags": flags}}
}

func exprStmt(expr obj) obj {
	return obj{"type": "ExpressionStatement", "expression": expr}
}

func directive(value string) obj {
	return obj{"type": "ExpressionStatement", "expression": lit(value), "directive": value}
}

func block(body ...obj) obj {
	return obj{"type": "BlockStatement", "body": body}
}

func returnStmt(argument obj) obj {
	return obj{"type": "ReturnStatement", "argument": argument}
}

func varDecl(kind string, id obj, init obj) obj {
	return obj{"type": "VariableDeclaration", "kind": kind, "declarations": []obj{
		{"type": "VariableDeclarator", "id": id, "init": init},
	}}
}

func fnDecl(name string, params []obj, body ...obj) obj {
	return obj{"type": "FunctionDeclaration", "id": ident(name), "params": params, "body": block(body...)}
}

func call(callee obj, args ...obj) obj {
	return obj{"type": "CallExpression", "callee": callee, "arguments": args, "optional": false}
}

func member(object obj, name string, optional bool) obj {
	return obj{"type": "MemberExpression", "object": object, "property": ident(name), "computed": false, "optional": optional}
}

func binary(operator string, left obj, right obj) obj {
	return obj{"type": "BinaryExpression", "operator": operator, "left": left, "right": right}
}

func update(operator string, prefix bool, argument obj) obj {
	return obj{"type": "UpdateExpression", "operator": operator, "prefix": prefix, "argument": argument}
}

func importDecl(source string, specifiers ...obj) obj {
	return obj{"type": "ImportDeclaration", "source": lit(source), "specifiers": specifiers}
}

func importSpecifier(imported obj, local string) obj {
	return obj{"type": "ImportSpecifier", "imported": imported, "local": ident(local)}
}

func exportNamed(declaration obj) obj {
	return obj{"type": "ExportNamedDeclaration", "declaration": declaration, "specifiers": []obj{}}
}

func enumDecl(name string, members ...obj) obj {
	return obj{"type": "TSEnumDeclaration", "id": ident(name), "members": members}
}

func enumMember(name string, initializer obj) obj {
	return obj{"type": "TSEnumMember", "id": ident(name), "initializer": initializer}
}

func load(t *testing.T, contents string) (*js_ast.AST, []logger.Msg) {
	t.Helper()
	log := logger.NewDeferLog(logger.LevelDebug)
	tree, ok := Parse(log, test.SourceForTest(contents), Options{})
	msgs := log.Done()
	if ok != (tree != nil) {
		t.Fatalf("Parse returned ok=%v with tree=%v", ok, tree)
	}
	return tree, msgs
}

func expectLoaded(t *testing.T, contents string) *js_ast.AST {
	t.Helper()
	tree, msgs := load(t, contents)
	if tree == nil {
		t.Fatalf("loading failed: %v", msgs)
	}
	return tree
}

func expectLoadError(t *testing.T, contents string, id logger.MsgID) {
	t.Helper()
	tree, msgs := load(t, contents)
	if tree != nil {
		t.Fatalf("expected loading to fail")
	}
	for _, msg := range msgs {
		if msg.ID == id && msg.Kind == logger.Error {
			return
		}
	}
	t.Fatalf("expected an error with id %d, got %v", id, msgs)
}

func transformLoaded(t *testing.T, tree *js_ast.AST, options config.Options) string {
	t.Helper()
	log := logger.NewDeferLog(logger.LevelDebug)
	transformer := sysreg.NewTransformer(log, options, nil)
	out := transformer.Transform(test.SourceForTest(""), tree, binder.NewResolver(tree))
	symbols := out.SymbolMap()
	return string(js_printer.Print(*out, symbols, renamer.NewNoOpRenamer(symbols), js_printer.Options{Hooks: transformer.Substituter()}).JS)
}

func symbolOf(tree *js_ast.AST, ref js_ast.Ref) *js_ast.Symbol {
	return tree.SymbolMap().Get(js_ast.FollowSymbols(tree.SymbolMap(), ref))
}

func TestLoadAndTransform(t *testing.T) {
	tree := expectLoaded(t, program(
		importDecl("./m", importSpecifier(ident("f"), "f")),
		exportNamed(fnDecl("g", []obj{}, returnStmt(binary("+", call(ident("f")), lit(1))))),
		exportNamed(varDecl("let", ident("counter"), lit(0))),
		exprStmt(update("++", false, ident("counter"))),
	))

	test.AssertEqualWithDiff(t, transformLoaded(t, tree, config.Options{}), `System.register(["./m"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    function g() {
        return m_1.f() + 1;
    }
    exports_1("g", g);
    var m_1, counter;
    return {
        setters: [
            function (m_1_1) {
                m_1 = m_1_1;
            }
        ],
        execute: function () {
            exports_1("counter", counter = 0);
            exports_1("counter", ++counter) - 1;
        }
    };
});
`)
}

func TestUseBeforeDeclaration(t *testing.T) {
	tree := expectLoaded(t, program(
		exprStmt(call(ident("f"))),
		block(varDecl("var", ident("x"), lit(1))),
		fnDecl("f", []obj{}, returnStmt(ident("x"))),
	))

	// The "var" in the block is hoisted to the module scope, and the use in
	// "f" binds to it even though the block came first
	member, ok := tree.ModuleScope.Members["x"]
	if !ok {
		t.Fatalf("\"x\" was not hoisted")
	}
	test.AssertEqual(t, symbolOf(tree, member.Ref).Kind, js_ast.SymbolHoisted)

	fn := tree.Stmts[2].Data.(*js_ast.SFunction)
	use := fn.Fn.Body.Stmts[0].Data.(*js_ast.SReturn).Value.Data.(*js_ast.EIdentifier)
	test.AssertEqual(t, js_ast.FollowSymbols(tree.SymbolMap(), use.Ref), js_ast.FollowSymbols(tree.SymbolMap(), member.Ref))

	callee := tree.Stmts[0].Data.(*js_ast.SExpr).Value.Data.(*js_ast.ECall).Target.Data.(*js_ast.EIdentifier)
	test.AssertEqual(t, callee.Ref, fn.Fn.Name.Ref)
}

func TestBlockScopes(t *testing.T) {
	tree := expectLoaded(t, program(
		varDecl("let", ident("x"), lit(1)),
		block(
			varDecl("let", ident("x"), lit(2)),
			exprStmt(ident("x")),
		),
		exprStmt(ident("x")),
	))

	inner := tree.Stmts[1].Data.(*js_ast.SBlock).Stmts[1].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EIdentifier)
	outer := tree.Stmts[2].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EIdentifier)
	if inner.Ref == outer.Ref {
		t.Fatalf("the inner \"x\" must shadow the outer one")
	}
	test.AssertEqual(t, outer.Ref, tree.ModuleScope.Members["x"].Ref)
	test.AssertEqual(t, symbolOf(tree, outer.Ref).Kind, js_ast.SymbolOther)
}

func TestImportDeclarations(t *testing.T) {
	tree := expectLoaded(t, program(
		importDecl("m",
			obj{"type": "ImportDefaultSpecifier", "local": ident("d")},
			importSpecifier(ident("a"), "b"),
			importSpecifier(lit("c-d"), "e"),
		),
		importDecl("n", obj{"type": "ImportNamespaceSpecifier", "local": ident("ns")}),
		importDecl("o"),
		importDecl("p", obj{"type": "ImportSpecifier", "imported": ident("T"), "local": ident("T"), "importKind": "type"}),
		obj{"type": "ImportDeclaration", "source": lit("q"), "specifiers": []obj{importSpecifier(ident("U"), "U")}, "importKind": "type"},
	))

	// Type-only imports don't even get an import record
	var paths []string
	for _, record := range tree.ImportRecords {
		paths = append(paths, record.Path.Text)
	}
	test.AssertDeepEqual(t, paths, []string{"m", "n", "o"})
	test.AssertEqual(t, len(tree.Stmts), 3)

	aliases := make(map[string]string)
	for ref, named := range tree.NamedImports {
		aliases[symbolOf(tree, ref).OriginalName] = named.Alias
		test.AssertEqual(t, named.ImportRecordIndex, uint32(0))
	}
	test.AssertDeepEqual(t, aliases, map[string]string{"d": "default", "b": "a", "e": "c-d"})

	star := tree.Stmts[1].Data.(*js_ast.SImport)
	if star.StarNameLoc == nil || star.NamespaceRef != tree.ModuleScope.Members["ns"].Ref {
		t.Fatalf("namespace import was not bound")
	}
	bare := tree.Stmts[2].Data.(*js_ast.SImport)
	if bare.Items != nil || bare.DefaultName != nil || bare.StarNameLoc != nil {
		t.Fatalf("a bare import must not import anything")
	}
}

func TestExportDeclarations(t *testing.T) {
	tree := expectLoaded(t, program(
		obj{"type": "ExportNamedDeclaration", "specifiers": []obj{
			{"type": "ExportSpecifier", "local": ident("a"), "exported": ident("b")},
		}},
		obj{"type": "ExportNamedDeclaration", "source": lit("m"), "specifiers": []obj{
			{"type": "ExportSpecifier", "local": ident("c"), "exported": lit("d-e")},
		}},
		obj{"type": "ExportAllDeclaration", "source": lit("n"), "exported": ident("ns")},
		obj{"type": "ExportAllDeclaration", "source": lit("o"), "exported": nil},
		obj{"type": "ExportDefaultDeclaration", "declaration": obj{
			"type": "FunctionDeclaration", "id": nil, "params": []obj{}, "body": block(),
		}},
		varDecl("var", ident("a"), nil),
	))

	clause := tree.Stmts[0].Data.(*js_ast.SExportClause)
	test.AssertEqual(t, clause.Items[0].Alias, "b")
	test.AssertEqual(t, clause.Items[0].Name.Ref, tree.ModuleScope.Members["a"].Ref)

	from := tree.Stmts[1].Data.(*js_ast.SExportFrom)
	test.AssertEqual(t, from.Items[0].Alias, "d-e")
	test.AssertEqual(t, from.Items[0].OriginalName, "c")
	test.AssertEqual(t, tree.ImportRecords[from.ImportRecordIndex].Path.Text, "m")

	test.AssertEqual(t, tree.Stmts[2].Data.(*js_ast.SExportStar).Alias.Name, "ns")
	if tree.Stmts[3].Data.(*js_ast.SExportStar).Alias != nil {
		t.Fatalf("\"export *\" has no alias")
	}

	// The anonymous default export gets a generated name
	defaultExport := tree.Stmts[4].Data.(*js_ast.SExportDefault)
	symbol := symbolOf(tree, defaultExport.DefaultName.Ref)
	test.AssertEqual(t, symbol.OriginalName, "default")
	test.AssertEqual(t, symbol.Flags.Has(js_ast.GeneratedName), true)
}

func TestImportEquals(t *testing.T) {
	tree := expectLoaded(t, program(
		obj{"type": "TSImportEqualsDeclaration", "id": ident("fs"), "isExport": true, "moduleReference": obj{
			"type": "TSExternalModuleReference", "expression": lit("fs"),
		}},
		obj{"type": "TSImportEqualsDeclaration", "id": ident("y"), "moduleReference": obj{
			"type": "TSQualifiedName", "left": ident("N"), "right": ident("y"),
		}},
		obj{"type": "TSExportAssignment", "expression": ident("y")},
	))

	external := tree.Stmts[0].Data.(*js_ast.SImportEquals)
	test.AssertEqual(t, external.IsExport, true)
	test.AssertEqual(t, external.ImportRecordIndex.IsValid(), true)
	record := tree.ImportRecords[external.ImportRecordIndex.GetIndex()]
	test.AssertEqual(t, record.Path.Text, "fs")
	test.AssertEqual(t, record.Kind, ast.ImportRequire)

	// "import y = N.y" is an alias, not an import
	local := tree.Stmts[1].Data.(*js_ast.SLocal)
	test.AssertEqual(t, local.Kind, js_ast.LocalVar)
	value := local.Decls[0].Value.Data.(*js_ast.EDot)
	test.AssertEqual(t, value.Name, "y")
	test.AssertEqual(t, symbolOf(tree, value.Target.Data.(*js_ast.EIdentifier).Ref).Kind, js_ast.SymbolUnbound)

	if _, ok := tree.Stmts[2].Data.(*js_ast.SExportEquals); !ok {
		t.Fatalf("expected \"export =\"")
	}
}

func TestOptionalChains(t *testing.T) {
	tree := expectLoaded(t, program(
		// a?.b.c
		exprStmt(obj{"type": "ChainExpression", "expression": member(member(ident("a"), "b", true), "c", false)}),
		// (a?.b).c
		exprStmt(member(obj{"type": "ChainExpression", "expression": member(ident("a"), "b", true)}, "c", false)),
	))

	inChain := tree.Stmts[0].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EDot)
	test.AssertEqual(t, inChain.OptionalChain, js_ast.OptionalChainContinue)
	test.AssertEqual(t, inChain.Target.Data.(*js_ast.EDot).OptionalChain, js_ast.OptionalChainStart)

	outside := tree.Stmts[1].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EDot)
	test.AssertEqual(t, outside.OptionalChain, js_ast.OptionalChainNone)
	test.AssertEqual(t, outside.Target.Data.(*js_ast.EDot).OptionalChain, js_ast.OptionalChainStart)
}

func TestNodeIDs(t *testing.T) {
	tree := expectLoaded(t, program(
		exprStmt(binary("+", lit(1), update("++", true, ident("x")))),
	))

	add := tree.Stmts[0].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EBinary)
	increment := add.Right.Data.(*js_ast.EUnary)
	if add.ID == 0 || increment.ID == 0 || add.ID == increment.ID {
		t.Fatalf("expected distinct node ids, got %d and %d", add.ID, increment.ID)
	}
	test.AssertEqual(t, increment.Op, js_ast.UnOpPreInc)
	if tree.NextNodeID < add.ID {
		t.Fatalf("node ids must come from the tree")
	}
}

func TestDirectives(t *testing.T) {
	tree := expectLoaded(t, program(
		directive("use strict"),
		exprStmt(lit("not a directive")),
	))

	first, ok := tree.Stmts[0].Data.(*js_ast.SDirective)
	if !ok {
		t.Fatalf("expected a directive")
	}
	test.AssertEqual(t, helpers.UTF16ToString(first.Value), "use strict")
	if _, ok := tree.Stmts[1].Data.(*js_ast.SExpr); !ok {
		t.Fatalf("a string after the prologue is an expression")
	}
}

func TestHelperNames(t *testing.T) {
	tree := expectLoaded(t, program(
		exprStmt(call(ident("__awaiter"), obj{"type": "ThisExpression"})),
		exprStmt(call(ident("__unknownHelper"))),
	))

	helper := tree.ModuleScope.Members["__awaiter"]
	test.AssertEqual(t, symbolOf(tree, helper.Ref).Flags.Has(js_ast.HelperName), true)
	other := tree.ModuleScope.Members["__unknownHelper"]
	test.AssertEqual(t, symbolOf(tree, other.Ref).Flags.Has(js_ast.HelperName), false)
}

func TestModuleNamePragma(t *testing.T) {
	tree := expectLoaded(t, programWith(obj{"comments": []obj{
		{"type": "Line", "value": " a regular comment"},
		{"type": "Line", "value": `/ <amd-module name="app/widget"/>`},
	}}))
	test.AssertEqual(t, tree.ModuleName, "app/widget")

	tree = expectLoaded(t, programWith(obj{"comments": []obj{
		{"type": "Block", "value": `/ <amd-module name="ignored"/>`},
	}}))
	test.AssertEqual(t, tree.ModuleName, "")
}

func TestTypeOnlyDeclarations(t *testing.T) {
	tree := expectLoaded(t, program(
		obj{"type": "TSInterfaceDeclaration", "id": ident("I")},
		obj{"type": "TSTypeAliasDeclaration", "id": ident("T")},
		obj{"type": "VariableDeclaration", "kind": "const", "declare": true, "declarations": []obj{
			{"type": "VariableDeclarator", "id": ident("x"), "init": nil},
		}},
		obj{"type": "ExportNamedDeclaration", "exportKind": "type", "specifiers": []obj{
			{"type": "ExportSpecifier", "local": ident("I"), "exported": ident("I")},
		}},
		exprStmt(obj{"type": "TSAsExpression", "expression": ident("y")}),
	))

	test.AssertEqual(t, len(tree.Stmts), 1)
	if _, ok := tree.Stmts[0].Data.(*js_ast.SExpr).Value.Data.(*js_ast.EIdentifier); !ok {
		t.Fatalf("type assertions must be unwrapped")
	}
}

func TestEnum(t *testing.T) {
	tree := expectLoaded(t, program(
		exportNamed(enumDecl("E",
			enumMember("A", nil),
			enumMember("B", lit("b")),
			enumMember("C", lit(5)),
			enumMember("D", nil),
		)),
		exportNamed(enumDecl("E", enumMember("F", obj{"type": "UnaryExpression", "operator": "-", "prefix": true, "argument": lit(1)}))),
	))

	// var E; (function (E) {...})(E || (E = {})); end marker, twice. The
	// second variable statement is only a merge marker.
	test.AssertEqual(t, len(tree.Stmts), 6)
	first := tree.Stmts[0].Data.(*js_ast.SLocal)
	test.AssertEqual(t, first.IsExport, true)
	merged := tree.Stmts[3].Data.(*js_ast.SMergeMarker)
	endMarker := tree.Stmts[5].Data.(*js_ast.SEndMarker)
	test.AssertEqual(t, merged.EndMarker, endMarker.ID)
	test.AssertEqual(t, first.EndMarker, tree.Stmts[2].Data.(*js_ast.SEndMarker).ID)
	test.AssertEqual(t, symbolOf(tree, endMarker.Name).Kind, js_ast.SymbolTSEnum)

	js := transformLoaded(t, tree, config.Options{})
	for _, expected := range []string{
		`var E;`,
		`(E || (E = {}));`,
		`E[E["A"] = 0] = "A";`,
		`E["B"] = "b";`,
		`E[E["C"] = 5] = "C";`,
		`E[E["D"] = 6] = "D";`,
		`E[E["F"] = -1] = "F";`,
	} {
		if !strings.Contains(js, expected) {
			t.Fatalf("expected %q in:\n%s", expected, js)
		}
	}
	test.AssertEqual(t, strings.Count(js, `exports_1("E", E);`), 2)
}

func TestEnumMemberNeedsInitializer(t *testing.T) {
	expectLoadError(t, program(
		enumDecl("E", enumMember("A", lit("a")), enumMember("B", nil)),
	), logger.MsgID_ESTree_UnsupportedNode)

	expectLoadError(t, program(
		enumDecl("E", enumMember("A", call(ident("f")))),
	), logger.MsgID_ESTree_UnsupportedNode)
}

func TestRegExpValidation(t *testing.T) {
	expectLoaded(t, program(
		exprStmt(regexLit(`\d+(?:px|em)`, "gi")),
		exprStmt(regexLit(`[^]*`, "s")),
		exprStmt(regexLit(`\u{1F600}`, "u")),
	))

	expectLoadError(t, program(exprStmt(regexLit(`a(`, ""))), logger.MsgID_ESTree_InvalidRegExp)
	expectLoadError(t, program(exprStmt(regexLit(`a`, "x"))), logger.MsgID_ESTree_InvalidRegExp)
}

func TestInvalidInput(t *testing.T) {
	expectLoadError(t, `{"type": "Program", "body": [`, logger.MsgID_ESTree_InvalidJSON)
	expectLoadError(t, `null`, logger.MsgID_ESTree_InvalidJSON)
	expectLoadError(t, `{"type": "File"}`, logger.MsgID_ESTree_InvalidJSON)
	expectLoadError(t, `{"type": "Program", "sourceType": "script", "body": []}`, logger.MsgID_ESTree_UnsupportedNode)
}

func TestUnsupportedNodes(t *testing.T) {
	// "class A { static {} }"
	expectLoadError(t, program(obj{"type": "ClassDeclaration", "id": ident("A"), "superClass": nil, "body": obj{
		"type": "ClassBody", "body": []obj{{"type": "StaticBlock", "body": []obj{}}},
	}}), logger.MsgID_ESTree_UnsupportedNode)

	// "a.#b"
	expectLoadError(t, program(exprStmt(obj{
		"type": "MemberExpression", "object": ident("a"), "computed": false,
		"property": obj{"type": "PrivateIdentifier", "name": "b"},
	})), logger.MsgID_ESTree_UnsupportedNode)

	// "namespace N {}"
	expectLoadError(t, program(obj{"type": "TSModuleDeclaration", "id": ident("N"), "body": obj{
		"type": "TSModuleBlock", "body": []obj{},
	}}), logger.MsgID_ESTree_UnsupportedNode)
}

func TestDuplicateDeclarations(t *testing.T) {
	expectLoadError(t, program(
		varDecl("let", ident("a"), nil),
		varDecl("let", ident("a"), nil),
	), logger.MsgID_ESTree_DuplicateDeclaration)

	// "var" and function declarations may repeat
	expectLoaded(t, program(
		varDecl("var", ident("a"), nil),
		fnDecl("a", []obj{}),
		varDecl("var", ident("a"), nil),
	))
}

func TestErrorsAreReportedOnce(t *testing.T) {
	_, msgs := load(t, program(exprStmt(obj{"type": "JSXElement"})))
	test.AssertEqual(t, len(msgs), 1)
}
