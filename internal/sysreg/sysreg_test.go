package sysreg

import (
	"strings"
	"testing"

	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/binder"
	"github.com/sysreg/sysreg/internal/config"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/js_printer"
	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/internal/renamer"
	"github.com/sysreg/sysreg/internal/test"
)

// Builds a module the way the loader would: every name is declared before the
// statements that use it are added
type moduleBuilder struct {
	b     *js_ast.Builder
	stmts []js_ast.Stmt
}

func newModuleBuilder() *moduleBuilder {
	return &moduleBuilder{b: js_ast.NewBuilder(0)}
}

func (m *moduleBuilder) declare(kind js_ast.SymbolKind, name string) js_ast.Ref {
	return m.b.DeclareSymbol(kind, logger.Loc{}, name)
}

func (m *moduleBuilder) global(name string) js_ast.Ref {
	return m.b.FindSymbol(logger.Loc{}, name)
}

func (m *moduleBuilder) record(path string) uint32 {
	return m.b.AddImportRecord(ast.ImportRecord{Path: logger.Path{Text: path}, Kind: ast.ImportStmt})
}

func (m *moduleBuilder) add(stmts ...js_ast.Stmt) {
	m.stmts = append(m.stmts, stmts...)
}

// import {a, b as c} from "path"
func (m *moduleBuilder) importNames(path string, names ...string) []js_ast.Ref {
	index := m.record(path)
	items := make([]js_ast.ClauseItem, len(names))
	refs := make([]js_ast.Ref, len(names))
	for i, name := range names {
		alias, local := name, name
		if before, after, ok := strings.Cut(name, " as "); ok {
			alias, local = before, after
		}
		refs[i] = m.declare(js_ast.SymbolImport, local)
		m.b.AddNamedImport(refs[i], js_ast.NamedImport{Alias: alias, ImportRecordIndex: index})
		items[i] = js_ast.ClauseItem{Alias: alias, Name: js_ast.LocRef{Ref: refs[i]}, OriginalName: local}
	}
	m.add(js_ast.Stmt{Data: &js_ast.SImport{NamespaceRef: js_ast.InvalidRef, Items: &items, ImportRecordIndex: index}})
	return refs
}

func (m *moduleBuilder) importDefault(path string, local string) js_ast.Ref {
	index := m.record(path)
	ref := m.declare(js_ast.SymbolImport, local)
	m.b.AddNamedImport(ref, js_ast.NamedImport{Alias: "default", ImportRecordIndex: index})
	m.add(js_ast.Stmt{Data: &js_ast.SImport{NamespaceRef: js_ast.InvalidRef, DefaultName: &js_ast.LocRef{Ref: ref}, ImportRecordIndex: index}})
	return ref
}

func (m *moduleBuilder) importStar(path string, local string) js_ast.Ref {
	index := m.record(path)
	ref := m.declare(js_ast.SymbolImport, local)
	m.add(js_ast.Stmt{Data: &js_ast.SImport{NamespaceRef: ref, StarNameLoc: &logger.Loc{}, ImportRecordIndex: index}})
	return ref
}

func (m *moduleBuilder) importBare(path string) uint32 {
	index := m.record(path)
	m.add(js_ast.Stmt{Data: &js_ast.SImport{NamespaceRef: js_ast.InvalidRef, ImportRecordIndex: index}})
	return index
}

// export {a, b as c} from "path"
func (m *moduleBuilder) exportFrom(path string, names ...string) {
	items := make([]js_ast.ClauseItem, len(names))
	for i, name := range names {
		original, alias := name, name
		if before, after, ok := strings.Cut(name, " as "); ok {
			original, alias = before, after
		}
		items[i] = js_ast.ClauseItem{Alias: alias, OriginalName: original}
	}
	m.add(js_ast.Stmt{Data: &js_ast.SExportFrom{Items: items, ImportRecordIndex: m.record(path)}})
}

func (m *moduleBuilder) exportStar(path string) {
	m.add(js_ast.Stmt{Data: &js_ast.SExportStar{ImportRecordIndex: m.record(path)}})
}

func (m *moduleBuilder) exportStarAs(path string, alias string) {
	m.add(js_ast.Stmt{Data: &js_ast.SExportStar{ImportRecordIndex: m.record(path), Alias: &js_ast.ExportStarAlias{Name: alias}}})
}

func exportClause(items ...js_ast.ClauseItem) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SExportClause{Items: items}}
}

func exportItem(ref js_ast.Ref, alias string) js_ast.ClauseItem {
	return js_ast.ClauseItem{Alias: alias, Name: js_ast.LocRef{Ref: ref}}
}

func identExpr(ref js_ast.Ref) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EIdentifier{Ref: ref}}
}

func binding(ref js_ast.Ref) js_ast.Binding {
	return js_ast.Binding{Data: &js_ast.BIdentifier{Ref: ref}}
}

func num(value float64) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.ENumber{Value: value}}
}

func str(text string) js_ast.Expr {
	return js_ast.StringExpr(logger.Loc{}, text)
}

func binExpr(op js_ast.OpCode, left js_ast.Expr, right js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EBinary{Op: op, Left: left, Right: right}}
}

func unExpr(op js_ast.OpCode, value js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EUnary{Op: op, Value: value}}
}

func callExpr(target js_ast.Expr, args ...js_ast.Expr) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.ECall{Target: target, Args: args}}
}

func dotExpr(target js_ast.Expr, name string) js_ast.Expr {
	return js_ast.Expr{Data: &js_ast.EDot{Target: target, Name: name}}
}

func exprStmt(value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SExpr{Value: value}}
}

func returnStmt(value js_ast.Expr) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SReturn{Value: &value}}
}

func decl(b js_ast.Binding, value *js_ast.Expr) js_ast.Decl {
	return js_ast.Decl{Binding: b, Value: value}
}

func localStmt(kind js_ast.LocalKind, isExport bool, decls ...js_ast.Decl) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SLocal{Kind: kind, IsExport: isExport, Decls: decls}}
}

func fnStmt(name js_ast.Ref, isExport bool, body ...js_ast.Stmt) js_ast.Stmt {
	return js_ast.Stmt{Data: &js_ast.SFunction{IsExport: isExport, Fn: js_ast.Fn{
		Name: &js_ast.LocRef{Ref: name},
		Body: js_ast.FnBody{Stmts: body},
	}}}
}

func ptr(expr js_ast.Expr) *js_ast.Expr {
	return &expr
}

type transformOptions struct {
	options config.Options
	host    Host
	source  *logger.Source
}

func transform(t *testing.T, m *moduleBuilder, opts transformOptions) (string, []logger.Msg) {
	t.Helper()
	source := test.SourceForTest("")
	if opts.source != nil {
		source = *opts.source
	}
	tree := m.b.Finish(m.stmts)
	log := logger.NewDeferLog(logger.LevelDebug)
	transformer := NewTransformer(log, opts.options, opts.host)
	out := transformer.Transform(source, tree, binder.NewResolver(tree))
	symbols := out.SymbolMap()
	js := js_printer.Print(*out, symbols, renamer.NewNoOpRenamer(symbols), js_printer.Options{Hooks: transformer.Substituter()}).JS
	return string(js), log.Done()
}

func expectTransformedWith(t *testing.T, m *moduleBuilder, opts transformOptions, expected string) {
	t.Helper()
	js, _ := transform(t, m, opts)
	test.AssertEqualWithDiff(t, js, expected)
}

func expectTransformed(t *testing.T, m *moduleBuilder, expected string) {
	t.Helper()
	expectTransformedWith(t, m, transformOptions{}, expected)
}

func hasMessage(msgs []logger.Msg, id logger.MsgID) bool {
	for _, msg := range msgs {
		if msg.ID == id {
			return true
		}
	}
	return false
}

type mapHost map[string]string

func (h mapHost) ResolveSpecifier(importer string, specifier string) (string, bool) {
	resolved, ok := h[specifier]
	return resolved, ok
}

func TestImportAndExport(t *testing.T) {
	m := newModuleBuilder()
	f := m.importNames("./m", "f")[0]
	g := m.declare(js_ast.SymbolHoistedFunction, "g")
	counter := m.declare(js_ast.SymbolOther, "counter")
	m.add(
		fnStmt(g, true, returnStmt(binExpr(js_ast.BinOpAdd, callExpr(identExpr(f)), num(1)))),
		localStmt(js_ast.LocalLet, true, decl(binding(counter), ptr(num(0)))),
		exprStmt(unExpr(js_ast.UnOpPostInc, identExpr(counter))),
	)
	expectTransformed(t, m, `System.register(["./m"], function (exports_1, context_1) {
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

func TestDependencyGroups(t *testing.T) {
	m := newModuleBuilder()
	console := m.global("console")
	a := m.importDefault("./m", "a")
	b := m.importNames("./n", "b")[0]
	m.exportFrom("./m", "c")
	m.importBare("./m")
	m.add(exprStmt(callExpr(dotExpr(identExpr(console), "log"), identExpr(a), identExpr(b))))

	// Every import of "./m" shares one dependency and one setter
	expectTransformed(t, m, `System.register(["./m", "./n"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var m_1, n_1;
    return {
        setters: [
            function (m_1_1) {
                m_1 = m_1_1;
                exports_1({
                    c: m_1_1["c"]
                });
            },
            function (n_1_1) {
                n_1 = n_1_1;
            }
        ],
        execute: function () {
            console.log(m_1.default, n_1.b);
        }
    };
});
`)
}

func TestGroupDependenciesDirect(t *testing.T) {
	m := newModuleBuilder()
	m.importBare("./a")
	m.importBare("./b")
	m.importBare("./a")
	m.exportStar("./c")
	m.exportStar("./b")
	tree := m.b.Finish(m.stmts)

	log := logger.NewDeferLog(logger.LevelDebug)
	transformer := NewTransformer(log, config.Options{}, nil)
	out := transformer.Transform(test.SourceForTest(""), tree, binder.NewResolver(tree))
	state := transformer.loadModule(out.SourceIndex)
	v := &visitor{log: log, source: test.SourceForTest(""), options: &transformer.options, state: state}

	var specifiers []string
	var sizes []int
	for _, group := range v.groupDependencies() {
		specifiers = append(specifiers, group.specifier)
		sizes = append(sizes, len(group.externalImports))
	}
	test.AssertDeepEqual(t, specifiers, []string{"./a", "./b", "./c"})
	test.AssertDeepEqual(t, sizes, []int{2, 2, 1})
}

func TestHoisting(t *testing.T) {
	m := newModuleBuilder()
	console := m.global("console")
	a := m.declare(js_ast.SymbolHoisted, "a")
	b := m.declare(js_ast.SymbolOther, "b")
	c := m.declare(js_ast.SymbolOther, "c")
	d := m.declare(js_ast.SymbolHoisted, "d")
	h := m.declare(js_ast.SymbolHoistedFunction, "h")
	m.add(
		localStmt(js_ast.LocalVar, false, decl(binding(a), ptr(num(1)))),
		localStmt(js_ast.LocalLet, false, decl(binding(b), ptr(binExpr(js_ast.BinOpAdd, identExpr(a), num(1))))),
		js_ast.Stmt{Data: &js_ast.SIf{Test: identExpr(a), Yes: js_ast.Stmt{Data: &js_ast.SBlock{Stmts: []js_ast.Stmt{
			localStmt(js_ast.LocalLet, false, decl(binding(c), ptr(num(2)))),
			localStmt(js_ast.LocalVar, false, decl(binding(d), ptr(identExpr(c)))),
		}}}}},
		exprStmt(callExpr(dotExpr(identExpr(console), "log"), identExpr(b))),
		fnStmt(h, false, returnStmt(identExpr(a))),
	)

	// Functions come first, then the hoisted names in the order they were seen
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    function h() {
        return a;
    }
    var a, b, d;
    return {
        setters: [],
        execute: function () {
            a = 1;
            b = a + 1;
            if (a) {
                let c = 2;
                d = c;
            }
            console.log(b);
        }
    };
});
`)
}

func TestHoistingInLoops(t *testing.T) {
	m := newModuleBuilder()
	i := m.declare(js_ast.SymbolHoisted, "i")
	n := m.global("n")
	j := m.declare(js_ast.SymbolOther, "j")
	list := m.global("list")
	k := m.declare(js_ast.SymbolHoisted, "k")
	obj := m.global("obj")
	e := m.declare(js_ast.SymbolCatchIdentifier, "e")
	x := m.declare(js_ast.SymbolHoisted, "x")
	empty := js_ast.Stmt{Data: &js_ast.SBlock{}}
	m.add(
		js_ast.Stmt{Data: &js_ast.SFor{
			Init:   &js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{decl(binding(i), ptr(num(0)))}}},
			Test:   ptr(binExpr(js_ast.BinOpLt, identExpr(i), identExpr(n))),
			Update: ptr(unExpr(js_ast.UnOpPostInc, identExpr(i))),
			Body:   empty,
		}},
		js_ast.Stmt{Data: &js_ast.SForOf{
			Init:  js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalLet, Decls: []js_ast.Decl{decl(binding(j), nil)}}},
			Value: identExpr(list),
			Body:  empty,
		}},
		js_ast.Stmt{Data: &js_ast.SForIn{
			Init:  js_ast.Stmt{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{decl(binding(k), nil)}}},
			Value: identExpr(obj),
			Body:  empty,
		}},
		js_ast.Stmt{Data: &js_ast.STry{
			Catch: &js_ast.Catch{
				Binding: &js_ast.Binding{Data: &js_ast.BIdentifier{Ref: e}},
				Body:    []js_ast.Stmt{localStmt(js_ast.LocalVar, false, decl(binding(x), ptr(identExpr(e))))},
			},
		}},
	)
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var i, k, x;
    return {
        setters: [],
        execute: function () {
            for (i = 0; i < n; i++) {
            }
            for (let j of list) {
            }
            for (k in obj) {
            }
            try {
            } catch (e) {
                x = e;
            }
        }
    };
});
`)
}

func TestBlockScopedFunctionsAndClasses(t *testing.T) {
	m := newModuleBuilder()
	console := m.global("console")
	f := m.declare(js_ast.SymbolHoistedFunction, "f")
	c := m.declare(js_ast.SymbolClass, "C")
	x := m.global("x")

	m.b.PushScopeForDeclarePass(js_ast.ScopeBlock, logger.Loc{Start: 1})
	innerF := m.declare(js_ast.SymbolHoistedFunction, "f")
	innerC := m.declare(js_ast.SymbolClass, "C")
	m.b.PopScope()

	m.b.PushScopeForDeclarePass(js_ast.ScopeBlock, logger.Loc{Start: 2})
	g := m.declare(js_ast.SymbolHoistedFunction, "g")
	m.b.PopScope()

	m.add(
		fnStmt(f, true, returnStmt(num(1))),
		js_ast.Stmt{Data: &js_ast.SBlock{Stmts: []js_ast.Stmt{
			fnStmt(innerF, false, returnStmt(num(2))),
			js_ast.Stmt{Data: &js_ast.SClass{Class: js_ast.Class{Name: &js_ast.LocRef{Ref: innerC}}}},
			exprStmt(callExpr(dotExpr(identExpr(console), "log"), callExpr(identExpr(innerF)))),
		}}},
		js_ast.Stmt{Data: &js_ast.SClass{Class: js_ast.Class{Name: &js_ast.LocRef{Ref: c}}}},
		js_ast.Stmt{Data: &js_ast.SSwitch{Test: identExpr(x), Cases: []js_ast.Case{{
			Body: []js_ast.Stmt{fnStmt(g, false)},
		}}}},
		exprStmt(callExpr(dotExpr(identExpr(console), "log"), callExpr(identExpr(f)))),
	)

	// Only the declarations in the module body are hoisted. The ones in a block
	// stay where they are and don't replace the outer "f" and "C".
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    function f() {
        return 1;
    }
    exports_1("f", f);
    var C;
    return {
        setters: [],
        execute: function () {
            {
                function f() {
                    return 2;
                }
                class C {
                }
                console.log(f());
            }
            C = class C {
            };
            switch (x) {
                default:
                    function g() {
                    }
            }
            console.log(f());
        }
    };
});
`)
}

func TestExportedUpdates(t *testing.T) {
	m := newModuleBuilder()
	x := m.declare(js_ast.SymbolOther, "x")
	y := m.declare(js_ast.SymbolOther, "y")
	m.add(
		localStmt(js_ast.LocalLet, true, decl(binding(x), ptr(num(5)))),
		localStmt(js_ast.LocalLet, false, decl(binding(y), ptr(unExpr(js_ast.UnOpPostInc, identExpr(x))))),
		exprStmt(unExpr(js_ast.UnOpPostDec, identExpr(x))),
		exprStmt(unExpr(js_ast.UnOpPreInc, identExpr(x))),
		exprStmt(binExpr(js_ast.BinOpAddAssign, identExpr(x), num(2))),
		exprStmt(unExpr(js_ast.UnOpPostInc, identExpr(y))),
	)

	// The postfix forms still produce the old value
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var x, y;
    return {
        setters: [],
        execute: function () {
            exports_1("x", x = 5);
            y = exports_1("x", ++x) - 1;
            exports_1("x", --x) + 1;
            exports_1("x", ++x);
            exports_1("x", x += 2);
            y++;
        }
    };
});
`)
}

func TestExportedUnderSeveralNames(t *testing.T) {
	m := newModuleBuilder()
	x := m.declare(js_ast.SymbolOther, "x")
	y := m.declare(js_ast.SymbolOther, "y")
	m.add(
		localStmt(js_ast.LocalLet, true, decl(binding(x), ptr(num(5)))),
		localStmt(js_ast.LocalLet, false, decl(binding(y), ptr(unExpr(js_ast.UnOpPostInc, identExpr(x))))),
		exprStmt(binExpr(js_ast.BinOpAssign, identExpr(y), num(0))),
		exportClause(exportItem(x, "z"), exportItem(y, "w")),
	)
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var x, y;
    return {
        setters: [],
        execute: function () {
            exports_1("x", x = 5);
            exports_1("z", x);
            y = exports_1("z", exports_1("x", ++x)) - 1;
            exports_1("w", y);
            exports_1("w", y = 0);
        }
    };
});
`)
}

func TestExportedFunctionsAndClasses(t *testing.T) {
	m := newModuleBuilder()
	g := m.declare(js_ast.SymbolHoistedFunction, "g")
	c := m.declare(js_ast.SymbolClass, "C")
	anon := m.b.GeneratedSymbol(js_ast.SymbolHoistedFunction, "default")
	m.add(
		fnStmt(g, true),
		exprStmt(binExpr(js_ast.BinOpAssign, identExpr(g), num(2))),
		js_ast.Stmt{Data: &js_ast.SClass{IsExport: true, Class: js_ast.Class{Name: &js_ast.LocRef{Ref: c}}}},
		js_ast.Stmt{Data: &js_ast.SExportDefault{
			DefaultName: js_ast.LocRef{Ref: anon},
			Value:       js_ast.ExprOrStmt{Stmt: &js_ast.Stmt{Data: &js_ast.SFunction{}}},
		}},
	)
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    function g() {
    }
    exports_1("g", g);
    function default_1() {
    }
    exports_1("default", default_1);
    var C;
    return {
        setters: [],
        execute: function () {
            exports_1("g", g = 2);
            C = class C {
            };
            exports_1("C", C);
        }
    };
});
`)
}

func TestExportDefaultExpression(t *testing.T) {
	m := newModuleBuilder()
	m.add(js_ast.Stmt{Data: &js_ast.SExportDefault{Value: js_ast.ExprOrStmt{Expr: ptr(num(42))}}})
	expectTransformedWith(t, m, transformOptions{options: config.Options{ModuleName: "app/main"}},
		`System.register("app/main", [], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    return {
        setters: [],
        execute: function () {
            exports_1("default", 42);
        }
    };
});
`)
}

func TestRegistrationNameFromPath(t *testing.T) {
	m := newModuleBuilder()
	source := test.SourceForTest("")
	source.KeyPath = logger.Path{Text: "src/app/main.ts"}
	js, _ := transform(t, m, transformOptions{
		options: config.Options{ModuleNameFromPath: true, RootDir: "src"},
		source:  &source,
	})
	if !strings.HasPrefix(js, `System.register("app/main", [], `) {
		t.Fatalf("unexpected registration: %s", js)
	}

	// An explicit name wins over the one from the path
	m = newModuleBuilder()
	js, _ = transform(t, m, transformOptions{
		options: config.Options{ModuleName: "fixed", ModuleNameFromPath: true},
		source:  &source,
	})
	if !strings.HasPrefix(js, `System.register("fixed", [], `) {
		t.Fatalf("unexpected registration: %s", js)
	}
}

func TestExportStar(t *testing.T) {
	m := newModuleBuilder()
	a := m.declare(js_ast.SymbolConst, "a")
	m.add(localStmt(js_ast.LocalConst, true, decl(binding(a), ptr(num(1)))))
	m.exportStar("./m")

	// Names exported here are never overwritten by the star export
	expectTransformed(t, m, `System.register(["./m"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var a;
    var exportedNames_1 = {
        a: true
    };
    function exportStar_1(m) {
        var exports = {};
        for (var n in m) {
            if (n !== "default" && !exportedNames_1.hasOwnProperty(n))
                exports[n] = m[n];
        }
        exports_1(exports);
    }
    return {
        setters: [
            function (m_1_1) {
                exportStar_1(m_1_1);
            }
        ],
        execute: function () {
            exports_1("a", a = 1);
        }
    };
});
`)
}

func TestExportStarWithoutLocalNames(t *testing.T) {
	m := newModuleBuilder()
	m.exportStar("./m")
	expectTransformed(t, m, `System.register(["./m"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    function exportStar_1(m) {
        var exports = {};
        for (var n in m) {
            if (n !== "default")
                exports[n] = m[n];
        }
        exports_1(exports);
    }
    return {
        setters: [
            function (m_1_1) {
                exportStar_1(m_1_1);
            }
        ],
        execute: function () {
        }
    };
});
`)
}

func TestExportStarAs(t *testing.T) {
	m := newModuleBuilder()
	m.exportStarAs("./n", "ns")
	m.exportStar("./m")
	expectTransformed(t, m, `System.register(["./n", "./m"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var exportedNames_1 = {
        ns: true
    };
    function exportStar_1(m) {
        var exports = {};
        for (var n in m) {
            if (n !== "default" && !exportedNames_1.hasOwnProperty(n))
                exports[n] = m[n];
        }
        exports_1(exports);
    }
    return {
        setters: [
            function (ns_1) {
                exports_1("ns", ns_1);
            },
            function (m_1_1) {
                exportStar_1(m_1_1);
            }
        ],
        execute: function () {
        }
    };
});
`)
}

func TestReexportedImport(t *testing.T) {
	m := newModuleBuilder()
	a := m.importNames("./m", "a")[0]
	ns := m.importStar("./n", "ns")
	m.add(
		exportClause(exportItem(a, "b"), exportItem(ns, "all")),
		exprStmt(callExpr(dotExpr(identExpr(ns), "run"))),
	)
	expectTransformed(t, m, `System.register(["./m", "./n"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var m_1, ns;
    return {
        setters: [
            function (m_1_1) {
                m_1 = m_1_1;
            },
            function (ns_1) {
                ns = ns_1;
            }
        ],
        execute: function () {
            exports_1("b", m_1.a);
            exports_1("all", ns);
            ns.run();
        }
    };
});
`)
}

func TestShorthandPropertyOfImport(t *testing.T) {
	m := newModuleBuilder()
	f := m.importNames("./m", "f")[0]
	use := m.global("use")
	m.add(exprStmt(callExpr(identExpr(use), js_ast.Expr{Data: &js_ast.EObject{
		Properties:   []js_ast.Property{{Key: str("f"), Value: ptr(identExpr(f)), WasShorthand: true}},
		IsSingleLine: true,
	}})))
	js, _ := transform(t, m, transformOptions{})
	if !strings.Contains(js, "            use({ f: m_1.f });\n") {
		t.Fatalf("shorthand property was not expanded:\n%s", js)
	}
}

func TestNonIdentifierImportName(t *testing.T) {
	m := newModuleBuilder()
	ab := m.importNames("./m", "a-b as ab")[0]
	m.add(exprStmt(callExpr(identExpr(ab))))
	js, _ := transform(t, m, transformOptions{})
	if !strings.Contains(js, "            m_1[\"a-b\"]();\n") {
		t.Fatalf("import was not rewritten to an index:\n%s", js)
	}
}

func TestImportEquals(t *testing.T) {
	m := newModuleBuilder()
	x := m.declare(js_ast.SymbolImport, "x")
	m.add(js_ast.Stmt{Data: &js_ast.SImportEquals{
		Name:              js_ast.LocRef{Ref: x},
		ImportRecordIndex: ast.MakeIndex32(m.record("./cjs")),
		IsExport:          true,
	}})
	expectTransformed(t, m, `System.register(["./cjs"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var x;
    return {
        setters: [
            function (x_1) {
                x = x_1;
                exports_1("x", x_1);
            }
        ],
        execute: function () {
        }
    };
});
`)
}

func TestImportEqualsWithoutRecordPanics(t *testing.T) {
	m := newModuleBuilder()
	x := m.declare(js_ast.SymbolImport, "x")
	ns := m.global("N")
	m.add(js_ast.Stmt{Data: &js_ast.SImportEquals{
		Name:  js_ast.LocRef{Ref: x},
		Value: ptr(dotExpr(identExpr(ns), "y")),
	}})
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an import alias that was not lowered")
		}
	}()
	transform(t, m, transformOptions{})
}

func TestDestructuring(t *testing.T) {
	m := newModuleBuilder()
	a := m.declare(js_ast.SymbolConst, "a")
	c := m.declare(js_ast.SymbolConst, "c")
	o := m.global("o")
	u := m.declare(js_ast.SymbolOther, "u")
	v := m.declare(js_ast.SymbolOther, "v")
	pair := m.global("pair")
	f := m.global("f")
	pattern := js_ast.Binding{Data: &js_ast.BObject{Properties: []js_ast.PropertyBinding{
		{Key: str("a"), Value: binding(a)},
		{Key: str("b"), Value: js_ast.Binding{Data: &js_ast.BArray{Items: []js_ast.ArrayBinding{{Binding: binding(c)}}}}},
	}}}
	m.add(
		localStmt(js_ast.LocalConst, true, decl(pattern, ptr(identExpr(o)))),
		localStmt(js_ast.LocalLet, true, decl(binding(u), nil), decl(binding(v), nil)),
		exprStmt(binExpr(js_ast.BinOpAssign,
			js_ast.Expr{Data: &js_ast.EArray{Items: []js_ast.Expr{identExpr(u), identExpr(v)}, IsSingleLine: true}},
			identExpr(pair))),
		exprStmt(callExpr(identExpr(f), binExpr(js_ast.BinOpAssign,
			js_ast.Expr{Data: &js_ast.EArray{Items: []js_ast.Expr{identExpr(u)}, IsSingleLine: true}},
			identExpr(pair)))),
	)

	// A destructuring assignment whose value is used keeps it in a temporary
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var a, c, u, v, _a;
    return {
        setters: [],
        execute: function () {
            ({ a, b: [c] } = o), exports_1("a", a), exports_1("c", c);
            [u, v] = pair, exports_1("u", u), exports_1("v", v);
            f((_a = pair, [u] = _a, exports_1("u", u), _a));
        }
    };
});
`)
}

func TestDynamicImportAndImportMeta(t *testing.T) {
	m := newModuleBuilder()
	p := m.declare(js_ast.SymbolConst, "p")
	console := m.global("console")
	m.add(
		localStmt(js_ast.LocalConst, false, decl(binding(p), ptr(js_ast.Expr{Data: &js_ast.EImport{Expr: str("./lazy")}}))),
		exprStmt(callExpr(dotExpr(identExpr(console), "log"), dotExpr(js_ast.Expr{Data: &js_ast.EImportMeta{}}, "url"))),
		exprStmt(js_ast.Expr{Data: &js_ast.EAwait{Value: identExpr(p)}}),
	)

	// Top-level await makes the execute function async
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var p;
    return {
        setters: [],
        execute: async function () {
            p = context_1.import("./lazy");
            console.log(context_1.meta.url);
            await p;
        }
    };
});
`)
}

func TestAwaitInsideFunction(t *testing.T) {
	m := newModuleBuilder()
	later := m.declare(js_ast.SymbolHoistedFunction, "later")
	p := m.global("p")
	m.add(js_ast.Stmt{Data: &js_ast.SFunction{Fn: js_ast.Fn{
		Name:    &js_ast.LocRef{Ref: later},
		IsAsync: true,
		Body:    js_ast.FnBody{Stmts: []js_ast.Stmt{exprStmt(js_ast.Expr{Data: &js_ast.EAwait{Value: identExpr(p)}})}},
	}}})
	js, _ := transform(t, m, transformOptions{})
	if !strings.Contains(js, "        execute: function () {\n") {
		t.Fatalf("execute should not be async:\n%s", js)
	}
	if !strings.Contains(js, "    async function later() {\n        await p;\n    }\n") {
		t.Fatalf("function was not hoisted:\n%s", js)
	}
}

func TestHelpersImport(t *testing.T) {
	m := newModuleBuilder()
	x := m.declare(js_ast.SymbolHoisted, "x")
	assign := m.global("__assign")
	m.b.Symbol(assign).Flags |= js_ast.HelperName
	y := m.global("y")
	m.add(localStmt(js_ast.LocalVar, false, decl(binding(x), ptr(callExpr(identExpr(assign), js_ast.Expr{Data: &js_ast.EObject{}}, identExpr(y))))))
	expectTransformedWith(t, m, transformOptions{options: config.Options{ImportHelpers: true}},
		`System.register(["tslib"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var tslib_1, x;
    return {
        setters: [
            function (tslib_1_1) {
                tslib_1 = tslib_1_1;
            }
        ],
        execute: function () {
            x = tslib_1.__assign({}, y);
        }
    };
});
`)
}

func TestHelpersWithoutImportHelpers(t *testing.T) {
	m := newModuleBuilder()
	assign := m.global("__assign")
	m.b.Symbol(assign).Flags |= js_ast.HelperName
	m.add(exprStmt(callExpr(identExpr(assign))))
	js, _ := transform(t, m, transformOptions{})
	if !strings.Contains(js, "            __assign();\n") || strings.Contains(js, "tslib") {
		t.Fatalf("helper should be left alone:\n%s", js)
	}
}

func TestUnusedImportHelpers(t *testing.T) {
	m := newModuleBuilder()
	js, msgs := transform(t, m, transformOptions{options: config.Options{ImportHelpers: true, HelpersModule: "my-helpers"}})
	if strings.Contains(js, "my-helpers") {
		t.Fatalf("unexpected helpers dependency:\n%s", js)
	}
	if !hasMessage(msgs, logger.MsgID_SysReg_ImportHelpersUnused) {
		t.Fatal("expected a debug message about the unused helpers module")
	}
}

func TestHostResolution(t *testing.T) {
	m := newModuleBuilder()
	m.importBare("./side")
	m.importNames("./types", "T")
	js, msgs := transform(t, m, transformOptions{host: mapHost{"./side": "/lib/side.js"}})
	test.AssertEqualWithDiff(t, js, `System.register(["/lib/side.js"], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var types_1;
    return {
        setters: [
            function (_1) {
            }
        ],
        execute: function () {
        }
    };
});
`)
	if !hasMessage(msgs, logger.MsgID_SysReg_UnresolvableSpecifier) {
		t.Fatal("expected a debug message about the dropped dependency")
	}
}

func TestRenamedDependencies(t *testing.T) {
	m := newModuleBuilder()
	m.importBare("./m")
	m.importBare("lib/m")
	js, _ := transform(t, m, transformOptions{options: config.Options{RenamedDependencies: map[string]string{"./m": "lib/m"}}})
	if !strings.HasPrefix(js, `System.register(["lib/m"], `) {
		t.Fatalf("renamed dependencies should share a group:\n%s", js)
	}
}

func TestNonLiteralDependency(t *testing.T) {
	m := newModuleBuilder()
	index := m.b.AddImportRecord(ast.ImportRecord{Flags: ast.HasNonLiteralPath, Kind: ast.ImportStmt})
	m.add(js_ast.Stmt{Data: &js_ast.SImport{NamespaceRef: js_ast.InvalidRef, ImportRecordIndex: index}})
	js, msgs := transform(t, m, transformOptions{})
	if !strings.HasPrefix(js, `System.register([], `) {
		t.Fatalf("the dependency should be left out:\n%s", js)
	}
	if !hasMessage(msgs, logger.MsgID_SysReg_UnresolvableSpecifier) {
		t.Fatal("expected a debug message about the dropped dependency")
	}
}

func TestExportEquals(t *testing.T) {
	m := newModuleBuilder()
	x := m.global("x")
	m.add(js_ast.Stmt{Data: &js_ast.SExportEquals{Value: identExpr(x)}})
	js, msgs := transform(t, m, transformOptions{})
	if strings.Contains(js, "exports_1(") {
		t.Fatalf("\"export =\" should be dropped:\n%s", js)
	}
	if !hasMessage(msgs, logger.MsgID_SysReg_ExportEqualsElided) {
		t.Fatal("expected a debug message about the dropped export")
	}
}

func TestMergedDeclaration(t *testing.T) {
	m := newModuleBuilder()
	ns := m.declare(js_ast.SymbolTSNamespace, "E")
	setup := m.global("setup")
	after := m.global("after")
	marker := m.b.NewNodeID()
	m.add(
		js_ast.Stmt{Data: &js_ast.SMergeMarker{
			Original:  localStmt(js_ast.LocalVar, true, decl(binding(ns), nil)),
			EndMarker: marker,
		}},
		exprStmt(callExpr(identExpr(setup), identExpr(ns))),
		js_ast.Stmt{Data: &js_ast.SEndMarker{ID: marker, Kind: js_ast.EndOfNamespace, Name: ns}},
		exprStmt(callExpr(identExpr(after))),
	)

	// The export waits for the end of the merged declaration
	js, _ := transform(t, m, transformOptions{})
	test.AssertEqualWithDiff(t, js, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var E;
    return {
        setters: [],
        execute: function () {
            setup(E);
            exports_1("E", E);
            after();
        }
    };
});
`)
	test.AssertEqual(t, strings.Count(js, `exports_1("E", E)`), 1)
}

func TestEnumEndMarker(t *testing.T) {
	m := newModuleBuilder()
	color := m.declare(js_ast.SymbolTSEnum, "Color")
	marker := m.b.NewNodeID()
	m.add(
		localStmt(js_ast.LocalVar, false, decl(binding(color), nil)),
		exprStmt(binExpr(js_ast.BinOpAssign, identExpr(color), js_ast.Expr{Data: &js_ast.EObject{}})),
		js_ast.Stmt{Data: &js_ast.SEndMarker{ID: marker, Kind: js_ast.EndOfEnum, Name: color}},
		exportClause(exportItem(color, "Colour")),
	)

	// Writes inside the enum body are not exported one at a time
	expectTransformed(t, m, `System.register([], function (exports_1, context_1) {
    "use strict";
    var __moduleName = context_1 && context_1.id;
    var Color;
    return {
        setters: [],
        execute: function () {
            Color = {};
            exports_1("Colour", Color);
        }
    };
});
`)
}

func TestPrologue(t *testing.T) {
	m := newModuleBuilder()
	m.add(
		js_ast.Stmt{Data: &js_ast.SDirective{Value: []uint16{'u', 's', 'e', ' ', 'a', 's', 'm'}}},
		js_ast.Stmt{Data: &js_ast.SDirective{Value: []uint16{'u', 's', 'e', ' ', 's', 't', 'r', 'i', 'c', 't'}}},
	)
	js, _ := transform(t, m, transformOptions{})
	if !strings.Contains(js, "{\n    \"use asm\";\n    \"use strict\";\n    var __moduleName") {
		t.Fatalf("directives were not copied once:\n%s", js)
	}

	m = newModuleBuilder()
	js, _ = transform(t, m, transformOptions{options: config.Options{NoImplicitUseStrict: true}})
	if strings.Contains(js, "use strict") {
		t.Fatalf("unexpected \"use strict\":\n%s", js)
	}

	m = newModuleBuilder()
	js, _ = transform(t, m, transformOptions{options: config.Options{NoImplicitUseStrict: true, AlwaysStrict: true}})
	if !strings.Contains(js, "use strict") {
		t.Fatalf("missing \"use strict\":\n%s", js)
	}
}

func TestNameCollisions(t *testing.T) {
	m := newModuleBuilder()
	m.declare(js_ast.SymbolHoisted, "exports_1")
	m.declare(js_ast.SymbolHoisted, "m_1")
	f := m.importNames("./m", "f")[0]
	m.add(exprStmt(callExpr(identExpr(f))))
	js, _ := transform(t, m, transformOptions{})
	if !strings.Contains(js, "function (exports_2, context_1) {") {
		t.Fatalf("exporter name should avoid the existing binding:\n%s", js)
	}
	if !strings.Contains(js, "            m_2.f();\n") {
		t.Fatalf("namespace name should avoid the existing binding:\n%s", js)
	}
}

func TestInputIsNotModified(t *testing.T) {
	m := newModuleBuilder()
	f := m.importNames("./m", "f")[0]
	x := m.declare(js_ast.SymbolOther, "x")
	m.add(
		localStmt(js_ast.LocalLet, true, decl(binding(x), ptr(callExpr(identExpr(f))))),
		exprStmt(unExpr(js_ast.UnOpPostInc, identExpr(x))),
	)
	tree := m.b.Finish(m.stmts)
	before := js_printer.Print(*tree, tree.SymbolMap(), renamer.NewNoOpRenamer(tree.SymbolMap()), js_printer.Options{}).JS
	symbolCount := len(tree.Symbols)

	transformer := NewTransformer(logger.NewDeferLog(logger.LevelSilent), config.Options{}, nil)
	transformer.Transform(test.SourceForTest(""), tree, binder.NewResolver(tree))

	after := js_printer.Print(*tree, tree.SymbolMap(), renamer.NewNoOpRenamer(tree.SymbolMap()), js_printer.Options{}).JS
	test.AssertEqualWithDiff(t, string(after), string(before))
	test.AssertEqual(t, len(tree.Symbols), symbolCount)
}

func TestStateIsReleasedAfterPrinting(t *testing.T) {
	m := newModuleBuilder()
	tree := m.b.Finish(nil)
	transformer := NewTransformer(logger.NewDeferLog(logger.LevelSilent), config.Options{}, nil)
	out := transformer.Transform(test.SourceForTest(""), tree, binder.NewResolver(tree))
	test.AssertEqual(t, len(transformer.modules), 1)

	symbols := out.SymbolMap()
	js_printer.Print(*out, symbols, renamer.NewNoOpRenamer(symbols), js_printer.Options{Hooks: transformer.Substituter()})
	test.AssertEqual(t, len(transformer.modules), 0)
}
