package renamer

import (
	"testing"

	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/test"
)

func TestNameGenerator(t *testing.T) {
	reserved := ComputeReservedNames([]js_ast.Symbol{
		{OriginalName: "m_1"},
		{OriginalName: "exports"},
		{OriginalName: "tmp", Flags: js_ast.GeneratedName},
	})
	g := NewNameGenerator(reserved)

	test.AssertEqual(t, g.UniqueName("exports"), "exports_1")
	test.AssertEqual(t, g.UniqueName("m"), "m_2")
	test.AssertEqual(t, g.UniqueName("m"), "m_3")
	test.AssertEqual(t, g.UniqueName("m_3"), "m_3_1")
	test.AssertEqual(t, g.UniqueName("_"), "_1")
	test.AssertEqual(t, g.UniqueName("tmp"), "tmp_1")
	test.AssertEqual(t, g.IsUsed("class"), true)
	test.AssertEqual(t, g.IsUsed("tmp"), false)

	g.Reserve("x_1")
	test.AssertEqual(t, g.UniqueName("x"), "x_2")
}

func TestNoOpRenamerFollowsLinks(t *testing.T) {
	tree := js_ast.AST{Symbols: []js_ast.Symbol{
		{OriginalName: "a", Link: js_ast.Ref{InnerIndex: 1}},
		{OriginalName: "b", Link: js_ast.InvalidRef},
	}}
	r := NewNoOpRenamer(tree.SymbolMap())
	test.AssertEqual(t, r.NameForSymbol(js_ast.Ref{InnerIndex: 0}), "b")
	test.AssertEqual(t, r.NameForSymbol(js_ast.Ref{InnerIndex: 1}), "b")
}

func TestTempName(t *testing.T) {
	g := NewNameGenerator(ComputeReservedNames([]js_ast.Symbol{{OriginalName: "_b"}}))

	test.AssertEqual(t, g.TempName(), "_a")
	test.AssertEqual(t, g.TempName(), "_c")

	var last string
	for i := 0; i < 21; i++ {
		last = g.TempName()
	}
	test.AssertEqual(t, last, "_z")
	test.AssertEqual(t, g.TempName(), "_0")

	// Temporaries and "UniqueName" share the used set
	test.AssertEqual(t, g.UniqueName("_"), "_1")
	test.AssertEqual(t, g.TempName(), "_2")
}
