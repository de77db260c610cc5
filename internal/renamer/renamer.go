package renamer

import (
	"strconv"
	"strings"

	"github.com/sysreg/sysreg/internal/js_ast"
)

var strictModeReservedWords = map[string]bool{
	"implements": true,
	"interface":  true,
	"let":        true,
	"package":    true,
	"private":    true,
	"protected":  true,
	"public":     true,
	"static":     true,
	"yield":      true,
}

// Every name that already appears in the file is reserved so that generated
// names can't shadow or capture it. Generated symbols are skipped since they
// haven't been given their final names yet.
func ComputeReservedNames(symbols []js_ast.Symbol) map[string]uint32 {
	names := make(map[string]uint32)

	// All keywords and strict mode reserved words are reserved names
	for k := range js_ast.Keywords {
		names[k] = 1
	}
	for k := range strictModeReservedWords {
		names[k] = 1
	}

	for _, symbol := range symbols {
		if !symbol.Flags.Has(js_ast.GeneratedName) {
			names[symbol.OriginalName] = 1
		}
	}

	return names
}

type Renamer interface {
	NameForSymbol(ref js_ast.Ref) string
}

////////////////////////////////////////////////////////////////////////////////
// noOpRenamer

type noOpRenamer struct {
	symbols js_ast.SymbolMap
}

func NewNoOpRenamer(symbols js_ast.SymbolMap) Renamer {
	return &noOpRenamer{
		symbols: symbols,
	}
}

func (r *noOpRenamer) NameForSymbol(ref js_ast.Ref) string {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	return r.symbols.Get(ref).OriginalName
}

////////////////////////////////////////////////////////////////////////////////
// NameGenerator

// Hands out names of the form "base_N" that don't collide with any reserved
// name or any name handed out before. Counting always starts at 1, so the
// first name for "exports" is "exports_1" even if "exports" itself is free.
type NameGenerator struct {
	used map[string]bool

	// This maps a prefix to the last number that was tried for it. When a name
	// collides with an already-used name, we need to rename it. This is done by
	// incrementing a number at the end until the name is unused. We save the
	// count here so that subsequent collisions can start counting from where the
	// previous collision ended instead of having to start counting from 1.
	lastSuffix map[string]uint32
}

func NewNameGenerator(reservedNames map[string]uint32) *NameGenerator {
	used := make(map[string]bool, len(reservedNames))
	for name := range reservedNames {
		used[name] = true
	}
	return &NameGenerator{used: used, lastSuffix: make(map[string]uint32)}
}

func (g *NameGenerator) Reserve(name string) {
	g.used[name] = true
}

func (g *NameGenerator) IsUsed(name string) bool {
	return g.used[name]
}

func (g *NameGenerator) UniqueName(base string) string {
	prefix := base
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	// Keep incrementing the number until the name is unused
	tries := g.lastSuffix[prefix]
	for {
		tries++
		name := prefix + strconv.Itoa(int(tries))
		if !g.used[name] {
			g.lastSuffix[prefix] = tries
			g.used[name] = true
			return name
		}
	}
}

// Temporaries are named "_a" through "_z", then "_0", "_1" and so on. The
// names "_i" and "_n" are skipped so that they stay free for loop counters
// written by hand.
func (g *NameGenerator) TempName() string {
	for {
		count := g.lastSuffix[tempPrefix]
		g.lastSuffix[tempPrefix] = count + 1

		var name string
		if count < 26 {
			name = "_" + string(rune('a'+count))
		} else {
			name = "_" + strconv.Itoa(int(count-26))
		}
		if name == "_i" || name == "_n" || g.used[name] {
			continue
		}
		g.used[name] = true
		return name
	}
}

// This can't collide with a prefix from "UniqueName" since those always end
// in an underscore
const tempPrefix = "\x00temp"
