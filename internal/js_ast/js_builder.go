package js_ast

import (
	"fmt"

	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/logger"
)

// Builder owns the symbol table and scope tree of a module while the module is
// being constructed. It supports the two-pass approach the loader uses: the
// declare pass pushes scopes and declares symbols, then the bind pass replays
// the same scopes in the same order and binds identifiers to the symbols that
// were declared. A declaration that appears after a use in source order, such
// as a hoisted "var" in a nested block, is then still found by the use.
//
// Single-pass use (push, declare, find, pop) also works as long as every name
// is declared before it is referenced.
type Builder struct {
	tree         AST
	currentScope *Scope

	// Scopes are recorded in the declare pass and consumed from the front in
	// the bind pass
	scopesInOrder []scopeOrder
	isBindPass    bool

	// Called when a declaration collides with an existing one in a way the
	// language doesn't allow. The existing symbol is kept.
	OnCollision func(name string, newLoc logger.Loc, oldLoc logger.Loc)
}

type scopeOrder struct {
	loc   logger.Loc
	scope *Scope
}

func NewBuilder(sourceIndex uint32) *Builder {
	b := &Builder{}
	b.tree.SourceIndex = sourceIndex
	b.tree.NamedImports = make(map[Ref]NamedImport)
	b.tree.ModuleScope = &Scope{Kind: ScopeEntry, Members: make(map[string]ScopeMember)}
	b.currentScope = b.tree.ModuleScope
	return b
}

func (b *Builder) ModuleScope() *Scope {
	return b.tree.ModuleScope
}

func (b *Builder) CurrentScope() *Scope {
	return b.currentScope
}

func (b *Builder) Symbol(ref Ref) *Symbol {
	return &b.tree.Symbols[ref.InnerIndex]
}

func (b *Builder) NewNodeID() NodeID {
	return b.tree.NewNodeID()
}

func (b *Builder) NewSymbol(kind SymbolKind, name string) Ref {
	ref := Ref{SourceIndex: b.tree.SourceIndex, InnerIndex: uint32(len(b.tree.Symbols))}
	b.tree.Symbols = append(b.tree.Symbols, Symbol{
		Kind:         kind,
		OriginalName: name,
		Link:         InvalidRef,
	})
	return ref
}

// Generated symbols are not members of any scope, so they can't be found by
// name. The transform gives them unique names before printing.
func (b *Builder) GeneratedSymbol(kind SymbolKind, name string) Ref {
	ref := b.NewSymbol(kind, name)
	b.tree.Symbols[ref.InnerIndex].Flags |= GeneratedName
	b.currentScope.Generated = append(b.currentScope.Generated, ref)
	return ref
}

func (b *Builder) AddImportRecord(record ast.ImportRecord) uint32 {
	index := uint32(len(b.tree.ImportRecords))
	b.tree.ImportRecords = append(b.tree.ImportRecords, record)
	return index
}

func (b *Builder) AddNamedImport(ref Ref, named NamedImport) {
	b.tree.NamedImports[ref] = named
}

func (b *Builder) PushScopeForDeclarePass(kind ScopeKind, loc logger.Loc) {
	if b.isBindPass {
		panic("Internal error")
	}
	parent := b.currentScope
	scope := &Scope{
		Kind:    kind,
		Parent:  parent,
		Members: make(map[string]ScopeMember),
	}
	parent.Children = append(parent.Children, scope)
	b.currentScope = scope
	b.scopesInOrder = append(b.scopesInOrder, scopeOrder{loc, scope})
}

func (b *Builder) StartBindPass() {
	if b.currentScope != b.tree.ModuleScope {
		panic("Internal error")
	}
	b.isBindPass = true
}

func (b *Builder) PushScopeForBindPass(kind ScopeKind, loc logger.Loc) {
	order := b.scopesInOrder[0]

	// Sanity-check that the scopes generated by the first and second passes match
	if order.loc != loc || order.scope.Kind != kind {
		panic(fmt.Sprintf("Expected scope (%d, %d), found scope (%d, %d)",
			kind, loc.Start, order.scope.Kind, order.loc.Start))
	}

	b.scopesInOrder = b.scopesInOrder[1:]
	b.currentScope = order.scope
}

func (b *Builder) PopScope() {
	if !b.isBindPass {
		b.hoistSymbols(b.currentScope)
	}
	b.currentScope = b.currentScope.Parent
}

type mergeResult int

const (
	mergeForbidden = iota
	mergeReplaceWithNew
	mergeKeepExisting
)

func canMergeSymbols(scope *Scope, existing SymbolKind, new SymbolKind) mergeResult {
	if existing == SymbolUnbound {
		return mergeReplaceWithNew
	}

	// "enum Foo {} enum Foo {}"
	if new == SymbolTSEnum && existing == SymbolTSEnum {
		return mergeKeepExisting
	}

	// "namespace Foo { ... } namespace Foo { ... }"
	// "enum Foo {} namespace Foo { ... }"
	if new == SymbolTSNamespace && existing.IsEnumOrNamespace() {
		return mergeKeepExisting
	}

	// "var foo; var foo;"
	// "var foo; function foo() {}"
	// "function foo() {} var foo;"
	if new.IsHoisted() && existing.IsHoisted() &&
		(scope.Kind == ScopeEntry || scope.Kind == ScopeFunctionBody || (new == SymbolHoisted && existing == SymbolHoisted)) {
		return mergeKeepExisting
	}

	// "try {} catch (e) { var e }"
	if existing == SymbolCatchIdentifier && new == SymbolHoisted {
		return mergeReplaceWithNew
	}

	// "function() { var arguments }"
	if existing == SymbolArguments {
		return mergeKeepExisting
	}

	return mergeForbidden
}

func (b *Builder) DeclareSymbol(kind SymbolKind, loc logger.Loc, name string) Ref {
	// The bind pass reuses the symbols from the declare pass
	if b.isBindPass {
		if member, ok := b.currentScope.Members[name]; ok {
			return member.Ref
		}
		panic("Internal error")
	}

	// Allocate a new symbol
	ref := b.NewSymbol(kind, name)

	// Check for a collision in the declaring scope
	if existing, ok := b.currentScope.Members[name]; ok {
		symbol := b.Symbol(existing.Ref)

		switch canMergeSymbols(b.currentScope, symbol.Kind, kind) {
		case mergeForbidden:
			if b.OnCollision != nil {
				b.OnCollision(name, loc, existing.Loc)
			}
			return existing.Ref

		case mergeKeepExisting:
			ref = existing.Ref

		case mergeReplaceWithNew:
			symbol.Link = ref
		}
	}

	// Overwrite this name in the declaring scope
	b.currentScope.Members[name] = ScopeMember{Ref: ref, Loc: loc}
	return ref
}

func (b *Builder) hoistSymbols(scope *Scope) {
	if scope.Kind.StopsHoisting() {
		return
	}

nextMember:
	for name, member := range scope.Members {
		symbol := b.Symbol(member.Ref)
		if symbol.Kind != SymbolHoisted {
			continue
		}

		// Check for collisions that would prevent hoisting "var" symbols up to
		// the enclosing function scope
		for s := scope.Parent; s != nil; s = s.Parent {
			if existingMember, ok := s.Members[name]; ok {
				existingSymbol := b.Symbol(existingMember.Ref)

				// Silently merge with unbound symbols (global accesses) and with
				// other hoisted variables
				if existingSymbol.Kind == SymbolUnbound || existingSymbol.Kind.IsHoisted() {
					// A global that was referenced before the "var" was seen
					if existingSymbol.Kind == SymbolUnbound {
						existingSymbol.Kind = SymbolHoisted
					}
					symbol.Link = existingMember.Ref
					continue nextMember
				}

				// "try {} catch (e) { var e }" declares a second "e" further up
				if existingSymbol.Kind == SymbolCatchIdentifier || existingSymbol.Kind == SymbolArguments {
					if s.Kind.StopsHoisting() {
						continue nextMember
					}
					continue
				}

				if b.OnCollision != nil {
					b.OnCollision(name, member.Loc, existingMember.Loc)
				}
				continue nextMember
			}

			if s.Kind.StopsHoisting() {
				// Declare the member in the scope that stopped the hoisting
				s.Members[name] = member
				continue nextMember
			}
		}
	}
}

// Finds the symbol for a name in the current scope chain. A name that isn't
// declared anywhere gets an unbound symbol in the module scope so that all
// references to the same global share a symbol.
func (b *Builder) FindSymbol(loc logger.Loc, name string) Ref {
	for s := b.currentScope; s != nil; s = s.Parent {
		if member, ok := s.Members[name]; ok {
			return member.Ref
		}
	}

	ref := b.NewSymbol(SymbolUnbound, name)
	b.tree.ModuleScope.Members[name] = ScopeMember{Ref: ref, Loc: loc}
	return ref
}

func (b *Builder) Finish(stmts []Stmt) *AST {
	tree := b.tree
	tree.Stmts = stmts
	return &tree
}
