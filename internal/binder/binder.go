// Package binder answers questions about what an identifier refers to. The
// loader has already bound every identifier to a symbol, so these are mostly
// lookups over the symbol table and the module's top-level statements.
package binder

import (
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

// The import clause or specifier that a name was bound by
type ImportBinding struct {
	ImportRecordIndex uint32

	// "default" for a default import, otherwise the name as exported by the
	// imported module
	Alias string
}

type ExportContainer uint8

const (
	// Not exported directly, although it may still be exported through an
	// "export {x as y}" clause
	ExportContainerNone ExportContainer = iota

	// A variable declared at the top level with the "export" keyword. These
	// bindings are exported under their own name.
	ExportContainerModule
)

type Resolver struct {
	symbols      js_ast.SymbolMap
	namedImports map[js_ast.Ref]js_ast.NamedImport
	containers   map[js_ast.Ref]ExportContainer
}

func NewResolver(tree *js_ast.AST) *Resolver {
	r := &Resolver{
		symbols:      tree.SymbolMap(),
		namedImports: tree.NamedImports,
		containers:   make(map[js_ast.Ref]ExportContainer),
	}
	for _, stmt := range tree.Stmts {
		r.scanTopLevelStmt(stmt)
	}
	return r
}

func (r *Resolver) scanTopLevelStmt(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SLocal:
		if s.IsExport {
			r.markLocal(s)
		}

	case *js_ast.SMergeMarker:
		if local, ok := s.Original.Data.(*js_ast.SLocal); ok && local.IsExport {
			r.markLocal(local)
		}

	// Exported functions and classes aren't variables. Assignments to them are
	// exported through the exported bindings in the module info instead.
	case *js_ast.SFunction, *js_ast.SClass, *js_ast.SExportDefault:
	}
}

func (r *Resolver) markLocal(local *js_ast.SLocal) {
	for _, decl := range local.Decls {
		js_ast.ForEachIdentifierBinding(decl.Binding, func(_ logger.Loc, b *js_ast.BIdentifier) {
			r.mark(b.Ref)
		})
	}
}

func (r *Resolver) mark(ref js_ast.Ref) {
	r.containers[js_ast.FollowSymbols(r.symbols, ref)] = ExportContainerModule
}

func (r *Resolver) ReferencedImportDeclaration(ref js_ast.Ref) (ImportBinding, bool) {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	if named, ok := r.namedImports[ref]; ok {
		return ImportBinding{ImportRecordIndex: named.ImportRecordIndex, Alias: named.Alias}, true
	}
	return ImportBinding{}, false
}

func (r *Resolver) ReferencedExportContainer(ref js_ast.Ref) ExportContainer {
	return r.containers[js_ast.FollowSymbols(r.symbols, ref)]
}

// Unbound names (globals) have no value declaration
func (r *Resolver) ReferencedValueDeclaration(ref js_ast.Ref) (js_ast.Ref, bool) {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	if r.symbols.Get(ref).Kind == js_ast.SymbolUnbound {
		return js_ast.InvalidRef, false
	}
	return ref, true
}

func (r *Resolver) IsEnumOrNamespaceDeclaration(ref js_ast.Ref) bool {
	ref = js_ast.FollowSymbols(r.symbols, ref)
	return r.symbols.Get(ref).Kind.IsEnumOrNamespace()
}
