// Package sysreg rewrites an ES module into the System.register format:
//
//   System.register(["./m"], function (exports_1, context_1) {
//       "use strict";
//       var __moduleName = context_1 && context_1.id;
//       var m_1, x;
//       return {
//           setters: [function (m_1_1) { m_1 = m_1_1; }],
//           execute: function () { exports_1("x", x = m_1.f()); }
//       };
//   });
//
// This happens in two passes. The first pass (Transform) builds the new tree:
// it groups the dependencies, hoists declarations out of the module body and
// emits the exporter calls that can be known statically. The second pass runs
// while the new tree is printed (see Substituter) and rewrites references to
// imports and assignments to exported bindings. Both passes share the state
// for a module, which is kept from the start of the first pass until the
// printer is done with the module.
package sysreg

import (
	"sync"

	"github.com/sysreg/sysreg/internal/binder"
	"github.com/sysreg/sysreg/internal/config"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/internal/moduleinfo"
)

type Resolver interface {
	ReferencedImportDeclaration(ref js_ast.Ref) (binder.ImportBinding, bool)
	ReferencedExportContainer(ref js_ast.Ref) binder.ExportContainer
	ReferencedValueDeclaration(ref js_ast.Ref) (js_ast.Ref, bool)
	IsEnumOrNamespaceDeclaration(ref js_ast.Ref) bool
}

// The host decides what goes into the dependency array for an import
// specifier. Returning false drops the dependency: it gets no group and no
// setter.
type Host interface {
	ResolveSpecifier(importer string, specifier string) (string, bool)
}

type Transformer struct {
	log     logger.Log
	options config.Options
	host    Host

	mutex   sync.Mutex
	modules map[uint32]*moduleState
}

func NewTransformer(log logger.Log, options config.Options, host Host) *Transformer {
	return &Transformer{
		log:     log,
		options: options,
		host:    host,
		modules: make(map[uint32]*moduleState),
	}
}

// State for one module that must survive from the rewrite pass until the
// print pass is done with the module
type moduleState struct {
	info     *moduleinfo.Info
	resolver Resolver

	// The symbol table of the output tree. It starts as a copy of the input
	// symbol table so input refs are still valid in it.
	tree    *js_ast.AST
	symbols js_ast.SymbolMap

	// The number of symbols in the input tree. Symbols at or past this index
	// were created by the transform and the resolver knows nothing about them.
	inputSymbolCount uint32

	exportFunction js_ast.Ref
	contextObject  js_ast.Ref

	// Maps the import record of each import statement to the local name that
	// holds that module's namespace object
	importAliases map[uint32]js_ast.Ref

	// Binary and unary expressions that have already been rewritten and must be
	// printed as-is
	noSubstitution map[js_ast.NodeID]bool
}

func (state *moduleState) newNodeID() js_ast.NodeID {
	return state.tree.NewNodeID()
}

func (state *moduleState) preventSubstitution(expr js_ast.Expr) js_ast.Expr {
	switch e := expr.Data.(type) {
	case *js_ast.EBinary:
		if e.ID == 0 {
			clone := *e
			clone.ID = state.newNodeID()
			expr = js_ast.Expr{Loc: expr.Loc, Data: &clone}
			e = &clone
		}
		state.noSubstitution[e.ID] = true

	case *js_ast.EUnary:
		if e.ID == 0 {
			clone := *e
			clone.ID = state.newNodeID()
			expr = js_ast.Expr{Loc: expr.Loc, Data: &clone}
			e = &clone
		}
		state.noSubstitution[e.ID] = true
	}
	return expr
}

func (state *moduleState) isTransformSymbol(ref js_ast.Ref) bool {
	return ref.InnerIndex >= state.inputSymbolCount
}

// Returns the names that an assignment to "ref" must be exported under: its
// own name if it's an exported variable, then every alias from an "export {}"
// clause. Returns nothing for names that aren't declared in this module.
func (state *moduleState) exportsOf(ref js_ast.Ref) (names []string) {
	if state.isTransformSymbol(ref) {
		return nil
	}
	decl, ok := state.resolver.ReferencedValueDeclaration(ref)
	if !ok {
		return nil
	}
	if state.resolver.ReferencedExportContainer(ref) == binder.ExportContainerModule {
		names = append(names, state.symbols.Get(decl).OriginalName)
	}
	return append(names, state.info.ExportedBindings[decl]...)
}

func (t *Transformer) storeModule(sourceIndex uint32, state *moduleState) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.modules[sourceIndex] = state
}

func (t *Transformer) loadModule(sourceIndex uint32) *moduleState {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.modules[sourceIndex]
}

func (t *Transformer) releaseModule(sourceIndex uint32) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	delete(t.modules, sourceIndex)
}
