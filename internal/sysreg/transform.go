package sysreg

import (
	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/config"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/internal/moduleinfo"
	"github.com/sysreg/sysreg/internal/renamer"
)

// Everything the first pass needs for one module. A new one is made for every
// call to Transform so nothing leaks from one module into the next.
type visitor struct {
	log     logger.Log
	source  logger.Source
	options *config.Options
	host    Host
	state   *moduleState
	names   *renamer.NameGenerator

	// The local that holds each external module's namespace object, keyed by
	// the record index of the statement that imports it
	// This is an invalid ref for an import without any names.
	importLocals map[uint32]js_ast.Ref

	// Names declared with a single "var" at the top of the body function
	hoistedNames []js_ast.Ref
	isHoisted    map[js_ast.Ref]bool

	// Function declarations and their exporter calls. These run before any
	// setter so they end up in front of the "return" statement.
	hoistedStmts []js_ast.Stmt

	// Exporter calls that have to wait until the end marker of a merged
	// declaration has been reached
	deferredExports map[js_ast.NodeID][]js_ast.Stmt

	// Temporaries for each function currently being visited, innermost last.
	// Temporaries at the top level are added to "hoistedNames" instead.
	tempsForFn [][]js_ast.Ref
	fnDepth    int

	hasTopLevelAwait bool
}

// Rewrites "tree" into a tree with a single "System.register()" call. The
// input tree is left untouched. The returned tree must be printed with the
// hooks from "Substituter()" for the result to be correct, and the state kept
// for it is released once the printer is done with the file.
func (t *Transformer) Transform(source logger.Source, tree *js_ast.AST, resolver Resolver) *js_ast.AST {
	out := &js_ast.AST{
		Stmts:         tree.Stmts,
		Symbols:       append([]js_ast.Symbol(nil), tree.Symbols...),
		ModuleScope:   tree.ModuleScope,
		ImportRecords: append([]ast.ImportRecord(nil), tree.ImportRecords...),
		NamedImports:  tree.NamedImports,
		ModuleName:    tree.ModuleName,
		SourceIndex:   tree.SourceIndex,
		NextNodeID:    tree.NextNodeID,
	}
	info := moduleinfo.Collect(out, resolver, &t.options)

	state := &moduleState{
		info:             info,
		resolver:         resolver,
		tree:             out,
		symbols:          out.SymbolMap(),
		inputSymbolCount: uint32(len(tree.Symbols)),
		importAliases:    make(map[uint32]js_ast.Ref),
		noSubstitution:   make(map[js_ast.NodeID]bool),
	}
	v := &visitor{
		log:             t.log,
		source:          source,
		options:         &t.options,
		host:            t.host,
		state:           state,
		names:           renamer.NewNameGenerator(renamer.ComputeReservedNames(tree.Symbols)),
		importLocals:    make(map[uint32]js_ast.Ref),
		isHoisted:       make(map[js_ast.Ref]bool),
		deferredExports: make(map[js_ast.NodeID][]js_ast.Stmt),
	}

	if t.options.ImportHelpers && !info.HasHelpersImport() {
		v.log.AddDebug(logger.MsgID_SysReg_ImportHelpersUnused, &source, logger.Range{},
			"No helpers from %q are used by this module", t.options.HelpersModuleOrDefault())
	}

	// Names generated before this pass (such as the name of an anonymous
	// default export) get their final names first
	for i := range out.Symbols {
		if symbol := &out.Symbols[i]; symbol.Flags.Has(js_ast.GeneratedName) {
			symbol.OriginalName = v.names.UniqueName(symbol.OriginalName)
		}
	}

	state.exportFunction = v.newUniqueSymbol(js_ast.SymbolHoisted, "exports")
	state.contextObject = v.newUniqueSymbol(js_ast.SymbolHoisted, "context")
	v.createImportLocals()

	groups := v.groupDependencies()
	body := v.createBody(tree.Stmts, groups)

	out.Stmts = []js_ast.Stmt{v.createRegistration(groups, body)}
	out.NextNodeID = state.tree.NextNodeID
	t.storeModule(out.SourceIndex, state)
	return out
}

// Every external import gets a local for its module's namespace object. The
// local reuses the import's own name where there is one so that the common
// "import * as ns" case needs no extra variable.
func (v *visitor) createImportLocals() {
	for _, external := range v.state.info.ExternalImports {
		local := js_ast.InvalidRef
		path := v.state.tree.ImportRecords[external.ImportRecordIndex].Path.Text

		switch s := external.Stmt.Data.(type) {
		case *js_ast.SImport:
			if s.StarNameLoc != nil {
				local = s.NamespaceRef
			} else if s.DefaultName != nil || s.Items != nil {
				local = v.newUniqueSymbol(js_ast.SymbolHoisted, js_ast.GenerateIdentifierFromModuleName(path))
			}
			if local != js_ast.InvalidRef {
				v.state.importAliases[s.ImportRecordIndex] = local
			}

		case *js_ast.SImportEquals:
			local = s.Name.Ref

		// Re-exports have no local of their own. This one only names the
		// setter's parameter.
		case *js_ast.SExportStar:
			if s.Alias != nil {
				local = v.newSymbol(js_ast.SymbolOther, s.Alias.Name)
			} else {
				local = v.newUniqueSymbol(js_ast.SymbolOther, js_ast.GenerateIdentifierFromModuleName(path))
			}

		case *js_ast.SExportFrom:
			local = v.newUniqueSymbol(js_ast.SymbolOther, js_ast.GenerateIdentifierFromModuleName(path))

		default:
			panic("Internal error")
		}

		v.importLocals[external.ImportRecordIndex] = local
	}
}

func (v *visitor) registrationName() string {
	if v.options.ModuleName != "" {
		return v.options.ModuleName
	}
	if v.state.tree.ModuleName != "" {
		return v.state.tree.ModuleName
	}
	if v.options.ModuleNameFromPath {
		return config.ModuleNameFromPath(v.source.KeyPath.Text, v.options.RootDir)
	}
	return ""
}

// Adds a symbol whose name is final. These are names that are fixed by the
// output format, and locals inside helper functions that can't be shadowed.
func (v *visitor) newSymbol(kind js_ast.SymbolKind, name string) js_ast.Ref {
	state := v.state
	ref := js_ast.Ref{SourceIndex: state.tree.SourceIndex, InnerIndex: uint32(len(state.tree.Symbols))}
	state.tree.Symbols = append(state.tree.Symbols, js_ast.Symbol{
		OriginalName: name,
		Link:         js_ast.InvalidRef,
		Kind:         kind,
		Flags:        js_ast.GeneratedName,
	})
	state.symbols = state.tree.SymbolMap()
	return ref
}

// Adds a symbol named "base_N" that doesn't collide with anything in the file
func (v *visitor) newUniqueSymbol(kind js_ast.SymbolKind, base string) js_ast.Ref {
	return v.newSymbol(kind, v.names.UniqueName(base))
}

func (v *visitor) name(ref js_ast.Ref) string {
	return v.state.symbols.Get(ref).OriginalName
}

func (v *visitor) hoist(ref js_ast.Ref) {
	ref = js_ast.FollowSymbols(v.state.symbols, ref)
	if !v.isHoisted[ref] {
		v.isHoisted[ref] = true
		v.hoistedNames = append(v.hoistedNames, ref)
	}
}

func (v *visitor) hoistBinding(binding js_ast.Binding) {
	js_ast.ForEachIdentifierBinding(binding, func(_ logger.Loc, b *js_ast.BIdentifier) {
		v.hoist(b.Ref)
	})
}

// Temporaries at the top level live alongside the hoisted names. Inside a
// function they are declared at the top of that function's body.
func (v *visitor) newTemp() js_ast.Ref {
	ref := v.newSymbol(js_ast.SymbolHoisted, v.names.TempName())
	if v.fnDepth == 0 {
		v.hoist(ref)
	} else {
		top := len(v.tempsForFn) - 1
		v.tempsForFn[top] = append(v.tempsForFn[top], ref)
	}
	return ref
}
