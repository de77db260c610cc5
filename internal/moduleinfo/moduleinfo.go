// Package moduleinfo scans the top level of a module once and records what it
// imports from other modules and what it exports, and under which names.
package moduleinfo

import (
	"github.com/elliotchance/orderedmap/v3"

	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/config"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

type Resolver interface {
	ReferencedValueDeclaration(ref js_ast.Ref) (js_ast.Ref, bool)
}

// An import, "import x = require()", or export-from statement that names
// another module
type ExternalImport struct {
	Stmt              js_ast.Stmt
	ImportRecordIndex uint32
}

type Alias struct {
	Name string
	Loc  logger.Loc
}

type Info struct {
	// In source order, except that a synthesized helpers import comes first
	ExternalImports []ExternalImport

	// Local name => the aliases it's exported under by "export {x as y}"
	// clauses without a "from". Aliases are in the order they were found.
	ExportSpecifiers map[js_ast.Ref][]Alias

	// Declaration => extra export names that an assignment to the declaration
	// has to update. Variables exported with the "export" keyword aren't in
	// here since they are always exported under their own name.
	ExportedBindings map[js_ast.Ref][]string

	// Every name this module exports, once, in the order first seen. This does
	// not include names that only come from "export * from".
	ExportedNames *orderedmap.OrderedMap[string, struct{}]

	ExportEquals                 *js_ast.SExportEquals
	HasExportStarsToExportValues bool

	// This is the namespace for "import * as tslib_1 from 'tslib'" when helpers
	// are imported, otherwise it's an invalid ref
	HelpersNamespaceRef js_ast.Ref
}

func (info *Info) HasHelpersImport() bool {
	return info.HelpersNamespaceRef != js_ast.InvalidRef
}

type collector struct {
	info     *Info
	resolver Resolver
	symbols  js_ast.SymbolMap
}

// The helpers import is synthesized by appending an import record and a
// namespace symbol to "tree", so callers that need the original tree to stay
// untouched must pass a copy whose symbol and record slices are not shared.
func Collect(tree *js_ast.AST, resolver Resolver, options *config.Options) *Info {
	c := collector{
		info: &Info{
			ExportSpecifiers:    make(map[js_ast.Ref][]Alias),
			ExportedBindings:    make(map[js_ast.Ref][]string),
			ExportedNames:       orderedmap.NewOrderedMap[string, struct{}](),
			HelpersNamespaceRef: js_ast.InvalidRef,
		},
		resolver: resolver,
		symbols:  tree.SymbolMap(),
	}

	for _, stmt := range tree.Stmts {
		c.visitTopLevelStmt(stmt)
	}

	if options.ImportHelpers {
		if helpersImport, ok := synthesizeHelpersImport(tree, options); ok {
			c.info.ExternalImports = append([]ExternalImport{helpersImport}, c.info.ExternalImports...)
			c.info.HelpersNamespaceRef = helpersImport.Stmt.Data.(*js_ast.SImport).NamespaceRef
		}
	}

	return c.info
}

func (c *collector) visitTopLevelStmt(stmt js_ast.Stmt) {
	switch s := stmt.Data.(type) {
	case *js_ast.SImport:
		c.info.ExternalImports = append(c.info.ExternalImports, ExternalImport{Stmt: stmt, ImportRecordIndex: s.ImportRecordIndex})

	case *js_ast.SImportEquals:
		// "import x = N.y" refers to something in this program
		if s.ImportRecordIndex.IsValid() {
			c.info.ExternalImports = append(c.info.ExternalImports, ExternalImport{Stmt: stmt, ImportRecordIndex: s.ImportRecordIndex.GetIndex()})
		}

	case *js_ast.SExportStar:
		c.info.ExternalImports = append(c.info.ExternalImports, ExternalImport{Stmt: stmt, ImportRecordIndex: s.ImportRecordIndex})
		if s.Alias == nil {
			c.info.HasExportStarsToExportValues = true
		} else {
			// "export * as ns from 'path'"
			c.addExportedName(s.Alias.Name)
		}

	case *js_ast.SExportFrom:
		c.info.ExternalImports = append(c.info.ExternalImports, ExternalImport{Stmt: stmt, ImportRecordIndex: s.ImportRecordIndex})
		for _, item := range s.Items {
			c.addExportedName(item.Alias)
		}

	case *js_ast.SExportClause:
		for _, item := range s.Items {
			if c.info.ExportedNames.Has(item.Alias) {
				continue
			}
			name := js_ast.FollowSymbols(c.symbols, item.Name.Ref)
			c.info.ExportSpecifiers[name] = append(c.info.ExportSpecifiers[name], Alias{Name: item.Alias, Loc: item.AliasLoc})
			if decl, ok := c.resolver.ReferencedValueDeclaration(name); ok {
				c.info.ExportedBindings[decl] = append(c.info.ExportedBindings[decl], item.Alias)
			}
			c.addExportedName(item.Alias)
		}

	case *js_ast.SMergeMarker:
		c.visitTopLevelStmt(s.Original)

	case *js_ast.SExportEquals:
		if c.info.ExportEquals == nil {
			c.info.ExportEquals = s
		}

	case *js_ast.SLocal:
		if s.IsExport {
			for _, decl := range s.Decls {
				js_ast.ForEachIdentifierBinding(decl.Binding, func(_ logger.Loc, b *js_ast.BIdentifier) {
					c.addExportedName(c.symbols.Get(b.Ref).OriginalName)
				})
			}
		}

	case *js_ast.SFunction:
		if s.IsExport {
			c.addExportedDeclaration(s.Fn.Name.Ref)
		}

	case *js_ast.SClass:
		if s.IsExport {
			c.addExportedDeclaration(s.Class.Name.Ref)
		}

	case *js_ast.SExportDefault:
		// Only declarations have a binding that can be reassigned later
		if s.Value.Stmt != nil {
			switch s.Value.Stmt.Data.(type) {
			case *js_ast.SFunction, *js_ast.SClass:
				if !c.info.ExportedNames.Has("default") {
					decl := js_ast.FollowSymbols(c.symbols, s.DefaultName.Ref)
					c.info.ExportedBindings[decl] = append(c.info.ExportedBindings[decl], "default")
					c.addExportedName("default")
				}
			}
		}
	}
}

func (c *collector) addExportedDeclaration(ref js_ast.Ref) {
	name := c.symbols.Get(ref).OriginalName
	if !c.info.ExportedNames.Has(name) {
		decl := js_ast.FollowSymbols(c.symbols, ref)
		c.info.ExportedBindings[decl] = append(c.info.ExportedBindings[decl], name)
		c.addExportedName(name)
	}
}

func (c *collector) addExportedName(name string) {
	if !c.info.ExportedNames.Has(name) {
		c.info.ExportedNames.Set(name, struct{}{})
	}
}

func synthesizeHelpersImport(tree *js_ast.AST, options *config.Options) (ExternalImport, bool) {
	isUsed := false
	for _, symbol := range tree.Symbols {
		if symbol.Flags.Has(js_ast.HelperName) && symbol.Kind == js_ast.SymbolUnbound {
			isUsed = true
			break
		}
	}
	if !isUsed {
		return ExternalImport{}, false
	}

	path := options.HelpersModuleOrDefault()
	recordIndex := uint32(len(tree.ImportRecords))
	tree.ImportRecords = append(tree.ImportRecords, ast.ImportRecord{
		Path:  logger.Path{Text: path},
		Flags: ast.IsHelpersImport | ast.ContainsImportStar,
		Kind:  ast.ImportStmt,
	})

	namespaceRef := js_ast.Ref{SourceIndex: tree.SourceIndex, InnerIndex: uint32(len(tree.Symbols))}
	tree.Symbols = append(tree.Symbols, js_ast.Symbol{
		OriginalName: js_ast.GenerateIdentifierFromModuleName(path),
		Link:         js_ast.InvalidRef,
		Kind:         js_ast.SymbolImport,
		Flags:        js_ast.GeneratedName,
	})

	starLoc := logger.Loc{}
	return ExternalImport{
		Stmt: js_ast.Stmt{Data: &js_ast.SImport{
			NamespaceRef:      namespaceRef,
			StarNameLoc:       &starLoc,
			ImportRecordIndex: recordIndex,
		}},
		ImportRecordIndex: recordIndex,
	}, true
}
