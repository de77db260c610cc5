package ast

// Import records live at the AST level instead of on individual statements so
// that the collector and the transformer can refer to "the thing imported" by
// a small index without walking the tree again.

import (
	"github.com/sysreg/sysreg/internal/logger"
)

type ImportKind uint8

const (
	// An ES6 import or re-export statement
	ImportStmt ImportKind = iota

	// A TypeScript "import x = require('path')" statement
	ImportRequire

	// An "import()" expression with a string argument
	ImportDynamic
)

func (kind ImportKind) String() string {
	switch kind {
	case ImportStmt:
		return "import-statement"
	case ImportRequire:
		return "import-equals"
	case ImportDynamic:
		return "dynamic-import"
	default:
		panic("Internal error")
	}
}

type ImportRecordFlags uint8

const (
	// The specifier is not a string literal, for example the argument of
	// "import x = require(name)". Such records never get a dependency group.
	HasNonLiteralPath ImportRecordFlags = 1 << iota

	// If this is true, the import contains syntax like "* as ns"
	ContainsImportStar

	// If this is true, the import contains an import for the alias "default",
	// either via the "import x from" or "import {default as x} from" syntax.
	ContainsDefaultAlias

	// This record was synthesized for the external helpers module and does
	// not correspond to any statement in the source
	IsHelpersImport
)

func (flags ImportRecordFlags) Has(flag ImportRecordFlags) bool {
	return (flags & flag) != 0
}

type ImportRecord struct {
	// The specifier text exactly as written, without quotes
	Path  logger.Path
	Range logger.Range
	Flags ImportRecordFlags
	Kind  ImportKind
}

// This stores a 32-bit index where the zero value is an invalid index. This is
// a better alternative to storing the index as a pointer since that has the
// same properties but takes up more space and costs an extra pointer traversal.
type Index32 struct {
	flippedBits uint32
}

func MakeIndex32(index uint32) Index32 {
	return Index32{flippedBits: ^index}
}

func (i Index32) IsValid() bool {
	return i.flippedBits != 0
}

func (i Index32) GetIndex() uint32 {
	return ^i.flippedBits
}
