// Package estree loads a module from its ESTree JSON form into a js_ast tree
// with a complete symbol table. The input is what parsers such as acorn,
// espree and typescript-estree produce, so the transform never has to parse
// JavaScript source text itself.
//
// Loading takes two passes over the same JSON. The declare pass creates every
// scope and declares every binding. The bind pass walks the JSON again,
// replays the recorded scopes in the same order and builds the tree. Since
// all declarations are known by then, an identifier always binds to the right
// symbol even if the declaration comes later in the source.
package estree

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

type Options struct {
	SourceIndex uint32

	// Marks references to these globals as runtime helpers that can be
	// imported from a helpers module instead. Nil means the tslib helpers.
	HelperNames map[string]bool
}

var tslibHelperNames = map[string]bool{
	"__addDisposableResource": true,
	"__assign":                true,
	"__asyncDelegator":        true,
	"__asyncGenerator":        true,
	"__asyncValues":           true,
	"__await":                 true,
	"__awaiter":               true,
	"__classPrivateFieldGet":  true,
	"__classPrivateFieldIn":   true,
	"__classPrivateFieldSet":  true,
	"__createBinding":         true,
	"__decorate":              true,
	"__disposeResources":      true,
	"__esDecorate":            true,
	"__exportStar":            true,
	"__extends":               true,
	"__generator":             true,
	"__importDefault":         true,
	"__importStar":            true,
	"__makeTemplateObject":    true,
	"__metadata":              true,
	"__param":                 true,
	"__propKey":               true,
	"__read":                  true,
	"__rest":                  true,
	"__runInitializers":       true,
	"__setFunctionName":       true,
	"__spread":                true,
	"__spreadArray":           true,
	"__spreadArrays":          true,
	"__values":                true,
}

// "/// <amd-module name="a/b"/>" names the module it appears in
var amdModulePragma = regexp2.MustCompile(`^/\s*<amd-module\s+name\s*=\s*(["'])(.*?)\1\s*/>`, regexp2.None)

type loader struct {
	log     logger.Log
	options Options
	b       *js_ast.Builder

	isBindPass bool
	failed     bool

	// The first declaration of each enum emits the variable. Later ones are
	// merge markers. Only used in the bind pass.
	declaredEnums map[js_ast.Ref]bool
}

// Parse loads the ESTree "Program" in "source.Contents". It returns false if
// any error was logged, in which case the tree must not be used.
func Parse(log logger.Log, source logger.Source, options Options) (*js_ast.AST, bool) {
	program, err := decodeJSON(source.Contents)
	if err != nil {
		var r logger.Range
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			r.Loc.Start = int32(syntaxErr.Offset)
		}
		log.AddID(logger.MsgID_ESTree_InvalidJSON, logger.Error, &source, r,
			fmt.Sprintf("Invalid ESTree JSON: %s", err.Error()))
		return nil, false
	}
	if program.typ() != "Program" {
		log.AddID(logger.MsgID_ESTree_InvalidJSON, logger.Error, &source, logger.Range{},
			fmt.Sprintf("Expected an ESTree \"Program\" node but found %q", program.typ()))
		return nil, false
	}
	if sourceType := program.str("sourceType"); sourceType != "" && sourceType != "module" {
		log.AddID(logger.MsgID_ESTree_UnsupportedNode, logger.Error, &source, logger.Range{},
			fmt.Sprintf("Expected a module but the program has source type %q", sourceType))
		return nil, false
	}

	if options.HelperNames == nil {
		options.HelperNames = tslibHelperNames
	}
	l := &loader{
		log:           log,
		options:       options,
		b:             js_ast.NewBuilder(options.SourceIndex),
		declaredEnums: make(map[js_ast.Ref]bool),
	}
	l.b.OnCollision = func(name string, newLoc logger.Loc, oldLoc logger.Loc) {
		l.fail(logger.MsgID_ESTree_DuplicateDeclaration, fmt.Sprintf(
			"The symbol %q has already been declared (at offset %d, again at offset %d)", name, oldLoc.Start, newLoc.Start))
	}

	body := program.children("body")
	l.visitBody(body)
	if l.failed {
		return nil, false
	}
	l.b.StartBindPass()
	l.isBindPass = true
	stmts := l.visitBody(body)

	tree := l.b.Finish(stmts)
	for i := range tree.Symbols {
		symbol := &tree.Symbols[i]
		if symbol.Kind == js_ast.SymbolUnbound && l.options.HelperNames[symbol.OriginalName] {
			symbol.Flags |= js_ast.HelperName
		}
	}
	tree.ModuleName = moduleNameFromComments(program.children("comments"))
	return tree, true
}

func decodeJSON(contents string) (node, error) {
	decoder := json.NewDecoder(strings.NewReader(contents))
	decoder.UseNumber()
	var program node
	if err := decoder.Decode(&program); err != nil {
		return nil, err
	}
	if program == nil {
		return nil, errors.New("the input is null")
	}
	return program, nil
}

func moduleNameFromComments(comments []node) string {
	for _, comment := range comments {
		if comment.typ() != "Line" {
			continue
		}
		if match, err := amdModulePragma.FindStringMatch(comment.str("value")); err == nil && match != nil {
			return match.GroupByNumber(2).String()
		}
	}
	return ""
}

// Errors are only reported by the declare pass. The bind pass walks exactly
// the same nodes and would report them again.
func (l *loader) fail(id logger.MsgID, text string) {
	l.failed = true
	if !l.isBindPass {
		l.log.AddID(id, logger.Error, nil, logger.Range{}, text)
	}
}

func (l *loader) unsupported(n node) {
	l.fail(logger.MsgID_ESTree_UnsupportedNode, fmt.Sprintf(
		"Unsupported ESTree node %q at offset %d", n.typ(), n.loc().Start))
}

func (l *loader) pushScope(kind js_ast.ScopeKind, loc logger.Loc) {
	if l.isBindPass {
		l.b.PushScopeForBindPass(kind, loc)
	} else {
		l.b.PushScopeForDeclarePass(kind, loc)
	}
}

func (l *loader) popScope() {
	l.b.PopScope()
}

func (l *loader) declare(kind js_ast.SymbolKind, n node) js_ast.Ref {
	return l.b.DeclareSymbol(kind, n.loc(), n.str("name"))
}

// References are only resolved once every declaration is known
func (l *loader) find(n node) js_ast.Ref {
	if !l.isBindPass {
		return js_ast.InvalidRef
	}
	return l.b.FindSymbol(n.loc(), n.str("name"))
}

func (l *loader) nodeID() js_ast.NodeID {
	if !l.isBindPass {
		return 0
	}
	return l.b.NewNodeID()
}

func (l *loader) addImportRecord(source node, kind ast.ImportKind) uint32 {
	if !l.isBindPass {
		return 0
	}
	return l.b.AddImportRecord(ast.ImportRecord{
		Path:  logger.Path{Text: source.str("value")},
		Range: source.rangeOf(),
		Kind:  kind,
	})
}

func (l *loader) addNamedImport(ref js_ast.Ref, named js_ast.NamedImport) {
	if l.isBindPass {
		l.b.AddNamedImport(ref, named)
	}
}

// Generated symbols are only needed in the finished tree
func (l *loader) generatedSymbol(kind js_ast.SymbolKind, name string) js_ast.Ref {
	if !l.isBindPass {
		return js_ast.InvalidRef
	}
	return l.b.GeneratedSymbol(kind, name)
}
