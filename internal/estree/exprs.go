package estree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/sysreg/sysreg/internal/helpers"
	"github.com/sysreg/sysreg/internal/js_ast"
	"github.com/sysreg/sysreg/internal/logger"
)

var unaryOps = map[string]js_ast.OpCode{
	"+":      js_ast.UnOpPos,
	"-":      js_ast.UnOpNeg,
	"~":      js_ast.UnOpCpl,
	"!":      js_ast.UnOpNot,
	"void":   js_ast.UnOpVoid,
	"typeof": js_ast.UnOpTypeof,
	"delete": js_ast.UnOpDelete,
}

var binaryOps = map[string]js_ast.OpCode{
	"+":          js_ast.BinOpAdd,
	"-":          js_ast.BinOpSub,
	"*":          js_ast.BinOpMul,
	"/":          js_ast.BinOpDiv,
	"%":          js_ast.BinOpRem,
	"**":         js_ast.BinOpPow,
	"<":          js_ast.BinOpLt,
	"<=":         js_ast.BinOpLe,
	">":          js_ast.BinOpGt,
	">=":         js_ast.BinOpGe,
	"in":         js_ast.BinOpIn,
	"instanceof": js_ast.BinOpInstanceof,
	"<<":         js_ast.BinOpShl,
	">>":         js_ast.BinOpShr,
	">>>":        js_ast.BinOpUShr,
	"==":         js_ast.BinOpLooseEq,
	"!=":         js_ast.BinOpLooseNe,
	"===":        js_ast.BinOpStrictEq,
	"!==":        js_ast.BinOpStrictNe,
	"??":         js_ast.BinOpNullishCoalescing,
	"||":         js_ast.BinOpLogicalOr,
	"&&":         js_ast.BinOpLogicalAnd,
	"|":          js_ast.BinOpBitwiseOr,
	"&":          js_ast.BinOpBitwiseAnd,
	"^":          js_ast.BinOpBitwiseXor,
}

var assignOps = map[string]js_ast.OpCode{
	"=":    js_ast.BinOpAssign,
	"+=":   js_ast.BinOpAddAssign,
	"-=":   js_ast.BinOpSubAssign,
	"*=":   js_ast.BinOpMulAssign,
	"/=":   js_ast.BinOpDivAssign,
	"%=":   js_ast.BinOpRemAssign,
	"**=":  js_ast.BinOpPowAssign,
	"<<=":  js_ast.BinOpShlAssign,
	">>=":  js_ast.BinOpShrAssign,
	">>>=": js_ast.BinOpUShrAssign,
	"|=":   js_ast.BinOpBitwiseOrAssign,
	"&=":   js_ast.BinOpBitwiseAndAssign,
	"^=":   js_ast.BinOpBitwiseXorAssign,
	"??=":  js_ast.BinOpNullishCoalescingAssign,
	"||=":  js_ast.BinOpLogicalOrAssign,
	"&&=":  js_ast.BinOpLogicalAndAssign,
}

func (l *loader) visitExpr(n node) js_ast.Expr {
	loc := n.loc()

	switch n.typ() {
	case "Identifier":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Ref: l.find(n)}}

	case "Literal":
		return l.visitLiteral(n)

	case "TemplateLiteral":
		return l.visitTemplate(n, nil)

	case "TaggedTemplateExpression":
		tag := l.visitExpr(n.child("tag"))
		return l.visitTemplate(n.child("quasi"), &tag)

	case "ThisExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EThis{}}

	case "Super":
		return js_ast.Expr{Loc: loc, Data: &js_ast.ESuper{}}

	case "ArrayExpression":
		elements := n.children("elements")
		items := make([]js_ast.Expr, 0, len(elements))
		for _, element := range elements {
			if element == nil {
				items = append(items, js_ast.Expr{Loc: loc, Data: &js_ast.EMissing{}})
			} else {
				items = append(items, l.visitSpreadOrExpr(element))
			}
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EArray{Items: items, IsSingleLine: n.isSingleLine()}}

	case "ObjectExpression":
		return l.visitObject(n)

	case "FunctionExpression":
		// The name of a function expression is only visible inside it
		l.pushScope(js_ast.ScopeFunctionArgs, loc)
		var name *js_ast.LocRef
		if id := n.child("id"); id != nil {
			name = &js_ast.LocRef{Loc: id.loc(), Ref: l.declare(js_ast.SymbolHoistedFunction, id)}
		}
		fn := l.visitFnInArgsScope(n, name)
		l.popScope()
		return js_ast.Expr{Loc: loc, Data: &js_ast.EFunction{Fn: fn}}

	case "ArrowFunctionExpression":
		return l.visitArrow(n)

	case "ClassExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EClass{Class: l.visitClass(n, nil)}}

	case "UnaryExpression":
		op, ok := unaryOps[n.str("operator")]
		if !ok {
			break
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: l.visitExpr(n.child("argument")), ID: l.nodeID()}}

	case "UpdateExpression":
		var op js_ast.OpCode
		switch n.str("operator") {
		case "++":
			op = js_ast.UnOpPostInc
			if n.boolean("prefix") {
				op = js_ast.UnOpPreInc
			}
		case "--":
			op = js_ast.UnOpPostDec
			if n.boolean("prefix") {
				op = js_ast.UnOpPreDec
			}
		default:
			l.unsupported(n)
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EUnary{Op: op, Value: l.visitExpr(n.child("argument")), ID: l.nodeID()}}

	case "BinaryExpression", "LogicalExpression":
		op, ok := binaryOps[n.str("operator")]
		if !ok {
			break
		}
		left := l.visitExpr(n.child("left"))
		right := l.visitExpr(n.child("right"))
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: right, ID: l.nodeID()}}

	case "AssignmentExpression":
		op, ok := assignOps[n.str("operator")]
		if !ok {
			break
		}
		left := l.visitAssignTarget(n.child("left"))
		right := l.visitExpr(n.child("right"))
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: op, Left: left, Right: right, ID: l.nodeID()}}

	case "ConditionalExpression":
		test := l.visitExpr(n.child("test"))
		yes := l.visitExpr(n.child("consequent"))
		no := l.visitExpr(n.child("alternate"))
		return js_ast.Expr{Loc: loc, Data: &js_ast.EIf{Test: test, Yes: yes, No: no}}

	case "SequenceExpression":
		var result js_ast.Expr
		for i, item := range n.children("expressions") {
			value := l.visitExpr(item)
			if i == 0 {
				result = value
			} else {
				result = js_ast.Expr{Loc: loc, Data: &js_ast.EBinary{Op: js_ast.BinOpComma, Left: result, Right: value, ID: l.nodeID()}}
			}
		}
		if result.Data == nil {
			break
		}
		return result

	case "MemberExpression", "CallExpression":
		expr, _ := l.visitChain(n)
		return expr

	case "ChainExpression":
		// The chain ends here, so "(a?.b).c" is not part of it
		expr, _ := l.visitChain(n.child("expression"))
		return expr

	case "NewExpression":
		target := l.visitExpr(n.child("callee"))
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENew{Target: target, Args: l.visitExprList(n.children("arguments"))}}

	case "YieldExpression":
		e := &js_ast.EYield{IsStar: n.boolean("delegate")}
		if n.has("argument") {
			value := l.visitExpr(n.child("argument"))
			e.Value = &value
		}
		return js_ast.Expr{Loc: loc, Data: e}

	case "AwaitExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EAwait{Value: l.visitExpr(n.child("argument"))}}

	case "ImportExpression":
		return js_ast.Expr{Loc: loc, Data: &js_ast.EImport{Expr: l.visitExpr(n.child("source"))}}

	case "MetaProperty":
		switch meta, property := n.child("meta").str("name"), n.child("property").str("name"); {
		case meta == "import" && property == "meta":
			return js_ast.Expr{Loc: loc, Data: &js_ast.EImportMeta{}}
		case meta == "new" && property == "target":
			return js_ast.Expr{Loc: loc, Data: &js_ast.ENewTarget{}}
		}

	case "ParenthesizedExpression", "TSAsExpression", "TSSatisfiesExpression",
		"TSNonNullExpression", "TSTypeAssertion", "TSInstantiationExpression":
		return l.visitExpr(n.child("expression"))
	}

	l.unsupported(n)
	return js_ast.Expr{Loc: loc, Data: &js_ast.EMissing{}}
}

func (l *loader) visitSpreadOrExpr(n node) js_ast.Expr {
	if n.typ() == "SpreadElement" {
		return js_ast.Expr{Loc: n.loc(), Data: &js_ast.ESpread{Value: l.visitExpr(n.child("argument"))}}
	}
	return l.visitExpr(n)
}

func (l *loader) visitExprList(nodes []node) []js_ast.Expr {
	exprs := make([]js_ast.Expr, 0, len(nodes))
	for _, n := range nodes {
		exprs = append(exprs, l.visitSpreadOrExpr(n))
	}
	return exprs
}

// Returns true if an optional chain has started at or below "n", which makes
// the next property access part of the chain
func (l *loader) visitChain(n node) (js_ast.Expr, bool) {
	loc := n.loc()

	switch n.typ() {
	case "MemberExpression":
		target, inChain := l.visitChainTarget(n.child("object"))
		chain := optionalChain(n.boolean("optional"), inChain)
		property := n.child("property")
		if n.boolean("computed") {
			index := l.visitExpr(property)
			return js_ast.Expr{Loc: loc, Data: &js_ast.EIndex{Target: target, Index: index, OptionalChain: chain}}, chain != js_ast.OptionalChainNone
		}
		if property.typ() != "Identifier" {
			l.unsupported(property)
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.EDot{
			Target:        target,
			Name:          property.str("name"),
			NameLoc:       property.loc(),
			OptionalChain: chain,
		}}, chain != js_ast.OptionalChainNone

	case "CallExpression":
		target, inChain := l.visitChainTarget(n.child("callee"))
		chain := optionalChain(n.boolean("optional"), inChain)
		args := l.visitExprList(n.children("arguments"))
		return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{Target: target, Args: args, OptionalChain: chain}}, chain != js_ast.OptionalChainNone
	}

	return l.visitExpr(n), false
}

func (l *loader) visitChainTarget(n node) (js_ast.Expr, bool) {
	switch n.typ() {
	case "MemberExpression", "CallExpression":
		return l.visitChain(n)
	}
	return l.visitExpr(n), false
}

func optionalChain(isOptional bool, inChain bool) js_ast.OptionalChain {
	if isOptional {
		return js_ast.OptionalChainStart
	}
	if inChain {
		return js_ast.OptionalChainContinue
	}
	return js_ast.OptionalChainNone
}

func (l *loader) visitLiteral(n node) js_ast.Expr {
	loc := n.loc()

	if regex := n.child("regex"); regex != nil {
		pattern, flags := regex.str("pattern"), regex.str("flags")
		if !l.isBindPass {
			l.validateRegExp(n, pattern, flags)
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ERegExp{Value: "/" + pattern + "/" + flags}}
	}

	if bigint, ok := n["bigint"].(string); ok {
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBigInt{Value: bigint}}
	}

	switch value := n["value"].(type) {
	case string:
		return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: helpers.StringToUTF16(value)}}

	case bool:
		return js_ast.Expr{Loc: loc, Data: &js_ast.EBoolean{Value: value}}

	case nil:
		// "1e999" is Infinity, which JSON can only write as null
		if raw := n.str("raw"); raw != "" && raw != "null" {
			if number, ok := literalNumber(n); ok {
				return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: number}}
			}
			break
		}
		return js_ast.Expr{Loc: loc, Data: &js_ast.ENull{}}

	case json.Number:
		if number, ok := literalNumber(n); ok {
			return js_ast.Expr{Loc: loc, Data: &js_ast.ENumber{Value: number}}
		}
	}

	l.unsupported(n)
	return js_ast.Expr{Loc: loc, Data: &js_ast.EMissing{}}
}

func literalNumber(n node) (float64, bool) {
	if value, ok := n["value"].(json.Number); ok {
		number, err := strconv.ParseFloat(string(value), 64)
		return number, err == nil || isRangeError(err)
	}
	raw := strings.ReplaceAll(n.str("raw"), "_", "")
	number, err := strconv.ParseFloat(raw, 64)
	return number, err == nil || isRangeError(err)
}

func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

// Only the flags that change how the pattern parses are passed on. Patterns
// with the "u" or "v" flag use syntax that regexp2 doesn't accept, such as
// "\u{1F600}" and set operations, and are not checked.
func (l *loader) validateRegExp(n node, pattern string, flags string) {
	var options regexp2.RegexOptions = regexp2.ECMAScript
	for _, flag := range flags {
		switch flag {
		case 'i':
			options |= regexp2.IgnoreCase
		case 'm':
			options |= regexp2.Multiline
		case 'u', 'v':
			return
		case 'd', 'g', 's', 'y':
		default:
			l.fail(logger.MsgID_ESTree_InvalidRegExp, fmt.Sprintf(
				"Invalid regular expression flag %q in /%s/%s (at offset %d)", flag, pattern, flags, n.loc().Start))
			return
		}
	}

	// "[^]" matches any character in JavaScript. regexp2 reads it as an
	// unterminated character class.
	pattern = strings.ReplaceAll(pattern, "[^]", `[\s\S]`)

	if _, err := regexp2.Compile(pattern, options); err != nil {
		l.fail(logger.MsgID_ESTree_InvalidRegExp, fmt.Sprintf(
			"Invalid regular expression /%s/%s (at offset %d): %s", pattern, flags, n.loc().Start, err.Error()))
	}
}

func (l *loader) visitTemplate(n node, tag *js_ast.Expr) js_ast.Expr {
	quasis := n.children("quasis")
	exprs := n.children("expressions")
	if len(quasis) != len(exprs)+1 {
		l.unsupported(n)
		return js_ast.Expr{Loc: n.loc(), Data: &js_ast.EMissing{}}
	}

	template := &js_ast.ETemplate{
		Tag:     tag,
		HeadLoc: quasis[0].loc(),
		HeadRaw: quasis[0].child("value").str("raw"),
	}
	for i, expr := range exprs {
		value := l.visitExpr(expr)
		tail := quasis[i+1]
		template.Parts = append(template.Parts, js_ast.TemplatePart{
			Value:   value,
			TailLoc: tail.loc(),
			TailRaw: tail.child("value").str("raw"),
		})
	}

	loc := n.loc()
	if tag != nil {
		loc = tag.Loc
	}
	return js_ast.Expr{Loc: loc, Data: template}
}

func (l *loader) visitObject(n node) js_ast.Expr {
	var properties []js_ast.Property
	for _, p := range n.children("properties") {
		switch p.typ() {
		case "SpreadElement":
			value := l.visitExpr(p.child("argument"))
			properties = append(properties, js_ast.Property{Kind: js_ast.PropertySpread, Value: &value})

		case "Property":
			key, isComputed := l.visitPropertyKey(p)
			value := l.visitExpr(p.child("value"))
			property := js_ast.Property{
				Key:          key,
				Value:        &value,
				IsComputed:   isComputed,
				IsMethod:     p.boolean("method"),
				WasShorthand: p.boolean("shorthand"),
			}
			switch p.str("kind") {
			case "get":
				property.Kind = js_ast.PropertyGet
			case "set":
				property.Kind = js_ast.PropertySet
			}
			properties = append(properties, property)

		default:
			l.unsupported(p)
		}
	}
	return js_ast.Expr{Loc: n.loc(), Data: &js_ast.EObject{Properties: properties, IsSingleLine: n.isSingleLine()}}
}

func (l *loader) visitPropertyKey(p node) (js_ast.Expr, bool) {
	key := p.child("key")
	if p.boolean("computed") {
		return l.visitExpr(key), true
	}

	switch key.typ() {
	case "Identifier":
		return js_ast.StringExpr(key.loc(), key.str("name")), false

	case "Literal":
		switch key["value"].(type) {
		case string:
			return js_ast.StringExpr(key.loc(), key.str("value")), false
		case json.Number:
			if number, ok := literalNumber(key); ok {
				return js_ast.Expr{Loc: key.loc(), Data: &js_ast.ENumber{Value: number}}, false
			}
		}
	}

	l.unsupported(key)
	return js_ast.Expr{Loc: key.loc(), Data: &js_ast.EMissing{}}, false
}
