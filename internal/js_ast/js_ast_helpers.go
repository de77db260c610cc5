package js_ast

import (
	"github.com/sysreg/sysreg/internal/helpers"
	"github.com/sysreg/sysreg/internal/logger"
)

func Assign(a Expr, b Expr) Expr {
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpAssign, Left: a, Right: b}}
}

func AssignStmt(a Expr, b Expr) Stmt {
	return Stmt{Loc: a.Loc, Data: &SExpr{Value: Assign(a, b)}}
}

func JoinWithComma(a Expr, b Expr) Expr {
	if a.Data == nil {
		return b
	}
	if b.Data == nil {
		return a
	}
	return Expr{Loc: a.Loc, Data: &EBinary{Op: BinOpComma, Left: a, Right: b}}
}

func JoinAllWithComma(all []Expr) (result Expr) {
	for _, value := range all {
		result = JoinWithComma(result, value)
	}
	return
}

func StringExpr(loc logger.Loc, text string) Expr {
	return Expr{Loc: loc, Data: &EString{Value: helpers.StringToUTF16(text)}}
}

func ConvertBindingToExpr(binding Binding, wrapIdentifier func(logger.Loc, Ref) Expr) Expr {
	loc := binding.Loc

	switch b := binding.Data.(type) {
	case *BMissing:
		return Expr{Loc: loc, Data: &EMissing{}}

	case *BIdentifier:
		if wrapIdentifier != nil {
			return wrapIdentifier(loc, b.Ref)
		}
		return Expr{Loc: loc, Data: &EIdentifier{Ref: b.Ref}}

	case *BArray:
		exprs := make([]Expr, len(b.Items))
		for i, item := range b.Items {
			expr := ConvertBindingToExpr(item.Binding, wrapIdentifier)
			if b.HasSpread && i+1 == len(b.Items) {
				expr = Expr{Loc: expr.Loc, Data: &ESpread{Value: expr}}
			} else if item.DefaultValue != nil {
				expr = Assign(expr, *item.DefaultValue)
			}
			exprs[i] = expr
		}
		return Expr{Loc: loc, Data: &EArray{Items: exprs, IsSingleLine: true}}

	case *BObject:
		properties := make([]Property, len(b.Properties))
		for i, property := range b.Properties {
			value := ConvertBindingToExpr(property.Value, wrapIdentifier)
			kind := PropertyNormal
			if property.IsSpread {
				kind = PropertySpread
			}
			_, isIdentifier := property.Value.Data.(*BIdentifier)
			properties[i] = Property{
				Kind:         kind,
				IsComputed:   property.IsComputed,
				Key:          property.Key,
				Value:        &value,
				Initializer:  property.DefaultValue,
				WasShorthand: isIdentifier && !property.IsComputed && !property.IsSpread,
			}
		}
		return Expr{Loc: loc, Data: &EObject{Properties: properties, IsSingleLine: true}}

	default:
		panic("Internal error")
	}
}

// Calls "visit" for every identifier bound by the pattern, in source order
func ForEachIdentifierBinding(binding Binding, visit func(logger.Loc, *BIdentifier)) {
	switch b := binding.Data.(type) {
	case *BMissing:

	case *BIdentifier:
		visit(binding.Loc, b)

	case *BArray:
		for _, item := range b.Items {
			ForEachIdentifierBinding(item.Binding, visit)
		}

	case *BObject:
		for _, property := range b.Properties {
			ForEachIdentifierBinding(property.Value, visit)
		}

	default:
		panic("Internal error")
	}
}

// Walks an assignment target such as "[a, {b: c = 1}]" and calls "visit" for
// each identifier that is written to. Member expressions and other targets
// that don't name a binding are skipped.
func ForEachAssignmentTarget(target Expr, visit func(*EIdentifier)) {
	switch e := target.Data.(type) {
	case *EIdentifier:
		visit(e)

	case *EArray:
		for _, item := range e.Items {
			ForEachAssignmentTarget(item, visit)
		}

	case *EObject:
		for _, property := range e.Properties {
			if property.Kind == PropertySpread {
				if property.Value != nil {
					ForEachAssignmentTarget(*property.Value, visit)
				}
				continue
			}
			if property.Value != nil {
				ForEachAssignmentTarget(*property.Value, visit)
			}
		}

	case *ESpread:
		ForEachAssignmentTarget(e.Value, visit)

	case *EBinary:
		// "[a = 1] = []" stores defaults as an assignment
		if e.Op == BinOpAssign {
			ForEachAssignmentTarget(e.Left, visit)
		}
	}
}

func IsDestructuringTarget(target Expr) bool {
	switch target.Data.(type) {
	case *EArray, *EObject:
		return true
	}
	return false
}
