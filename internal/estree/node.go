package estree

import (
	"encoding/json"

	"github.com/sysreg/sysreg/internal/logger"
)

// A decoded ESTree node. Missing and null fields read as zero values.
type node map[string]interface{}

func asNode(value interface{}) node {
	if m, ok := value.(map[string]interface{}); ok {
		return node(m)
	}
	return nil
}

func (n node) typ() string {
	return n.str("type")
}

func (n node) str(key string) string {
	s, _ := n[key].(string)
	return s
}

func (n node) boolean(key string) bool {
	b, _ := n[key].(bool)
	return b
}

func (n node) has(key string) bool {
	value, ok := n[key]
	return ok && value != nil
}

func (n node) child(key string) node {
	return asNode(n[key])
}

// Null array entries, such as holes in "[a, , b]", come back as nil nodes
func (n node) children(key string) []node {
	items, _ := n[key].([]interface{})
	result := make([]node, len(items))
	for i, item := range items {
		result[i] = asNode(item)
	}
	return result
}

func (n node) number(key string) (int64, bool) {
	if value, ok := n[key].(json.Number); ok {
		if i, err := value.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Acorn and espree store offsets in "start" and "end". typescript-estree
// stores them in "range".
func (n node) offsets() (int64, int64) {
	if start, ok := n.number("start"); ok {
		end, _ := n.number("end")
		return start, end
	}
	if r, ok := n["range"].([]interface{}); ok && len(r) == 2 {
		start, _ := r[0].(json.Number)
		end, _ := r[1].(json.Number)
		s, _ := start.Int64()
		e, _ := end.Int64()
		return s, e
	}
	return 0, 0
}

func (n node) loc() logger.Loc {
	start, _ := n.offsets()
	return logger.Loc{Start: int32(start)}
}

func (n node) rangeOf() logger.Range {
	start, end := n.offsets()
	if end < start {
		end = start
	}
	return logger.Range{Loc: logger.Loc{Start: int32(start)}, Len: int32(end - start)}
}

// Single-line unless the node carries line numbers that say otherwise
func (n node) isSingleLine() bool {
	loc := n.child("loc")
	if loc == nil {
		return true
	}
	start, ok1 := loc.child("start").number("line")
	end, ok2 := loc.child("end").number("line")
	return !ok1 || !ok2 || start == end
}

// The name of an identifier, or the value of a string literal as used for
// "export {'a-b' as c}" and "import {'a-b' as c}"
func (n node) moduleExportName() string {
	if n.typ() == "Literal" {
		return n.str("value")
	}
	return n.str("name")
}
