package jsonpath

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strconv"
)

type step interface {
	apply(nodes []any, root any) []any
}

type fieldStep struct {
	names []string
}

func (s fieldStep) apply(nodes []any, _ any) []any {
	var out []any
	for _, n := range nodes {
		m, ok := n.(map[string]any)
		if !ok {
			continue
		}
		for _, name := range s.names {
			if v, ok := m[name]; ok {
				out = append(out, v)
			}
		}
	}
	return out
}

type wildcardStep struct{}

func (wildcardStep) apply(nodes []any, _ any) []any {
	var out []any
	for _, n := range nodes {
		out = append(out, children(n)...)
	}
	return out
}

type indexStep struct {
	indices []int
}

func (s indexStep) apply(nodes []any, _ any) []any {
	var out []any
	for _, n := range nodes {
		arr, ok := n.([]any)
		if !ok {
			continue
		}
		for _, i := range s.indices {
			if i < 0 {
				i += len(arr)
			}
			if i >= 0 && i < len(arr) {
				out = append(out, arr[i])
			}
		}
	}
	return out
}

type sliceStep struct {
	start, end, step *int
}

func (s sliceStep) apply(nodes []any, _ any) []any {
	var out []any
	for _, n := range nodes {
		arr, ok := n.([]any)
		if !ok {
			continue
		}
		size := len(arr)
		stride := 1
		if s.step != nil {
			stride = *s.step
		}
		if stride == 0 {
			continue
		}
		if stride > 0 {
			start := clampIndex(s.start, 0, size)
			end := clampIndex(s.end, size, size)
			for i := start; i < end; i += stride {
				out = append(out, arr[i])
			}
			continue
		}
		start := size - 1
		if s.start != nil {
			start = normalize(*s.start, size)
			if start >= size {
				start = size - 1
			}
		}
		end := -1
		if s.end != nil {
			end = normalize(*s.end, size)
			if end < -1 {
				end = -1
			}
		}
		for i := start; i > end && i >= 0; i += stride {
			out = append(out, arr[i])
		}
	}
	return out
}

func normalize(i, size int) int {
	if i < 0 {
		return i + size
	}
	return i
}

func clampIndex(v *int, def, size int) int {
	if v == nil {
		return def
	}
	i := normalize(*v, size)
	if i < 0 {
		return 0
	}
	if i > size {
		return size
	}
	return i
}

type descendantStep struct {
	inner step
}

func (s descendantStep) apply(nodes []any, root any) []any {
	var all []any
	for _, n := range nodes {
		all = collectDescendants(n, all)
	}
	return s.inner.apply(all, root)
}

func collectDescendants(n any, acc []any) []any {
	acc = append(acc, n)
	for _, c := range children(n) {
		acc = collectDescendants(c, acc)
	}
	return acc
}

type filterStep struct {
	cond boolExpr
}

func (s filterStep) apply(nodes []any, root any) []any {
	var out []any
	for _, n := range nodes {
		for _, c := range children(n) {
			if s.cond.eval(c, root) {
				out = append(out, c)
			}
		}
	}
	return out
}

// children 返回数组元素或对象的值，对象按 key 排序以保证结果顺序确定。
func children(n any) []any {
	switch v := n.(type) {
	case []any:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, v[k])
		}
		return out
	default:
		return nil
	}
}

type boolExpr interface {
	eval(cur, root any) bool
}

type operand interface {
	values(cur, root any) []any
}

type pathOperand struct {
	relative bool
	steps    []step
}

func (o pathOperand) values(cur, root any) []any {
	nodes := []any{root}
	if o.relative {
		nodes = []any{cur}
	}
	for _, s := range o.steps {
		nodes = s.apply(nodes, root)
		if len(nodes) == 0 {
			return nil
		}
	}
	return nodes
}

type literal struct {
	value any
	isInt bool
}

func (l literal) values(any, any) []any { return []any{l.value} }

type existsExpr struct {
	operand operand
}

func (e existsExpr) eval(cur, root any) bool {
	if lit, ok := e.operand.(literal); ok {
		return truthy(lit.value)
	}
	return len(e.operand.values(cur, root)) > 0
}

type notExpr struct{ inner boolExpr }

func (e notExpr) eval(cur, root any) bool { return !e.inner.eval(cur, root) }

type andExpr struct{ left, right boolExpr }

func (e andExpr) eval(cur, root any) bool { return e.left.eval(cur, root) && e.right.eval(cur, root) }

type orExpr struct{ left, right boolExpr }

func (e orExpr) eval(cur, root any) bool { return e.left.eval(cur, root) || e.right.eval(cur, root) }

type compareExpr struct {
	left, right operand
	op          string
	re          *regexp.Regexp
}

func (e compareExpr) eval(cur, root any) bool {
	lv := e.left.values(cur, root)
	if len(lv) == 0 {
		return false
	}
	if e.re != nil {
		for _, v := range lv {
			if s, ok := v.(string); ok && e.re.MatchString(s) {
				return true
			}
		}
		return false
	}
	rv := e.right.values(cur, root)
	lInt := isIntLiteral(e.left)
	rInt := isIntLiteral(e.right)
	for _, a := range lv {
		for _, b := range rv {
			if rInt {
				var ok bool
				if a, ok = coerceNumber(a); !ok {
					continue
				}
			}
			if lInt {
				var ok bool
				if b, ok = coerceNumber(b); !ok {
					continue
				}
			}
			if compareValues(a, b, e.op) {
				return true
			}
		}
	}
	return false
}

func isIntLiteral(o operand) bool {
	lit, ok := o.(literal)
	return ok && lit.isInt
}

// coerceNumber 在与整数字面量比较时把数字字符串转换为数值。
func coerceNumber(v any) (any, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(n), true
		}
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func compareValues(a, b any, op string) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return compareOrdered(fa, fb, op)
		}
		return op == "!="
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return compareOrdered(sa, sb, op)
		}
		return op == "!="
	}
	switch op {
	case "==":
		return reflect.DeepEqual(a, b)
	case "!=":
		return !reflect.DeepEqual(a, b)
	}
	return false
}

func compareOrdered[T float64 | string](a, b T, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}
