// Package jsonpath 实现 collection 匹配所需的 JSONPath 子集。
//
// 语法参照 jsonpath_ng 的 ext 方言：根 `$`、字段 `.name` / `['name']`、递归 `..`、
// 通配 `*`、下标与切片、过滤器 `[?(...)]`，过滤器内支持比较、`=~` 正则以及 and/or/not。
// 编译后的 Path 只读，可并发使用。
package jsonpath

// Path 是编译后的 JSONPath 表达式。
type Path struct {
	expr  string
	steps []step
}

// Compile 解析表达式，语法错误返回 *SyntaxError。
func Compile(expr string) (*Path, error) {
	tokens, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, tokens: tokens}
	steps, err := p.parseRoot()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s", t)
	}
	return &Path{expr: expr, steps: steps}, nil
}

// MustCompile 与 Compile 相同，失败时 panic。
func MustCompile(expr string) *Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Find 在 doc 上求值并返回所有命中的值。doc 应为 encoding/json 解码得到的通用结构。
func (p *Path) Find(doc any) []any {
	nodes := []any{doc}
	for _, s := range p.steps {
		nodes = s.apply(nodes, doc)
		if len(nodes) == 0 {
			return nil
		}
	}
	return nodes
}

func (p *Path) String() string {
	return p.expr
}
