package process

import (
	"stactask/pkg/item"
	"stactask/pkg/jsonpath"
)

// Match 判断 item 是否命中 JSONPath 表达式。
//
// 表达式在 [itemTree] 上求值，结果恰好为一个时视为命中。
func Match(it item.Item, expr string) (bool, error) {
	p, err := compilePattern("pattern", expr)
	if err != nil {
		return false, err
	}
	return matchCompiled(p, it)
}

func compilePattern(field, expr string) (*jsonpath.Path, error) {
	p, err := jsonpath.Compile(expr)
	if err != nil {
		return nil, &ConfigurationError{Field: field, Msg: "invalid pattern", Err: err}
	}
	return p, nil
}

func matchCompiled(p *jsonpath.Path, it item.Item) (bool, error) {
	tree, err := it.Tree()
	if err != nil {
		return false, err
	}
	return len(p.Find([]any{tree})) == 1, nil
}
