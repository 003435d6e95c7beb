// Package pathtmpl 根据 Item 字段渲染上传路径模板。
//
// 模板变量写作 ${name}，支持 id、collection、year、month、day、date，
// 其余名称先按 properties 中的 key 查找，再按点分路径在整个 Item 上查找。
package pathtmpl

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"stactask/pkg/item"
)

// MissingVariableError 表示模板变量在 Item 中找不到。
type MissingVariableError struct {
	Template string
	Name     string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("path template %q: variable %q not found in item", e.Template, e.Name)
}

// Render 渲染模板，任意变量缺失时返回 MissingVariableError。
func Render(template string, it *item.Item) (string, error) {
	if it == nil {
		return "", fmt.Errorf("path template %q: item is nil", template)
	}
	var doc []byte
	var missing string
	out := os.Expand(template, func(name string) string {
		if missing != "" {
			return ""
		}
		if v, ok := builtin(name, it); ok {
			return v
		}
		if v, ok := it.Properties[name]; ok && v != nil {
			return format(v)
		}
		if doc == nil {
			var err error
			if doc, err = json.Marshal(it); err != nil {
				missing = name
				return ""
			}
		}
		if r := gjson.GetBytes(doc, escapePath(name)); r.Exists() && r.Type != gjson.Null {
			return r.String()
		}
		missing = name
		return ""
	})
	if missing != "" {
		return "", &MissingVariableError{Template: template, Name: missing}
	}
	return out, nil
}

func builtin(name string, it *item.Item) (string, bool) {
	switch name {
	case "id":
		return it.ID, it.ID != ""
	case "collection":
		return it.Collection, it.Collection != ""
	case "year", "month", "day", "date":
		ts, ok := it.Datetime()
		if !ok {
			return "", false
		}
		switch name {
		case "year":
			return ts.Format("2006"), true
		case "month":
			return ts.Format("01"), true
		case "day":
			return ts.Format("02"), true
		default:
			return ts.Format("2006-01-02"), true
		}
	}
	return "", false
}

// escapePath 转义 gjson 的通配和特殊字符，只保留点号作为路径分隔符。
func escapePath(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch r {
		case '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func format(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
