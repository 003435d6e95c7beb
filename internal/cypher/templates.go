// Package cypher 内嵌血缘图使用的 Cypher 语句。
package cypher

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed *.cql
var files embed.FS

var (
	parseOnce sync.Once
	parsed    *template.Template
	parseErr  error
)

func templates() (*template.Template, error) {
	parseOnce.Do(func() {
		parsed, parseErr = template.ParseFS(files, "*.cql")
	})
	return parsed, parseErr
}

// MustTemplate 渲染指定模板，失败直接 panic。模板只在首次调用时解析。
func MustTemplate(name string, data any) string {
	tmpl, err := templates()
	if err != nil {
		panic(fmt.Errorf("parse templates failed: %w", err))
	}
	var sb strings.Builder
	if err := tmpl.ExecuteTemplate(&sb, name, data); err != nil {
		panic(fmt.Errorf("execute template %s failed: %w", name, err))
	}
	return sb.String()
}

// Statements 返回文件中以分号分隔的非空语句。
func Statements(name string) ([]string, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("load %s failed: %w", name, err)
	}
	var out []string
	for _, raw := range strings.Split(string(b), ";") {
		if stmt := strings.TrimSpace(raw); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}
