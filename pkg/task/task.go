// Package task 定义任务接口以及执行任务的 Runner。
//
// 任务本身不保存配置：参数、Resolver、日志与工作目录都通过 Context 传入。
package task

import (
	"context"

	"stactask/pkg/item"
)

// UnknownVersion 是未实现 Versioned 的任务写入 processing:software 的版本号。
const UnknownVersion = "unknown"

// Task 是一个可执行的处理步骤。
type Task interface {
	Name() string
	Process(ctx context.Context, tc *Context, items []item.Item) ([]item.Item, error)
}

// Versioned 声明任务版本。
type Versioned interface {
	Version() string
}

// Described 声明任务描述。
type Described interface {
	Description() string
}

// Validator 在处理前检查输入，返回错误时本次运行以 FailedValidationError 失败。
type Validator interface {
	Validate(ctx context.Context, tc *Context, items []item.Item) error
}

// Info 汇总任务的元信息。
type Info struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// Describe 返回任务的元信息。
func Describe(t Task) Info {
	info := Info{Name: t.Name(), Version: UnknownVersion}
	if v, ok := t.(Versioned); ok && v.Version() != "" {
		info.Version = v.Version()
	}
	if d, ok := t.(Described); ok {
		info.Description = d.Description()
	}
	return info
}
