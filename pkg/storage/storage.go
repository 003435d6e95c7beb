// Package storage 提供任务读写 payload 与 asset 的存储客户端。
package storage

import (
	"context"
	"errors"
)

// ErrNotFound 表示对象不存在。
var ErrNotFound = errors.New("object not found")

// ErrOutsideRoot 表示对象地址解析到了存储根目录之外。
var ErrOutsideRoot = errors.New("object path outside storage root")

// Client 是任务依赖的最小存储接口。
type Client interface {
	PutBytes(ctx context.Context, path string, data []byte, headers map[string]string) (string, error)
	PutJSON(ctx context.Context, path string, doc any) (string, error)
	GetBytes(ctx context.Context, path string) ([]byte, error)
}

// URLResolver 把存储地址转换为可公开访问的 http 地址。
type URLResolver interface {
	HTTPURL(url string) string
}
