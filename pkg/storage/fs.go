package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"stactask/pkg/util"
)

const metaSuffix = ".meta.json"

// Options 控制 FSClient 的行为。
type Options struct {
	// Root 是对象在文件系统中的根目录，s3://bucket/key 落在 Root/bucket/key。
	Root          string
	BaseURL       string
	RetryAttempts int
	RetryBackoff  time.Duration
	// AllowLocalPaths 为 true 时接受绝对路径与 file:// 地址，否则只允许 Root 之内的对象。
	AllowLocalPaths bool
}

// FSClient 基于 afero 的存储实现，headers 写入同名的 .meta.json 旁路文件。
type FSClient struct {
	fs     afero.Fs
	opts   Options
	logger *zap.Logger
}

// NewFSClient 创建存储客户端。
func NewFSClient(fsys afero.Fs, opts Options, logger *zap.Logger) *FSClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	return &FSClient{fs: fsys, opts: opts, logger: logger}
}

// PutBytes 写入对象并返回其地址。
func (c *FSClient) PutBytes(ctx context.Context, dst string, data []byte, headers map[string]string) (string, error) {
	local, err := c.localPath(dst)
	if err != nil {
		return "", err
	}
	err = util.Retry(ctx, c.opts.RetryAttempts, c.opts.RetryBackoff, func() error {
		if err := c.fs.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(c.fs, local, data, 0o644); err != nil {
			return err
		}
		if len(headers) == 0 {
			return nil
		}
		meta, err := json.Marshal(headers)
		if err != nil {
			return util.Permanent(err)
		}
		return afero.WriteFile(c.fs, local+metaSuffix, meta, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", dst, err)
	}
	c.logger.Debug("object stored", zap.String("path", dst), zap.Int("bytes", len(data)))
	return dst, nil
}

// PutJSON 以 application/json 写入 doc。
func (c *FSClient) PutJSON(ctx context.Context, dst string, doc any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("序列化 %s 失败: %w", dst, err)
	}
	return c.PutBytes(ctx, dst, buf.Bytes(), map[string]string{"ContentType": "application/json"})
}

// GetBytes 读取对象内容。
func (c *FSClient) GetBytes(ctx context.Context, src string) ([]byte, error) {
	local, err := c.localPath(src)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = util.Retry(ctx, c.opts.RetryAttempts, c.opts.RetryBackoff, func() error {
		b, err := afero.ReadFile(c.fs, local)
		if errors.Is(err, fs.ErrNotExist) {
			return util.Permanent(fmt.Errorf("%w: %s", ErrNotFound, src))
		}
		data = b
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", src, err)
	}
	return data, nil
}

// Headers 返回写入对象时附带的 headers。
func (c *FSClient) Headers(src string) (map[string]string, error) {
	local, err := c.localPath(src)
	if err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(c.fs, local+metaSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var headers map[string]string
	if err := json.Unmarshal(b, &headers); err != nil {
		return nil, fmt.Errorf("解析 %s 的 headers 失败: %w", src, err)
	}
	return headers, nil
}

// HTTPURL 把 s3://bucket/key 转换为 http 地址，BaseURL 为空时使用 S3 虚拟主机格式。
func (c *FSClient) HTTPURL(raw string) string {
	bucket, key, ok := splitBucket(raw)
	if !ok {
		return raw
	}
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	if c.opts.BaseURL != "" {
		return strings.TrimRight(c.opts.BaseURL, "/") + "/" + path.Join(bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

// localPath 把对象地址映射到文件系统路径。
func (c *FSClient) localPath(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("存储路径不能为空")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// 没有 scheme 或是 Windows 盘符，按本地路径处理
		if filepath.IsAbs(raw) {
			if !c.opts.AllowLocalPaths {
				return "", fmt.Errorf("%w: %s", ErrOutsideRoot, raw)
			}
			return filepath.Clean(raw), nil
		}
		return c.underRoot(raw, filepath.FromSlash(raw))
	}
	switch u.Scheme {
	case "file":
		if !c.opts.AllowLocalPaths {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, raw)
		}
		return filepath.FromSlash(u.Path), nil
	case "s3", "gs":
		if u.Host == "" {
			return "", fmt.Errorf("存储地址缺少 bucket: %s", raw)
		}
		return c.underRoot(raw, u.Host, filepath.FromSlash(strings.TrimPrefix(u.Path, "/")))
	default:
		return "", fmt.Errorf("不支持的存储地址 %s", raw)
	}
}

// underRoot 拼接 Root 与 elem，结果落在 Root 之外时报错。
func (c *FSClient) underRoot(raw string, elem ...string) (string, error) {
	root := filepath.Clean(c.opts.Root)
	local := filepath.Join(append([]string{root}, elem...)...)
	if !util.Within(root, local) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, raw)
	}
	return local, nil
}

func splitBucket(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "s3" && u.Scheme != "gs") || u.Host == "" {
		return "", "", false
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), true
}
