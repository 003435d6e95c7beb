// Package upload 把 Item 的本地 asset 上传到存储并改写 href。
package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stactask/pkg/item"
	"stactask/pkg/pathtmpl"
	"stactask/pkg/process"
	"stactask/pkg/storage"
	"stactask/pkg/util"
)

const (
	headerContentType = "ContentType"
	headerACL         = "ACL"
	aclPublicRead     = "public-read"
)

// ConfigSource 按集合提供上传配置。
type ConfigSource interface {
	UploadOptionsFor(collection string) (process.UploadOptions, error)
}

// Uploader 并发上传 asset。
type Uploader struct {
	fs          afero.Fs
	client      storage.Client
	concurrency int
	root        string
	logger      *zap.Logger
}

// NewUploader 创建上传器，fs 用于读取本地 asset。
func NewUploader(fsys afero.Fs, client storage.Client, concurrency int, logger *zap.Logger) *Uploader {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{fs: fsys, client: client, concurrency: concurrency, logger: logger}
}

// Within 限制只读取 dir 之内的本地文件，dir 之外的 asset 不上传。
func (u *Uploader) Within(dir string) *Uploader {
	u.root = dir
	return u
}

// UploadItems 按每个 Item 最终所在集合的配置上传 asset。
//
// 必须在集合分配之后调用。items 原地修改。
func (u *Uploader) UploadItems(ctx context.Context, items []item.Item, cfg ConfigSource, keys []string) error {
	for i := range items {
		opts, err := cfg.UploadOptionsFor(items[i].Collection)
		if err != nil {
			return err
		}
		if err := u.UploadItemAssets(ctx, &items[i], opts, keys); err != nil {
			return err
		}
	}
	return nil
}

// UploadItemAssets 上传一个 Item 的 asset，keys 为空时上传全部。本地文件不存在的 asset 跳过。
func (u *Uploader) UploadItemAssets(ctx context.Context, it *item.Item, opts process.UploadOptions, keys []string) error {
	if opts.PathTemplate == "" {
		return &process.ConfigurationError{Field: "upload_options.path_template", Msg: "is required when uploading"}
	}
	prefix, err := pathtmpl.Render(opts.PathTemplate, it)
	if err != nil {
		return fmt.Errorf("render upload path for item %s: %w", it.ID, err)
	}
	if len(keys) == 0 {
		for k := range it.Assets {
			keys = append(keys, k)
		}
	}

	var mu sync.Mutex
	hrefs := make(map[string]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, key := range keys {
		asset, ok := it.Assets[key]
		if !ok {
			u.logger.Warn("asset not found on item", zap.String("item", it.ID), zap.String("asset", key))
			continue
		}
		g.Go(func() error {
			href, uploaded, err := u.uploadAsset(gctx, prefix, key, asset, opts)
			if err != nil || !uploaded {
				return err
			}
			mu.Lock()
			hrefs[key] = href
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for key, href := range hrefs {
		asset := it.Assets[key]
		asset.Href = href
		it.Assets[key] = asset
	}
	return nil
}

func (u *Uploader) uploadAsset(ctx context.Context, prefix, key string, asset item.Asset, opts process.UploadOptions) (string, bool, error) {
	local := localFile(asset.Href)
	if local == "" {
		return "", false, nil
	}
	if u.root != "" && !util.Within(u.root, local) {
		u.logger.Warn("asset outside workdir, skip upload", zap.String("asset", key), zap.String("href", asset.Href))
		return "", false, nil
	}
	data, err := afero.ReadFile(u.fs, local)
	if errors.Is(err, fs.ErrNotExist) {
		u.logger.Warn("asset file missing, skip upload", zap.String("asset", key), zap.String("href", asset.Href))
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read asset %s: %w", key, err)
	}

	headers := make(map[string]string, len(opts.Headers)+2)
	contentType := asset.Type
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(local))
	}
	if contentType != "" {
		headers[headerContentType] = contentType
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	if opts.IsPublic(key) {
		headers[headerACL] = aclPublicRead
	}

	dst := strings.TrimRight(prefix, "/") + "/" + path.Base(filepath.ToSlash(local))
	url, err := u.client.PutBytes(ctx, dst, data, headers)
	if err != nil {
		return "", false, fmt.Errorf("upload asset %s: %w", key, err)
	}
	if !opts.S3URLs {
		if r, ok := u.client.(storage.URLResolver); ok {
			url = r.HTTPURL(url)
		}
	}
	u.logger.Debug("asset uploaded", zap.String("asset", key), zap.String("href", url))
	return url, true, nil
}

// localFile 返回本地 asset 的文件路径，远程地址返回空串。
func localFile(href string) string {
	switch {
	case strings.HasPrefix(href, "file://"):
		return strings.TrimPrefix(href, "file://")
	case strings.Contains(href, "://"):
		return ""
	default:
		return href
	}
}
