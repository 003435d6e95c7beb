// Package download 把 Item 的远程 asset 下载到本地目录并改写 href。
package download

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stactask/pkg/item"
	"stactask/pkg/util"
)

// Getter 读取远程对象。
type Getter interface {
	GetBytes(ctx context.Context, path string) ([]byte, error)
}

// Downloader 并发下载 asset。
type Downloader struct {
	fs          afero.Fs
	client      Getter
	concurrency int
	overwrite   bool
	logger      *zap.Logger
}

// NewDownloader 创建下载器，fs 用于写入本地文件。
func NewDownloader(fsys afero.Fs, client Getter, concurrency int, logger *zap.Logger) *Downloader {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{fs: fsys, client: client, concurrency: concurrency, logger: logger}
}

// Overwrite 为 true 时重新下载本地已存在的文件。
func (d *Downloader) Overwrite(enabled bool) *Downloader {
	d.overwrite = enabled
	return d
}

// DownloadItemAssets 把 Item 的 asset 下载到 dir，keys 为空时下载全部。
//
// 已经是本地路径的 asset 不处理。文件名取 href 的最后一段，两个 asset 文件名相同时报错。
func (d *Downloader) DownloadItemAssets(ctx context.Context, it *item.Item, dir string, keys []string) error {
	if len(keys) == 0 {
		for k := range it.Assets {
			keys = append(keys, k)
		}
	}

	targets := make(map[string]string, len(keys))
	owners := make(map[string]string, len(keys))
	for _, key := range keys {
		asset, ok := it.Assets[key]
		if !ok {
			d.logger.Warn("asset not found on item", zap.String("item", it.ID), zap.String("asset", key))
			continue
		}
		name, remote, err := fileName(asset.Href)
		if err != nil {
			return fmt.Errorf("asset %s of item %s: %w", key, it.ID, err)
		}
		if !remote {
			continue
		}
		dst := filepath.Join(dir, name)
		if !util.Within(dir, dst) {
			return fmt.Errorf("asset %s of item %s: file name %q escapes %s", key, it.ID, name, dir)
		}
		if other, dup := owners[dst]; dup {
			return fmt.Errorf("assets %s and %s of item %s both download to %s", other, key, it.ID, dst)
		}
		owners[dst] = key
		targets[key] = dst
	}
	if len(targets) == 0 {
		return nil
	}
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建下载目录失败: %w", err)
	}

	var mu sync.Mutex
	hrefs := make(map[string]string, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for key, dst := range targets {
		src := it.Assets[key].Href
		g.Go(func() error {
			if err := d.fetch(gctx, src, dst); err != nil {
				return fmt.Errorf("download asset %s: %w", key, err)
			}
			mu.Lock()
			hrefs[key] = dst
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

func (d *Downloader) fetch(ctx context.Context, src, dst string) error {
	if !d.overwrite {
		exists, err := afero.Exists(d.fs, dst)
		if err != nil {
			return err
		}
		if exists {
			d.logger.Debug("asset already downloaded", zap.String("path", dst))
			return nil
		}
	}
	data, err := d.client.GetBytes(ctx, src)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(d.fs, dst, data, 0o644); err != nil {
		return err
	}
	d.logger.Debug("asset downloaded", zap.String("href", src), zap.String("path", dst), zap.Int("bytes", len(data)))
	return nil
}

// fileName 返回远程 href 的文件名，本地路径返回 remote=false。
func fileName(href string) (name string, remote bool, err error) {
	if href == "" || strings.HasPrefix(href, "file://") || !strings.Contains(href, "://") {
		return "", false, nil
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false, fmt.Errorf("parse href %s: %w", href, err)
	}
	name = path.Base(u.Path)
	switch name {
	case "", ".", "..", "/":
		return "", false, fmt.Errorf("href %s has no file name", href)
	}
	return name, true, nil
}
