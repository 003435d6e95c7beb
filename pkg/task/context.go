package task

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"stactask/pkg/download"
	"stactask/pkg/item"
	"stactask/pkg/process"
	"stactask/pkg/storage"
	"stactask/pkg/util"
)

// Context 是一次任务运行注入的依赖。
type Context struct {
	TaskName   string
	Parameters process.ConfigLayer
	Resolver   *process.Resolver
	Logger     *zap.Logger
	Workdir    string
	FS         afero.Fs
	Storage    storage.Client
}

// DecodeParameters 把合并后的参数解码到结构体。
func (c *Context) DecodeParameters(out any) error {
	if err := c.Parameters.Decode(out); err != nil {
		return &InvalidInputError{Msg: "task parameters", Err: err}
	}
	return nil
}

// Path 返回工作目录下的路径。
func (c *Context) Path(elem ...string) string {
	return filepath.Join(append([]string{c.Workdir}, elem...)...)
}

// Join 与 Path 相同，但 elem 来自 payload 等外部输入时使用：结果不在工作目录内时返回 InvalidInputError。
func (c *Context) Join(elem ...string) (string, error) {
	p := c.Path(elem...)
	if !util.Within(c.Workdir, p) {
		return "", &InvalidInputError{Msg: fmt.Sprintf("path %q escapes the workdir", filepath.Join(elem...))}
	}
	return p, nil
}

// DownloadAssets 把每个 Item 的远程 asset 下载到工作目录下以 Item id 命名的子目录，并改写 href。
// keys 为空时下载全部 asset。items 原地修改。
func (c *Context) DownloadAssets(ctx context.Context, items []item.Item, keys ...string) error {
	if c.Storage == nil {
		return fmt.Errorf("task %s: download requested but no storage is configured", c.TaskName)
	}
	d := download.NewDownloader(c.FS, c.Storage, 0, c.Logger)
	for i := range items {
		dir, err := c.Join(items[i].ID)
		if err != nil {
			return err
		}
		if err := d.DownloadItemAssets(ctx, &items[i], dir, keys); err != nil {
			return err
		}
	}
	return nil
}
