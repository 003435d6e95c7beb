package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// JanitorObserver 接收清理事件。
type JanitorObserver interface {
	WorkdirRemoved()
}

// Janitor 删除 root 下超过保留时长的临时工作目录。
type Janitor struct {
	fs        afero.Fs
	root      string
	prefix    string
	keep      []string
	retention time.Duration
	now       func() time.Time
	observer  JanitorObserver
	logger    *zap.Logger
}

// NewJanitor 创建清理器，只处理以 prefix 开头的目录，root 为空时使用系统临时目录。
func NewJanitor(fsys afero.Fs, root, prefix string, retention time.Duration, observer JanitorObserver, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if root == "" {
		root = os.TempDir()
	}
	return &Janitor{
		fs:        fsys,
		root:      root,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
		observer:  observer,
		logger:    logger,
	}
}

// Keep 设置不清理的目录前缀，优先于 prefix。
func (j *Janitor) Keep(prefixes ...string) *Janitor {
	j.keep = append(j.keep, prefixes...)
	return j
}

// Run 执行一次清理，供调度器调用。
func (j *Janitor) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep 执行一次清理，返回删除的目录。
func (j *Janitor) Sweep(ctx context.Context) ([]string, error) {
	exists, err := afero.DirExists(j.fs, j.root)
	if err != nil {
		return nil, fmt.Errorf("检查工作目录根失败: %w", err)
	}
	if !exists {
		return nil, nil
	}
	entries, err := afero.ReadDir(j.fs, j.root)
	if err != nil {
		return nil, fmt.Errorf("读取工作目录根失败: %w", err)
	}
	cutoff := j.now().Add(-j.retention)
	var removed []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), j.prefix) || j.kept(entry.Name()) || entry.ModTime().After(cutoff) {
			continue
		}
		dir := filepath.Join(j.root, entry.Name())
		if err := j.fs.RemoveAll(dir); err != nil {
			j.logger.Warn("remove stale workdir failed", zap.String("workdir", dir), zap.Error(err))
			continue
		}
		removed = append(removed, dir)
		if j.observer != nil {
			j.observer.WorkdirRemoved()
		}
	}
	if len(removed) > 0 {
		j.logger.Info("stale workdirs removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func (j *Janitor) kept(name string) bool {
	for _, p := range j.keep {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
