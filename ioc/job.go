package ioc

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"stactask/internal/app"
	"stactask/internal/job"
	"stactask/internal/metrics"
	"stactask/pkg/task"
)

// InitJanitor 构建工作目录清理器。
func InitJanitor(fsys afero.Fs, cfg app.Config, collectors *metrics.Collectors, logger *zap.Logger) *job.Janitor {
	return job.NewJanitor(fsys, cfg.Run.WorkdirRoot, task.WorkdirPrefix, cfg.Janitor.Retention(), collectors, logger.Named("janitor")).
		Keep(task.SavedWorkdirPrefix)
}

// InitScheduler 构建定时清理调度器。
func InitScheduler(cfg app.Config, janitor *job.Janitor, logger *zap.Logger) *job.Scheduler {
	return job.NewScheduler("workdir-janitor", cfg.Janitor.Cron, janitor.Run, logger)
}
