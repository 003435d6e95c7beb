package ioc

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"stactask/internal/app"
	"stactask/internal/metrics"
	"stactask/internal/tasks"
	"stactask/pkg/storage"
	"stactask/pkg/task"
)

// InitRegistry 注册内置任务。
func InitRegistry() (*task.Registry, error) {
	return tasks.NewRegistry()
}

// InitRunner 构建任务执行器。
func InitRunner(reg *task.Registry, fsys afero.Fs, client storage.Client, collectors *metrics.Collectors, sinks []task.Sink, logger *zap.Logger) *task.Runner {
	return task.NewRunner(reg,
		task.WithFs(fsys),
		task.WithStorage(client),
		task.WithObserver(collectors),
		task.WithSinks(sinks...),
		task.WithLogger(logger),
	)
}

// InitAppService 构建应用服务。
func InitAppService(cfg app.Config, runner *task.Runner, client storage.Client, lineage app.LineageReader, logger *zap.Logger) (*app.Service, error) {
	return app.NewService(cfg, runner, client, lineage, logger)
}
