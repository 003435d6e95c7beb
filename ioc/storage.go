package ioc

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"stactask/internal/app"
	"stactask/pkg/storage"
)

// InitFs 返回操作系统文件系统。
func InitFs() afero.Fs {
	return afero.NewOsFs()
}

// InitStorage 构建存储客户端。
func InitStorage(fsys afero.Fs, cfg app.Config, logger *zap.Logger) storage.Client {
	return storage.NewFSClient(fsys, storage.Options{
		Root:          cfg.Storage.Root,
		BaseURL:       cfg.Storage.BaseURL,
		RetryAttempts: cfg.Storage.RetryAttempts,
		RetryBackoff:  cfg.Storage.RetryBackoff(),
	}, logger.Named("storage"))
}
