package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"stactask/pkg/payload"
	"stactask/pkg/storage"
	"stactask/pkg/task"
)

// ErrLineageDisabled 表示没有配置血缘存储。
var ErrLineageDisabled = errors.New("lineage is not configured")

// LineageReader 查询 Item 的血缘。
type LineageReader interface {
	Ancestors(ctx context.Context, collection, id string) ([]string, error)
}

// Service 是 HTTP 与 CLI 共用的入口。
type Service struct {
	cfg     Config
	runner  *task.Runner
	storage storage.Client
	lineage LineageReader
	logger  *zap.Logger
}

// NewService 构建 Service，lineage 为 nil 时血缘查询返回 ErrLineageDisabled。
func NewService(cfg Config, runner *task.Runner, client storage.Client, lineage LineageReader, logger *zap.Logger) (*Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("必须提供 task runner")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, runner: runner, storage: client, lineage: lineage, logger: logger}, nil
}

// RunOverrides 覆盖配置中的默认运行参数，nil 表示沿用配置。
type RunOverrides struct {
	Upload      *bool `json:"upload,omitempty"`
	Validate    *bool `json:"validate,omitempty"`
	SaveWorkdir *bool `json:"save_workdir,omitempty"`
}

// Options 根据配置与覆盖项生成运行参数。
func (s *Service) Options(o RunOverrides) task.Options {
	opts := task.Options{
		WorkdirRoot:       s.cfg.Run.WorkdirRoot,
		SaveWorkdir:       s.cfg.Run.SaveWorkdir,
		Upload:            !s.cfg.Run.SkipUpload,
		Validate:          !s.cfg.Run.SkipValidation,
		UploadConcurrency: s.cfg.Run.UploadConcurrency,
	}
	if o.Upload != nil {
		opts.Upload = *o.Upload
	}
	if o.Validate != nil {
		opts.Validate = *o.Validate
	}
	if o.SaveWorkdir != nil {
		opts.SaveWorkdir = *o.SaveWorkdir
	}
	return opts
}

// Tasks 返回已注册任务。
func (s *Service) Tasks() []task.Info {
	return s.runner.Registry().Infos()
}

// LoadPayload 解析请求体，间接 payload 通过存储读取。
func (s *Service) LoadPayload(ctx context.Context, data []byte) (*payload.Payload, error) {
	var getter payload.Getter
	if s.storage != nil {
		getter = s.storage
	}
	p, err := payload.Load(ctx, data, getter)
	if err != nil {
		return nil, &task.InvalidInputError{Msg: "payload", Err: err}
	}
	return p, nil
}

// Run 执行任务。
func (s *Service) Run(ctx context.Context, name string, in *payload.Payload, o RunOverrides) (*payload.Payload, error) {
	return s.runner.Run(ctx, name, in, s.Options(o))
}

// Resolve 解析 payload 的 process 定义，计算任务参数以及每个 Item 的集合与上传配置。
func (s *Service) Resolve(in *payload.Payload, taskName string) (*task.Plan, error) {
	return s.runner.Plan(in, taskName)
}

// Ancestors 返回 Item 沿派生关系能追溯到的所有 Item 的 key。
func (s *Service) Ancestors(ctx context.Context, collection, id string) ([]string, error) {
	if s.lineage == nil {
		return nil, ErrLineageDisabled
	}
	keys, err := s.lineage.Ancestors(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("查询 %s/%s 的血缘失败: %w", collection, id, err)
	}
	return keys, nil
}

// Close 释放资源。
func (s *Service) Close(context.Context) error {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return nil
}
