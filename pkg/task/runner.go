package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"stactask/pkg/item"
	"stactask/pkg/payload"
	"stactask/pkg/process"
	"stactask/pkg/storage"
	"stactask/pkg/upload"
)

const (
	// WorkdirPrefix 是临时工作目录名的前缀。
	WorkdirPrefix = "stactask-"
	// SavedWorkdirPrefix 是 SaveWorkdir 时临时目录的前缀，清理任务不会删除这类目录。
	SavedWorkdirPrefix = "stactask-saved-"
)

// Options 控制单次运行。
type Options struct {
	// Workdir 为空时在 WorkdirRoot 下创建临时目录。
	Workdir     string
	WorkdirRoot string
	// SaveWorkdir 为 false 时运行结束后删除临时工作目录，指定的 Workdir 不会被删除。
	SaveWorkdir       bool
	Upload            bool
	Validate          bool
	UploadConcurrency int
	// UploadAssets 指定上传的 asset key，为空时上传全部。
	UploadAssets []string
	// AllowExternalAssets 为 false 时只上传工作目录内的本地文件。
	AllowExternalAssets bool
}

// Observer 接收运行过程中的事件，用于指标采集。
type Observer interface {
	TaskStarted(task string)
	TaskFinished(task string, elapsed time.Duration, err error)
	CollectionAssigned(task, collection string)
}

// Sink 在运行成功后接收输入输出，用于记录血缘等。
type Sink interface {
	Publish(ctx context.Context, task string, inputs, outputs []item.Item) error
}

// Runner 执行注册表中的任务。
type Runner struct {
	registry *Registry
	fs       afero.Fs
	storage  storage.Client
	logger   *zap.Logger
	observer Observer
	sinks    []Sink
}

// RunnerOption 定制 Runner。
type RunnerOption func(*Runner)

func WithFs(fsys afero.Fs) RunnerOption {
	return func(r *Runner) { r.fs = fsys }
}

func WithStorage(client storage.Client) RunnerOption {
	return func(r *Runner) { r.storage = client }
}

func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) { r.observer = o }
}

func WithSinks(sinks ...Sink) RunnerOption {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// NewRunner 创建 Runner，默认使用操作系统文件系统。
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{registry: registry, fs: afero.NewOsFs(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry 返回任务表。
func (r *Runner) Registry() *Registry { return r.registry }

// Resolve 解析并校验 payload 的 process 定义。
func (r *Runner) Resolve(in *payload.Payload, uploads bool) (*process.Resolver, error) {
	def, err := in.ProcessDefinition()
	if err != nil {
		return nil, err
	}
	for _, msg := range def.Deprecations {
		r.logger.Warn("deprecated process definition", zap.String("detail", msg))
	}
	return process.NewResolver(def, process.WithUploads(uploads), process.WithLogger(r.logger))
}

// Run 执行任务：校验，处理，写入软件版本，分配集合，上传，最后输出新的 payload。
func (r *Runner) Run(ctx context.Context, name string, in *payload.Payload, opts Options) (out *payload.Payload, err error) {
	t, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}
	logger := r.logger.Named(name)
	start := time.Now()
	if r.observer != nil {
		r.observer.TaskStarted(name)
		defer func() { r.observer.TaskFinished(name, time.Since(start), err) }()
	}

	resolver, err := r.Resolve(in, opts.Upload)
	if err != nil {
		return nil, err
	}
	if opts.Upload && r.storage == nil {
		return nil, fmt.Errorf("task %s: upload requested but no storage is configured", name)
	}

	workdir, cleanup, err := r.prepareWorkdir(opts)
	if err != nil {
		return nil, err
	}
	defer cleanup(logger)

	tc := &Context{
		TaskName:   name,
		Parameters: resolver.ParametersFor(name),
		Resolver:   resolver,
		Logger:     logger,
		Workdir:    workdir,
		FS:         r.fs,
		Storage:    r.storage,
	}

	items := make([]item.Item, 0, len(in.Features))
	for _, f := range in.Features {
		c, err := f.Clone()
		if err != nil {
			return nil, &InvalidInputError{Msg: "feature " + f.ID, Err: err}
		}
		items = append(items, c)
	}

	if v, ok := t.(Validator); ok && opts.Validate {
		if err := v.Validate(ctx, tc, items); err != nil {
			var fv *FailedValidationError
			if errors.As(err, &fv) {
				return nil, err
			}
			return nil, &FailedValidationError{Task: name, Err: err}
		}
	}

	logger.Info("task started", zap.Int("items", len(items)), zap.String("workdir", workdir))
	results, err := t.Process(ctx, tc, items)
	if err != nil {
		return nil, wrapProcessError(name, err)
	}

	version := Describe(t).Version
	for i := range results {
		results[i].SetSoftwareVersion(name, version)
	}
	if err := resolver.AssignCollections(results); err != nil {
		return nil, err
	}
	if r.observer != nil {
		for _, it := range results {
			r.observer.CollectionAssigned(name, it.Collection)
		}
	}

	if opts.Upload {
		up := upload.NewUploader(r.fs, r.storage, opts.UploadConcurrency, logger)
		if !opts.AllowExternalAssets {
			up.Within(workdir)
		}
		if err := up.UploadItems(ctx, results, resolver, opts.UploadAssets); err != nil {
			return nil, &ExecutionError{Task: name, Err: err}
		}
	}

	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, name, in.Features, results); err != nil {
			logger.Error("publish run failed", zap.Error(err))
		}
	}

	logger.Info("task completed", zap.Int("items", len(results)), zap.Duration("elapsed", time.Since(start)))
	return &payload.Payload{
		Type:     payload.TypeFeatureCollection,
		ID:       in.ID,
		Features: results,
		Process:  in.Process,
		Extra:    in.Extra,
	}, nil
}

func wrapProcessError(name string, err error) error {
	var invalid *InvalidInputError
	var failed *FailedValidationError
	var cfg *process.ConfigurationError
	if errors.As(err, &invalid) || errors.As(err, &failed) || errors.As(err, &cfg) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ExecutionError{Task: name, Err: err}
}

func (r *Runner) prepareWorkdir(opts Options) (string, func(*zap.Logger), error) {
	if opts.Workdir != "" {
		if err := r.fs.MkdirAll(opts.Workdir, 0o755); err != nil {
			return "", nil, fmt.Errorf("创建工作目录失败: %w", err)
		}
		return opts.Workdir, func(*zap.Logger) {}, nil
	}
	root := opts.WorkdirRoot
	if root == "" {
		root = os.TempDir()
	}
	if err := r.fs.MkdirAll(root, 0o755); err != nil {
		return "", nil, fmt.Errorf("创建工作目录失败: %w", err)
	}
	prefix := WorkdirPrefix
	if opts.SaveWorkdir {
		prefix = SavedWorkdirPrefix
	}
	dir, err := afero.TempDir(r.fs, root, prefix)
	if err != nil {
		return "", nil, fmt.Errorf("创建工作目录失败: %w", err)
	}
	return dir, func(logger *zap.Logger) {
		if opts.SaveWorkdir {
			logger.Info("workdir saved", zap.String("workdir", dir))
			return
		}
		if err := r.fs.RemoveAll(dir); err != nil {
			logger.Warn("remove workdir failed", zap.String("workdir", dir), zap.Error(err))
		}
	}, nil
}
