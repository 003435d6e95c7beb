// Package cli 提供任务二进制使用的命令行入口：run、resolve、tasks。
package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stactask/pkg/logging"
	"stactask/pkg/payload"
	"stactask/pkg/storage"
	"stactask/pkg/task"
)

const (
	LocalWorkdir = "local-output"
	LocalOutput  = "local-output/output-payload.json"
)

// Option 定制命令行。
type Option func(*app)

// WithFs 指定读写输入输出与工作目录的文件系统。
func WithFs(fsys afero.Fs) Option {
	return func(a *app) { a.fs = fsys }
}

// WithStorage 指定存储客户端，未指定时使用 --storage-root 下的本地存储。
func WithStorage(client storage.Client) Option {
	return func(a *app) { a.storage = client }
}

// WithSinks 追加运行成功后的 sink。
func WithSinks(sinks ...task.Sink) Option {
	return func(a *app) { a.sinks = append(a.sinks, sinks...) }
}

type app struct {
	registry    *task.Registry
	fs          afero.Fs
	storage     storage.Client
	sinks       []task.Sink
	logger      *zap.Logger
	logLevel    string
	storageRoot string
	allowLocal  bool
}

// NewRootCommand 构建根命令，reg 由调用方注册好任务。
func NewRootCommand(reg *task.Registry, opts ...Option) *cobra.Command {
	a := &app{registry: reg, fs: afero.NewOsFs(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "stactask",
		Short:         "Run STAC tasks on payloads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := logging.NewZapLogger(a.logLevel)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "logging", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.storageRoot, "storage-root", "storage", "local directory backing s3:// and gs:// urls")
	root.PersistentFlags().BoolVar(&a.allowLocal, "allow-local-paths", false, "accept absolute and file:// storage urls and upload assets outside the workdir")

	root.AddCommand(a.runCmd(), a.resolveCmd(), a.tasksCmd())
	return root
}

func (a *app) client() storage.Client {
	if a.storage == nil {
		a.storage = storage.NewFSClient(a.fs, storage.Options{Root: a.storageRoot, AllowLocalPaths: a.allowLocal}, a.logger.Named("storage"))
	}
	return a.storage
}

func (a *app) runner() *task.Runner {
	return task.NewRunner(a.registry,
		task.WithFs(a.fs),
		task.WithStorage(a.client()),
		task.WithSinks(a.sinks...),
		task.WithLogger(a.logger),
	)
}

// taskName 在未指定 --task 且只注册了一个任务时使用该任务。
func (a *app) taskName(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	names := a.registry.Names()
	if len(names) == 1 {
		return names[0], nil
	}
	return "", fmt.Errorf("--task is required, registered tasks: %s", strings.Join(names, ", "))
}

// readPayload 读取输入文件，未给出或为 "-" 时读取 stdin。
func (a *app) readPayload(cmd *cobra.Command, args []string) (*payload.Payload, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = afero.ReadFile(a.fs, args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	p, err := payload.Load(cmd.Context(), data, a.client())
	if err != nil {
		return nil, &task.InvalidInputError{Msg: "payload", Err: err}
	}
	return p, nil
}

func (a *app) writeOutput(cmd *cobra.Command, path string, p *payload.Payload) error {
	if path == "" || path == "-" {
		return p.Encode(cmd.OutOrStdout())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := a.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := p.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	a.logger.Info("output written", zap.String("path", path))
	return f.Close()
}
