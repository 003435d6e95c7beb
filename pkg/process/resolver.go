package process

import (
	"go.uber.org/zap"

	"stactask/pkg/item"
)

// Resolver 组合 workflow、task、collection 三层配置，构造后只读。
type Resolver struct {
	def         *Definition
	collections *CollectionResolver
}

type resolverOptions struct {
	uploads bool
	logger  *zap.Logger
}

// Option 定制 Resolver 构造。
type Option func(*resolverOptions)

// WithUploads 声明本次运行会上传，要求 path_template 存在。
func WithUploads(enabled bool) Option {
	return func(o *resolverOptions) { o.uploads = enabled }
}

// WithLogger 设置日志。
func WithLogger(logger *zap.Logger) Option {
	return func(o *resolverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewResolver 校验定义并构造 Resolver，任何错误都会使构造失败。
func NewResolver(def *Definition, opts ...Option) (*Resolver, error) {
	o := resolverOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if def == nil {
		def = &Definition{}
	}
	if err := def.Validate(o.uploads); err != nil {
		return nil, err
	}
	rules, legacy := def.Rules()
	copts := []CollectionOption{WithCollectionLogger(o.logger)}
	if legacy {
		copts = append(copts, WithLegacyMap())
	}
	cr, err := NewCollectionResolver(rules, copts...)
	if err != nil {
		return nil, err
	}
	return &Resolver{def: def, collections: cr}, nil
}

// Definition 返回底层定义。
func (r *Resolver) Definition() *Definition { return r.def }

// Collections 返回集合匹配器。
func (r *Resolver) Collections() *CollectionResolver { return r.collections }

// ParametersFor 返回 workflow_options 与 tasks[name] 合并后的参数。
func (r *Resolver) ParametersFor(task string) ConfigLayer {
	return Merge(r.def.WorkflowOptions, r.def.TaskOptions[task])
}

// UploadConfigFor 返回集合的上传配置，collection 为空时只有全局配置。
func (r *Resolver) UploadConfigFor(collection string) ConfigLayer {
	if collection != "" {
		if co, ok := r.def.CollectionOptions[collection]; ok && co.UploadOptions != nil {
			return Merge(r.def.UploadOptions, co.UploadOptions)
		}
	}
	return Merge(r.def.UploadOptions)
}

// UploadOptionsFor 返回 UploadConfigFor 的类型化结果。
func (r *Resolver) UploadOptionsFor(collection string) (UploadOptions, error) {
	return DecodeUploadOptions(r.UploadConfigFor(collection))
}

// AssignCollections 按定义中的规则为 Item 分配集合。
func (r *Resolver) AssignCollections(items []item.Item) error {
	return r.collections.AssignCollections(items)
}
