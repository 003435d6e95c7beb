// Package tasks 提供内置任务。
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"stactask/pkg/item"
	"stactask/pkg/task"
)

const version = "0.1.0"

// Builtin 返回所有内置任务。
func Builtin() []task.Task {
	return []task.Task{Passthrough{}, Annotate{}, Mirror{}}
}

// NewRegistry 返回注册了内置任务的任务表。
func NewRegistry() (*task.Registry, error) {
	return task.NewRegistry(Builtin()...)
}

// Passthrough 原样输出 Item，只做集合分配与上传。
type Passthrough struct{}

func (Passthrough) Name() string        { return "passthrough" }
func (Passthrough) Version() string     { return version }
func (Passthrough) Description() string { return "returns input items unchanged" }

func (Passthrough) Process(_ context.Context, tc *task.Context, items []item.Item) ([]item.Item, error) {
	tc.Logger.Debug("passthrough", zap.Int("items", len(items)))
	return items, nil
}

// MirrorParams 是 mirror 任务的参数。
type MirrorParams struct {
	// Assets 为空时下载全部 asset。
	Assets []string `json:"assets"`
}

// Mirror 把远程 asset 下载到工作目录，开启上传时随后按 path_template 重新上传。
type Mirror struct{}

func (Mirror) Name() string        { return "mirror" }
func (Mirror) Version() string     { return version }
func (Mirror) Description() string { return "downloads item assets into the workdir for re-upload" }

func (Mirror) Process(ctx context.Context, tc *task.Context, items []item.Item) ([]item.Item, error) {
	var params MirrorParams
	if err := tc.DecodeParameters(&params); err != nil {
		return nil, err
	}
	if err := tc.DownloadAssets(ctx, items, params.Assets...); err != nil {
		return nil, err
	}
	tc.Logger.Debug("assets mirrored", zap.Int("items", len(items)))
	return items, nil
}

// AnnotateParams 是 annotate 任务的参数。
type AnnotateParams struct {
	Properties    map[string]any `json:"properties"`
	Derive        bool           `json:"derive"`
	IDSuffix      string         `json:"id_suffix"`
	WriteMetadata bool           `json:"write_metadata"`
}

// Annotate 为 Item 写入 properties，可选地派生新 Item 并生成 metadata asset。
type Annotate struct{}

func (Annotate) Name() string        { return "annotate" }
func (Annotate) Version() string     { return version }
func (Annotate) Description() string { return "sets properties on items, optionally deriving new items" }

func (Annotate) Validate(_ context.Context, _ *task.Context, items []item.Item) error {
	for _, it := range items {
		if it.ID == "" {
			return fmt.Errorf("item without id")
		}
	}
	return nil
}

func (Annotate) Process(_ context.Context, tc *task.Context, items []item.Item) ([]item.Item, error) {
	var params AnnotateParams
	if err := tc.DecodeParameters(&params); err != nil {
		return nil, err
	}
	if params.IDSuffix != "" && !params.Derive {
		return nil, &task.InvalidInputError{Msg: "id_suffix requires derive"}
	}

	out := make([]item.Item, 0, len(items))
	for _, src := range items {
		it := src
		if params.Derive {
			derived, err := item.DeriveFrom(src)
			if err != nil {
				return nil, err
			}
			derived.ID += params.IDSuffix
			// 派生 Item 重新分配集合
			derived.Collection = ""
			it = derived
		}
		if it.Properties == nil {
			it.Properties = map[string]any{}
		}
		for k, v := range params.Properties {
			it.Properties[k] = v
		}
		if params.WriteMetadata {
			if err := writeMetadata(tc, &it); err != nil {
				return nil, err
			}
		}
		tc.Logger.Debug("item annotated", zap.String("item", it.ID), zap.Int("properties", len(params.Properties)))
		out = append(out, it)
	}
	return out, nil
}

func writeMetadata(tc *task.Context, it *item.Item) error {
	data, err := json.MarshalIndent(it.Properties, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", it.ID, err)
	}
	path, err := tc.Join(it.ID + "-metadata.json")
	if err != nil {
		return err
	}
	if err := afero.WriteFile(tc.FS, path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata for %s: %w", it.ID, err)
	}
	if it.Assets == nil {
		it.Assets = map[string]item.Asset{}
	}
	it.Assets["metadata"] = item.Asset{
		Href:  path,
		Type:  "application/json",
		Title: "Item properties",
		Roles: []string{"metadata"},
	}
	return nil
}
