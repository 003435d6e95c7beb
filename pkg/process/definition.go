package process

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"

	"stactask/pkg/util"
)

// CollectionOptions 是 collection_options 中某个集合的配置。
type CollectionOptions struct {
	UploadOptions ConfigLayer
	Extra         ConfigLayer
}

// Definition 是校验前的 process 定义，解析后不再修改。
type Definition struct {
	Description       string
	WorkflowOptions   ConfigLayer
	TaskOptions       map[string]ConfigLayer
	UploadOptions     ConfigLayer
	CollectionOptions map[string]CollectionOptions
	MatchRules        []MatchRule
	LegacyCollections []LegacyCollection

	// Deprecations 记录解析时遇到的废弃写法，由调用方决定如何输出。
	Deprecations []string
}

// Parse 解析 process 块的 JSON，结构类型不对时返回 ConfigurationError。
//
// 空输入或 null 得到空定义。upload_options.collections 按文档中的 key 顺序保存。
func Parse(raw []byte) (*Definition, error) {
	def := &Definition{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return def, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, configErrorf("process", "invalid JSON")
	}
	root := gjson.ParseBytes(trimmed)
	if root.Type == gjson.Null {
		return def, nil
	}
	if !root.IsObject() {
		return nil, configErrorf("process", "must be an object")
	}

	if r := root.Get("description"); r.Exists() && r.Type != gjson.Null {
		if r.Type != gjson.String {
			return nil, configErrorf("description", "must be a string")
		}
		def.Description = r.String()
	}

	var err error
	if def.WorkflowOptions, err = objectLayer(root.Get("workflow_options"), "workflow_options"); err != nil {
		return nil, err
	}
	if err = def.parseTasks(root.Get("tasks")); err != nil {
		return nil, err
	}
	if err = def.parseUploadOptions(root.Get("upload_options")); err != nil {
		return nil, err
	}
	if err = def.parseMatchers(root.Get("collection_matchers")); err != nil {
		return nil, err
	}
	if err = def.parseCollectionOptions(root.Get("collection_options")); err != nil {
		return nil, err
	}
	return def, nil
}

func (d *Definition) parseTasks(r gjson.Result) error {
	d.TaskOptions = map[string]ConfigLayer{}
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return nil
	case r.IsObject():
		var err error
		r.ForEach(func(k, v gjson.Result) bool {
			var layer ConfigLayer
			layer, err = objectLayer(v, "tasks."+k.String())
			d.TaskOptions[k.String()] = layer
			return err == nil
		})
		return err
	case r.IsArray():
		d.Deprecations = append(d.Deprecations, "process.tasks as a list is deprecated, use an object keyed by task name")
		var err error
		r.ForEach(func(k, v gjson.Result) bool {
			field := fmt.Sprintf("tasks[%d]", k.Int())
			name := v.Get("name")
			if !v.IsObject() || name.Type != gjson.String || name.String() == "" {
				err = configErrorf(field, "list entries need a string name")
				return false
			}
			var layer ConfigLayer
			if layer, err = objectLayer(v.Get("parameters"), field+".parameters"); err != nil {
				return false
			}
			d.TaskOptions[name.String()] = layer
			return true
		})
		return err
	default:
		return configErrorf("tasks", "must be an object")
	}
}

func (d *Definition) parseUploadOptions(r gjson.Result) error {
	d.UploadOptions = ConfigLayer{}
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if !r.IsObject() {
		return configErrorf("upload_options", "must be an object")
	}
	var err error
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() != KeyCollections {
			d.UploadOptions[k.String()] = rawValue(v)
			return true
		}
		err = d.parseLegacyCollections(v)
		return err == nil
	})
	return err
}

func (d *Definition) parseLegacyCollections(r gjson.Result) error {
	if r.Type == gjson.Null {
		return nil
	}
	if !r.IsObject() {
		return configErrorf("upload_options.collections", "must be an object of collection name to pattern")
	}
	d.Deprecations = append(d.Deprecations, "upload_options.collections is deprecated, use collection_matchers")
	index := map[string]int{}
	var err error
	r.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if v.Type != gjson.String {
			err = configErrorf("upload_options.collections."+name, "pattern must be a string")
			return false
		}
		// 重复的 key 保留第一次出现的位置，取最后一次的值
		if i, seen := index[name]; seen {
			d.LegacyCollections[i].Pattern = v.String()
			return true
		}
		index[name] = len(d.LegacyCollections)
		d.LegacyCollections = append(d.LegacyCollections, LegacyCollection{Name: name, Pattern: v.String()})
		return true
	})
	return err
}

func (d *Definition) parseMatchers(r gjson.Result) error {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if !r.IsArray() {
		return configErrorf("collection_matchers", "must be a list")
	}
	var err error
	r.ForEach(func(k, v gjson.Result) bool {
		field := fmt.Sprintf("collection_matchers[%d]", k.Int())
		if !v.IsObject() {
			err = configErrorf(field, "must be an object")
			return false
		}
		var rule MatchRule
		for _, fd := range []struct {
			key string
			dst *string
		}{
			{"type", (*string)(&rule.Type)},
			{"pattern", &rule.Pattern},
			{"collection_name", &rule.CollectionName},
		} {
			key, dst := fd.key, fd.dst
			f := v.Get(key)
			if !f.Exists() || f.Type == gjson.Null {
				continue
			}
			if f.Type != gjson.String {
				err = configErrorf(field+"."+key, "must be a string")
				return false
			}
			*dst = f.String()
		}
		d.MatchRules = append(d.MatchRules, rule)
		return true
	})
	return err
}

func (d *Definition) parseCollectionOptions(r gjson.Result) error {
	d.CollectionOptions = map[string]CollectionOptions{}
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	if !r.IsObject() {
		return configErrorf("collection_options", "must be an object")
	}
	var err error
	r.ForEach(func(k, v gjson.Result) bool {
		field := "collection_options." + k.String()
		var all ConfigLayer
		if all, err = objectLayer(v, field); err != nil {
			return false
		}
		var co CollectionOptions
		if uo := v.Get("upload_options"); uo.Exists() && uo.Type != gjson.Null {
			if co.UploadOptions, err = objectLayer(uo, field+".upload_options"); err != nil {
				return false
			}
		}
		delete(all, "upload_options")
		if len(all) > 0 {
			co.Extra = all
		}
		d.CollectionOptions[k.String()] = co
		return true
	})
	return err
}

// objectLayer 把 JSON 对象转换为 ConfigLayer，缺失或 null 时返回空 layer。
func objectLayer(r gjson.Result, field string) (ConfigLayer, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return ConfigLayer{}, nil
	}
	if !r.IsObject() {
		return nil, configErrorf(field, "must be an object")
	}
	m := map[string]any{}
	if err := util.DecodeJSON([]byte(r.Raw), &m); err != nil {
		return nil, configErrorf(field, "invalid JSON")
	}
	return ConfigLayer(m), nil
}

// rawValue 解码单个 JSON 值，数字保留为 json.Number。
func rawValue(r gjson.Result) any {
	var v any
	if err := util.DecodeJSON([]byte(r.Raw), &v); err != nil {
		return r.Value()
	}
	return v
}

// Rules 返回生效的匹配规则：collection_matchers 优先，否则使用旧格式映射。
func (d *Definition) Rules() (rules []MatchRule, legacy bool) {
	if len(d.MatchRules) > 0 {
		return d.MatchRules, false
	}
	if len(d.LegacyCollections) > 0 {
		return RulesFromLegacy(d.LegacyCollections), true
	}
	return nil, false
}
