package process

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// ConfigLayer 是一层扁平的配置项。
type ConfigLayer map[string]any

// Merge 按优先级从低到高依次覆盖，返回新的 layer。
//
// 只覆盖顶层 key：两层都存在的嵌套对象整体替换，不做深度合并。
// 返回值是深拷贝，调用方可以随意修改。
func Merge(layers ...ConfigLayer) ConfigLayer {
	out := ConfigLayer{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = cloneValue(v)
		}
	}
	return out
}

// Clone 返回深拷贝。
func (l ConfigLayer) Clone() ConfigLayer {
	if l == nil {
		return nil
	}
	return Merge(l)
}

// Decode 把 layer 解码到结构体，字段名使用 json tag。
func (l ConfigLayer) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(jsonNumberHook, mapstructure.StringToTimeDurationHookFunc()),
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(l)); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}

// jsonNumberHook 把 json.Number 转成数值，目标为字符串或 any 时保持原样。
func jsonNumberHook(_ reflect.Type, t reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok || t.Kind() == reflect.String || t.Kind() == reflect.Interface {
		return data, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	return n.Float64()
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case ConfigLayer:
		return ConfigLayer(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, val := range t {
			m[k] = val
		}
		return m
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
