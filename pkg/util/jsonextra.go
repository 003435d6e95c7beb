package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExtraFields 收集 JSON 对象中 known 之外的字段，没有时返回 nil。
func ExtraFields(data []byte, known ...string) (map[string]any, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := DecodeJSON(v, &val); err != nil {
			return nil, err
		}
		extra[k] = val
	}
	return extra, nil
}

// DecodeJSON 反序列化 data，数字保留为 json.Number 以免大整数丢失精度。
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("JSON 之后存在多余内容")
	}
	return nil
}

// MarshalWithExtra 序列化 v 后合并 extra，已声明字段优先。
func MarshalWithExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, exists := merged[k]; exists {
			continue
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		merged[k] = encoded
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(merged); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
