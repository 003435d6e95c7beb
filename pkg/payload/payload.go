// Package payload 读写任务的输入输出：FeatureCollection 加 process 块。
package payload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"stactask/pkg/item"
	"stactask/pkg/process"
	"stactask/pkg/util"
)

const TypeFeatureCollection = "FeatureCollection"

// Payload 是一次运行处理的批次。未声明的字段原样保留。
type Payload struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	Features []item.Item     `json:"features"`
	Process  json.RawMessage `json:"process,omitempty"`
	Href     string          `json:"href,omitempty"`
	Extra    map[string]any  `json:"-"`
}

// Getter 读取间接 payload。
type Getter interface {
	GetBytes(ctx context.Context, path string) ([]byte, error)
}

// Decode 从 r 读取 payload。
func Decode(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return Parse(data)
}

// Parse 解析 payload JSON。
func Parse(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return &p, nil
}

// Encode 把 payload 写到 w。
func (p *Payload) Encode(w io.Writer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func (p Payload) MarshalJSON() ([]byte, error) {
	type plain Payload
	out := plain(p)
	if out.Type == "" {
		out.Type = TypeFeatureCollection
	}
	if out.Features == nil {
		out.Features = []item.Item{}
	}
	return util.MarshalWithExtra(out, p.Extra)
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	type plain Payload
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	extra, err := util.ExtraFields(data, "type", "id", "features", "process", "href")
	if err != nil {
		return err
	}
	out.Extra = extra
	*p = Payload(out)
	return nil
}

// IsIndirect 表示 payload 只有 href，需要从存储中读取实际内容。
func (p *Payload) IsIndirect() bool {
	return p.Href != "" && len(p.Features) == 0
}

// Load 解析 payload，若为间接 payload 则通过 getter 读取一次，不支持多层间接。
func Load(ctx context.Context, data []byte, getter Getter) (*Payload, error) {
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if !p.IsIndirect() {
		return p, nil
	}
	if getter == nil {
		return nil, fmt.Errorf("payload points to %s but no storage is configured", p.Href)
	}
	body, err := getter.GetBytes(ctx, p.Href)
	if err != nil {
		return nil, fmt.Errorf("fetch payload %s: %w", p.Href, err)
	}
	inner, err := Parse(body)
	if err != nil {
		return nil, err
	}
	if inner.IsIndirect() {
		return nil, fmt.Errorf("payload %s is itself indirect", p.Href)
	}
	return inner, nil
}

// ProcessBlock 返回生效的 process 定义原文。
//
// process 为列表时取第一个元素；为对象时 deprecated 为 true；缺失或为空时返回 nil。
func (p *Payload) ProcessBlock() (raw []byte, deprecated bool, err error) {
	trimmed := bytes.TrimSpace(p.Process)
	if len(trimmed) == 0 {
		return nil, false, nil
	}
	r := gjson.ParseBytes(trimmed)
	switch {
	case r.Type == gjson.Null:
		return nil, false, nil
	case r.IsArray():
		first := r.Get("0")
		if !first.Exists() {
			return nil, false, nil
		}
		return []byte(first.Raw), false, nil
	case r.IsObject():
		return trimmed, true, nil
	default:
		return nil, false, &process.ConfigurationError{Field: "process", Msg: "must be a list or an object"}
	}
}

// ProcessDefinition 解析生效的 process 定义。
func (p *Payload) ProcessDefinition() (*process.Definition, error) {
	raw, deprecated, err := p.ProcessBlock()
	if err != nil {
		return nil, err
	}
	def, err := process.Parse(raw)
	if err != nil {
		return nil, err
	}
	if deprecated {
		def.Deprecations = append(def.Deprecations, "process as an object is deprecated, wrap it in a list")
	}
	return def, nil
}
