// Package item 定义 STAC Item 数据模型。
//
// 未在结构体中声明的字段保存在 Extra 中并原样写回，保证 catalog-in / catalog-out 不丢数据。
package item

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"stactask/pkg/util"
)

const (
	TypeFeature        = "Feature"
	DefaultSTACVersion = "1.0.0"

	ProcessingExtension = "https://stac-extensions.github.io/processing/v1.1.0/schema.json"
	ProcessingSoftware  = "processing:software"
)

// Link 描述与其他资源的关系。
type Link struct {
	Href  string         `json:"href"`
	Rel   string         `json:"rel"`
	Type  string         `json:"type,omitempty"`
	Title string         `json:"title,omitempty"`
	Extra map[string]any `json:"-"`
}

// Asset 描述 Item 关联的数据文件。
type Asset struct {
	Href        string         `json:"href"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type,omitempty"`
	Roles       []string       `json:"roles,omitempty"`
	Extra       map[string]any `json:"-"`
}

// Item 是一条 STAC Item。Collection 为空表示尚未分配。
type Item struct {
	Type           string           `json:"type"`
	StacVersion    string           `json:"stac_version,omitempty"`
	StacExtensions []string         `json:"stac_extensions,omitempty"`
	ID             string           `json:"id"`
	Collection     string           `json:"collection,omitempty"`
	Geometry       any              `json:"geometry"`
	BBox           []float64        `json:"bbox,omitempty"`
	Properties     map[string]any   `json:"properties"`
	Links          []Link           `json:"links"`
	Assets         map[string]Asset `json:"assets"`
	Extra          map[string]any   `json:"-"`
}

// New 创建一个只有 id 的空 Item。
func New(id string) Item {
	return Item{
		Type:        TypeFeature,
		StacVersion: DefaultSTACVersion,
		ID:          id,
		Properties:  map[string]any{},
		Links:       []Link{},
		Assets:      map[string]Asset{},
	}
}

func (it Item) MarshalJSON() ([]byte, error) {
	type plain Item
	p := plain(it)
	if p.Type == "" {
		p.Type = TypeFeature
	}
	if p.Properties == nil {
		p.Properties = map[string]any{}
	}
	if p.Links == nil {
		p.Links = []Link{}
	}
	if p.Assets == nil {
		p.Assets = map[string]Asset{}
	}
	return util.MarshalWithExtra(p, it.Extra)
}

func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var p plain
	if err := util.DecodeJSON(data, &p); err != nil {
		return err
	}
	extra, err := util.ExtraFields(data, "type", "stac_version", "stac_extensions", "id", "collection",
		"geometry", "bbox", "properties", "links", "assets")
	if err != nil {
		return err
	}
	p.Extra = extra
	*it = Item(p)
	return nil
}

func (l Link) MarshalJSON() ([]byte, error) {
	type plain Link
	return util.MarshalWithExtra(plain(l), l.Extra)
}

func (l *Link) UnmarshalJSON(data []byte) error {
	type plain Link
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := util.ExtraFields(data, "href", "rel", "type", "title")
	if err != nil {
		return err
	}
	p.Extra = extra
	*l = Link(p)
	return nil
}

func (a Asset) MarshalJSON() ([]byte, error) {
	type plain Asset
	return util.MarshalWithExtra(plain(a), a.Extra)
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	type plain Asset
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := util.ExtraFields(data, "href", "title", "description", "type", "roles")
	if err != nil {
		return err
	}
	p.Extra = extra
	*a = Asset(p)
	return nil
}

// Clone 返回深拷贝。
func (it Item) Clone() (Item, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return Item{}, fmt.Errorf("clone item %s: %w", it.ID, err)
	}
	var out Item
	if err := json.Unmarshal(data, &out); err != nil {
		return Item{}, fmt.Errorf("clone item %s: %w", it.ID, err)
	}
	return out, nil
}

// Tree 返回 Item 序列化后的通用 JSON 结构，供 JSONPath 求值使用。
func (it Item) Tree() (map[string]any, error) {
	data, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("serialize item %s: %w", it.ID, err)
	}
	var tree map[string]any
	if err := util.DecodeJSON(data, &tree); err != nil {
		return nil, fmt.Errorf("serialize item %s: %w", it.ID, err)
	}
	return tree, nil
}

// Datetime 返回 properties.datetime，缺失时退回 start_datetime。
func (it Item) Datetime() (time.Time, bool) {
	for _, key := range []string{"datetime", "start_datetime"} {
		raw, ok := it.Properties[key].(string)
		if !ok || raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// AddExtension 添加扩展 schema，已存在时忽略。
func (it *Item) AddExtension(uri string) {
	for _, ext := range it.StacExtensions {
		if ext == uri {
			return
		}
	}
	it.StacExtensions = append(it.StacExtensions, uri)
	sort.Strings(it.StacExtensions)
}

// SetSoftwareVersion 写入 processing:software，记录生成该 Item 的任务及版本。
func (it *Item) SetSoftwareVersion(name, version string) {
	it.AddExtension(ProcessingExtension)
	if it.Properties == nil {
		it.Properties = map[string]any{}
	}
	it.Properties[ProcessingSoftware] = map[string]any{name: version}
}

// SelfHref 返回 rel=self 的链接地址。
func (it Item) SelfHref() (string, bool) {
	for _, l := range it.Links {
		if l.Rel == "self" {
			return l.Href, true
		}
	}
	return "", false
}

// DeriveFrom 基于 src 创建派生 Item，并在 src 有 self 链接时追加 derived_from 链接。
func DeriveFrom(src Item) (Item, error) {
	out, err := src.Clone()
	if err != nil {
		return Item{}, err
	}
	links := make([]Link, 0, len(out.Links)+1)
	for _, l := range out.Links {
		if l.Rel == "self" {
			continue
		}
		links = append(links, l)
	}
	if href, ok := src.SelfHref(); ok {
		links = append(links, Link{
			Href:  href,
			Rel:   "derived_from",
			Type:  "application/json",
			Title: "Source STAC Item",
		})
	}
	out.Links = links
	return out, nil
}
