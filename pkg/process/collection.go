package process

import (
	"fmt"

	"go.uber.org/zap"

	"stactask/pkg/item"
	"stactask/pkg/jsonpath"
)

type compiledRule struct {
	MatchRule
	path *jsonpath.Path
}

// CollectionResolver 按规则顺序为 Item 选择集合，构造后只读，可并发使用。
type CollectionResolver struct {
	rules  []compiledRule
	legacy bool
	logger *zap.Logger
}

// CollectionOption 定制 CollectionResolver。
type CollectionOption func(*CollectionResolver)

// WithLegacyMap 标记规则来自旧格式映射，多个模式同时命中时记录告警。
func WithLegacyMap() CollectionOption {
	return func(r *CollectionResolver) { r.legacy = true }
}

// WithCollectionLogger 设置告警日志。
func WithCollectionLogger(logger *zap.Logger) CollectionOption {
	return func(r *CollectionResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewCollectionResolver 编译所有模式，语法错误在这里返回。
func NewCollectionResolver(rules []MatchRule, opts ...CollectionOption) (*CollectionResolver, error) {
	r := &CollectionResolver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.rules = make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		field := fmt.Sprintf("collection_matchers[%d]", i)
		cr := compiledRule{MatchRule: rule}
		switch rule.Type {
		case MatcherCatchAll:
		case MatcherJSONPath:
			if rule.Pattern == "" {
				return nil, configErrorf(field, "jsonpath matcher requires a pattern")
			}
			p, err := compilePattern(field+".pattern", rule.Pattern)
			if err != nil {
				return nil, err
			}
			cr.path = p
		default:
			return nil, configErrorf(field, "unknown matcher type %q", rule.Type)
		}
		r.rules = append(r.rules, cr)
	}
	return r, nil
}

// Empty 表示没有任何规则。
func (r *CollectionResolver) Empty() bool { return r == nil || len(r.rules) == 0 }

// Rules 返回规则副本。
func (r *CollectionResolver) Rules() []MatchRule {
	if r == nil {
		return nil
	}
	out := make([]MatchRule, len(r.rules))
	for i, cr := range r.rules {
		out[i] = cr.MatchRule
	}
	return out
}

// Resolve 返回第一个命中规则的集合名，catch_all 之后的规则不会被检查。
func (r *CollectionResolver) Resolve(it *item.Item) (string, bool, error) {
	if r.Empty() || it == nil {
		return "", false, nil
	}
	tree, err := it.Tree()
	if err != nil {
		return "", false, err
	}
	doc := []any{tree}
	for i, cr := range r.rules {
		if cr.Type == MatcherCatchAll {
			return cr.CollectionName, true, nil
		}
		if len(cr.path.Find(doc)) != 1 {
			continue
		}
		if r.legacy {
			r.warnAmbiguous(it.ID, cr.CollectionName, r.rules[i+1:], doc)
		}
		return cr.CollectionName, true, nil
	}
	return "", false, nil
}

func (r *CollectionResolver) warnAmbiguous(id, chosen string, rest []compiledRule, doc []any) {
	var others []string
	for _, cr := range rest {
		if cr.path != nil && len(cr.path.Find(doc)) == 1 {
			others = append(others, cr.CollectionName)
		}
	}
	if len(others) == 0 {
		return
	}
	r.logger.Warn("item matches multiple legacy collections, using the first in document order",
		zap.String("item", id),
		zap.String("collection", chosen),
		zap.Strings("also_matched", others))
}

// AssignCollections 原地为每个 Item 设置集合，未命中的 Item 保持不变。
func (r *CollectionResolver) AssignCollections(items []item.Item) error {
	for i := range items {
		name, ok, err := r.Resolve(&items[i])
		if err != nil {
			return fmt.Errorf("resolve collection for item %s: %w", items[i].ID, err)
		}
		if ok {
			items[i].Collection = name
		}
	}
	return nil
}
