package process

import "sort"

// MatcherType 是匹配规则的类型。
type MatcherType string

const (
	MatcherJSONPath MatcherType = "jsonpath"
	MatcherCatchAll MatcherType = "catch_all"
)

// MatchRule 把一个模式绑定到集合名，列表中的位置决定优先级。
type MatchRule struct {
	Type           MatcherType `json:"type"`
	Pattern        string      `json:"pattern,omitempty"`
	CollectionName string      `json:"collection_name"`
}

// LegacyCollection 是已废弃的 upload_options.collections 中的一项。
type LegacyCollection struct {
	Name    string
	Pattern string
}

// LegacyFromMap 把 collection→pattern 映射转换为按集合名排序的列表。
func LegacyFromMap(m map[string]string) []LegacyCollection {
	out := make([]LegacyCollection, 0, len(m))
	for name, pattern := range m {
		out = append(out, LegacyCollection{Name: name, Pattern: pattern})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RulesFromLegacy 把旧格式按原顺序转换为 jsonpath 规则。
func RulesFromLegacy(legacy []LegacyCollection) []MatchRule {
	rules := make([]MatchRule, 0, len(legacy))
	for _, lc := range legacy {
		rules = append(rules, MatchRule{Type: MatcherJSONPath, Pattern: lc.Pattern, CollectionName: lc.Name})
	}
	return rules
}
