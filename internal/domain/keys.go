package domain

import (
	"fmt"
	"sort"
	"strings"
)

const (
	LabelItem       = "StacItem"
	LabelCollection = "StacCollection"
	LabelTaskRun    = "TaskRun"

	RelInCollection = "IN_COLLECTION"
	RelDerivedFrom  = "DERIVED_FROM"
	RelProducedBy   = "PRODUCED_BY"
)

const (
	PrefixItem       = "ITEM"
	PrefixCollection = "COLL"
	PrefixRun        = "RUN"
)

// MakeKey 统一生成节点 key，带上前缀以避免不同实体冲突。
func MakeKey(prefix string, parts ...string) string {
	return prefix + "_" + strings.Join(parts, "/")
}

// ItemKey 以集合和 id 标识 Item，未分配集合的 Item 使用 "-"。
func ItemKey(collection, id string) string {
	if collection == "" {
		collection = "-"
	}
	return MakeKey(PrefixItem, collection, id)
}

// CollectionKey 生成集合节点 key。
func CollectionKey(name string) string {
	return MakeKey(PrefixCollection, name)
}

// RunKey 生成任务运行节点 key。
func RunKey(task, runID string) string {
	return MakeKey(PrefixRun, task, runID)
}

// LabelPattern 根据标签集合拼成 Cypher 模板所需的字符串，如 ":A:B"。
func LabelPattern(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return ":" + JoinLabels(labels)
}

// JoinLabels 排序后拼接标签，用作分组 key。
func JoinLabels(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, ":")
}

// RelPattern 生成关系类型模式，如 ":DERIVED_FROM"。
func RelPattern(relType string) string {
	return fmt.Sprintf(":%s", relType)
}
