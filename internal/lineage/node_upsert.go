package lineage

import (
	"context"
	"fmt"

	"stactask/internal/cypher"
	"stactask/internal/domain"
	"stactask/pkg/util"
)

// Writer 是 upsert 依赖的写接口。
type Writer interface {
	RunWrite(ctx context.Context, query string, params map[string]any) error
}

// NodeUpserter 负责批量写入节点，按标签组合分组。
type NodeUpserter struct {
	client    Writer
	batchSize int
}

// NewNodeUpserter 创建节点 upsert 器。
func NewNodeUpserter(client Writer, batchSize int) *NodeUpserter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &NodeUpserter{client: client, batchSize: batchSize}
}

// UpsertNodes 写入节点，已存在时合并属性。
func (u *NodeUpserter) UpsertNodes(ctx context.Context, rows []domain.NodeRow) error {
	if len(rows) == 0 {
		return nil
	}
	order, grouped := groupOrdered(rows, func(row domain.NodeRow) string { return domain.JoinLabels(row.Labels) })
	for _, key := range order {
		group := grouped[key]
		query := cypher.MustTemplate("upsert_nodes.cql", map[string]string{"LabelPattern": domain.LabelPattern(group[0].Labels)})
		for _, chunk := range util.Batch(group, u.batchSize) {
			params := map[string]any{"rows": toNodeParameters(chunk)}
			if err := u.client.RunWrite(ctx, query, params); err != nil {
				return fmt.Errorf("写入节点失败 labels=%s: %w", key, err)
			}
		}
	}
	return nil
}

func toNodeParameters(rows []domain.NodeRow) []map[string]any {
	res := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		res = append(res, map[string]any{
			"key":        row.Key,
			"properties": row.Properties,
			"run_id":     row.RunID,
			"updated_at": row.UpdatedAt,
		})
	}
	return res
}

// groupOrdered 按 key 分组，order 为 key 首次出现的顺序。
func groupOrdered[T any](rows []T, key func(T) string) ([]string, map[string][]T) {
	grouped := make(map[string][]T)
	var order []string
	for _, row := range rows {
		k := key(row)
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], row)
	}
	return order, grouped
}
