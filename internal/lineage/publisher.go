package lineage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stactask/internal/domain"
	"stactask/pkg/item"
	"stactask/pkg/util"
)

// Store 是 Publisher 依赖的图数据库接口，*Client 实现了它。
type Store interface {
	Writer
	RunRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// Publisher 实现 task.Sink，把每次运行写成 TaskRun 节点以及 Item 之间的关系。
type Publisher struct {
	store  Store
	nodes  *NodeUpserter
	rels   *RelUpserter
	now    func() time.Time
	logger *zap.Logger
}

// NewPublisher 创建 Publisher。
func NewPublisher(store Store, batchSize int, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		store:  store,
		nodes:  NewNodeUpserter(store, batchSize),
		rels:   NewRelUpserter(store, batchSize),
		now:    time.Now,
		logger: logger,
	}
}

// Publish 写入一次运行的血缘。
func (p *Publisher) Publish(ctx context.Context, task string, inputs, outputs []item.Item) error {
	now := p.now().UTC()
	runID := fmt.Sprintf("%d", now.UnixNano())
	nodes, rels, err := BuildRows(task, runID, now, inputs, outputs)
	if err != nil {
		return err
	}
	if err := p.nodes.UpsertNodes(ctx, nodes); err != nil {
		return err
	}
	if err := p.rels.UpsertRels(ctx, rels); err != nil {
		return err
	}
	p.logger.Debug("lineage published", zap.String("task", task), zap.String("run_id", runID),
		zap.Int("nodes", len(nodes)), zap.Int("relationships", len(rels)))
	return nil
}

// Ancestors 返回 Item 沿 DERIVED_FROM 能追溯到的所有 Item 的 key。
func (p *Publisher) Ancestors(ctx context.Context, collection, id string) ([]string, error) {
	rows, err := p.store.RunRead(ctx,
		"MATCH (n:"+domain.LabelItem+" {key: $key})-[:"+domain.RelDerivedFrom+"*1..]->(a:"+domain.LabelItem+") RETURN DISTINCT a.key AS key ORDER BY key",
		map[string]any{"key": domain.ItemKey(collection, id)})
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if k, ok := row["key"].(string); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// BuildRows 把一次运行转换为节点与关系。
//
// 输出 Item 的 derived_from 链接指向某个输入的 self 链接时建立 DERIVED_FROM；
// 输出与输入 id 相同但集合不同时同样视为派生。
func BuildRows(task, runID string, now time.Time, inputs, outputs []item.Item) ([]domain.NodeRow, []domain.RelRow, error) {
	var nodes []domain.NodeRow
	var rels []domain.RelRow
	seen := map[string]bool{}
	addNode := func(row domain.NodeRow) {
		if seen[row.Key] {
			return
		}
		seen[row.Key] = true
		nodes = append(nodes, row)
	}
	relProps := map[string]any{"task": task, "run_id": runID}

	runKey := domain.RunKey(task, runID)
	addNode(domain.NodeRow{
		Key:        runKey,
		Labels:     []string{domain.LabelTaskRun},
		Properties: map[string]any{"task": task, "run_id": runID, "inputs": int64(len(inputs)), "outputs": int64(len(outputs))},
		RunID:      runID,
		UpdatedAt:  now,
	})

	bySelf := map[string]string{}
	byID := map[string]string{}
	for _, in := range inputs {
		row, err := itemRow(in, runID, now)
		if err != nil {
			return nil, nil, err
		}
		addNode(row)
		if href, ok := in.SelfHref(); ok {
			bySelf[href] = row.Key
		}
		byID[in.ID] = row.Key
	}

	for _, out := range outputs {
		row, err := itemRow(out, runID, now)
		if err != nil {
			return nil, nil, err
		}
		addNode(row)
		rels = append(rels, domain.RelRow{StartKey: row.Key, EndKey: runKey, Type: domain.RelProducedBy, Properties: relProps, RunID: runID})

		if out.Collection != "" {
			collKey := domain.CollectionKey(out.Collection)
			addNode(domain.NodeRow{
				Key:        collKey,
				Labels:     []string{domain.LabelCollection},
				Properties: map[string]any{"id": out.Collection},
				RunID:      runID,
				UpdatedAt:  now,
			})
			rels = append(rels, domain.RelRow{StartKey: row.Key, EndKey: collKey, Type: domain.RelInCollection, Properties: relProps, RunID: runID})
		}

		parents := map[string]bool{}
		for _, l := range out.Links {
			if l.Rel != "derived_from" {
				continue
			}
			if key, ok := bySelf[l.Href]; ok {
				parents[key] = true
			}
		}
		if key, ok := byID[out.ID]; ok && key != row.Key {
			parents[key] = true
		}
		for _, in := range inputs {
			key := domain.ItemKey(in.Collection, in.ID)
			if parents[key] {
				rels = append(rels, domain.RelRow{StartKey: row.Key, EndKey: key, Type: domain.RelDerivedFrom, Properties: relProps, RunID: runID})
				delete(parents, key)
			}
		}
	}
	return nodes, rels, nil
}

func itemRow(it item.Item, runID string, now time.Time) (domain.NodeRow, error) {
	hash, err := util.HashJSON(it.Properties)
	if err != nil {
		return domain.NodeRow{}, fmt.Errorf("hash item %s: %w", it.ID, err)
	}
	props := map[string]any{
		"id":           it.ID,
		"collection":   it.Collection,
		"content_hash": hash,
		"assets":       int64(len(it.Assets)),
	}
	if ts, ok := it.Datetime(); ok {
		props["datetime"] = ts
	}
	return domain.NodeRow{
		Key:        domain.ItemKey(it.Collection, it.ID),
		Labels:     []string{domain.LabelItem},
		Properties: props,
		RunID:      runID,
		UpdatedAt:  now,
	}, nil
}
