package ioc

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"stactask/internal/app"
	"stactask/internal/lineage"
	"stactask/pkg/task"
)

// InitLineagePublisher 在配置了 Neo4j 时返回血缘发布器，否则返回 nil。
func InitLineagePublisher(ctx context.Context, cfg app.Config, logger *zap.Logger) (*lineage.Publisher, func(), error) {
	if strings.TrimSpace(cfg.Neo4j.URI) == "" {
		logger.Info("neo4j not configured, lineage disabled")
		return nil, func() {}, nil
	}
	client, err := lineage.NewClient(ctx, lineage.Config{
		URI:                  cfg.Neo4j.URI,
		Username:             cfg.Neo4j.Username,
		Password:             cfg.Neo4j.Password,
		Database:             cfg.Neo4j.Database,
		MaxConnectionPool:    cfg.Neo4j.MaxConnectionPool,
		ConnectionTimeoutSec: cfg.Neo4j.ConnectTimeoutSecond,
	}, logger.Named("neo4j"))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("close neo4j failed", zap.Error(err))
		}
	}
	if err := lineage.NewSchemaManager(client).Ensure(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return lineage.NewPublisher(client, cfg.Neo4j.BatchSize, logger.Named("lineage")), cleanup, nil
}

// InitLineageSinks 把血缘发布器作为运行 sink，未启用时返回空列表。
func InitLineageSinks(p *lineage.Publisher) []task.Sink {
	if p == nil {
		return nil
	}
	return []task.Sink{p}
}

// InitLineageReader 提供血缘查询，未启用时返回 nil。
func InitLineageReader(p *lineage.Publisher) app.LineageReader {
	if p == nil {
		return nil
	}
	return p
}
