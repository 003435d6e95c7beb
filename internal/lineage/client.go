// Package lineage 把任务运行的输入输出写入 Neo4j，记录 Item 的派生关系与集合归属。
package lineage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Config 控制 Neo4j 连接参数。
type Config struct {
	URI                  string
	Username             string
	Password             string
	Database             string
	MaxConnectionPool    int
	ConnectionTimeoutSec int
}

func (cfg Config) apply(c *neo4j.Config) {
	if cfg.MaxConnectionPool > 0 {
		c.MaxConnectionPoolSize = cfg.MaxConnectionPool
	}
	if cfg.ConnectionTimeoutSec > 0 {
		c.SocketConnectTimeout = time.Duration(cfg.ConnectionTimeoutSec) * time.Second
	}
}

// Client 提供血缘图需要的读写接口，Publisher 与 SchemaManager 通过接口依赖它。
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewClient 创建一个新的 Neo4j 客户端并验证连通性。
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j uri 不能为空")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""), cfg.apply)
	if err != nil {
		return nil, fmt.Errorf("创建 neo4j driver 失败: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j 无法连通 %s: %w", cfg.URI, err)
	}
	logger.Info("neo4j connected", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return &Client{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Close 关闭连接。
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.driver == nil {
		return nil
	}
	c.logger.Info("neo4j connection closed")
	return c.driver.Close(ctx)
}

func (c *Client) queryOptions(read bool) []neo4j.ExecuteQueryConfigurationOption {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithDatabase(c.database)}
	if read {
		opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
	}
	return opts
}

// RunWrite 在托管写事务中执行语句，失败时由驱动按可重试错误自动重试。
func (c *Client) RunWrite(ctx context.Context, query string, params map[string]any) error {
	start := time.Now()
	res, err := neo4j.ExecuteQuery(ctx, c.driver, query, params, neo4j.EagerResultTransformer, c.queryOptions(false)...)
	if err != nil {
		return fmt.Errorf("执行写入失败: %w", err)
	}
	counters := res.Summary.Counters()
	c.logger.Debug("neo4j write",
		zap.Int("nodes_created", counters.NodesCreated()),
		zap.Int("relationships_created", counters.RelationshipsCreated()),
		zap.Int("properties_set", counters.PropertiesSet()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// RunRead 在读路由上执行查询，返回每条记录的 key/value。
func (c *Client) RunRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	res, err := neo4j.ExecuteQuery(ctx, c.driver, query, params, neo4j.EagerResultTransformer, c.queryOptions(true)...)
	if err != nil {
		return nil, fmt.Errorf("执行查询失败: %w", err)
	}
	rows := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		rows = append(rows, rec.AsMap())
	}
	return rows, nil
}

// RunRaw 以自动提交事务执行语句，schema 语句不能放在托管事务中。
func (c *Client) RunRaw(ctx context.Context, query string, params map[string]any) error {
	sess := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database, AccessMode: neo4j.AccessModeWrite})
	defer sess.Close(ctx)
	res, err := sess.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("执行语句失败: %w", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("执行语句失败: %w", err)
	}
	return nil
}
