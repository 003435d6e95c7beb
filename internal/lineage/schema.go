package lineage

import (
	"context"
	"fmt"

	"stactask/internal/cypher"
)

// RawRunner 执行不需要事务函数包装的语句。
type RawRunner interface {
	RunRaw(ctx context.Context, query string, params map[string]any) error
}

// SchemaManager 负责初始化约束和索引。
type SchemaManager struct {
	client RawRunner
}

func NewSchemaManager(client RawRunner) *SchemaManager {
	return &SchemaManager{client: client}
}

// Ensure 执行 init_schema.cql 中的所有语句，语句均为幂等。
func (m *SchemaManager) Ensure(ctx context.Context) error {
	stmts, err := cypher.Statements("init_schema.cql")
	if err != nil {
		return err
	}
	for _, query := range stmts {
		if err := m.client.RunRaw(ctx, query, nil); err != nil {
			return fmt.Errorf("执行 schema 语句失败: %w", err)
		}
	}
	return nil
}
