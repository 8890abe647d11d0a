package db2z

import (
	"context"
	"time"

	"github.com/hatlonely/db2z/rdb"
	"golang.org/x/sync/errgroup"
)

// CreateTable 先建表，再依次创建索引，任何一步失败即返回
func (c *Connector) CreateTable(ctx context.Context, model string) error {
	m, err := c.lookup("CreateTable", model)
	if err != nil {
		return err
	}
	return c.createTable(ctx, m)
}

func (c *Connector) createTable(ctx context.Context, m *rdb.ModelDefinition) error {
	stmts := append([]string{c.builder.CreateTable(m)}, c.builder.Indexes(m)...)
	return c.ddl(ctx, m.Name, stmts)
}

func (c *Connector) DropTable(ctx context.Context, model string) error {
	m, err := c.lookup("DropTable", model)
	if err != nil {
		return err
	}
	return c.ddl(ctx, m.Name, []string{c.builder.DropTable(m)})
}

// Introspect 查询模型对应的表在目录中的列和索引
func (c *Connector) Introspect(ctx context.Context, model string) (*TableStatus, error) {
	m, err := c.lookup("Introspect", model)
	if err != nil {
		return nil, err
	}
	return c.introspector.Introspect(ctx, m.TableName())
}

// Resync 删除并重建表，models 为空时处理所有已注册模型
// 表已存在时总是先删除，不做原地修改
// 各模型独立处理，单个模型失败不影响其他模型
func (c *Connector) Resync(ctx context.Context, models ...string) (rdb.BatchResult, error) {
	results := c.forEach(ctx, "Resync", models, func(ctx context.Context, i int, name string) error {
		m, err := c.lookup("Resync", name)
		if err != nil {
			return err
		}
		status, err := c.introspector.Introspect(ctx, m.TableName())
		if err != nil {
			return err
		}
		if status.Exists() {
			if err := c.ddl(ctx, m.Name, []string{c.builder.DropTable(m)}); err != nil {
				return err
			}
		}
		return c.createTable(ctx, m)
	})
	return results, results.Err()
}

// ReconcileIncrementally 计算每个模型的增量 DDL，不执行
// 返回的计划与去重后的请求顺序一致，失败模型对应的计划为 nil
func (c *Connector) ReconcileIncrementally(ctx context.Context, models ...string) ([]*Plan, error) {
	models = uniqueModels(models, c.registry.Names)
	plans := make([]*Plan, len(models))
	results := c.forEach(ctx, "ReconcileIncrementally", models, func(ctx context.Context, i int, name string) error {
		plan, err := c.plan(ctx, name)
		if err != nil {
			return err
		}
		plans[i] = plan
		return nil
	})
	return plans, results.Err()
}

func (c *Connector) plan(ctx context.Context, name string) (*Plan, error) {
	m, err := c.lookup("ReconcileIncrementally", name)
	if err != nil {
		return nil, err
	}
	status, err := c.introspector.Introspect(ctx, m.TableName())
	if err != nil {
		return nil, err
	}
	return Diff(c.builder.Schema(), m, status.Columns, status.Indexes), nil
}

// ApplyPlan 按顺序执行计划中的语句，表不存在时直接建表
func (c *Connector) ApplyPlan(ctx context.Context, plan *Plan) error {
	if plan == nil {
		return rdb.NewValidationError("ApplyPlan", "", "plan is nil")
	}
	m, err := c.lookup("ApplyPlan", plan.Model)
	if err != nil {
		return err
	}
	if !plan.TableExists {
		return c.createTable(ctx, m)
	}
	bound := *plan
	bound.builder, bound.model = c.builder, m
	return c.ddl(ctx, m.Name, bound.Statements())
}

// IsActual 所有模型的表都存在且与模型一致
func (c *Connector) IsActual(ctx context.Context, models ...string) (bool, error) {
	plans, err := c.ReconcileIncrementally(ctx, models...)
	if err != nil {
		return false, err
	}
	for _, plan := range plans {
		if !plan.TableExists || !plan.Empty() {
			return false, nil
		}
	}
	return true, nil
}

// ShowFields 不支持
func (c *Connector) ShowFields(ctx context.Context, model string) ([]ActualColumn, error) {
	return nil, rdb.NewUnsupportedError("ShowFields")
}

// ShowIndexes 不支持
func (c *Connector) ShowIndexes(ctx context.Context, model string) ([]ActualIndex, error) {
	return nil, rdb.NewUnsupportedError("ShowIndexes")
}

// ApplySQLChanges 不支持
func (c *Connector) ApplySQLChanges(ctx context.Context, model string, changes []string) error {
	return rdb.NewUnsupportedError("ApplySQLChanges")
}

// uniqueModels 去掉重复的模型名并保持首次出现的顺序，为空时取所有已注册模型
// 同一张表不会被两个并发任务同时处理
func uniqueModels(models []string, all func() []string) []string {
	if len(models) == 0 {
		return all()
	}
	seen := make(map[string]bool, len(models))
	unique := make([]string, 0, len(models))
	for _, name := range models {
		if seen[name] {
			continue
		}
		seen[name] = true
		unique = append(unique, name)
	}
	return unique
}

// forEach 以 Concurrency 为上限并发处理每个模型，结果按请求顺序排列
// 单个模型的失败只记录在结果中，不会取消其他模型
func (c *Connector) forEach(ctx context.Context, op string, models []string, fn func(ctx context.Context, i int, name string) error) rdb.BatchResult {
	models = uniqueModels(models, c.registry.Names)
	start := time.Now()
	results := make(rdb.BatchResult, len(models))

	var g errgroup.Group
	g.SetLimit(c.options.Concurrency)
	for i, name := range models {
		i, name := i, name
		g.Go(func() error {
			results[i] = rdb.ModelResult{Model: name, Err: fn(ctx, i, name)}
			return nil
		})
	}
	_ = g.Wait()

	failed := results.Failed()
	if len(failed) > 0 {
		c.logger.ErrorContext(ctx, "batch completed with failures", "operation", op, "models", len(results), "failed", len(failed), "duration_ms", time.Since(start).Milliseconds())
	} else {
		c.logger.InfoContext(ctx, "batch completed", "operation", op, "models", len(results), "duration_ms", time.Since(start).Milliseconds())
	}
	return results
}
