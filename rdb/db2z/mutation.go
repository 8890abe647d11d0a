package db2z

import (
	"context"

	"github.com/hatlonely/db2z/rdb"
	"github.com/hatlonely/db2z/rdb/driver"
	"github.com/hatlonely/db2z/rdb/query"
	"github.com/pkg/errors"
)

func (c *Connector) executor(opts []rdb.MutationOption) driver.Executor {
	var options rdb.MutationOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Executor != nil {
		return options.Executor
	}
	return c.driver
}

// Create 插入一行并返回标识
// 数据中已有标识时直接插入并返回该标识，否则从 FINAL TABLE 中取回生成的标识
func (c *Connector) Create(ctx context.Context, model string, data map[string]any, opts ...rdb.MutationOption) (any, error) {
	m, err := c.lookup("Create", model)
	if err != nil {
		return nil, err
	}
	executor := c.executor(opts)

	if id, ok := IDValue(m, data); ok {
		sql, params, err := c.builder.Insert(m, data)
		if err != nil {
			return nil, err
		}
		if _, err := c.execute(ctx, executor, m.Name, sql, params, &driver.ExecuteOptions{NoResultSet: true}); err != nil {
			return nil, err
		}
		return id, nil
	}

	sql, params, err := c.builder.InsertReturning(m, data)
	if err != nil {
		return nil, err
	}
	rows, err := c.execute(ctx, executor, m.Name, sql, params, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.WithMessagef(rdb.ErrNoRowsReturned, "create %s", m.Name)
	}
	id, ok := rows[0].Get(m.IDColumn())
	if !ok {
		return nil, errors.WithMessagef(rdb.ErrNoRowsReturned, "create %s: column %s missing from result", m.Name, m.IDColumn())
	}
	return id, nil
}

// Update 更新匹配的行，Count 为 FINAL TABLE 返回的行数
func (c *Connector) Update(ctx context.Context, model string, where query.Query, data map[string]any, opts ...rdb.MutationOption) (rdb.UpdateResult, error) {
	m, err := c.lookup("Update", model)
	if err != nil {
		return rdb.UpdateResult{}, err
	}
	sql, params, err := c.builder.UpdateReturning(m, where, data)
	if err != nil {
		return rdb.UpdateResult{}, err
	}
	rows, err := c.execute(ctx, c.executor(opts), m.Name, sql, params, nil)
	if err != nil {
		return rdb.UpdateResult{}, err
	}
	return rdb.UpdateResult{Count: len(rows)}, nil
}

// DestroyAll 删除匹配的行，Count 为 OLD TABLE 返回的行数
func (c *Connector) DestroyAll(ctx context.Context, model string, where query.Query, opts ...rdb.MutationOption) (rdb.UpdateResult, error) {
	m, err := c.lookup("DestroyAll", model)
	if err != nil {
		return rdb.UpdateResult{}, err
	}
	sql, params, err := c.builder.DeleteReturning(m, where)
	if err != nil {
		return rdb.UpdateResult{}, err
	}
	rows, err := c.execute(ctx, c.executor(opts), m.Name, sql, params, nil)
	if err != nil {
		return rdb.UpdateResult{}, err
	}
	return rdb.UpdateResult{Count: len(rows)}, nil
}

// Replace 不支持，立即返回错误
func (c *Connector) Replace(ctx context.Context, model string, where query.Query, data map[string]any, opts ...rdb.MutationOption) (rdb.UpdateResult, error) {
	return rdb.UpdateResult{}, rdb.NewUnsupportedError("Replace")
}
