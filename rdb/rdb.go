package rdb

import (
	"context"

	"github.com/hatlonely/db2z/rdb/driver"
	"github.com/hatlonely/db2z/rdb/query"
)

// IsolationLevel 抽象的事务隔离级别，空值表示使用驱动默认值
type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "READ UNCOMMITTED"
	ReadCommitted   IsolationLevel = "READ COMMITTED"
	RepeatableRead  IsolationLevel = "REPEATABLE READ"
	Serializable    IsolationLevel = "SERIALIZABLE"
)

// UpdateResult 更新或删除命中的行数
type UpdateResult struct {
	Count int
}

// MutationOptions 写操作选项
type MutationOptions struct {
	// Executor 不为空时语句在该执行器上执行，例如事务持有的连接
	Executor driver.Executor
}

type MutationOption func(*MutationOptions)

// WithExecutor 指定执行语句的执行器
func WithExecutor(executor driver.Executor) MutationOption {
	return func(o *MutationOptions) {
		o.Executor = executor
	}
}

// StatementBuilder 把抽象操作渲染为方言 SQL，不做任何 I/O
type StatementBuilder interface {
	CreateTable(m *ModelDefinition) string
	CreateIndex(m *ModelDefinition, name, column, indexType string) string
	CreateCompositeIndex(m *ModelDefinition, name string, columns []string, indexType string) string
	AlterTable(m *ModelDefinition, clauses []string) string
	DropTable(m *ModelDefinition) string

	Insert(m *ModelDefinition, data map[string]any) (string, []any, error)
	InsertReturning(m *ModelDefinition, data map[string]any) (string, []any, error)
	UpdateReturning(m *ModelDefinition, where query.Query, data map[string]any) (string, []any, error)
	DeleteReturning(m *ModelDefinition, where query.Query) (string, []any, error)
	Replace(m *ModelDefinition, where query.Query, data map[string]any) (string, []any, error)
}

// SchemaReconciler 建表、删表以及让线上表结构与模型一致
// P 为方言的 DDL 计划类型
type SchemaReconciler[P any] interface {
	CreateTable(ctx context.Context, model string) error
	DropTable(ctx context.Context, model string) error
	// Resync 删除并重建表，models 为空时处理所有已注册模型
	Resync(ctx context.Context, models ...string) (BatchResult, error)
	// ReconcileIncrementally 只计算增量 DDL，不执行
	ReconcileIncrementally(ctx context.Context, models ...string) ([]P, error)
	ApplyPlan(ctx context.Context, plan P) error
	IsActual(ctx context.Context, models ...string) (bool, error)
}

// MutationExecutor 写操作，生成的标识和影响行数在同一条语句中返回
type MutationExecutor interface {
	Create(ctx context.Context, model string, data map[string]any, opts ...MutationOption) (any, error)
	Update(ctx context.Context, model string, where query.Query, data map[string]any, opts ...MutationOption) (UpdateResult, error)
	DestroyAll(ctx context.Context, model string, where query.Query, opts ...MutationOption) (UpdateResult, error)
	Replace(ctx context.Context, model string, where query.Query, data map[string]any, opts ...MutationOption) (UpdateResult, error)
}

// TransactionCoordinator 事务的开始、提交和回滚，T 为事务句柄类型
type TransactionCoordinator[T any] interface {
	BeginTransaction(ctx context.Context, level IsolationLevel) (T, error)
	Commit(ctx context.Context, tx T) error
	Rollback(ctx context.Context, tx T) error
}
