package driver

import (
	"context"
	"strings"

	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*SQLDriver](NewSQLDriverWithOptions)
	ref.MustRegisterT[*ObservableDriver](NewObservableDriverWithOptions)
}

// Row 结果集中的一行，key 为驱动返回的列名
type Row map[string]any

// Get 按列名取值，精确匹配失败时忽略大小写
func (r Row) Get(column string) (any, bool) {
	if v, ok := r[column]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

// ExecuteOptions 执行选项
type ExecuteOptions struct {
	// NoResultSet 语句不返回结果集，例如 DDL
	NoResultSet bool
}

// Executor 执行带位置参数的 SQL
type Executor interface {
	Execute(ctx context.Context, sql string, params []any, opts *ExecuteOptions) ([]Row, error)
}

// Connection 独占的数据库连接，事务在其上进行
type Connection interface {
	Executor
	// SetIsolationLevel 设置下一个事务的隔离级别代码：1 RU, 2 RC, 4 RR, 8 SER
	SetIsolationLevel(ctx context.Context, code int) error
	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	Close() error
}

// Driver 数据库驱动，自身可以直接执行语句，也可以打开独占连接
type Driver interface {
	Executor
	Open(ctx context.Context, connStr string) (Connection, error)
	Close() error
}

// 隔离级别代码
const (
	IsolationReadUncommitted = 1
	IsolationReadCommitted   = 2
	IsolationRepeatableRead  = 4
	IsolationSerializable    = 8
)

func NewDriverWithOptions(options *ref.TypeOptions) (Driver, error) {
	if options == nil {
		return nil, errors.New("driver options is nil")
	}
	obj, err := ref.New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.New failed")
	}
	d, ok := obj.(Driver)
	if !ok {
		return nil, errors.Errorf("%s is not a Driver", options.Type)
	}
	return d, nil
}
