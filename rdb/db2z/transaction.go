package db2z

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hatlonely/db2z/rdb"
	"github.com/hatlonely/db2z/rdb/driver"
)

// TransactionState 事务状态
type TransactionState int

const (
	TransactionIdle TransactionState = iota
	TransactionActive
	TransactionCommitted
	TransactionRolledBack
	// TransactionFailed 提交或回滚在驱动层失败，连接已关闭
	TransactionFailed
)

func (s TransactionState) String() string {
	switch s {
	case TransactionActive:
		return "ACTIVE"
	case TransactionCommitted:
		return "COMMITTED"
	case TransactionRolledBack:
		return "ROLLED_BACK"
	case TransactionFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

var isolationCodes = map[rdb.IsolationLevel]int{
	rdb.ReadUncommitted: driver.IsolationReadUncommitted,
	rdb.ReadCommitted:   driver.IsolationReadCommitted,
	rdb.RepeatableRead:  driver.IsolationRepeatableRead,
	rdb.Serializable:    driver.IsolationSerializable,
}

// Transaction 独占一个连接的事务句柄，只能被提交或回滚一次
// 语句执行和提交回滚在 mu 下串行，提交不会在执行中的语句返回前关闭连接
type Transaction struct {
	ID        string
	Isolation rdb.IsolationLevel

	mu    sync.Mutex
	conn  driver.Connection
	state TransactionState
}

func (tx *Transaction) State() TransactionState {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// Execute 在事务的连接上执行语句
func (tx *Transaction) Execute(ctx context.Context, sql string, params []any, opts *driver.ExecuteOptions) ([]driver.Row, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != TransactionActive {
		return nil, rdb.ErrTransactionDone
	}
	return tx.conn.Execute(ctx, sql, params, opts)
}

// WithTransaction 写操作在事务的连接上执行
func WithTransaction(tx *Transaction) rdb.MutationOption {
	return rdb.WithExecutor(tx)
}

// isolationCode 空级别返回 ok=false，表示使用驱动默认值
func (c *Connector) isolationCode(level rdb.IsolationLevel) (int, bool, error) {
	normalized := rdb.IsolationLevel(strings.ToUpper(strings.TrimSpace(string(level))))
	if normalized == "" {
		return 0, false, nil
	}
	code, ok := isolationCodes[normalized]
	if !ok {
		return 0, false, rdb.NewInvalidIsolationLevelError(string(level))
	}
	if c.options.StrictIsolation && normalized != rdb.ReadCommitted && normalized != rdb.Serializable {
		return 0, false, rdb.NewInvalidIsolationLevelError(string(level))
	}
	return code, true, nil
}

// BeginTransaction 校验隔离级别后打开新连接、设置隔离级别并开始事务
// 打开连接之后的任何失败都会关闭连接
func (c *Connector) BeginTransaction(ctx context.Context, level rdb.IsolationLevel) (*Transaction, error) {
	code, hasLevel, err := c.isolationCode(level)
	if err != nil {
		return nil, err
	}

	conn, err := c.driver.Open(ctx, c.connStr)
	if err != nil {
		c.logger.ErrorContext(ctx, "open connection failed", "error", err.Error())
		return nil, err
	}

	if hasLevel {
		if err := conn.SetIsolationLevel(ctx, code); err != nil {
			c.closeConnection(ctx, conn)
			return nil, err
		}
	}
	if err := conn.BeginTransaction(ctx); err != nil {
		c.closeConnection(ctx, conn)
		return nil, err
	}

	tx := &Transaction{ID: c.idgen.Generate(), Isolation: level, conn: conn, state: TransactionActive}
	c.logger.DebugContext(ctx, "transaction started", "id", tx.ID, "isolation", string(level))
	return tx, nil
}

func (c *Connector) closeConnection(ctx context.Context, conn driver.Connection) {
	if err := conn.Close(); err != nil {
		c.logger.ErrorContext(ctx, "close connection failed", "error", err.Error())
	}
}

// Commit 提交事务，无论提交是否成功都会关闭连接，失败时状态为 FAILED
func (c *Connector) Commit(ctx context.Context, tx *Transaction) error {
	return c.end(ctx, "Commit", tx, TransactionCommitted, func(conn driver.Connection) error {
		return conn.CommitTransaction(ctx)
	})
}

// Rollback 回滚事务，无论回滚是否成功都会关闭连接，失败时状态为 FAILED
func (c *Connector) Rollback(ctx context.Context, tx *Transaction) error {
	return c.end(ctx, "Rollback", tx, TransactionRolledBack, func(conn driver.Connection) error {
		return conn.RollbackTransaction(ctx)
	})
}

func (c *Connector) end(ctx context.Context, op string, tx *Transaction, state TransactionState, fn func(driver.Connection) error) (err error) {
	if tx == nil {
		return rdb.NewValidationError(op, "", "transaction is nil")
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.state != TransactionActive {
		return rdb.ErrTransactionDone
	}

	defer func() {
		if cerr := tx.conn.Close(); cerr != nil {
			c.logger.ErrorContext(ctx, "close connection failed", "id", tx.ID, "error", cerr.Error())
			err = errors.Join(err, cerr)
		}
	}()

	if err := fn(tx.conn); err != nil {
		tx.state = TransactionFailed
		c.logger.ErrorContext(ctx, "transaction end failed", "id", tx.ID, "operation", op, "error", err.Error())
		return err
	}
	tx.state = state
	c.logger.DebugContext(ctx, "transaction ended", "id", tx.ID, "state", state.String())
	return nil
}
