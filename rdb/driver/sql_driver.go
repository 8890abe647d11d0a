package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

type SQLDriverOptions struct {
	// DriverName database/sql 注册的驱动名
	DriverName string `cfg:"driverName" validate:"required"`
	DSN        string `cfg:"dsn" validate:"required"`

	MaxOpenConns    int           `cfg:"maxOpenConns"`
	MaxIdleConns    int           `cfg:"maxIdleConns"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime"`

	// ConnectTimeout 建立连接时 Ping 的超时时间，0 表示不 Ping
	ConnectTimeout time.Duration `cfg:"connectTimeout"`
}

// SQLDriver 基于 database/sql 连接池的驱动
type SQLDriver struct {
	db         *sql.DB
	driverName string
	dsn        string
}

func NewSQLDriverWithOptions(options *SQLDriverOptions) (*SQLDriver, error) {
	if options == nil || options.DriverName == "" {
		return nil, errors.New("driverName is required")
	}

	db, err := sql.Open(options.DriverName, options.DSN)
	if err != nil {
		return nil, err
	}
	if options.MaxOpenConns > 0 {
		db.SetMaxOpenConns(options.MaxOpenConns)
	}
	if options.MaxIdleConns > 0 {
		db.SetMaxIdleConns(options.MaxIdleConns)
	}
	if options.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(options.ConnMaxLifetime)
	}

	if options.ConnectTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), options.ConnectTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &SQLDriver{db: db, driverName: options.DriverName, dsn: options.DSN}, nil
}

// NewSQLDriver 包装已有的连接池，Open 始终从该池租用连接
func NewSQLDriver(db *sql.DB) *SQLDriver {
	return &SQLDriver{db: db}
}

func (d *SQLDriver) Execute(ctx context.Context, query string, params []any, opts *ExecuteOptions) ([]Row, error) {
	return execute(ctx, d.db, query, params, opts)
}

// Open 连接串为空或与连接池相同时从池中租用连接，否则为该连接串单独建立连接
func (d *SQLDriver) Open(ctx context.Context, connStr string) (Connection, error) {
	if connStr == "" || connStr == d.dsn || d.driverName == "" {
		conn, err := d.db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		return &sqlConnection{conn: conn, isolation: sql.LevelDefault}, nil
	}

	db, err := sql.Open(d.driverName, connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlConnection{conn: conn, owned: db, isolation: sql.LevelDefault}, nil
}

func (d *SQLDriver) Close() error {
	return d.db.Close()
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func execute(ctx context.Context, q queryer, query string, params []any, opts *ExecuteOptions) ([]Row, error) {
	if opts != nil && opts.NoResultSet {
		_, err := q.ExecContext(ctx, query, params...)
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

var isolationLevels = map[int]sql.IsolationLevel{
	IsolationReadUncommitted: sql.LevelReadUncommitted,
	IsolationReadCommitted:   sql.LevelReadCommitted,
	IsolationRepeatableRead:  sql.LevelRepeatableRead,
	IsolationSerializable:    sql.LevelSerializable,
}

// sqlConnection 独占的 *sql.Conn，事务开始后语句在事务上执行
type sqlConnection struct {
	mu        sync.Mutex
	conn      *sql.Conn
	owned     *sql.DB
	tx        *sql.Tx
	isolation sql.IsolationLevel
}

func (c *sqlConnection) Execute(ctx context.Context, query string, params []any, opts *ExecuteOptions) ([]Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return execute(ctx, c.tx, query, params, opts)
	}
	return execute(ctx, c.conn, query, params, opts)
}

func (c *sqlConnection) SetIsolationLevel(ctx context.Context, code int) error {
	level, ok := isolationLevels[code]
	if !ok {
		return fmt.Errorf("unsupported isolation level code %d", code)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isolation = level
	return nil
}

func (c *sqlConnection) BeginTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return errors.New("transaction already started")
	}
	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{Isolation: c.isolation})
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *sqlConnection) CommitTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return sql.ErrTxDone
	}
	tx := c.tx
	c.tx = nil
	return tx.Commit()
}

func (c *sqlConnection) RollbackTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx == nil {
		return sql.ErrTxDone
	}
	tx := c.tx
	c.tx = nil
	return tx.Rollback()
}

// Close 归还或关闭连接，未结束的事务会被回滚
func (c *sqlConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.tx != nil {
		if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
		c.tx = nil
	}
	errs = append(errs, c.conn.Close())
	if c.owned != nil {
		errs = append(errs, c.owned.Close())
		c.owned = nil
	}
	return errors.Join(errs...)
}
