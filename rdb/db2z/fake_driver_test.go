package db2z

import (
	"context"
	"strings"
	"sync"

	"github.com/hatlonely/db2z/rdb"
	"github.com/hatlonely/db2z/rdb/driver"
)

// call 驱动收到的一次调用
type call struct {
	SQL    string
	Params []any
	Opts   *driver.ExecuteOptions
}

// fakeDriver 按脚本返回结果并记录每条语句
type fakeDriver struct {
	mu      sync.Mutex
	calls   []call
	handler func(sql string, params []any) ([]driver.Row, error)

	opens   int
	openErr error
	conns   []*fakeConn
	newConn func() *fakeConn
	closed  int
	events  []string
}

// event 记录一次按时间排序的事件
func (d *fakeDriver) event(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, name)
}

func (d *fakeDriver) eventLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{}
}

func (d *fakeDriver) Execute(ctx context.Context, sql string, params []any, opts *driver.ExecuteOptions) ([]driver.Row, error) {
	d.mu.Lock()
	d.calls = append(d.calls, call{SQL: sql, Params: params, Opts: opts})
	handler := d.handler
	d.mu.Unlock()

	if handler == nil {
		return nil, nil
	}
	return handler(sql, params)
}

func (d *fakeDriver) Open(ctx context.Context, connStr string) (driver.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if d.openErr != nil {
		return nil, d.openErr
	}
	conn := &fakeConn{driver: d}
	if d.newConn != nil {
		conn = d.newConn()
		conn.driver = d
	}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// statements 按顺序返回执行过的 SQL
func (d *fakeDriver) statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	stmts := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		stmts = append(stmts, c.SQL)
	}
	return stmts
}

// statementsFor 只返回包含指定表名的语句
func (d *fakeDriver) statementsFor(table string) []string {
	var stmts []string
	for _, stmt := range d.statements() {
		if strings.Contains(stmt, table) {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

type fakeConn struct {
	driver *fakeDriver

	isolationCodes []int
	isolationErr   error
	beginErr       error
	commitErr      error
	rollbackErr    error
	closeErr       error

	began      int
	committed  int
	rolledBack int
	closes     int
}

func (c *fakeConn) Execute(ctx context.Context, sql string, params []any, opts *driver.ExecuteOptions) ([]driver.Row, error) {
	return c.driver.Execute(ctx, sql, params, opts)
}

func (c *fakeConn) SetIsolationLevel(ctx context.Context, code int) error {
	c.isolationCodes = append(c.isolationCodes, code)
	return c.isolationErr
}

func (c *fakeConn) BeginTransaction(ctx context.Context) error {
	c.began++
	return c.beginErr
}

func (c *fakeConn) CommitTransaction(ctx context.Context) error {
	c.committed++
	c.driver.event("commit")
	return c.commitErr
}

func (c *fakeConn) RollbackTransaction(ctx context.Context) error {
	c.rolledBack++
	return c.rollbackErr
}

func (c *fakeConn) Close() error {
	c.closes++
	c.driver.event("close")
	return c.closeErr
}

// catalog 模拟系统目录，key 为表名
type catalog struct {
	columns map[string][]driver.Row
	indexes map[string][]driver.Row
}

func (c *catalog) handle(sql string, params []any) ([]driver.Row, bool) {
	if len(params) == 0 {
		return nil, false
	}
	table, _ := params[0].(string)
	switch sql {
	case columnCatalogSQL:
		return c.columns[table], true
	case indexCatalogSQL:
		return c.indexes[table], true
	}
	return nil, false
}

func columnRow(name string, position int, nullable bool) driver.Row {
	nulls := "N"
	if nullable {
		nulls = "Y"
	}
	return driver.Row{"NAME": name, "DATATYPE": "VARCHAR ", "COLNO": int32(position), "DATALENGTH": int32(512), "NULLS": nulls}
}

func indexRow(name string, rule string, colnames string) driver.Row {
	return driver.Row{"INDNAME": name, "UNIQUERULE": rule, "COLNAMES": colnames}
}

func widgetModel() *rdb.ModelDefinition {
	return &rdb.ModelDefinition{
		Name: "Widget",
		Properties: []rdb.PropertyDefinition{
			{Name: "id", Type: rdb.FieldTypeInt, ID: true, Generated: true},
			{Name: "name", Type: rdb.FieldTypeString, Size: 64},
			{Name: "price", Type: rdb.FieldTypeDecimal, Size: 10, Scale: 2, Nullable: true},
		},
	}
}

func newTestConnector(d driver.Driver, options *Options) *Connector {
	if options == nil {
		options = &Options{Schema: "s"}
	}
	c, err := NewConnector(d, options)
	if err != nil {
		panic(err)
	}
	return c
}
