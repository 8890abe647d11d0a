package db2z

import (
	"context"

	"github.com/hatlonely/db2z/cfg"
	"github.com/hatlonely/db2z/log"
	"github.com/hatlonely/db2z/log/logger"
	"github.com/hatlonely/db2z/rdb"
	"github.com/hatlonely/db2z/rdb/driver"
	"github.com/hatlonely/db2z/ref"
	"github.com/hatlonely/db2z/uid"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*Connector](NewConnectorWithOptions)
}

var (
	_ rdb.SchemaReconciler[*Plan]              = (*Connector)(nil)
	_ rdb.MutationExecutor                     = (*Connector)(nil)
	_ rdb.TransactionCoordinator[*Transaction] = (*Connector)(nil)
	_ rdb.StatementBuilder                     = (*Builder)(nil)
)

// Connector DB2 z/OS 方言适配器，组合驱动、语句构造器和模型注册表
type Connector struct {
	options      Options
	driver       driver.Driver
	builder      *Builder
	introspector *Introspector
	registry     *rdb.Registry
	modelBuilder *rdb.ModelBuilder
	logger       logger.Logger
	idgen        uid.Generator
	connStr      string
}

// NewConnectorWithOptions 根据配置创建驱动和连接器
// options.Driver 为空时用 DriverName 和连接串创建 SQLDriver，开启指标或追踪时包装为 ObservableDriver
func NewConnectorWithOptions(options *Options) (*Connector, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	opts := *options
	if err := cfg.SetDefaults(&opts); err != nil {
		return nil, errors.WithMessage(err, "cfg.SetDefaults failed")
	}

	d, err := newDriver(&opts)
	if err != nil {
		return nil, err
	}

	c, err := NewConnector(d, &opts)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return c, nil
}

func newDriver(options *Options) (driver.Driver, error) {
	var (
		d   driver.Driver
		err error
	)
	if options.Driver != nil {
		d, err = driver.NewDriverWithOptions(options.Driver)
		if err != nil {
			return nil, errors.WithMessage(err, "driver.NewDriverWithOptions failed")
		}
	} else {
		d, err = driver.NewSQLDriverWithOptions(&driver.SQLDriverOptions{
			DriverName:     options.DriverName,
			DSN:            options.ConnectionString(),
			MaxOpenConns:   options.MaxPoolSize,
			MaxIdleConns:   options.MinPoolSize,
			ConnectTimeout: options.ConnectionTimeout,
		})
		if err != nil {
			return nil, errors.WithMessage(err, "driver.NewSQLDriverWithOptions failed")
		}
	}

	if !options.EnableMetrics && !options.EnableTracing {
		return d, nil
	}
	obs, err := driver.NewObservableDriver(d, &driver.ObservableDriverOptions{
		Logger:        options.Logger,
		EnableMetrics: options.EnableMetrics,
		EnableTracing: options.EnableTracing,
		EnableLogging: options.Logger != nil,
		Name:          "db2z",
	})
	if err != nil {
		_ = d.Close()
		return nil, errors.WithMessage(err, "driver.NewObservableDriver failed")
	}
	return obs, nil
}

// NewConnector 使用已有的驱动创建连接器
func NewConnector(d driver.Driver, options *Options) (*Connector, error) {
	if d == nil {
		return nil, errors.New("driver is nil")
	}
	var opts Options
	if options != nil {
		opts = *options
	}
	if err := cfg.SetDefaults(&opts); err != nil {
		return nil, errors.WithMessage(err, "cfg.SetDefaults failed")
	}

	l, err := log.NewLoggerWithOptions(opts.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	l = l.WithGroup("db2z")

	idgen, err := uid.NewGeneratorWithOptions(opts.TransactionIDGenerator)
	if err != nil {
		return nil, errors.WithMessage(err, "uid.NewGeneratorWithOptions failed")
	}

	schema := opts.DefaultSchema()
	return &Connector{
		options:      opts,
		driver:       d,
		builder:      NewBuilder(schema),
		introspector: NewIntrospector(d, schema, l),
		registry:     rdb.NewRegistry(),
		modelBuilder: rdb.NewModelBuilder(),
		logger:       l,
		idgen:        idgen,
		connStr:      opts.ConnectionString(),
	}, nil
}

func (c *Connector) Schema() string {
	return c.builder.Schema()
}

func (c *Connector) ConnectionString() string {
	return c.connStr
}

func (c *Connector) Builder() *Builder {
	return c.builder
}

func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Define 注册模型定义
func (c *Connector) Define(model *rdb.ModelDefinition) error {
	return c.registry.Define(model)
}

// Register 从带 rdb tag 的结构体注册模型，返回模型名
func (c *Connector) Register(v any) (string, error) {
	model, err := c.modelBuilder.FromStruct(v)
	if err != nil {
		return "", err
	}
	if err := c.registry.Define(model); err != nil {
		return "", err
	}
	return model.Name, nil
}

// Model 查找已注册的模型
func (c *Connector) Model(name string) (*rdb.ModelDefinition, error) {
	return c.registry.Get(name)
}

// Models 已注册的模型名，按注册顺序
func (c *Connector) Models() []string {
	return c.registry.Names()
}

func (c *Connector) Close() error {
	return c.driver.Close()
}

// lookup 查找模型，不存在时返回带操作名的 ErrModelNotFound
func (c *Connector) lookup(op string, name string) (*rdb.ModelDefinition, error) {
	m, err := c.registry.Get(name)
	if err != nil {
		return nil, rdb.NewModelNotFoundError(op, name)
	}
	return m, nil
}

func (c *Connector) execute(ctx context.Context, executor driver.Executor, model string, sql string, params []any, opts *driver.ExecuteOptions) ([]driver.Row, error) {
	c.logger.DebugContext(ctx, "execute", "model", model, "sql", sql)
	rows, err := executor.Execute(ctx, sql, params, opts)
	if err != nil {
		c.logger.ErrorContext(ctx, "execute failed", "model", model, "sql", sql, "error", err.Error())
		return nil, err
	}
	return rows, nil
}

// ddl 按顺序执行 DDL，第一个失败的语句终止执行
func (c *Connector) ddl(ctx context.Context, model string, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.execute(ctx, c.driver, model, stmt, nil, &driver.ExecuteOptions{NoResultSet: true}); err != nil {
			return err
		}
	}
	return nil
}
