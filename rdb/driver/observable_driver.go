package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hatlonely/db2z/log"
	"github.com/hatlonely/db2z/log/logger"
	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableDriverOptions struct {
	// Driver 被包装的底层驱动配置
	Driver *ref.TypeOptions `cfg:"driver" validate:"required"`

	Logger *ref.TypeOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics"`
	EnableLogging bool `cfg:"enableLogging"`
	EnableTracing bool `cfg:"enableTracing"`

	// Name 组件名称，作为指标名前缀、日志 component 字段和 span 属性
	Name string `cfg:"name" def:"db2z"`
}

// ObservableMetrics 驱动的 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
}

// NewObservableMetrics 创建并注册指标，同名指标已注册时复用已有的收集器
func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_operations_total",
			Help: "Total number of driver operations",
		},
		[]string{"operation", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_operation_duration_seconds",
			Help:    "Duration of driver operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)
	active := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name + "_active_operations",
			Help: "Number of active driver operations",
		},
		[]string{"operation"},
	)

	var err error
	if counter, err = register(registerer, counter); err != nil {
		return nil, err
	}
	if duration, err = register(registerer, duration); err != nil {
		return nil, err
	}
	if active, err = register(registerer, active); err != nil {
		return nil, err
	}

	return &ObservableMetrics{
		operationCounter:  counter,
		operationDuration: duration,
		activeOperations:  active,
	}, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metrics failed")
	}
	return c, nil
}

// ObservableDriver 装饰器，为任意 Driver 添加日志、指标和追踪
type ObservableDriver struct {
	driver Driver

	logger        logger.Logger
	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableDriverWithOptions(options *ObservableDriverOptions) (*ObservableDriver, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	d, err := NewDriverWithOptions(options.Driver)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying driver")
	}

	obs, err := NewObservableDriver(d, options)
	if err != nil {
		_ = d.Close()
		return nil, err
	}
	return obs, nil
}

// NewObservableDriver 包装已有驱动，options.Driver 被忽略
func NewObservableDriver(d Driver, options *ObservableDriverOptions) (*ObservableDriver, error) {
	if options == nil {
		options = &ObservableDriverOptions{}
	}
	name := options.Name
	if name == "" {
		name = "db2z"
	}

	obs := &ObservableDriver{
		driver:        d,
		name:          name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("observableDriver")
	}

	if options.EnableMetrics {
		metrics, err := NewObservableMetrics(name, nil)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("driver.%s", name))
	}

	return obs, nil
}

// statementKind 取语句的第一个关键字作为 span 属性
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

func (obs *ObservableDriver) observeOperation(ctx context.Context, operation string, sql string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String("component", obs.name),
			attribute.String("operation", operation),
		}
		if sql != "" {
			attrs = append(attrs, attribute.String("db.statement.kind", statementKind(sql)))
		}
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("driver.%s", operation), trace.WithAttributes(attrs...))
		defer span.End()
	}

	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "driver operation failed",
				"component", obs.name,
				"operation", operation,
				"sql", sql,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "driver operation completed",
				"component", obs.name,
				"operation", operation,
				"sql", sql,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (obs *ObservableDriver) Execute(ctx context.Context, sql string, params []any, opts *ExecuteOptions) ([]Row, error) {
	var rows []Row
	err := obs.observeOperation(ctx, "Execute", sql, func(ctx context.Context) error {
		var err error
		rows, err = obs.driver.Execute(ctx, sql, params, opts)
		return err
	})
	return rows, err
}

func (obs *ObservableDriver) Open(ctx context.Context, connStr string) (Connection, error) {
	var conn Connection
	err := obs.observeOperation(ctx, "Open", "", func(ctx context.Context) error {
		var err error
		conn, err = obs.driver.Open(ctx, connStr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &observableConnection{conn: conn, obs: obs}, nil
}

func (obs *ObservableDriver) Close() error {
	return obs.observeOperation(context.Background(), "Close", "", func(context.Context) error {
		return obs.driver.Close()
	})
}

// Unwrap 返回被包装的驱动
func (obs *ObservableDriver) Unwrap() Driver {
	return obs.driver
}

type observableConnection struct {
	conn Connection
	obs  *ObservableDriver
}

func (c *observableConnection) Execute(ctx context.Context, sql string, params []any, opts *ExecuteOptions) ([]Row, error) {
	var rows []Row
	err := c.obs.observeOperation(ctx, "Connection.Execute", sql, func(ctx context.Context) error {
		var err error
		rows, err = c.conn.Execute(ctx, sql, params, opts)
		return err
	})
	return rows, err
}

func (c *observableConnection) SetIsolationLevel(ctx context.Context, code int) error {
	return c.obs.observeOperation(ctx, "Connection.SetIsolationLevel", "", func(ctx context.Context) error {
		return c.conn.SetIsolationLevel(ctx, code)
	})
}

func (c *observableConnection) BeginTransaction(ctx context.Context) error {
	return c.obs.observeOperation(ctx, "Connection.BeginTransaction", "", c.conn.BeginTransaction)
}

func (c *observableConnection) CommitTransaction(ctx context.Context) error {
	return c.obs.observeOperation(ctx, "Connection.CommitTransaction", "", c.conn.CommitTransaction)
}

func (c *observableConnection) RollbackTransaction(ctx context.Context) error {
	return c.obs.observeOperation(ctx, "Connection.RollbackTransaction", "", c.conn.RollbackTransaction)
}

func (c *observableConnection) Close() error {
	return c.obs.observeOperation(context.Background(), "Connection.Close", "", func(context.Context) error {
		return c.conn.Close()
	})
}
