package db2z

import (
	"fmt"
	"strings"
	"time"

	"github.com/hatlonely/db2z/cfg"
	"github.com/hatlonely/db2z/ref"
	"github.com/pkg/errors"
)

// Options 连接器配置
// DSN 不为空时直接作为连接串，否则由 Database/Hostname/Username 等字段拼接
type Options struct {
	// Driver 驱动配置，为空时使用 DriverName 和连接串创建 SQLDriver
	Driver *ref.TypeOptions `cfg:"driver"`

	DSN        string `cfg:"dsn"`
	Database   string `cfg:"database" def:"testdb"`
	Hostname   string `cfg:"hostname"`
	Port       int    `cfg:"port"`
	Username   string `cfg:"username"`
	Password   string `cfg:"password"`
	Protocol   string `cfg:"protocol" def:"TCPIP"`
	Schema     string `cfg:"schema"`
	DriverName string `cfg:"driverName" def:"go_ibm_db"`

	MinPoolSize       int           `cfg:"minPoolSize" validate:"gte=0"`
	MaxPoolSize       int           `cfg:"maxPoolSize" validate:"gte=0"`
	ConnectionTimeout time.Duration `cfg:"connectionTimeout" def:"60s"`

	// StrictIsolation 只允许 READ COMMITTED 和 SERIALIZABLE
	StrictIsolation bool `cfg:"strictIsolation"`
	// Concurrency 批量同步时同时处理的模型数
	Concurrency int `cfg:"concurrency" def:"4" validate:"gte=1"`

	// TransactionIDGenerator 事务句柄标识生成器，为空时使用 v7 UUID
	TransactionIDGenerator *ref.TypeOptions `cfg:"transactionIdGenerator"`

	Logger        *ref.TypeOptions `cfg:"logger"`
	EnableMetrics bool             `cfg:"enableMetrics"`
	EnableTracing bool             `cfg:"enableTracing"`
}

// ConnectionString 连接串
func (o *Options) ConnectionString() string {
	if o.DSN != "" {
		return o.DSN
	}
	return fmt.Sprintf("DRIVER={DB2};DATABASE=%s;HOSTNAME=%s;UID=%s;PWD=%s;PORT=%d;PROTOCOL=%s",
		o.Database, o.Hostname, o.Username, o.Password, o.Port, o.Protocol)
}

// DefaultSchema 表所在的 schema
// 使用 DSN 时取 CurrentSchema，没有则取 UID；否则取大写的 Schema，没有则取 Username
func (o *Options) DefaultSchema() string {
	if o.DSN != "" {
		attrs := ParseDSN(o.DSN)
		if schema := attrs["CURRENTSCHEMA"]; schema != "" {
			return schema
		}
		return attrs["UID"]
	}
	if o.Schema != "" {
		return strings.ToUpper(o.Schema)
	}
	return o.Username
}

// ParseDSN 解析 key=value; 形式的连接串，key 统一大写
func ParseDSN(dsn string) map[string]string {
	attrs := map[string]string{}
	for _, part := range strings.Split(dsn, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		attrs[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return attrs
}

// LoadOptions 从配置文件加载连接器配置，key 为空时使用整个文件
func LoadOptions(path string, key string) (*Options, error) {
	c, err := cfg.NewConfig(path)
	if err != nil {
		return nil, errors.WithMessage(err, "cfg.NewConfig failed")
	}
	if key != "" {
		c = c.Sub(key)
	}

	var options Options
	if err := c.ConvertTo(&options); err != nil {
		return nil, errors.WithMessage(err, "config.ConvertTo failed")
	}
	return &options, nil
}
